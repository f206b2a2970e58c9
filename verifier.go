package jwtverify

import (
	"context"
	"time"

	"github.com/chimerakang/jwt-verify-go/alg"
	"github.com/chimerakang/jwt-verify-go/audit"
	"github.com/chimerakang/jwt-verify-go/claims"
	"github.com/chimerakang/jwt-verify-go/decompose"
	"github.com/chimerakang/jwt-verify-go/jwk"
	"github.com/chimerakang/jwt-verify-go/jwks"
	"github.com/chimerakang/jwt-verify-go/metrics"
)

// Clock returns the current time; injected so tests can pin exp/nbf
// boundaries deterministically instead of depending on the wall clock.
type Clock func() time.Time

// VerifierBase orchestrates decomposition, JWKS resolution, signature
// dispatch, and claim validation. cognito.Verifier and alb.Verifier embed
// it and preset its configuration.
type VerifierBase struct {
	issuers []IssuerConfig
	cache   *jwks.Cache
	clock   Clock
	audit   *audit.Logger
	metrics *metrics.Metrics
}

// Option configures a VerifierBase.
type Option func(*VerifierBase)

// WithCache overrides the default jwks.Cache (e.g. to share one cache
// across several verifiers, or to inject fakes in tests).
func WithCache(c *jwks.Cache) Option {
	return func(v *VerifierBase) { v.cache = c }
}

// WithClock overrides the default time.Now-based clock.
func WithClock(c Clock) Option {
	return func(v *VerifierBase) { v.clock = c }
}

// WithAudit enables an async audit trail of verification attempts.
func WithAudit(l *audit.Logger) Option {
	return func(v *VerifierBase) { v.audit = l }
}

// WithMetrics enables Prometheus instrumentation of verification
// attempts. Cache/fetch/penalty-box metrics are wired separately via
// jwks.WithMetrics on the Cache passed to WithCache.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *VerifierBase) { v.metrics = m }
}

// New builds a VerifierBase over one or more issuer configurations.
func New(issuers []IssuerConfig, opts ...Option) *VerifierBase {
	v := &VerifierBase{
		issuers: issuers,
		cache:   jwks.NewCache(),
		clock:   time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify is the fully asynchronous entry point: it may trigger a JWKS
// fetch over the network.
func (v *VerifierBase) Verify(ctx context.Context, token string, overrides *Overrides) (map[string]any, error) {
	start := v.clock()
	decomposed, cfg, err := v.decomposeAndResolve(token, overrides)
	if err != nil {
		v.record(start, decomposed, cfg, err)
		return nil, err
	}

	key, err := v.cache.GetJwk(ctx, cfg.jwksURI(), decomposed)
	if err != nil {
		verr := classifyJwksErr(err)
		v.record(start, decomposed, cfg, verr)
		return nil, verr
	}

	payload, err := v.finish(decomposed, cfg, key)
	v.record(start, decomposed, cfg, err)
	return payload, err
}

// VerifySync requires the JWK to already be cached; it never performs
// network IO and is intended for hot paths (request authorizers) where an
// async boundary is undesirable.
func (v *VerifierBase) VerifySync(token string, overrides *Overrides) (map[string]any, error) {
	start := v.clock()
	decomposed, cfg, err := v.decomposeAndResolve(token, overrides)
	if err != nil {
		v.record(start, decomposed, cfg, err)
		return nil, err
	}

	key, err := v.cache.GetCachedJwk(cfg.jwksURI(), decomposed)
	if err != nil {
		verr := classifyJwksErr(err)
		v.record(start, decomposed, cfg, verr)
		return nil, verr
	}

	payload, err := v.finish(decomposed, cfg, key)
	v.record(start, decomposed, cfg, err)
	return payload, err
}

// record emits an audit event and verification/algorithm metrics for one
// Verify/VerifySync call. decomposed may be nil if the token never made it
// past structural parsing.
func (v *VerifierBase) record(start time.Time, decomposed *decompose.DecomposedJWT, cfg IssuerConfig, err error) {
	if v.audit == nil && v.metrics == nil {
		return
	}

	result := audit.ResultSuccess
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		if verr, ok := err.(*Error); ok {
			result = string(verr.Kind)
		} else {
			result = "custom_check_failed"
		}
	}

	duration := v.clock().Sub(start).Seconds()
	if v.metrics != nil {
		v.metrics.RecordVerification(result, duration)
		if err == nil && decomposed != nil {
			v.metrics.RecordAlgorithmUsage(decomposed.Alg())
		}
	}

	if v.audit != nil {
		event := audit.Event{Issuer: cfg.Issuer, Result: result, Error: errMsg}
		if decomposed != nil {
			event.Kid = decomposed.Kid()
			event.Alg = decomposed.Alg()
		}
		v.audit.Log(event)
	}
}

func (v *VerifierBase) decomposeAndResolve(token string, overrides *Overrides) (*decompose.DecomposedJWT, IssuerConfig, error) {
	decomposed, err := decompose.Parse(token)
	if err != nil {
		return nil, IssuerConfig{}, newErr(KindJwtParse, "failed to decompose token", err)
	}

	cfg, err := v.resolveIssuer(decomposed)
	if err != nil {
		return nil, IssuerConfig{}, err
	}
	cfg = cfg.merge(overrides)

	if cfg.Issuer == "" {
		return nil, IssuerConfig{}, newErr(KindParameterValidation, "issuer is not configured and was not supplied via overrides", nil)
	}

	return decomposed, cfg, nil
}

// resolveIssuer picks the IssuerConfig for this token: fixed in
// single-issuer mode, looked up by payload.iss and disambiguated by
// audience/clientId in multi-issuer mode.
func (v *VerifierBase) resolveIssuer(decomposed *decompose.DecomposedJWT) (IssuerConfig, error) {
	if len(v.issuers) == 0 {
		return IssuerConfig{}, newErr(KindParameterValidation, "verifier has no configured issuers", nil)
	}
	if len(v.issuers) == 1 {
		return v.issuers[0], nil
	}

	iss, _ := decomposed.Payload["iss"].(string)
	if iss == "" {
		return IssuerConfig{}, newErr(KindInvalidIssuer, "token has no iss claim to route on", nil)
	}

	var candidates []IssuerConfig
	for _, c := range v.issuers {
		if c.Issuer == iss {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return IssuerConfig{}, newErr(KindInvalidIssuer, "no configured issuer matches iss "+iss, nil)
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	for _, c := range candidates {
		if c.matchesPayload(decomposed.Payload) {
			return c, nil
		}
	}
	return IssuerConfig{}, newErr(KindInvalidIssuer, "multiple issuer configs share iss "+iss+" but none matches audience/clientId", nil)
}

func (v *VerifierBase) finish(decomposed *decompose.DecomposedJWT, cfg IssuerConfig, key jwk.JWK) (map[string]any, error) {
	if err := alg.Verify(decomposed.Alg(), key, cfg.JwtSignatureAlgorithms, decomposed.SigningInput(), decomposed.Signature); err != nil {
		return nil, classifyAlgErr(err)
	}

	nowSec := v.clock().UTC().Unix()
	claimCfg := cfg.toClaimsConfig()
	if err := claims.Validate(claimCfg, decomposed.Header, decomposed.Payload, key, func() int64 { return nowSec }); err != nil {
		verr := classifyClaimErr(err)
		if verr == nil {
			// A customJwtCheck failure: propagate unchanged, per spec.
			return nil, err
		}
		if cfg.IncludeRawJwtInErrors {
			verr = verr.WithRawJWT(decomposed)
		}
		return nil, verr
	}

	return decomposed.Payload, nil
}
