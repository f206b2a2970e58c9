package claims

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chimerakang/jwt-verify-go/jwk"
)

// InvalidIssuerError reports an iss mismatch.
type InvalidIssuerError struct{ Got string }

func (e *InvalidIssuerError) Error() string { return fmt.Sprintf("jwt: invalid issuer %q", e.Got) }

// InvalidAudienceError reports an aud/client_id mismatch.
type InvalidAudienceError struct{ Message string }

func (e *InvalidAudienceError) Error() string { return "jwt: " + e.Message }

// InvalidClaimError is the catch-all for claim shape problems (missing
// required claim, wrong type, ALB signer/client mismatch, Cognito
// token_use/scope mismatch) that are not more specifically typed.
type InvalidClaimError struct{ Message string }

func (e *InvalidClaimError) Error() string { return "jwt: " + e.Message }

// ExpiredError reports exp + graceSeconds < now.
type ExpiredError struct{ Exp, Now, Grace int64 }

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("jwt: expired (exp=%d, grace=%d, now=%d)", e.Exp, e.Grace, e.Now)
}

// NotBeforeError reports now + graceSeconds < nbf.
type NotBeforeError struct{ Nbf, Now, Grace int64 }

func (e *NotBeforeError) Error() string {
	return fmt.Sprintf("jwt: not yet valid (nbf=%d, grace=%d, now=%d)", e.Nbf, e.Grace, e.Now)
}

// Clock returns the current time as seconds since the Unix epoch. It is
// injected so tests can drive exp/nbf boundaries deterministically.
type Clock func() int64

// Validate runs the claim pipeline in spec order: iss, aud/client_id,
// ALB signer/client, exp, nbf, Cognito token_use/scope, then the custom
// hook. It stops at the first failure.
func Validate(cfg Config, header, payload map[string]any, key jwk.JWK, now Clock) error {
	if err := checkIssuer(cfg, payload); err != nil {
		return err
	}
	if err := checkAudience(cfg, payload); err != nil {
		return err
	}
	if cfg.AlbArn != nil || cfg.AlbClientID != nil {
		if err := checkALB(cfg, header); err != nil {
			return err
		}
	}
	nowSec := now()
	if err := checkExp(cfg, payload, nowSec); err != nil {
		return err
	}
	if err := checkNbf(cfg, payload, nowSec); err != nil {
		return err
	}
	if cfg.IsCognito {
		if err := checkCognito(cfg, payload); err != nil {
			return err
		}
	}
	if cfg.CustomJwtCheck != nil {
		return cfg.CustomJwtCheck(CustomCheckInput{Header: header, Payload: payload, Jwk: key})
	}
	return nil
}

func checkIssuer(cfg Config, payload map[string]any) error {
	if len(cfg.Issuer) == 0 {
		return nil
	}
	iss, ok := payload["iss"].(string)
	if !ok {
		return &InvalidIssuerError{Got: ""}
	}
	if !cfg.Issuer.Contains(iss) {
		return &InvalidIssuerError{Got: iss}
	}
	return nil
}

func checkAudience(cfg Config, payload map[string]any) error {
	if len(cfg.Audience) > 0 {
		if !audMatches(payload["aud"], cfg.Audience) {
			return &InvalidAudienceError{Message: fmt.Sprintf("aud does not match configured audience")}
		}
		return nil
	}
	if len(cfg.ClientID) > 0 {
		clientID, _ := payload["client_id"].(string)
		if clientID == "" {
			if !audMatches(payload["aud"], cfg.ClientID) {
				return &InvalidClaimError{Message: "client_id/aud does not match configured clientId"}
			}
			return nil
		}
		if !cfg.ClientID.Contains(clientID) {
			return &InvalidClaimError{Message: fmt.Sprintf("client_id %q does not match configured clientId", clientID)}
		}
	}
	return nil
}

// audMatches handles aud being either a single string or a JSON array of
// strings; at least one element must match a configured value.
func audMatches(aud any, configured StringSet) bool {
	switch v := aud.(type) {
	case string:
		return configured.Contains(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && configured.Contains(s) {
				return true
			}
		}
	}
	return false
}

func checkALB(cfg Config, header map[string]any) error {
	if cfg.AlbArn != nil {
		signer, _ := header["signer"].(string)
		if !cfg.AlbArn.Contains(signer) {
			return &InvalidClaimError{Message: fmt.Sprintf("header signer %q does not match configured albArn", signer)}
		}
	}
	if cfg.AlbClientID != nil {
		client, _ := header["client"].(string)
		if !cfg.AlbClientID.Contains(client) {
			return &InvalidClaimError{Message: fmt.Sprintf("header client %q does not match configured clientId", client)}
		}
	}
	return nil
}

func checkExp(cfg Config, payload map[string]any, now int64) error {
	exp, ok := numericClaim(payload["exp"])
	if !ok {
		return &InvalidClaimError{Message: "exp claim is required and must be numeric"}
	}
	if now > exp+cfg.GraceSeconds {
		return &ExpiredError{Exp: exp, Now: now, Grace: cfg.GraceSeconds}
	}
	return nil
}

func checkNbf(cfg Config, payload map[string]any, now int64) error {
	raw, present := payload["nbf"]
	if !present {
		return nil
	}
	nbf, ok := numericClaim(raw)
	if !ok {
		return &InvalidClaimError{Message: "nbf claim must be numeric when present"}
	}
	if now+cfg.GraceSeconds < nbf {
		return &NotBeforeError{Nbf: nbf, Now: now, Grace: cfg.GraceSeconds}
	}
	return nil
}

func checkCognito(cfg Config, payload map[string]any) error {
	tokenUse, _ := payload["token_use"].(string)
	allowed := cfg.TokenUse
	if len(allowed) == 0 {
		allowed = StringSet{"id", "access"}
	}
	if !allowed.Contains(tokenUse) {
		return &InvalidClaimError{Message: fmt.Sprintf("token_use %q is not one of %v", tokenUse, []string(allowed))}
	}
	if len(cfg.Scopes) > 0 {
		scopeStr, _ := payload["scope"].(string)
		tokenScopes := strings.Fields(scopeStr)
		if !cfg.Scopes.Intersects(tokenScopes) {
			return &InvalidClaimError{Message: "scope does not intersect configured scopes"}
		}
	}
	return nil
}

// numericClaim accepts a float64 (json.Decode without UseNumber) or a
// json.Number (the decompose package's decoder uses UseNumber to avoid
// float64 precision loss on large epoch values).
func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Int64()
		if err == nil {
			return f, true
		}
		asFloat, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int64(asFloat), true
	case float64:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
