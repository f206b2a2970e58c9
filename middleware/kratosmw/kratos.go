// Package kratosmw provides Kratos transport middleware that verifies
// bearer JWTs using a jwtverify verifier, for both HTTP and gRPC
// transports.
package kratosmw

import (
	"context"
	"strings"

	jwtverify "github.com/chimerakang/jwt-verify-go"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

type claimsKey struct{}

// Verifier is the subset of jwtverify.VerifierBase (and its cognito/alb
// presets) the middleware needs.
type Verifier interface {
	Verify(ctx context.Context, token string, overrides *jwtverify.Overrides) (map[string]any, error)
}

// ClaimsFromContext returns the claims Auth stored on ctx, if any.
func ClaimsFromContext(ctx context.Context) (map[string]any, bool) {
	claims, ok := ctx.Value(claimsKey{}).(map[string]any)
	return claims, ok
}

type authConfig struct {
	excludedOperations map[string]bool
	overrides          *jwtverify.Overrides
}

// AuthOption configures Auth middleware behavior.
type AuthOption func(*authConfig)

// WithExcludedOperations exempts transport operations (as reported by
// transport.Transporter.Operation) from verification.
func WithExcludedOperations(ops ...string) AuthOption {
	return func(cfg *authConfig) {
		for _, op := range ops {
			cfg.excludedOperations[op] = true
		}
	}
}

// WithOverrides passes per-request overrides to Verify on every call.
func WithOverrides(o *jwtverify.Overrides) AuthOption {
	return func(cfg *authConfig) { cfg.overrides = o }
}

// Auth returns Kratos middleware that verifies the bearer token carried in
// the request's Authorization header and stores the resulting claims on
// the context passed to the next handler.
func Auth(v Verifier, opts ...AuthOption) middleware.Middleware {
	cfg := &authConfig{excludedOperations: make(map[string]bool)}
	for _, o := range opts {
		o(cfg)
	}

	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return nil, errors.Unauthorized("MISSING_TRANSPORT", "no transport in context")
			}
			if cfg.excludedOperations[tr.Operation()] {
				return handler(ctx, req)
			}

			token := extractBearerFromHeader(tr.RequestHeader())
			if token == "" {
				return nil, errors.Unauthorized("MISSING_TOKEN", "missing authorization token")
			}

			claims, err := v.Verify(ctx, token, cfg.overrides)
			if err != nil {
				return nil, errors.Unauthorized("INVALID_TOKEN", "invalid token")
			}

			ctx = context.WithValue(ctx, claimsKey{}, claims)
			return handler(ctx, req)
		}
	}
}

func extractBearerFromHeader(h transport.Header) string {
	auth := h.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
