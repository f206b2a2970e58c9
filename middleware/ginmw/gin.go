// Package ginmw provides Gin HTTP middleware that verifies bearer JWTs
// using a jwtverify verifier.
//
// Middleware functions accept anything satisfying Verifier — no direct
// dependency on VerifierBase, cognito.Verifier, or alb.Verifier.
package ginmw

import (
	"context"
	"net/http"
	"strings"

	jwtverify "github.com/chimerakang/jwt-verify-go"
	"github.com/gin-gonic/gin"
)

// Context keys for storing verified claims in gin.Context.
const (
	KeyClaims  = "jwtverify_claims"
	KeyIssuer  = "jwtverify_issuer"
	KeySubject = "jwtverify_subject"
)

// Verifier is the subset of jwtverify.VerifierBase (and its cognito/alb
// presets) the middleware needs.
type Verifier interface {
	Verify(ctx context.Context, token string, overrides *jwtverify.Overrides) (map[string]any, error)
}

// AuthOption configures Auth middleware behavior.
type AuthOption func(*authConfig)

type authConfig struct {
	excludedPaths map[string]bool
	overrides     *jwtverify.Overrides
}

// WithExcludedPaths sets paths that skip verification (e.g. health checks).
func WithExcludedPaths(paths ...string) AuthOption {
	return func(cfg *authConfig) {
		for _, p := range paths {
			cfg.excludedPaths[p] = true
		}
	}
}

// WithOverrides passes per-request overrides (audience, clientId, ...)
// to Verify on every request.
func WithOverrides(o *jwtverify.Overrides) AuthOption {
	return func(cfg *authConfig) { cfg.overrides = o }
}

// Auth returns Gin middleware that verifies the bearer token against v and
// stores the resulting claims in the context. Responds with 401 if the
// token is missing or fails verification.
func Auth(v Verifier, opts ...AuthOption) gin.HandlerFunc {
	cfg := &authConfig{excludedPaths: make(map[string]bool)}
	for _, o := range opts {
		o(cfg)
	}

	return func(c *gin.Context) {
		if cfg.excludedPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		tokenStr := extractBearerToken(c.Request)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}

		claims, err := v.Verify(c.Request.Context(), tokenStr, cfg.overrides)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(KeyClaims, claims)
		if iss, ok := claims["iss"].(string); ok {
			c.Set(KeyIssuer, iss)
		}
		if sub, ok := claims["sub"].(string); ok {
			c.Set(KeySubject, sub)
		}

		c.Next()
	}
}

// --- Context helpers ---

// GetClaims returns the verified claims from the Gin context.
func GetClaims(c *gin.Context) map[string]any {
	v, _ := c.Get(KeyClaims)
	claims, _ := v.(map[string]any)
	return claims
}

// GetIssuer returns the token's issuer claim from the Gin context.
func GetIssuer(c *gin.Context) string {
	v, _ := c.Get(KeyIssuer)
	s, _ := v.(string)
	return s
}

// GetSubject returns the token's subject claim from the Gin context.
func GetSubject(c *gin.Context) string {
	v, _ := c.Get(KeySubject)
	s, _ := v.(string)
	return s
}

// --- internal helpers ---

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
