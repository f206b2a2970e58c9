// Package grpcmw provides gRPC unary and stream interceptors that verify
// bearer JWTs using a jwtverify verifier.
package grpcmw

import (
	"context"
	"strings"

	jwtverify "github.com/chimerakang/jwt-verify-go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type claimsKey struct{}

// Verifier is the subset of jwtverify.VerifierBase (and its cognito/alb
// presets) the interceptors need.
type Verifier interface {
	Verify(ctx context.Context, token string, overrides *jwtverify.Overrides) (map[string]any, error)
}

// ClaimsFromContext returns the claims a verifying interceptor stored on
// ctx, if any.
func ClaimsFromContext(ctx context.Context) (map[string]any, bool) {
	claims, ok := ctx.Value(claimsKey{}).(map[string]any)
	return claims, ok
}

type interceptorConfig struct {
	excludedMethods map[string]bool
	overrides       *jwtverify.Overrides
}

// Option configures the interceptors.
type Option func(*interceptorConfig)

// WithExcludedMethods exempts full RPC method names (e.g.
// "/health.Health/Check") from authentication.
func WithExcludedMethods(methods ...string) Option {
	return func(cfg *interceptorConfig) {
		for _, m := range methods {
			cfg.excludedMethods[m] = true
		}
	}
}

// WithOverrides passes per-request overrides to Verify on every call.
func WithOverrides(o *jwtverify.Overrides) Option {
	return func(cfg *interceptorConfig) { cfg.overrides = o }
}

// UnaryServerInterceptor verifies the bearer token carried in the
// "authorization" metadata key and stores the resulting claims on the
// context passed to handler.
func UnaryServerInterceptor(v Verifier, opts ...Option) grpc.UnaryServerInterceptor {
	cfg := newConfig(opts)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if cfg.excludedMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		newCtx, err := authenticate(ctx, v, cfg.overrides)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// StreamServerInterceptor is the streaming-RPC equivalent of
// UnaryServerInterceptor.
func StreamServerInterceptor(v Verifier, opts ...Option) grpc.StreamServerInterceptor {
	cfg := newConfig(opts)
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if cfg.excludedMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		newCtx, err := authenticate(ss.Context(), v, cfg.overrides)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: newCtx})
	}
}

func newConfig(opts []Option) *interceptorConfig {
	cfg := &interceptorConfig{excludedMethods: make(map[string]bool)}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

func authenticate(ctx context.Context, v Verifier, overrides *jwtverify.Overrides) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}

	token := extractBearerFromMD(md)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}

	claims, err := v.Verify(ctx, token, overrides)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}

	return context.WithValue(ctx, claimsKey{}, claims), nil
}

func extractBearerFromMD(md metadata.MD) string {
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	parts := strings.SplitN(vals[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// wrappedStream overrides Context() so the stream handler observes the
// context enriched with verified claims.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }
