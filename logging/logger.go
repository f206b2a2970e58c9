// Package logging provides a log/slog-based structured logger. The
// cmd/jwtverify CLI initializes it; the verifier, the JWKS cache and the
// middleware adapters do not log through it.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	once   sync.Once
	global *slog.Logger
)

type ctxKey string

const (
	ctxRequestID ctxKey = "req_id"
	ctxIssuer    ctxKey = "issuer"
	ctxKid       ctxKey = "kid"
)

// Init initializes the global structured logger.
// level: "debug" | "info" | "warn" | "error"
// format: "json" | "text"
func Init(level, format string) {
	once.Do(func() {
		var lvl slog.Level
		switch level {
		case "debug":
			lvl = slog.LevelDebug
		case "warn":
			lvl = slog.LevelWarn
		case "error":
			lvl = slog.LevelError
		default:
			lvl = slog.LevelInfo
		}

		var handler slog.Handler
		opts := &slog.HandlerOptions{Level: lvl, AddSource: false, ReplaceAttr: redact}
		switch format {
		case "text":
			handler = slog.NewTextHandler(os.Stdout, opts)
		default:
			handler = slog.NewJSONHandler(os.Stdout, opts)
		}

		global = slog.New(handler).With(
			slog.String("svc", serviceName()),
			slog.Time("ts", time.Now()),
		)
	})
}

func serviceName() string {
	if v := os.Getenv("SERVICE_NAME"); v != "" {
		return v
	}
	return "jwtverify"
}

func redact(_ []string, a slog.Attr) slog.Attr {
	// tokens and signatures should never be logged as attribute values;
	// callers are responsible for not passing them in, this is a last line
	// of defense for the raw JWT field specifically.
	if a.Key == "raw_jwt" || a.Key == "token" {
		return slog.String(a.Key, "REDACTED")
	}
	return a
}

// L returns the global logger. Init() should be called once at startup.
func L() *slog.Logger {
	if global == nil {
		Init("info", "json")
	}
	return global
}

// WithContext enriches context with request-scoped fields carried through
// to every log line derived from it via FromContext.
func WithContext(ctx context.Context, reqID, issuer, kid string) context.Context {
	if reqID != "" {
		ctx = context.WithValue(ctx, ctxRequestID, reqID)
	}
	if issuer != "" {
		ctx = context.WithValue(ctx, ctxIssuer, issuer)
	}
	if kid != "" {
		ctx = context.WithValue(ctx, ctxKid, kid)
	}
	return ctx
}

// FromContext returns a logger annotated with common context fields if present.
func FromContext(ctx context.Context) *slog.Logger {
	l := L()
	if ctx == nil {
		return l
	}
	attrs := []any{}
	if v := ctx.Value(ctxRequestID); v != nil {
		attrs = append(attrs, slog.String("req_id", v.(string)))
	}
	if v := ctx.Value(ctxIssuer); v != nil {
		attrs = append(attrs, slog.String("issuer", v.(string)))
	}
	if v := ctx.Value(ctxKid); v != nil {
		attrs = append(attrs, slog.String("kid", v.(string)))
	}
	if len(attrs) > 0 {
		return l.With(attrs...)
	}
	return l
}
