// Package audit provides structured, asynchronous audit logging of token
// verification attempts.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Results a verification attempt can land on.
const (
	ResultSuccess             = "success"
	ResultExpired             = "expired"
	ResultInvalidSignature    = "invalid_signature"
	ResultInvalidIssuer       = "invalid_issuer"
	ResultInvalidAudience     = "invalid_audience"
	ResultInvalidClaim        = "invalid_claim"
	ResultKidNotFound         = "kid_not_found_in_jwks"
	ResultFetchFailed         = "fetch"
	ResultWaitPeriodNotEnded  = "wait_period_not_yet_ended"
	ResultParameterValidation = "parameter_validation"
)

// Event represents one verification attempt.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Issuer    string    `json:"issuer,omitempty"`
	Kid       string    `json:"kid,omitempty"`
	Alg       string    `json:"alg,omitempty"`
	Result    string    `json:"result"`
	Error     string    `json:"error,omitempty"`
}

// Handler processes audit events. Implementations should not block.
type Handler func(event Event)

// Logger emits verification audit events to configured handlers over a
// buffered channel, draining on Close rather than dropping events that
// arrived before shutdown.
type Logger struct {
	handlers []Handler
	queue    chan Event
	done     chan struct{}
	wg       sync.WaitGroup
}

// Option configures Logger behavior.
type Option func(*Logger)

// WithStdoutHandler adds a handler that writes JSON events to stdout.
func WithStdoutHandler() Option {
	return func(l *Logger) {
		l.AddHandler(func(e Event) {
			data, _ := json.Marshal(e)
			fmt.Fprintf(os.Stdout, "%s\n", data)
		})
	}
}

// WithHandler adds a custom event handler.
func WithHandler(h Handler) Option {
	return func(l *Logger) { l.AddHandler(h) }
}

// New creates a logger with buffered async emission. bufferSize is the
// event queue capacity (default 1000).
func New(bufferSize int, opts ...Option) *Logger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	logger := &Logger{
		handlers: make([]Handler, 0),
		queue:    make(chan Event, bufferSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(logger)
	}
	logger.wg.Add(1)
	go logger.process()
	return logger
}

// AddHandler adds a handler to receive audit events.
func (l *Logger) AddHandler(h Handler) {
	l.handlers = append(l.handlers, h)
}

// Log emits an audit event asynchronously; it drops the event rather than
// blocking a caller once the logger is shutting down.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case l.queue <- event:
	case <-l.done:
	}
}

func (l *Logger) process() {
	defer l.wg.Done()
	for {
		select {
		case event := <-l.queue:
			for _, h := range l.handlers {
				h(event)
			}
		case <-l.done:
			for {
				select {
				case event := <-l.queue:
					for _, h := range l.handlers {
						h(event)
					}
				default:
					return
				}
			}
		}
	}
}

// Close flushes pending events and stops the logger.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return nil
}

type contextKey string

const contextKeyLogger contextKey = "audit.logger"

// FromContext retrieves the audit logger from context, if any.
func FromContext(ctx context.Context) *Logger {
	logger, _ := ctx.Value(contextKeyLogger).(*Logger)
	return logger
}

// WithContext stores the audit logger in context.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}
