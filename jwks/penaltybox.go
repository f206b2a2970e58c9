package jwks

import (
	"fmt"
	"sync"
	"time"
)

// DefaultWaitSeconds is the default penalty duration applied to a URI
// after a failed kid lookup.
const DefaultWaitSeconds = 10

// WaitPeriodNotYetEndedError is returned by PenaltyBox.Wait when the URI
// is still serving its penalty.
type WaitPeriodNotYetEndedError struct {
	URI string
}

func (e *WaitPeriodNotYetEndedError) Error() string {
	return fmt.Sprintf("jwks: wait period not yet ended for %s", e.URI)
}

// PenaltyBox is a cooperative, non-blocking back-off gate against JWKS
// endpoint abuse. State is keyed by URI only — kid is accepted by the
// interface for symmetry with the spec's call sites but does not affect
// keying, since the defense is against a flood of requests against one
// endpoint regardless of which kid is being chased.
type PenaltyBox interface {
	Wait(uri, kid string) error
	RegisterFailedAttempt(uri, kid string)
	RegisterSuccessfulAttempt(uri, kid string)
}

// DefaultPenaltyBox is the sync.Map + self-expiring timer implementation
// described in the spec: registering a failure starts a per-URI timer
// that releases itself on expiry, or earlier on a successful attempt.
type DefaultPenaltyBox struct {
	waitSeconds int
	entries     sync.Map // uri -> *time.Timer
}

// PenaltyBoxOption configures a DefaultPenaltyBox.
type PenaltyBoxOption func(*DefaultPenaltyBox)

// WithWaitSeconds overrides the default penalty duration.
func WithWaitSeconds(seconds int) PenaltyBoxOption {
	return func(p *DefaultPenaltyBox) { p.waitSeconds = seconds }
}

// NewPenaltyBox creates a DefaultPenaltyBox.
func NewPenaltyBox(opts ...PenaltyBoxOption) *DefaultPenaltyBox {
	p := &DefaultPenaltyBox{waitSeconds: DefaultWaitSeconds}
	for _, o := range opts {
		o(p)
	}
	return p
}

var _ PenaltyBox = (*DefaultPenaltyBox)(nil)

// Wait fails immediately with *WaitPeriodNotYetEndedError if uri is
// currently serving a penalty. It never blocks; callers that want real
// waiting must implement their own retry/backoff above this layer.
func (p *DefaultPenaltyBox) Wait(uri, _ string) error {
	if _, waiting := p.entries.Load(uri); waiting {
		return &WaitPeriodNotYetEndedError{URI: uri}
	}
	return nil
}

// RegisterFailedAttempt starts (or restarts) the penalty timer for uri.
func (p *DefaultPenaltyBox) RegisterFailedAttempt(uri, _ string) {
	timer := time.AfterFunc(time.Duration(p.waitSeconds)*time.Second, func() {
		p.entries.Delete(uri)
	})
	if old, loaded := p.entries.Swap(uri, timer); loaded {
		if oldTimer, ok := old.(*time.Timer); ok {
			oldTimer.Stop()
		}
	}
}

// RegisterSuccessfulAttempt cancels any outstanding penalty timer for uri
// and removes it immediately.
func (p *DefaultPenaltyBox) RegisterSuccessfulAttempt(uri, _ string) {
	if old, loaded := p.entries.LoadAndDelete(uri); loaded {
		if oldTimer, ok := old.(*time.Timer); ok {
			oldTimer.Stop()
		}
	}
}
