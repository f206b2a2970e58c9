// Package fake provides in-memory test doubles for the verifier's external
// dependencies — JWKS fetching, the penalty box, and the clock — so tests
// elsewhere in this module (and consumers of it) can exercise verification
// logic without a network or wall-clock dependency.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chimerakang/jwt-verify-go/jwks"
)

// Fetcher is an in-memory jwks.Fetcher. Register JWKS document bodies by
// URI with SetResponse, or force a URI to fail with SetError. It also
// counts how many times each URI was requested, for assertions about
// refetch behavior.
type Fetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	errors    map[string]error
	hits      map[string]int
}

// NewFetcher creates an empty in-memory fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{
		responses: make(map[string][]byte),
		errors:    make(map[string]error),
		hits:      make(map[string]int),
	}
}

// SetResponse registers the JWKS document body to serve for uri.
func (f *Fetcher) SetResponse(uri string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[uri] = body
	delete(f.errors, uri)
}

// SetError forces Fetch(uri) to fail with err.
func (f *Fetcher) SetError(uri string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[uri] = err
}

// Hits reports how many times uri has been requested.
func (f *Fetcher) Hits(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[uri]
}

// Fetch implements jwks.Fetcher.
func (f *Fetcher) Fetch(_ context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[uri]++

	if err, ok := f.errors[uri]; ok {
		return nil, err
	}
	body, ok := f.responses[uri]
	if !ok {
		return nil, fmt.Errorf("fake: no response registered for %q", uri)
	}
	return body, nil
}

// PenaltyBox is an in-memory jwks.PenaltyBox whose gate can be forced open
// or shut per URI, bypassing the real time-based expiry.
type PenaltyBox struct {
	mu      sync.Mutex
	tripped map[string]bool
}

// NewPenaltyBox creates a penalty box that starts open (Wait never fails)
// for every URI.
func NewPenaltyBox() *PenaltyBox {
	return &PenaltyBox{tripped: make(map[string]bool)}
}

// Wait implements jwks.PenaltyBox. It fails fast, matching the real
// PenaltyBox's non-blocking contract, for any URI currently forced shut.
func (p *PenaltyBox) Wait(uri, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tripped[uri] {
		return &jwks.WaitPeriodNotYetEndedError{URI: uri}
	}
	return nil
}

// RegisterFailedAttempt implements jwks.PenaltyBox by trapping the gate
// shut for uri until a matching RegisterSuccessfulAttempt or explicit Open.
func (p *PenaltyBox) RegisterFailedAttempt(uri, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tripped[uri] = true
}

// RegisterSuccessfulAttempt implements jwks.PenaltyBox.
func (p *PenaltyBox) RegisterSuccessfulAttempt(uri, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tripped, uri)
}

// Open forces the gate open for uri regardless of prior failures, for
// tests that want to assert behavior once a cooldown would have elapsed.
func (p *PenaltyBox) Open(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tripped, uri)
}

// Clock is a settable fake clock. The zero value reports the zero
// time.Time; use NewClock, Set or Advance to control it explicitly.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock fixed at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time. Pass this method value wherever a
// jwtverify.Clock-shaped func is expected.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set pins the fake clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the fake clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
