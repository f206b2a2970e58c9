package jwks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chimerakang/jwt-verify-go/decompose"
	"github.com/chimerakang/jwt-verify-go/jwk"
	"golang.org/x/sync/singleflight"
)

// JwksNotAvailableInCacheError is returned by GetCachedJwk when the URI
// has never been populated and no fetch is permitted (sync path).
type JwksNotAvailableInCacheError struct {
	URI string
}

func (e *JwksNotAvailableInCacheError) Error() string {
	return fmt.Sprintf("jwks: no cached jwks for %s", e.URI)
}

// JwtWithoutValidKidError is returned when the token header carries no
// usable string kid.
type JwtWithoutValidKidError struct{}

func (e *JwtWithoutValidKidError) Error() string { return "jwks: jwt header has no valid kid" }

// KidNotFoundInJwksError is returned when a kid cannot be located in the
// (possibly just-refreshed) JWKS for a URI.
type KidNotFoundInJwksError struct {
	URI string
	Kid string
}

func (e *KidNotFoundInJwksError) Error() string {
	return fmt.Sprintf("jwks: kid %q not found in jwks at %s", e.Kid, e.URI)
}

// JwksValidationError wraps a failure to parse fetched bytes into a
// validated jwk.Set.
type JwksValidationError struct {
	URI   string
	Cause error
}

func (e *JwksValidationError) Error() string {
	return fmt.Sprintf("jwks: invalid jwks document from %s: %v", e.URI, e.Cause)
}

func (e *JwksValidationError) Unwrap() error { return e.Cause }

// Metrics is the subset of metrics.Metrics this package needs, satisfied
// by *metrics.Metrics. Kept as a narrow local interface so jwks does not
// import the metrics package directly.
type Metrics interface {
	RecordCacheHit(jwksURI string)
	RecordCacheMiss(jwksURI string)
	RecordFetch(jwksURI, outcome string)
	SetCacheSize(jwksURI string, size float64)
	RecordPenaltyBoxTrip(jwksURI string)
}

// Cache maps JWKS URIs to validated key sets, resolving (uri, kid) pairs
// to individual keys while deduplicating concurrent fetches for the same
// URI and cooperating with a PenaltyBox to bound refetch frequency.
type Cache struct {
	fetcher    Fetcher
	penaltyBox PenaltyBox
	metrics    Metrics

	sets sync.Map // uri -> *jwk.Set
	sf   singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithFetcher overrides the default HTTPFetcher.
func WithFetcher(f Fetcher) CacheOption {
	return func(c *Cache) { c.fetcher = f }
}

// WithPenaltyBox overrides the default DefaultPenaltyBox.
func WithPenaltyBox(p PenaltyBox) CacheOption {
	return func(c *Cache) { c.penaltyBox = p }
}

// WithMetrics records cache hits/misses, fetch outcomes, cache size, and
// penalty-box trips against m.
func WithMetrics(m Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// NewCache creates a Cache with a default HTTPFetcher and DefaultPenaltyBox
// unless overridden.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher:    NewHTTPFetcher(),
		penaltyBox: NewPenaltyBox(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AddJwks inserts (or idempotently replaces) the cached set for uri,
// bypassing the fetcher. Useful for tests and for pre-seeding a cache.
func (c *Cache) AddJwks(uri string, set *jwk.Set) {
	c.sets.Store(uri, set)
}

// GetJwks returns the cached set for uri if present, else performs a
// single-flight fetch and validation. Concurrent callers for the same uri
// observe the same pending result; on failure the pending entry is never
// stored, so the cache is not poisoned by a transient failure.
func (c *Cache) GetJwks(ctx context.Context, uri string) (*jwk.Set, error) {
	if cached, ok := c.sets.Load(uri); ok {
		c.recordCacheLookup(uri, true)
		return cached.(*jwk.Set), nil
	}
	c.recordCacheLookup(uri, false)
	return c.fetchAndStore(ctx, uri)
}

func (c *Cache) fetchAndStore(ctx context.Context, uri string) (*jwk.Set, error) {
	// The shared fetch runs detached from any one caller's cancellation so
	// that a caller giving up does not fail the fetch for the others.
	ch := c.sf.DoChan(uri, func() (interface{}, error) {
		body, err := c.fetcher.Fetch(context.WithoutCancel(ctx), uri)
		if err != nil {
			c.recordFetch(uri, "failure")
			return nil, err
		}
		var raw map[string]any
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if decErr := dec.Decode(&raw); decErr != nil {
			c.recordFetch(uri, "failure")
			return nil, &JwksValidationError{URI: uri, Cause: decErr}
		}
		set, parseErr := jwk.ParseSet(raw)
		if parseErr != nil {
			c.recordFetch(uri, "failure")
			return nil, &JwksValidationError{URI: uri, Cause: parseErr}
		}
		c.sets.Store(uri, set)
		c.recordFetch(uri, "success")
		if c.metrics != nil {
			c.metrics.SetCacheSize(uri, float64(len(set.Keys)))
		}
		return set, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*jwk.Set), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) recordFetch(uri, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordFetch(uri, outcome)
	}
}

func (c *Cache) recordCacheLookup(uri string, hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.RecordCacheHit(uri)
	} else {
		c.metrics.RecordCacheMiss(uri)
	}
}

// GetCachedJwk resolves a kid against the cached set for uri without ever
// fetching. Fails with *JwksNotAvailableInCacheError if the URI has no
// cached set, *JwtWithoutValidKidError if the token carries no usable
// kid, or *KidNotFoundInJwksError otherwise.
func (c *Cache) GetCachedJwk(uri string, decomposed *decompose.DecomposedJWT) (jwk.JWK, error) {
	cached, ok := c.sets.Load(uri)
	if !ok {
		return jwk.JWK{}, &JwksNotAvailableInCacheError{URI: uri}
	}
	kid := decomposed.Kid()
	if kid == "" {
		return jwk.JWK{}, &JwtWithoutValidKidError{}
	}
	set := cached.(*jwk.Set)
	key, found := set.Lookup(kid)
	if !found {
		return jwk.JWK{}, &KidNotFoundInJwksError{URI: uri, Kid: kid}
	}
	return key, nil
}

// GetJwk resolves a kid against the cached set for uri, refreshing on a
// cache miss. A miss never invalidates the cached set; it only triggers a
// single-flight refresh that unconditionally replaces the cached set on
// success. The refresh is gated by the PenaltyBox, which fails fast
// without refetching if uri is still serving a penalty from a prior
// miss.
func (c *Cache) GetJwk(ctx context.Context, uri string, decomposed *decompose.DecomposedJWT) (jwk.JWK, error) {
	kid := decomposed.Kid()
	if kid == "" {
		return jwk.JWK{}, &JwtWithoutValidKidError{}
	}

	if cached, ok := c.sets.Load(uri); ok {
		if key, found := cached.(*jwk.Set).Lookup(kid); found {
			c.recordCacheLookup(uri, true)
			return key, nil
		}
	}
	c.recordCacheLookup(uri, false)

	if err := c.penaltyBox.Wait(uri, kid); err != nil {
		if c.metrics != nil {
			c.metrics.RecordPenaltyBoxTrip(uri)
		}
		return jwk.JWK{}, err
	}

	set, err := c.fetchAndStore(ctx, uri)
	if err != nil {
		c.penaltyBox.RegisterFailedAttempt(uri, kid)
		return jwk.JWK{}, err
	}

	key, found := set.Lookup(kid)
	if !found {
		c.penaltyBox.RegisterFailedAttempt(uri, kid)
		return jwk.JWK{}, &KidNotFoundInJwksError{URI: uri, Kid: kid}
	}
	c.penaltyBox.RegisterSuccessfulAttempt(uri, kid)
	return key, nil
}
