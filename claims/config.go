// Package claims validates decoded JWT payloads against an issuer
// configuration, after signature verification has already succeeded.
package claims

import (
	"github.com/chimerakang/jwt-verify-go/jwk"
)

// StringSet accepts either a single configured string or a list, matching
// the spec's "or a list" shorthand for audience/clientId/albArn/issuer.
type StringSet []string

// Contains reports whether v is one of the configured values. An empty
// StringSet matches nothing — callers must check emptiness themselves
// when "unconfigured" should mean "skip this check".
func (s StringSet) Contains(v string) bool {
	for _, c := range s {
		if c == v {
			return true
		}
	}
	return false
}

// Intersects reports whether any element of s appears in other.
func (s StringSet) Intersects(other []string) bool {
	for _, o := range other {
		if s.Contains(o) {
			return true
		}
	}
	return false
}

// CustomCheckInput is passed to a CustomJwtCheck hook.
type CustomCheckInput struct {
	Header  map[string]any
	Payload map[string]any
	Jwk     jwk.JWK
}

// CustomJwtCheck is a user-supplied final validation step, run last.
type CustomJwtCheck func(in CustomCheckInput) error

// Config is one issuer's claim-validation configuration. For the ALB
// signer/client sets, a nil slice means "not configured" and disables the
// check, while a non-nil empty slice enables it and matches nothing.
type Config struct {
	Issuer   StringSet
	Audience StringSet // generic / Cognito aud
	ClientID StringSet // Cognito access tokens / ALB

	GraceSeconds int64

	// Cognito-specific.
	IsCognito bool
	TokenUse  StringSet // subset of {"id","access"}; empty means both allowed
	Scopes    StringSet // if non-empty, token scope must intersect

	// ALB-specific. nil disables the check; non-nil (even empty) enables
	// it and requires a match.
	AlbArn      StringSet
	AlbClientID StringSet
	IsALB       bool

	CustomJwtCheck CustomJwtCheck

	IncludeRawJwtInErrors bool
}
