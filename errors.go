// Package jwtverify verifies JWTs issued by AWS Cognito, AWS ALB, and
// generic JWKS-publishing identity providers.
package jwtverify

import (
	"fmt"

	"github.com/chimerakang/jwt-verify-go/decompose"
)

// ErrorKind discriminates the taxonomy of verification failures. The
// upstream source models these as an error class hierarchy; here it is a
// flat sum type with a Kind field.
type ErrorKind string

const (
	// KindParameterValidation covers invalid or missing configuration,
	// surfaced synchronously and never carrying a raw JWT.
	KindParameterValidation ErrorKind = "parameter_validation"

	// KindJwtParse means the token failed structural decomposition.
	KindJwtParse ErrorKind = "jwt_parse"
	// KindJwksValidation means a fetched document failed JWKS validation.
	KindJwksValidation ErrorKind = "jwks_validation"
	// KindJwkValidation means a single key failed JWK validation.
	KindJwkValidation ErrorKind = "jwk_validation"

	// KindJwtWithoutValidKid means the header carries no usable kid.
	KindJwtWithoutValidKid ErrorKind = "jwt_without_valid_kid"
	// KindKidNotFoundInJwks means the kid is absent from a (possibly
	// freshly refreshed) key set.
	KindKidNotFoundInJwks ErrorKind = "kid_not_found_in_jwks"
	// KindJwksNotAvailableInCache means getCachedJwk was asked to resolve
	// a URI that has never been fetched.
	KindJwksNotAvailableInCache ErrorKind = "jwks_not_available_in_cache"
	// KindWaitPeriodNotYetEnded means the penalty box is still cooling
	// down for this URI.
	KindWaitPeriodNotYetEnded ErrorKind = "wait_period_not_yet_ended"

	// KindInvalidSignature covers every cryptographic verification
	// failure and algorithm/family mismatch. Never carries a raw JWT.
	KindInvalidSignature ErrorKind = "invalid_signature"

	// KindExpired, KindNotBefore, KindInvalidIssuer and KindInvalidAudience
	// are the specific claim-error kinds; KindInvalidClaim is the
	// catch-all. Only these five kinds may carry a raw JWT.
	KindExpired         ErrorKind = "expired"
	KindNotBefore       ErrorKind = "not_before"
	KindInvalidIssuer   ErrorKind = "invalid_issuer"
	KindInvalidAudience ErrorKind = "invalid_audience"
	KindInvalidClaim    ErrorKind = "invalid_claim"

	// KindFetch covers network/transport failures from the Fetcher.
	KindFetch ErrorKind = "fetch"
)

// claimKinds are the kinds allowed to carry RawJWT, per §7 of the spec.
var claimKinds = map[ErrorKind]bool{
	KindExpired:         true,
	KindNotBefore:       true,
	KindInvalidIssuer:   true,
	KindInvalidAudience: true,
	KindInvalidClaim:    true,
}

// Error is the single error type returned by every component of this
// module. Kind discriminates the taxonomy described in spec §7; Cause
// wraps whatever underlying error (if any) triggered it.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error

	// RawJWT is populated only for claim-error kinds, and only when the
	// verifier was configured with IncludeRawJwtInErrors and the
	// signature had already verified.
	RawJWT *decompose.DecomposedJWT
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsClaimKind reports whether errors of this kind are eligible to carry a
// RawJWT.
func (k ErrorKind) IsClaimKind() bool { return claimKinds[k] }

// newErr builds an *Error, optionally wrapping cause.
func newErr(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithRawJWT returns a copy of e with RawJWT attached, if e's kind allows
// it; otherwise it returns e unchanged. A signature failure (KindInvalidSignature)
// never attaches raw JWT content, matching spec §4.8 step 7.
func (e *Error) WithRawJWT(jwt *decompose.DecomposedJWT) *Error {
	if !e.Kind.IsClaimKind() {
		return e
	}
	clone := *e
	clone.RawJWT = jwt
	return &clone
}
