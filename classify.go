package jwtverify

import (
	"github.com/chimerakang/jwt-verify-go/alg"
	"github.com/chimerakang/jwt-verify-go/claims"
	"github.com/chimerakang/jwt-verify-go/jwks"
)

// classifyJwksErr maps the jwks package's concrete error types onto this
// module's single Error/Kind taxonomy.
func classifyJwksErr(err error) *Error {
	switch e := err.(type) {
	case *jwks.JwksNotAvailableInCacheError:
		return newErr(KindJwksNotAvailableInCache, e.Error(), err)
	case *jwks.JwtWithoutValidKidError:
		return newErr(KindJwtWithoutValidKid, e.Error(), err)
	case *jwks.KidNotFoundInJwksError:
		return newErr(KindKidNotFoundInJwks, e.Error(), err)
	case *jwks.WaitPeriodNotYetEndedError:
		return newErr(KindWaitPeriodNotYetEnded, e.Error(), err)
	case *jwks.JwksValidationError:
		return newErr(KindJwksValidation, e.Error(), err)
	case *jwks.FetchError:
		return newErr(KindFetch, e.Error(), err)
	default:
		return newErr(KindFetch, "jwks resolution failed", err)
	}
}

// classifyAlgErr maps alg package errors onto KindInvalidSignature; the
// spec requires every cryptographic-primitive failure to surface
// uniformly, never leaking library detail.
func classifyAlgErr(err error) *Error {
	switch err.(type) {
	case *alg.InvalidSignatureError, *alg.UnsupportedAlgorithmError, *alg.AlgMismatchError:
		return newErr(KindInvalidSignature, "signature verification failed", err)
	default:
		return newErr(KindInvalidSignature, "signature verification failed", err)
	}
}

// classifyClaimErr maps claims package errors onto their corresponding
// claim-error kinds. It returns nil for an error type it does not
// recognize — in particular, a customJwtCheck hook's error, which the
// spec requires to propagate as-is rather than being wrapped.
func classifyClaimErr(err error) *Error {
	switch e := err.(type) {
	case *claims.InvalidIssuerError:
		return newErr(KindInvalidIssuer, e.Error(), err)
	case *claims.InvalidAudienceError:
		return newErr(KindInvalidAudience, e.Error(), err)
	case *claims.ExpiredError:
		return newErr(KindExpired, e.Error(), err)
	case *claims.NotBeforeError:
		return newErr(KindNotBefore, e.Error(), err)
	case *claims.InvalidClaimError:
		return newErr(KindInvalidClaim, e.Error(), err)
	default:
		return nil
	}
}
