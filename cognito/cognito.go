// Package cognito provides a JWT verifier preset for AWS Cognito user
// pools: issuer and JWKS URI are derived from region and user pool id,
// and token_use/scope claim rules are enabled by default.
package cognito

import (
	"fmt"

	jwtverify "github.com/chimerakang/jwt-verify-go"
)

// Config describes one Cognito user pool to accept tokens from.
type Config struct {
	Region     string
	UserPoolID string

	// ClientID restricts accepted client_id/aud values. A nil slice
	// disables the check entirely, matching the spec's "clientId may be
	// an array or null to disable".
	ClientID []string

	// TokenUse restricts accepted token_use values; defaults to both
	// "id" and "access" when empty.
	TokenUse []string
	Scopes   []string

	GraceSeconds           int64
	JwtSignatureAlgorithms []string
	CustomJwtCheck         jwtverify.CustomJwtCheck
	IncludeRawJwtInErrors  bool
}

func (c Config) issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

func (c Config) toIssuerConfig() jwtverify.IssuerConfig {
	iss := c.issuer()
	return jwtverify.IssuerConfig{
		Issuer:                 iss,
		JwksURI:                iss + "/.well-known/jwks.json",
		ClientID:               c.ClientID,
		IsCognito:              true,
		TokenUse:               c.TokenUse,
		Scopes:                 c.Scopes,
		GraceSeconds:           c.GraceSeconds,
		JwtSignatureAlgorithms: c.JwtSignatureAlgorithms,
		CustomJwtCheck:         c.CustomJwtCheck,
		IncludeRawJwtInErrors:  c.IncludeRawJwtInErrors,
	}
}

// Verifier is a jwtverify.VerifierBase preset for one or more Cognito
// user pools, the way the teacher's tenant.Service wraps a Backend with
// cache defaults rather than exposing the raw backend to callers.
type Verifier struct {
	*jwtverify.VerifierBase
}

// New builds a Cognito verifier over one or more user pools.
func New(configs []Config, opts ...jwtverify.Option) *Verifier {
	issuers := make([]jwtverify.IssuerConfig, 0, len(configs))
	for _, c := range configs {
		issuers = append(issuers, c.toIssuerConfig())
	}
	return &Verifier{VerifierBase: jwtverify.New(issuers, opts...)}
}
