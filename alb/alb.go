// Package alb provides a JWT verifier preset for AWS Application Load
// Balancer authentication actions, which sign tokens with a key the ALB
// publishes and stamp the originating load balancer ARN and OIDC client
// id into the JWT header rather than the payload.
package alb

import (
	jwtverify "github.com/chimerakang/jwt-verify-go"
)

// Config describes one ALB listener to accept tokens from.
type Config struct {
	Issuer  string
	JwksURI string

	// AlbArn and ClientID are checked against header.signer and
	// header.client respectively, after signature verification. A nil
	// slice disables the corresponding check; a non-nil (even empty)
	// slice enables it and requires a match.
	AlbArn   []string
	ClientID []string

	GraceSeconds           int64
	JwtSignatureAlgorithms []string
	CustomJwtCheck         jwtverify.CustomJwtCheck
	IncludeRawJwtInErrors  bool
}

func (c Config) toIssuerConfig() jwtverify.IssuerConfig {
	return jwtverify.IssuerConfig{
		Issuer:                 c.Issuer,
		JwksURI:                c.JwksURI,
		IsALB:                  true,
		AlbArn:                 c.AlbArn,
		AlbClientID:            c.ClientID,
		GraceSeconds:           c.GraceSeconds,
		JwtSignatureAlgorithms: c.JwtSignatureAlgorithms,
		CustomJwtCheck:         c.CustomJwtCheck,
		IncludeRawJwtInErrors:  c.IncludeRawJwtInErrors,
	}
}

// Verifier is a jwtverify.VerifierBase preset for one or more ALB
// listeners.
type Verifier struct {
	*jwtverify.VerifierBase
}

// New builds an ALB verifier over one or more listener configs.
func New(configs []Config, opts ...jwtverify.Option) *Verifier {
	issuers := make([]jwtverify.IssuerConfig, 0, len(configs))
	for _, c := range configs {
		issuers = append(issuers, c.toIssuerConfig())
	}
	return &Verifier{VerifierBase: jwtverify.New(issuers, opts...)}
}
