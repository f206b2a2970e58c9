package jwtverify

import "github.com/chimerakang/jwt-verify-go/claims"

// CustomCheckInput and CustomJwtCheck are re-exported from package claims
// so callers configuring a VerifierBase never need to import it directly.
type CustomCheckInput = claims.CustomCheckInput
type CustomJwtCheck = claims.CustomJwtCheck

// IssuerConfig describes one acceptable token issuer: where to fetch its
// JWKS, which audience/clientId/signer it must present, and what grace
// and scope rules apply. A VerifierBase is configured with either one
// IssuerConfig (single-issuer mode) or several (multi-issuer mode,
// routed by payload.iss and disambiguated by Audience/ClientID; AlbArn
// takes no part in routing).
type IssuerConfig struct {
	// Issuer is the exact string the token's iss claim must equal.
	Issuer string
	// JwksURI is the JWKS document location. If empty, it is derived:
	// Cognito issuers get "<issuer>/.well-known/jwks.json" as well,
	// since Cognito's issuer URL already encodes region and pool id.
	JwksURI string

	Audience []string
	ClientID []string

	GraceSeconds int64

	IsCognito bool
	TokenUse  []string
	Scopes    []string

	IsALB bool
	// AlbArn and AlbClientID are nil to disable the corresponding ALB
	// check, non-nil (even empty) to enable it.
	AlbArn      []string
	AlbClientID []string

	JwtSignatureAlgorithms []string

	CustomJwtCheck claims.CustomJwtCheck

	IncludeRawJwtInErrors bool
}

// Overrides are merged onto a resolved IssuerConfig for a single verify
// call. Nil fields leave the base configuration's value untouched; a
// non-nil field (including an empty, non-nil slice) replaces it.
type Overrides struct {
	Audience               []string
	ClientID               []string
	Scopes                 []string
	JwtSignatureAlgorithms []string
	CustomJwtCheck         claims.CustomJwtCheck
	IncludeRawJwtInErrors  *bool
}

func (c IssuerConfig) merge(o *Overrides) IssuerConfig {
	if o == nil {
		return c
	}
	merged := c
	if o.Audience != nil {
		merged.Audience = o.Audience
	}
	if o.ClientID != nil {
		merged.ClientID = o.ClientID
	}
	if o.Scopes != nil {
		merged.Scopes = o.Scopes
	}
	if o.JwtSignatureAlgorithms != nil {
		merged.JwtSignatureAlgorithms = o.JwtSignatureAlgorithms
	}
	if o.CustomJwtCheck != nil {
		merged.CustomJwtCheck = o.CustomJwtCheck
	}
	if o.IncludeRawJwtInErrors != nil {
		merged.IncludeRawJwtInErrors = *o.IncludeRawJwtInErrors
	}
	return merged
}

func (c IssuerConfig) jwksURI() string {
	if c.JwksURI != "" {
		return c.JwksURI
	}
	return c.Issuer + "/.well-known/jwks.json"
}

func (c IssuerConfig) toClaimsConfig() claims.Config {
	cc := claims.Config{
		Issuer:                claims.StringSet{c.Issuer},
		Audience:              claims.StringSet(c.Audience),
		ClientID:              claims.StringSet(c.ClientID),
		GraceSeconds:          c.GraceSeconds,
		IsCognito:             c.IsCognito,
		TokenUse:              claims.StringSet(c.TokenUse),
		Scopes:                claims.StringSet(c.Scopes),
		CustomJwtCheck:        c.CustomJwtCheck,
		IncludeRawJwtInErrors: c.IncludeRawJwtInErrors,
	}
	if c.AlbArn != nil {
		cc.AlbArn = claims.StringSet(c.AlbArn)
	}
	if c.AlbClientID != nil {
		cc.AlbClientID = claims.StringSet(c.AlbClientID)
	}
	return cc
}

// matchesPayload is used during multi-issuer disambiguation: a
// candidate config matches a token if its audience or clientId intersects
// the token's aud/client_id, or if the config declares neither (bare
// issuer-only routing).
func (c IssuerConfig) matchesPayload(payload map[string]any) bool {
	if len(c.Audience) == 0 && len(c.ClientID) == 0 {
		return true
	}
	aud := claims.StringSet(c.Audience)
	cid := claims.StringSet(c.ClientID)
	switch v := payload["aud"].(type) {
	case string:
		if aud.Contains(v) || cid.Contains(v) {
			return true
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && (aud.Contains(s) || cid.Contains(s)) {
				return true
			}
		}
	}
	if clientID, ok := payload["client_id"].(string); ok && cid.Contains(clientID) {
		return true
	}
	return false
}
