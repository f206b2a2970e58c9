// Package jwk provides a typed view over a JSON Web Key / JSON Web Key Set,
// and structural validation of both (RFC 7517). It does not itself verify
// signatures; see package alg for that.
package jwk

import "fmt"

// Key families recognized by this module.
const (
	KtyRSA = "RSA"
	KtyEC  = "EC"
	KtyOKP = "OKP"
)

// EC curves recognized by this module.
const (
	CrvP256 = "P-256"
	CrvP384 = "P-384"
	CrvP521 = "P-521"
)

// OKP curves recognized by this module.
const (
	CrvEd25519 = "Ed25519"
	CrvEd448   = "Ed448"
)

// JWK is a single JSON Web Key. All field values are strings, per RFC 7517;
// unknown fields are tolerated by ParseKey but ignored here.
type JWK struct {
	Kty string
	Use string
	Alg string
	Kid string

	// RSA
	N string
	E string

	// EC
	Crv string
	X   string
	Y   string
	// OKP keys reuse Crv and X; Y is unused.
}

// HasKid reports whether this key carries a non-empty kid, making it
// addressable by a JwksCache (a "JwkWithKid" in spec terms).
func (k JWK) HasKid() bool { return k.Kid != "" }

// Set is an ordered JSON Web Key Set.
type Set struct {
	Keys []JWK
}

// Lookup returns the first key in the set whose kid matches. Duplicate
// kids within a set are legal but ambiguous; the first match wins — this
// is an implementation choice, not an RFC guarantee.
func (s *Set) Lookup(kid string) (JWK, bool) {
	for _, k := range s.Keys {
		if k.Kid == kid {
			return k, true
		}
	}
	return JWK{}, false
}

// ValidationError reports why a parsed JSON value failed to refine to a
// valid JWK or JWKS.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "jwk validation: " + e.Message }

// ParseKey refines an arbitrary parsed-JSON map into a validated JWK. The
// validator is tolerant of unknown fields but strict about types: kty is
// mandatory, use (if present) must equal "sig", and the family-specific
// fields are required: n and e for RSA; x, y and a P-256/P-384/P-521 crv
// for EC; x and an Ed25519/Ed448 crv for OKP.
func ParseKey(raw map[string]any) (JWK, error) {
	kty, ok := stringField(raw, "kty")
	if !ok || kty == "" {
		return JWK{}, &ValidationError{Message: "kty is required and must be a non-empty string"}
	}
	switch kty {
	case KtyRSA, KtyEC, KtyOKP:
	default:
		return JWK{}, &ValidationError{Message: fmt.Sprintf("unsupported kty %q", kty)}
	}

	k := JWK{Kty: kty}
	var err error
	if k.Use, err = optionalString(raw, "use"); err != nil {
		return JWK{}, err
	}
	if k.Use != "" && k.Use != "sig" {
		return JWK{}, &ValidationError{Message: fmt.Sprintf("use must be \"sig\" when present, got %q", k.Use)}
	}
	if k.Alg, err = optionalString(raw, "alg"); err != nil {
		return JWK{}, err
	}
	if k.Kid, err = optionalString(raw, "kid"); err != nil {
		return JWK{}, err
	}
	if k.N, err = optionalString(raw, "n"); err != nil {
		return JWK{}, err
	}
	if k.E, err = optionalString(raw, "e"); err != nil {
		return JWK{}, err
	}
	if k.Crv, err = optionalString(raw, "crv"); err != nil {
		return JWK{}, err
	}
	if k.X, err = optionalString(raw, "x"); err != nil {
		return JWK{}, err
	}
	if k.Y, err = optionalString(raw, "y"); err != nil {
		return JWK{}, err
	}

	switch kty {
	case KtyRSA:
		if k.N == "" || k.E == "" {
			return JWK{}, &ValidationError{Message: "RSA key requires n and e"}
		}
	case KtyEC:
		if k.X == "" || k.Y == "" {
			return JWK{}, &ValidationError{Message: "EC key requires x and y"}
		}
		switch k.Crv {
		case CrvP256, CrvP384, CrvP521:
		default:
			return JWK{}, &ValidationError{Message: fmt.Sprintf("unsupported EC crv %q", k.Crv)}
		}
	case KtyOKP:
		if k.X == "" {
			return JWK{}, &ValidationError{Message: "OKP key requires x"}
		}
		switch k.Crv {
		case CrvEd25519, CrvEd448:
		default:
			return JWK{}, &ValidationError{Message: fmt.Sprintf("unsupported OKP crv %q", k.Crv)}
		}
	}

	return k, nil
}

// ParseSet refines an arbitrary parsed-JSON map into a validated Set.
func ParseSet(raw map[string]any) (*Set, error) {
	rawKeys, ok := raw["keys"]
	if !ok {
		return nil, &ValidationError{Message: "keys field is required"}
	}
	list, ok := rawKeys.([]any)
	if !ok {
		return nil, &ValidationError{Message: "keys must be an array"}
	}

	set := &Set{Keys: make([]JWK, 0, len(list))}
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ValidationError{Message: fmt.Sprintf("keys[%d] is not an object", i)}
		}
		key, err := ParseKey(obj)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("keys[%d]: %v", i, err)}
		}
		set.Keys = append(set.Keys, key)
	}
	return set, nil
}

func stringField(raw map[string]any, name string) (string, bool) {
	v, ok := raw[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func optionalString(raw map[string]any, name string) (string, error) {
	v, ok := raw[name]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Message: fmt.Sprintf("%s must be a string", name)}
	}
	return s, nil
}
