package alg

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/chimerakang/jwt-verify-go/jwk"
)

// KeyConversionError reports a failure converting a validated JWK into a
// native crypto key, usually a malformed base64url field.
type KeyConversionError struct {
	Message string
	Cause   error
}

func (e *KeyConversionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("alg: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("alg: %s", e.Message)
}

func (e *KeyConversionError) Unwrap() error { return e.Cause }

func decodeB64(field, value string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, &KeyConversionError{Message: fmt.Sprintf("failed to decode %s", field), Cause: err}
	}
	return b, nil
}

// rsaPublicKey converts an RSA JWK (n, e) to *rsa.PublicKey, following the
// same big.Int-from-bytes construction the teacher's Valhalla adapter
// uses for its RS256 verifier.
func rsaPublicKey(k jwk.JWK) (*rsa.PublicKey, error) {
	nBytes, err := decodeB64("n", k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := decodeB64("e", k.E)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() == 0 {
		return nil, &KeyConversionError{Message: "RSA exponent is zero or out of range"}
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// ecPublicKey converts an EC JWK (crv, x, y) to *ecdsa.PublicKey.
func ecPublicKey(k jwk.JWK) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch k.Crv {
	case jwk.CrvP256:
		curve = elliptic.P256()
	case jwk.CrvP384:
		curve = elliptic.P384()
	case jwk.CrvP521:
		curve = elliptic.P521()
	default:
		return nil, &KeyConversionError{Message: fmt.Sprintf("unsupported EC curve %q", k.Crv)}
	}
	xBytes, err := decodeB64("x", k.X)
	if err != nil {
		return nil, err
	}
	yBytes, err := decodeB64("y", k.Y)
	if err != nil {
		return nil, err
	}
	x := new(big.Int).SetBytes(xBytes)
	y := new(big.Int).SetBytes(yBytes)
	if !curve.IsOnCurve(x, y) {
		return nil, &KeyConversionError{Message: "EC point is not on the declared curve"}
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// ed25519PublicKey converts an OKP/Ed25519 JWK (x) to ed25519.PublicKey.
func ed25519PublicKey(k jwk.JWK) (ed25519.PublicKey, error) {
	xBytes, err := decodeB64("x", k.X)
	if err != nil {
		return nil, err
	}
	if len(xBytes) != ed25519.PublicKeySize {
		return nil, &KeyConversionError{Message: fmt.Sprintf("Ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(xBytes))}
	}
	return ed25519.PublicKey(xBytes), nil
}
