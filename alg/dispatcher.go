// Package alg dispatches JWT signature verification across the
// algorithm families a verifier may encounter: RSA PKCS#1v1.5, RSA-PSS,
// ECDSA, and EdDSA. It converts a validated jwk.JWK into a native crypto
// key and verifies the signed input against the raw signature bytes,
// surfacing every verifier-primitive failure uniformly as
// *InvalidSignatureError so cryptographic library details never leak
// into the caller's error surface.
package alg

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/chimerakang/jwt-verify-go/jwk"
)

// Alg names recognized by the dispatcher.
const (
	RS256 = "RS256"
	RS384 = "RS384"
	RS512 = "RS512"
	PS256 = "PS256"
	PS384 = "PS384"
	PS512 = "PS512"
	ES256 = "ES256"
	ES384 = "ES384"
	ES512 = "ES512"
	EdDSA = "EdDSA"
)

// DefaultAlgorithms is the union of algorithms this dispatcher supports,
// used as the default allow-list when a verifier is not configured with
// an explicit restriction.
var DefaultAlgorithms = []string{RS256, RS384, RS512, PS256, PS384, PS512, ES256, ES384, ES512, EdDSA}

// InvalidSignatureError is the single error surface for any signature
// verification failure: wrong key, malformed signature, or a rejected
// cryptographic primitive. It never carries the underlying library
// error, by design of the spec's error taxonomy.
type InvalidSignatureError struct {
	Alg string
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("jwt: invalid signature for alg %s", e.Alg)
}

// UnsupportedAlgorithmError reports an alg/kty/crv combination this
// dispatcher cannot evaluate, or an alg outside a configured allow-list.
type UnsupportedAlgorithmError struct {
	Alg     string
	Message string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("jwt: unsupported alg %s: %s", e.Alg, e.Message)
}

// AlgMismatchError reports header.alg disagreeing with the JWK's declared
// alg, or the JWK's kty/crv disagreeing with what header.alg requires.
type AlgMismatchError struct {
	Message string
}

func (e *AlgMismatchError) Error() string { return "jwt: " + e.Message }

type ecSizes struct {
	hash      crypto.Hash
	paramSize int // byte length of r, and of s
}

var ecByAlg = map[string]ecSizes{
	ES256: {hash: crypto.SHA256, paramSize: 32},
	ES384: {hash: crypto.SHA384, paramSize: 48},
	ES512: {hash: crypto.SHA512, paramSize: 66},
}

var rsaHashByAlg = map[string]crypto.Hash{
	RS256: crypto.SHA256, RS384: crypto.SHA384, RS512: crypto.SHA512,
	PS256: crypto.SHA256, PS384: crypto.SHA384, PS512: crypto.SHA512,
}

// Verify checks signature over signingInput using the algorithm named by
// alg and the key material in k. allowed, if non-empty, restricts which
// alg values are acceptable (defaults to DefaultAlgorithms).
//
// Per spec: if the JWK itself declares an alg, header alg must equal it.
func Verify(alg string, k jwk.JWK, allowed []string, signingInput, signature []byte) error {
	if len(allowed) == 0 {
		allowed = DefaultAlgorithms
	}
	if !contains(allowed, alg) {
		return &UnsupportedAlgorithmError{Alg: alg, Message: "not in the configured algorithm allow-list"}
	}
	if k.Alg != "" && k.Alg != alg {
		return &AlgMismatchError{Message: fmt.Sprintf("header alg %q does not match jwk alg %q", alg, k.Alg)}
	}

	switch alg {
	case RS256, RS384, RS512:
		return verifyRSAPKCS1v15(alg, k, signingInput, signature)
	case PS256, PS384, PS512:
		return verifyRSAPSS(alg, k, signingInput, signature)
	case ES256, ES384, ES512:
		return verifyECDSA(alg, k, signingInput, signature)
	case EdDSA:
		return verifyEdDSA(k, signingInput, signature)
	default:
		return &UnsupportedAlgorithmError{Alg: alg, Message: "no verifier registered"}
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func hashInput(h crypto.Hash, signingInput []byte) []byte {
	switch h {
	case crypto.SHA256:
		sum := sha256.Sum256(signingInput)
		return sum[:]
	case crypto.SHA384:
		sum := sha512.Sum384(signingInput)
		return sum[:]
	case crypto.SHA512:
		sum := sha512.Sum512(signingInput)
		return sum[:]
	default:
		return nil
	}
}

func verifyRSAPKCS1v15(alg string, k jwk.JWK, signingInput, signature []byte) error {
	if k.Kty != jwk.KtyRSA {
		return &AlgMismatchError{Message: fmt.Sprintf("alg %s requires an RSA key, got kty %q", alg, k.Kty)}
	}
	pub, err := rsaPublicKey(k)
	if err != nil {
		return &InvalidSignatureError{Alg: alg}
	}
	h := rsaHashByAlg[alg]
	digest := hashInput(h, signingInput)
	if err := rsa.VerifyPKCS1v15(pub, h, digest, signature); err != nil {
		return &InvalidSignatureError{Alg: alg}
	}
	return nil
}

func verifyRSAPSS(alg string, k jwk.JWK, signingInput, signature []byte) error {
	if k.Kty != jwk.KtyRSA {
		return &AlgMismatchError{Message: fmt.Sprintf("alg %s requires an RSA key, got kty %q", alg, k.Kty)}
	}
	pub, err := rsaPublicKey(k)
	if err != nil {
		return &InvalidSignatureError{Alg: alg}
	}
	h := rsaHashByAlg[alg]
	digest := hashInput(h, signingInput)
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: h}
	if err := rsa.VerifyPSS(pub, h, digest, signature, opts); err != nil {
		return &InvalidSignatureError{Alg: alg}
	}
	return nil
}

func verifyECDSA(alg string, k jwk.JWK, signingInput, signature []byte) error {
	if k.Kty != jwk.KtyEC {
		return &AlgMismatchError{Message: fmt.Sprintf("alg %s requires an EC key, got kty %q", alg, k.Kty)}
	}
	sizes := ecByAlg[alg]
	wantCrv := map[string]string{ES256: jwk.CrvP256, ES384: jwk.CrvP384, ES512: jwk.CrvP521}[alg]
	if k.Crv != wantCrv {
		return &AlgMismatchError{Message: fmt.Sprintf("alg %s requires crv %s, got %q", alg, wantCrv, k.Crv)}
	}
	pub, err := ecPublicKey(k)
	if err != nil {
		return &InvalidSignatureError{Alg: alg}
	}
	r, s, err := normalizeECDSASignature(signature, sizes.paramSize)
	if err != nil {
		return &InvalidSignatureError{Alg: alg}
	}
	digest := hashInput(sizes.hash, signingInput)
	if !ecdsa.Verify(pub, digest, r, s) {
		return &InvalidSignatureError{Alg: alg}
	}
	return nil
}

// normalizeECDSASignature accepts the raw r||s encoding JOSE mandates, a
// left-padded variant shorter than 2*paramSize, or a DER-encoded
// SEQUENCE{r,s} as produced by some non-JOSE signers, and returns (r, s).
func normalizeECDSASignature(sig []byte, paramSize int) (*big.Int, *big.Int, error) {
	if len(sig) == 2*paramSize {
		r := new(big.Int).SetBytes(sig[:paramSize])
		s := new(big.Int).SetBytes(sig[paramSize:])
		return r, s, nil
	}
	if len(sig) < 2*paramSize {
		padded := make([]byte, 2*paramSize)
		copy(padded[2*paramSize-len(sig):], sig)
		r := new(big.Int).SetBytes(padded[:paramSize])
		s := new(big.Int).SetBytes(padded[paramSize:])
		return r, s, nil
	}
	var der struct {
		R *big.Int
		S *big.Int
	}
	if _, err := asn1.Unmarshal(sig, &der); err != nil {
		return nil, nil, fmt.Errorf("signature is neither raw r||s nor DER: %w", err)
	}
	return der.R, der.S, nil
}

func verifyEdDSA(k jwk.JWK, signingInput, signature []byte) error {
	if k.Kty != jwk.KtyOKP {
		return &AlgMismatchError{Message: fmt.Sprintf("EdDSA requires an OKP key, got kty %q", k.Kty)}
	}
	switch k.Crv {
	case jwk.CrvEd25519:
		pub, err := ed25519PublicKey(k)
		if err != nil {
			return &InvalidSignatureError{Alg: EdDSA}
		}
		if !ed25519.Verify(pub, signingInput, signature) {
			return &InvalidSignatureError{Alg: EdDSA}
		}
		return nil
	case jwk.CrvEd448:
		// Go's standard library has no Ed448 primitive; rejecting here
		// keeps the error surface uniform rather than silently accepting.
		return &UnsupportedAlgorithmError{Alg: EdDSA, Message: "Ed448 is not supported by this build"}
	default:
		return &AlgMismatchError{Message: fmt.Sprintf("unsupported OKP crv %q", k.Crv)}
	}
}
