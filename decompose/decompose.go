// Package decompose parses the compact JWT serialization into its three
// parts without validating claims or signature.
package decompose

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// DecomposedJWT is the structural decoding of a compact JWT: header and
// payload as generic JSON objects, plus the raw signature bytes and the
// original base64url segments (retained because the signed input is
// header_b64 + "." + payload_b64).
type DecomposedJWT struct {
	Header    map[string]any
	Payload   map[string]any
	Signature []byte

	HeaderB64  string
	PayloadB64 string
}

// SigningInput returns the bytes the signature was computed over.
func (d *DecomposedJWT) SigningInput() []byte {
	return []byte(d.HeaderB64 + "." + d.PayloadB64)
}

// Recompose returns the compact serialization header.payload.signature,
// which must equal the original input for any token this package parsed.
func (d *DecomposedJWT) Recompose() string {
	return d.HeaderB64 + "." + d.PayloadB64 + "." + base64.RawURLEncoding.EncodeToString(d.Signature)
}

// Alg returns header["alg"] if it is a non-empty string, else "".
func (d *DecomposedJWT) Alg() string {
	s, _ := d.Header["alg"].(string)
	return s
}

// Kid returns header["kid"] if it is a non-empty string, else "".
func (d *DecomposedJWT) Kid() string {
	s, _ := d.Header["kid"].(string)
	return s
}

// ParseError reports why a token failed structural decomposition.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwt_parse: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("jwt_parse: %s", e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Parse splits a compact-serialization JWT into exactly three non-empty
// base64url segments, decodes header and payload as JSON objects, and
// requires header["alg"] to be a non-empty string. Signature bytes are
// kept raw and unvalidated; algorithm-specific shape checks belong to the
// dispatcher (package alg).
func Parse(token string) (*DecomposedJWT, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, &ParseError{Message: fmt.Sprintf("expected 3 segments, got %d", len(parts))}
	}
	headerB64, payloadB64, sigB64 := parts[0], parts[1], parts[2]
	if headerB64 == "" || payloadB64 == "" || sigB64 == "" {
		return nil, &ParseError{Message: "one or more segments is empty"}
	}

	headerJSON, err := decodeSegment(headerB64)
	if err != nil {
		return nil, &ParseError{Message: "failed to decode header", Cause: err}
	}
	payloadJSON, err := decodeSegment(payloadB64)
	if err != nil {
		return nil, &ParseError{Message: "failed to decode payload", Cause: err}
	}
	sig, err := decodeSegment(sigB64)
	if err != nil {
		return nil, &ParseError{Message: "failed to decode signature", Cause: err}
	}

	header, err := decodeObject(headerJSON)
	if err != nil {
		return nil, &ParseError{Message: "header is not a JSON object", Cause: err}
	}
	payload, err := decodeObject(payloadJSON)
	if err != nil {
		return nil, &ParseError{Message: "payload is not a JSON object", Cause: err}
	}

	alg, ok := header["alg"].(string)
	if !ok || alg == "" {
		return nil, &ParseError{Message: "header.alg is missing or not a string"}
	}

	return &DecomposedJWT{
		Header:     header,
		Payload:    payload,
		Signature:  sig,
		HeaderB64:  headerB64,
		PayloadB64: payloadB64,
	}, nil
}

func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

func decodeObject(raw []byte) (map[string]any, error) {
	var v map[string]any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("decoded null, want object")
	}
	return v, nil
}
