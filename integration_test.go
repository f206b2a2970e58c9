//go:build integration

package jwtverify_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"testing"
	"time"

	jwtverify "github.com/chimerakang/jwt-verify-go"
	"github.com/chimerakang/jwt-verify-go/alb"
	"github.com/chimerakang/jwt-verify-go/cognito"
	"github.com/chimerakang/jwt-verify-go/decompose"
	"github.com/chimerakang/jwt-verify-go/fake"
	"github.com/chimerakang/jwt-verify-go/jwks"
	"github.com/golang-jwt/jwt/v5"
)

// End-to-end scenarios driving jwtverify.VerifierBase and its cognito/alb
// presets against an in-memory JWKS fetcher, covering the documented
// happy-path, expiry, kid-rotation, penalty-box, ALB, and multi-issuer
// behaviors.
//
// Run with: go test -tags=integration ./...

func b64url(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func rsaJWKS(kid string, pub *rsa.PublicKey) []byte {
	n := b64url(pub.N.Bytes())
	e := b64url(bigEndianBytes(pub.E))
	return []byte(fmt.Sprintf(`{"keys":[{"kty":"RSA","kid":%q,"use":"sig","alg":"RS256","n":%q,"e":%q}]}`, kid, n, e))
}

func rsaJWKSMulti(entries map[string]*rsa.PublicKey) []byte {
	body := `{"keys":[`
	first := true
	for kid, pub := range entries {
		if !first {
			body += ","
		}
		first = false
		body += fmt.Sprintf(`{"kty":"RSA","kid":%q,"use":"sig","alg":"RS256","n":%q,"e":%q}`,
			kid, b64url(pub.N.Bytes()), b64url(bigEndianBytes(pub.E)))
	}
	body += `]}`
	return []byte(body)
}

func ecJWKS(kid string, pub *ecdsa.PublicKey, size int) []byte {
	x := leftPad(pub.X.Bytes(), size)
	y := leftPad(pub.Y.Bytes(), size)
	return []byte(fmt.Sprintf(`{"keys":[{"kty":"EC","kid":%q,"use":"sig","alg":"ES256","crv":"P-256","x":%q,"y":%q}]}`,
		kid, b64url(x), b64url(y)))
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

func bigEndianBytes(e int) []byte {
	b := big.NewInt(int64(e)).Bytes()
	if len(b) == 0 {
		return []byte{0}
	}
	return b
}

// TestIntegration_S1_HappyPathRS256 covers a single-issuer RS256 config
// where a freshly minted token verifies cleanly and returns its payload.
func TestIntegration_S1_HappyPathRS256(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	const issuer = "https://issuer.example"
	fetcher := fake.NewFetcher()
	fetcher.SetResponse(issuer, rsaJWKS("k1", &priv.PublicKey))

	v := jwtverify.New(
		[]jwtverify.IssuerConfig{{Issuer: issuer, JwksURI: issuer, Audience: []string{"svc"}}},
		jwtverify.WithCache(jwks.NewCache(jwks.WithFetcher(fetcher))),
	)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": issuer,
		"aud": "svc",
		"exp": time.Now().Add(60 * time.Second).Unix(),
	})
	token.Header["kid"] = "k1"
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatal(err)
	}

	payload, err := v.Verify(context.Background(), signed, nil)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if payload["aud"] != "svc" {
		t.Errorf("payload[aud] = %v, want svc", payload["aud"])
	}
}

// TestIntegration_S2_Expired covers a payload whose exp has already
// passed with zero grace configured.
func TestIntegration_S2_Expired(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	const issuer = "https://issuer.example"
	fetcher := fake.NewFetcher()
	fetcher.SetResponse(issuer, rsaJWKS("k1", &priv.PublicKey))

	v := jwtverify.New(
		[]jwtverify.IssuerConfig{{Issuer: issuer, JwksURI: issuer, GraceSeconds: 0}},
		jwtverify.WithCache(jwks.NewCache(jwks.WithFetcher(fetcher))),
	)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": issuer,
		"exp": time.Now().Add(-100 * time.Second).Unix(),
	})
	token.Header["kid"] = "k1"
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatal(err)
	}

	_, err = v.Verify(context.Background(), signed, nil)
	verr, ok := err.(*jwtverify.Error)
	if !ok || verr.Kind != jwtverify.KindExpired {
		t.Fatalf("err = %v, want KindExpired", err)
	}
}

// TestIntegration_S3_KidRotation covers a cache primed with k1 receiving
// a token signed by a newly-rotated k2; the refresh picks up both keys.
func TestIntegration_S3_KidRotation(t *testing.T) {
	priv1, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	priv2, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	const issuer = "https://issuer.example"
	fetcher := fake.NewFetcher()
	fetcher.SetResponse(issuer, rsaJWKS("k1", &priv1.PublicKey))

	cache := jwks.NewCache(jwks.WithFetcher(fetcher))
	v := jwtverify.New([]jwtverify.IssuerConfig{{Issuer: issuer, JwksURI: issuer}}, jwtverify.WithCache(cache))

	tokenK2 := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenK2.Header["kid"] = "k2"
	signedK2, err := tokenK2.SignedString(priv2)
	if err != nil {
		t.Fatal(err)
	}

	// Prime the cache with only k1, then rotate the served JWKS to both
	// keys before the k2 token is presented.
	if _, err := cache.GetJwks(context.Background(), issuer); err != nil {
		t.Fatalf("priming fetch failed: %v", err)
	}
	fetcher.SetResponse(issuer, rsaJWKSMulti(map[string]*rsa.PublicKey{
		"k1": &priv1.PublicKey,
		"k2": &priv2.PublicKey,
	}))

	if _, err := v.Verify(context.Background(), signedK2, nil); err != nil {
		t.Fatalf("Verify() with rotated kid error: %v", err)
	}

	decomposed, err := decompose.Parse(signedK2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetCachedJwk(issuer, decomposed); err != nil {
		t.Errorf("expected k2 cached after rotation: %v", err)
	}
}

// TestIntegration_S4_PenaltyBox covers an unknown kid triggering exactly
// one refetch, then a second unknown-kid token failing fast without a
// further fetch while the penalty box is tripped.
func TestIntegration_S4_PenaltyBox(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	unrelated, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	const issuer = "https://issuer.example"
	fetcher := fake.NewFetcher()
	fetcher.SetResponse(issuer, rsaJWKS("k1", &priv.PublicKey))

	v := jwtverify.New([]jwtverify.IssuerConfig{{Issuer: issuer, JwksURI: issuer}}, jwtverify.WithCache(jwks.NewCache(jwks.WithFetcher(fetcher))))

	mint := func() string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss": issuer,
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		token.Header["kid"] = "unknown"
		signed, err := token.SignedString(unrelated)
		if err != nil {
			t.Fatal(err)
		}
		return signed
	}

	first := mint()
	_, err = v.Verify(context.Background(), first, nil)
	verr, ok := err.(*jwtverify.Error)
	if !ok || verr.Kind != jwtverify.KindKidNotFoundInJwks {
		t.Fatalf("first Verify() err = %v, want KindKidNotFoundInJwks", err)
	}
	if hits := fetcher.Hits(issuer); hits != 1 {
		t.Fatalf("expected 1 fetch after unknown kid, got %d", hits)
	}

	second := mint()
	_, err = v.Verify(context.Background(), second, nil)
	verr, ok = err.(*jwtverify.Error)
	if !ok || verr.Kind != jwtverify.KindWaitPeriodNotYetEnded {
		t.Fatalf("second Verify() err = %v, want KindWaitPeriodNotYetEnded", err)
	}
	if hits := fetcher.Hits(issuer); hits != 1 {
		t.Fatalf("expected no additional fetch while penalty box active, got %d hits", hits)
	}
}

// TestIntegration_S5_ALB covers the AWS ALB preset, whose signer/client
// identity lives in the JWT header rather than the payload.
func TestIntegration_S5_ALB(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	const issuer = "https://issuer.example"
	fetcher := fake.NewFetcher()
	fetcher.SetResponse(issuer, ecJWKS("alb1", &priv.PublicKey, 32))

	v := alb.New([]alb.Config{{
		Issuer:   issuer,
		JwksURI:  issuer,
		AlbArn:   []string{"arn:aws:elasticloadbalancing:us-east-1:1:loadbalancer/app/my-lb/alb1"},
		ClientID: []string{"client-xyz"},
	}}, jwtverify.WithCache(jwks.NewCache(jwks.WithFetcher(fetcher))))

	mint := func(signer string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
			"iss": issuer,
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		token.Header["kid"] = "alb1"
		token.Header["signer"] = signer
		token.Header["client"] = "client-xyz"
		signed, err := token.SignedString(priv)
		if err != nil {
			t.Fatal(err)
		}
		return signed
	}

	goodToken := mint("arn:aws:elasticloadbalancing:us-east-1:1:loadbalancer/app/my-lb/alb1")
	if _, err := v.Verify(context.Background(), goodToken, nil); err != nil {
		t.Fatalf("Verify() with matching signer error: %v", err)
	}

	badToken := mint("arn:aws:elasticloadbalancing:us-east-1:1:loadbalancer/app/my-lb/other")
	_, err = v.Verify(context.Background(), badToken, nil)
	verr, ok := err.(*jwtverify.Error)
	if !ok || verr.Kind != jwtverify.KindInvalidClaim {
		t.Fatalf("err = %v, want KindInvalidClaim for ALB signer mismatch", err)
	}
}

// TestIntegration_S6_MultiIssuer covers routing a token to the correct
// issuer config by audience when two issuer configs are registered.
func TestIntegration_S6_MultiIssuer(t *testing.T) {
	privA, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	privB, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	const issuerA = "https://issuer-a.example"
	const issuerB = "https://issuer-b.example"

	fetcher := fake.NewFetcher()
	fetcher.SetResponse(issuerA, rsaJWKS("ka", &privA.PublicKey))
	fetcher.SetResponse(issuerB, rsaJWKS("kb", &privB.PublicKey))

	v := jwtverify.New([]jwtverify.IssuerConfig{
		{Issuer: issuerA, JwksURI: issuerA, Audience: []string{"a1"}},
		{Issuer: issuerB, JwksURI: issuerB, Audience: []string{"b1"}},
	}, jwtverify.WithCache(jwks.NewCache(jwks.WithFetcher(fetcher))))

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": issuerB,
		"aud": "b1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "kb"
	signed, err := token.SignedString(privB)
	if err != nil {
		t.Fatal(err)
	}

	payload, err := v.Verify(context.Background(), signed, nil)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if payload["iss"] != issuerB {
		t.Errorf("payload[iss] = %v, want %s", payload["iss"], issuerB)
	}
}

// TestIntegration_Cognito covers the Cognito preset end-to-end, including
// its token_use default and derived jwks uri.
func TestIntegration_Cognito(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	const region = "us-east-1"
	const poolID = "us-east-1_example"
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, poolID)

	fetcher := fake.NewFetcher()
	fetcher.SetResponse(issuer+"/.well-known/jwks.json", rsaJWKS("k1", &priv.PublicKey))

	v := cognito.New([]cognito.Config{{
		Region:     region,
		UserPoolID: poolID,
		ClientID:   []string{"client-abc"},
		TokenUse:   []string{"access"},
	}}, jwtverify.WithCache(jwks.NewCache(jwks.WithFetcher(fetcher))))

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":       issuer,
		"client_id": "client-abc",
		"token_use": "access",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "k1"
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := v.Verify(context.Background(), signed, nil); err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
}
