package ginmw_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	jwtverify "github.com/chimerakang/jwt-verify-go"
	"github.com/chimerakang/jwt-verify-go/middleware/ginmw"
	"github.com/gin-gonic/gin"
)

type stubVerifier struct {
	claims map[string]any
	err    error
	gotTok string
}

func (s *stubVerifier) Verify(_ context.Context, token string, _ *jwtverify.Overrides) (map[string]any, error) {
	s.gotTok = token
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func newRouter(v ginmw.Verifier, opts ...ginmw.AuthOption) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ginmw.Auth(v, opts...))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"issuer":  ginmw.GetIssuer(c),
			"subject": ginmw.GetSubject(c),
		})
	})
	return r
}

func TestAuth_ValidToken(t *testing.T) {
	v := &stubVerifier{claims: map[string]any{"iss": "https://issuer.example", "sub": "user-1"}}
	r := newRouter(v)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if v.gotTok != "good-token" {
		t.Errorf("Verify called with %q, want good-token", v.gotTok)
	}
}

func TestAuth_MissingToken(t *testing.T) {
	v := &stubVerifier{}
	r := newRouter(v)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_VerificationFails(t *testing.T) {
	v := &stubVerifier{err: &jwtverify.Error{Kind: jwtverify.KindExpired, Message: "expired"}}
	r := newRouter(v)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ExcludedPath(t *testing.T) {
	v := &stubVerifier{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ginmw.Auth(v, ginmw.WithExcludedPaths("/healthz")))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for excluded path without a token", w.Code)
	}
}

func TestAuth_MalformedAuthorizationHeader(t *testing.T) {
	v := &stubVerifier{}
	r := newRouter(v)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for non-Bearer scheme", w.Code)
	}
}
