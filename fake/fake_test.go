package fake_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chimerakang/jwt-verify-go/fake"
)

func TestFetcher_ServesRegisteredResponse(t *testing.T) {
	f := fake.NewFetcher()
	f.SetResponse("https://issuer.example/jwks.json", []byte(`{"keys":[]}`))

	body, err := f.Fetch(context.Background(), "https://issuer.example/jwks.json")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if string(body) != `{"keys":[]}` {
		t.Errorf("body = %s", body)
	}
	if f.Hits("https://issuer.example/jwks.json") != 1 {
		t.Errorf("Hits = %d, want 1", f.Hits("https://issuer.example/jwks.json"))
	}
}

func TestFetcher_UnregisteredURIFails(t *testing.T) {
	f := fake.NewFetcher()
	if _, err := f.Fetch(context.Background(), "https://unknown.example/jwks.json"); err == nil {
		t.Error("expected error for unregistered URI")
	}
}

func TestFetcher_SetError(t *testing.T) {
	f := fake.NewFetcher()
	wantErr := errors.New("boom")
	f.SetError("https://issuer.example/jwks.json", wantErr)

	_, err := f.Fetch(context.Background(), "https://issuer.example/jwks.json")
	if !errors.Is(err, wantErr) {
		t.Errorf("Fetch() error = %v, want %v", err, wantErr)
	}
}

func TestFetcher_CountsHitsPerURI(t *testing.T) {
	f := fake.NewFetcher()
	f.SetResponse("a", []byte("{}"))
	f.SetResponse("b", []byte("{}"))

	f.Fetch(context.Background(), "a")
	f.Fetch(context.Background(), "a")
	f.Fetch(context.Background(), "b")

	if f.Hits("a") != 2 {
		t.Errorf("Hits(a) = %d, want 2", f.Hits("a"))
	}
	if f.Hits("b") != 1 {
		t.Errorf("Hits(b) = %d, want 1", f.Hits("b"))
	}
}

func TestPenaltyBox_StartsOpen(t *testing.T) {
	pb := fake.NewPenaltyBox()
	if err := pb.Wait("uri", "kid"); err != nil {
		t.Errorf("Wait() error = %v, want nil", err)
	}
}

func TestPenaltyBox_FailedAttemptTripsGate(t *testing.T) {
	pb := fake.NewPenaltyBox()
	pb.RegisterFailedAttempt("uri", "kid")

	if err := pb.Wait("uri", "kid"); err == nil {
		t.Error("expected Wait() to fail after a failed attempt")
	}
	// a different URI is unaffected
	if err := pb.Wait("other", "kid"); err != nil {
		t.Errorf("Wait(other) error = %v, want nil", err)
	}
}

func TestPenaltyBox_SuccessfulAttemptReopensGate(t *testing.T) {
	pb := fake.NewPenaltyBox()
	pb.RegisterFailedAttempt("uri", "kid")
	pb.RegisterSuccessfulAttempt("uri", "kid")

	if err := pb.Wait("uri", "kid"); err != nil {
		t.Errorf("Wait() error = %v, want nil after success", err)
	}
}

func TestPenaltyBox_Open(t *testing.T) {
	pb := fake.NewPenaltyBox()
	pb.RegisterFailedAttempt("uri", "kid")
	pb.Open("uri")

	if err := pb.Wait("uri", "kid"); err != nil {
		t.Errorf("Wait() error = %v, want nil after Open", err)
	}
}

func TestClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fake.NewClock(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start)
	}

	c.Advance(time.Hour)
	want := start.Add(time.Hour)
	if !c.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", c.Now(), want)
	}

	later := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("Now() = %v, want %v", c.Now(), later)
	}
}
