package auth

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestCodec creates a SessionCodec with a fixed secret so tests are
// deterministic.
func newTestCodec(t *testing.T) *SessionCodec {
	t.Helper()
	codec, err := NewSessionCodec("test-secret-at-least-16-chars!!", time.Hour, false)
	if err != nil {
		t.Fatalf("NewSessionCodec: %v", err)
	}
	return codec
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewSessionCodec_ShortSecret(t *testing.T) {
	_, err := NewSessionCodec("short", time.Hour, false)
	if err == nil {
		t.Fatal("NewSessionCodec() should reject secrets shorter than 16 chars")
	}
}

// =========================================================================
// SESSION TRANSITION TESTS
// =========================================================================

func TestSession_EstablishAndClear(t *testing.T) {
	var s Session

	if s.Authenticated() {
		t.Error("zero-value Session should be anonymous")
	}

	s.Establish(42)
	if !s.Authenticated() || s.UserID != 42 {
		t.Errorf("after Establish(42): UserID = %d, Authenticated = %v", s.UserID, s.Authenticated())
	}

	s.Clear()
	if s.Authenticated() || s.UserID != 0 {
		t.Errorf("after Clear(): UserID = %d, want 0", s.UserID)
	}
}

// =========================================================================
// ENCODE / DECODE TESTS
// =========================================================================

func TestEncodeDecode_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	var s Session
	s.Establish(7)

	value, err := codec.Encode(s)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded := codec.Decode(value)
	if decoded.UserID != 7 {
		t.Errorf("Decode().UserID = %d, want 7", decoded.UserID)
	}
}

func TestDecode_GarbageYieldsAnonymous(t *testing.T) {
	codec := newTestCodec(t)

	cases := []string{
		"",
		"not-a-jwt",
		"aaa.bbb.ccc",
		"header.payload", // only two segments
	}
	for _, value := range cases {
		if got := codec.Decode(value); got.Authenticated() {
			t.Errorf("Decode(%q) = %+v, want anonymous", value, got)
		}
	}
}

func TestDecode_TamperedPayloadYieldsAnonymous(t *testing.T) {
	codec := newTestCodec(t)

	value, err := codec.Encode(Session{UserID: 7})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Flip a character in the payload segment. The signature no longer
	// matches, so the whole session must be discarded.
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 JWT segments, got %d", len(parts))
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if got := codec.Decode(tampered); got.Authenticated() {
		t.Errorf("Decode() accepted a tampered payload: %+v", got)
	}
}

func TestDecode_WrongSecretYieldsAnonymous(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewSessionCodec("a-completely-different-secret!!!", time.Hour, false)
	if err != nil {
		t.Fatalf("NewSessionCodec: %v", err)
	}

	value, _ := codec.Encode(Session{UserID: 7})

	if got := other.Decode(value); got.Authenticated() {
		t.Errorf("Decode() with wrong secret returned %+v, want anonymous", got)
	}
}

func TestDecode_ExpiredYieldsAnonymous(t *testing.T) {
	// A codec with a negative TTL would be rejected by the constructor's
	// default, so build the expired token via a 1ns TTL codec.
	codec, err := NewSessionCodec("test-secret-at-least-16-chars!!", time.Nanosecond, false)
	if err != nil {
		t.Fatalf("NewSessionCodec: %v", err)
	}

	value, _ := codec.Encode(Session{UserID: 7})
	time.Sleep(5 * time.Millisecond)

	if got := codec.Decode(value); got.Authenticated() {
		t.Errorf("Decode() accepted an expired session: %+v", got)
	}
}

// =========================================================================
// COOKIE TESTS
// =========================================================================

func TestIssueCookie_SetsHttpOnlySessionCookie(t *testing.T) {
	codec := newTestCodec(t)
	rec := httptest.NewRecorder()

	if err := codec.IssueCookie(rec, Session{UserID: 7}); err != nil {
		t.Fatalf("IssueCookie() error = %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName {
		t.Errorf("cookie name = %q, want %q", c.Name, SessionCookieName)
	}
	if !c.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if got := codec.Decode(c.Value); got.UserID != 7 {
		t.Errorf("cookie round-trip UserID = %d, want 7", got.UserID)
	}
}

func TestClearCookie_ExpiresTheCookie(t *testing.T) {
	codec := newTestCodec(t)
	rec := httptest.NewRecorder()

	codec.ClearCookie(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 {
		t.Errorf("ClearCookie() MaxAge = %d, want negative (delete)", cookies[0].MaxAge)
	}
	if cookies[0].Value != "" {
		t.Errorf("ClearCookie() value = %q, want empty", cookies[0].Value)
	}
}
