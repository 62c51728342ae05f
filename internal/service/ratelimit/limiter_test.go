package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestAllowRefills(t *testing.T) {
	l := New(2, 1, time.Hour)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("expected burst of 2")
	}
	if l.Allow("a") {
		t.Fatalf("expected bucket to be empty")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share a bucket")
	}

	now = now.Add(1500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("expected one token after refill")
	}
	if l.Allow("a") {
		t.Fatalf("expected half a token only")
	}

	// refill never exceeds capacity
	now = now.Add(time.Hour)
	for i := 0; i < 2; i++ {
		if !l.Allow("a") {
			t.Fatalf("expected token %d", i)
		}
	}
	if l.Allow("a") {
		t.Fatalf("capacity exceeded")
	}
}

func TestIdleKeysAreEvicted(t *testing.T) {
	l := New(1, 0.001, 20*time.Millisecond)

	for i := 0; i < 1000; i++ {
		l.Allow("10.0.0." + strconv.Itoa(i))
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("expected 10.0.0.1 to be out of tokens")
	}

	time.Sleep(60 * time.Millisecond)
	l.clients.DeleteExpired()
	if n := l.Len(); n != 0 {
		t.Fatalf("expected idle keys to be dropped, %d remain", n)
	}
	if !l.Allow("10.0.0.1") {
		t.Fatalf("expected a fresh bucket after eviction")
	}
}

func TestActiveKeysSurvive(t *testing.T) {
	l := New(1, 0.001, 250*time.Millisecond)
	l.Allow("a")
	for i := 0; i < 4; i++ {
		time.Sleep(50 * time.Millisecond)
		if l.Allow("a") {
			t.Fatalf("bucket was reset while the client stayed active")
		}
	}
}

func TestMiddlewareReturns429(t *testing.T) {
	l := New(1, 0.5, 0)
	e := echo.New()
	e.POST("/api/predict", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, l.Middleware())

	var last *httptest.ResponseRecorder
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/predict", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		e.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	if got := last.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q", got)
	}
}
