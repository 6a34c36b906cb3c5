package wxcloud

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestCredentials_CachesWithinMargin(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":7200}`, calls)
	}))
	defer srv.Close()

	creds, err := NewCredentials("app", "secret", srv.URL, testLogger())
	if err != nil {
		t.Fatalf("new credentials: %v", err)
	}

	base := time.Now()
	now := base
	creds.now = func() time.Time { return now }

	tok, err := creds.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != "tok-1" || calls != 1 {
		t.Fatalf("expected one exchange, got tok=%q calls=%d", tok, calls)
	}

	// one second inside the safety-margined window: cached token, no call
	now = base.Add(7200*time.Second - tokenSafetyMargin - time.Second)
	tok, err = creds.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != "tok-1" || calls != 1 {
		t.Fatalf("expected cache hit, got tok=%q calls=%d", tok, calls)
	}

	// one second past the window: fresh exchange
	now = base.Add(7200*time.Second - tokenSafetyMargin + time.Second)
	tok, err = creds.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != "tok-2" || calls != 2 {
		t.Fatalf("expected refresh, got tok=%q calls=%d", tok, calls)
	}
}

func TestCredentials_ExchangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errcode":40013,"errmsg":"invalid appid"}`)
	}))
	defer srv.Close()

	creds, err := NewCredentials("app", "secret", srv.URL, testLogger())
	if err != nil {
		t.Fatalf("new credentials: %v", err)
	}
	if _, err := creds.Token(context.Background()); err == nil {
		t.Fatal("expected an error for a rejected exchange")
	}
}

func TestCredentials_FailureKeepsValidToken(t *testing.T) {
	var fail bool
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if fail {
			fmt.Fprint(w, `{"errcode":-1,"errmsg":"system busy"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok","expires_in":7200}`)
	}))
	defer srv.Close()

	creds, _ := NewCredentials("app", "secret", srv.URL, testLogger())
	if _, err := creds.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}

	// the provider starts failing, but the cached token is still valid
	fail = true
	tok, err := creds.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != "tok" || calls != 1 {
		t.Fatalf("expected cached token without a call, got tok=%q calls=%d", tok, calls)
	}
}

func TestCredentials_MissingSecrets(t *testing.T) {
	if _, err := NewCredentials("", "", "http://x", testLogger()); err == nil {
		t.Fatal("expected an error for missing secrets")
	}
}
