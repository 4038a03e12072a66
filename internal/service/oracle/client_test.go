package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	drepo "SignalRelay/internal/domain/repository"
)

func geminiEnvelope(text string) string {
	env := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"parts": []map[string]string{{"text": text}},
			}},
		},
	}
	b, _ := json.Marshal(env)
	return string(b)
}

const replyJSON = `{
	"valid": true,
	"reason": "Valid trading signal",
	"asset": "Gold",
	"side": "BUY",
	"entry": ["2931", "2927"],
	"stop_loss": "2925",
	"take_profits": ["2932.5", "2935"],
	"at": ""
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("test-key", "gemini-2.0-flash", WithBaseURL(srv.URL)), srv
}

func TestFormatParsesReply(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(geminiEnvelope(replyJSON)))
	})

	reply, err := c.Format(context.Background(), "Buy Gold @2931-2927")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !reply.Valid || reply.Asset != "Gold" || reply.Side != "BUY" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if len(reply.Entry) != 2 || reply.Entry[0] != "2931" || reply.Entry[1] != "2927" {
		t.Fatalf("entry order must be preserved as emitted: %v", reply.Entry)
	}
}

func TestFormatToleratesCodeFences(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiEnvelope("```json\n" + replyJSON + "\n```")))
	})

	reply, err := c.Format(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.StopLoss != "2925" {
		t.Fatalf("unexpected stop loss %q", reply.StopLoss)
	}
}

func TestFormatRateLimited(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Format(context.Background(), "text")
	if !errors.Is(err, drepo.ErrOracleRateLimited) {
		t.Fatalf("want rate limited, got %v", err)
	}
}

func TestFormatServerErrorIsUnavailable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Format(context.Background(), "text")
	if !errors.Is(err, drepo.ErrOracleUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
}

func TestFormatMalformedReply(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-json text": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(geminiEnvelope("sorry, I cannot help with that")))
		},
		"empty candidates": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates": []}`))
		},
		"client error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		},
	}

	for name, handler := range cases {
		c, _ := newTestClient(t, handler)
		_, err := c.Format(context.Background(), "text")
		if !errors.Is(err, drepo.ErrOracleMalformed) {
			t.Fatalf("%s: want malformed, got %v", name, err)
		}
	}
}

func TestFormatNetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	c := New("test-key", "gemini-2.0-flash", WithBaseURL(url))
	_, err := c.Format(context.Background(), "text")
	if !errors.Is(err, drepo.ErrOracleUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
}
