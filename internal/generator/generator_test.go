package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInitialHTMLSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Prompt, "Acme")

		_ = json.NewEncoder(w).Encode(response{Response: `"<!DOCTYPE html><html><body>hi</body></html>"`})
	}))
	defer srv.Close()

	client := New(nil, Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil)
	html, err := client.GenerateInitialHTML(context.Background(), "<p>seed</p>", "Acme", "legal", "compliance")
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html><body>hi</body></html>", html)
}

func TestGenerateInitialHTMLNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(nil, Config{BaseURL: srv.URL}, nil)
	_, err := client.GenerateInitialHTML(context.Background(), "<p>seed</p>", "Acme", "", "")
	require.ErrorIs(t, err, ErrUpstreamFailed)
}

func TestGenerateInitialHTMLTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(response{Response: "ok"})
	}))
	defer srv.Close()

	client := New(nil, Config{BaseURL: srv.URL, Timeout: 5 * time.Millisecond}, nil)
	_, err := client.GenerateInitialHTML(context.Background(), "<p>seed</p>", "Acme", "", "")
	require.ErrorIs(t, err, ErrUpstreamFailed)
}

func TestNormalizeStripsFencesAndQuotes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "<!DOCTYPE html><p>x</p>", want: "<!DOCTYPE html><p>x</p>"},
		{name: "quoted", in: `"<!DOCTYPE html><p>x</p>"`, want: "<!DOCTYPE html><p>x</p>"},
		{name: "code fence", in: "```html\n<!DOCTYPE html><p>x</p>\n```", want: "<!DOCTYPE html><p>x</p>"},
		{name: "narration prefix", in: "Sure, here you go:\n<!DOCTYPE html><p>x</p>", want: "<!DOCTYPE html><p>x</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in))
		})
	}
}
