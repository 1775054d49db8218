package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// closedPort returns an address that refuses connections.
func closedPort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestDoJSONDecodesSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey = %q, want %q", got, "anon-key")
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "u-1"})
	}))
	defer srv.Close()

	client := NewClient(time.Second, map[string]string{"apikey": "anon-key"})
	var out struct {
		ID string `json:"id"`
	}
	if err := client.DoJSON(context.Background(), http.MethodGet, srv.URL, "tok-1", nil, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.ID != "u-1" {
		t.Fatalf("decoded id = %q, want %q", out.ID, "u-1")
	}
}

func TestDoJSONClassifiesServerResponseAsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid credentials"}`))
	}))
	defer srv.Close()

	client := NewClient(time.Second, nil)
	err := client.DoJSON(context.Background(), http.MethodPost, srv.URL, "", map[string]string{"email": "x"}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T (%v), want *APIError", err, err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("Status = %d, want 401", apiErr.Status)
	}
	if got := apiErr.Message(); got != "invalid credentials" {
		t.Fatalf("Message() = %q, want %q", got, "invalid credentials")
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		t.Fatal("a served error response must not classify as a transport failure")
	}
}

func TestDoJSONClassifiesUnreachableServerAsTransportError(t *testing.T) {
	client := NewClient(time.Second, nil)
	err := client.DoJSON(context.Background(), http.MethodGet, "http://"+closedPort(t), "", nil, nil)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %T (%v), want *TransportError", err, err)
	}
}

func TestDoJSONUndecodableSuccessBodyIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := NewClient(time.Second, nil)
	var out map[string]string
	err := client.DoJSON(context.Background(), http.MethodGet, srv.URL, "", nil, &out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T (%v), want *APIError", err, err)
	}
	if apiErr.Status != http.StatusOK {
		t.Fatalf("Status = %d, want 200", apiErr.Status)
	}
}
