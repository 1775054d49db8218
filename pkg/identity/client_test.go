package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/pkg/httpx"
)

func TestCreateUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/users" {
			t.Errorf("path = %q, want /admin/users", r.URL.Path)
		}
		if got := r.Header.Get("apikey"); got != "service-key" {
			t.Errorf("apikey = %q, want %q", got, "service-key")
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["email_confirm"] != true {
			t.Error("email_confirm not set on admin create")
		}
		json.NewEncoder(w).Encode(User{ID: "u-1", Email: body["email"].(string)})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key", time.Second, nil)
	user, err := client.CreateUser(context.Background(), "trader@corp.com", "hunter22")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID != "u-1" || user.Email != "trader@corp.com" {
		t.Fatalf("user = %+v, want id u-1 with request email", user)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": "email already registered"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key", time.Second, nil)
	_, err := client.CreateUser(context.Background(), "trader@corp.com", "hunter22")

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("err = %T (%v), want *domain.Error", err, err)
	}
	if domainErr.Code != domain.ErrCodeConflict {
		t.Fatalf("code = %q, want %q", domainErr.Code, domain.ErrCodeConflict)
	}
	if domainErr.Message != "email already registered" {
		t.Fatalf("message = %q, want provider's message", domainErr.Message)
	}
}

func TestUserFromTokenRejectsInvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid JWT"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, nil)
	_, err := client.UserFromToken(context.Background(), "bad-token")

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("err = %T (%v), want *domain.Error", err, err)
	}
	if domainErr.Code != domain.ErrCodeUnauthorized {
		t.Fatalf("code = %q, want %q", domainErr.Code, domain.ErrCodeUnauthorized)
	}
}

func TestUserFromTokenEmptyToken(t *testing.T) {
	client := NewClient("http://localhost:1", "", time.Second, nil)
	if _, err := client.UserFromToken(context.Background(), ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want %v", err, domain.ErrUnauthorized)
	}
}

func TestPasswordGrantKeepsErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, want password", got)
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid login credentials"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, nil)
	_, err := client.PasswordGrant(context.Background(), "trader@corp.com", "wrong")

	var apiErr *httpx.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T (%v), want *httpx.APIError", err, err)
	}
	if got := apiErr.Message(); got != "invalid login credentials" {
		t.Fatalf("Message() = %q, want provider's message", got)
	}
}

func TestPasswordGrantSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Grant{
			AccessToken: "tok-1",
			User:        User{ID: "u-1", Email: "trader@corp.com"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, nil)
	grant, err := client.PasswordGrant(context.Background(), "trader@corp.com", "hunter22")
	if err != nil {
		t.Fatalf("PasswordGrant: %v", err)
	}
	if grant.AccessToken != "tok-1" || grant.User.ID != "u-1" {
		t.Fatalf("grant = %+v, want token tok-1 for u-1", grant)
	}
}
