package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/abhijith/smart-bookmark/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", "anon-key", srv.Client(), nil)
	c.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return c
}

func TestSignInWithPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/v1/token" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Fatalf("grant_type = %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Fatalf("apikey header = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
			t.Fatalf("Authorization = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "a@example.com" || body["password"] != "secret" {
			t.Fatalf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{
			"access_token":"at","token_type":"bearer","expires_in":3600,
			"refresh_token":"rt",
			"user":{"id":"u1","email":"a@example.com","user_metadata":{"full_name":"Ada"}}
		}`))
	})

	s, err := c.SignInWithPassword(context.Background(), "a@example.com", "secret")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if s.AccessToken != "at" || s.RefreshToken != "rt" {
		t.Fatalf("tokens = %q/%q", s.AccessToken, s.RefreshToken)
	}
	if want := time.Unix(1_700_000_000+3600, 0); !s.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", s.ExpiresAt, want)
	}
	if s.User.ID != "u1" || s.User.DisplayName() != "Ada" {
		t.Fatalf("user = %+v", s.User)
	}
}

func TestSignInWithPasswordRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := c.SignInWithPassword(context.Background(), "a@example.com", "wrong")
	var be *models.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if be.Status != http.StatusBadRequest || be.Message != "Invalid login credentials" {
		t.Fatalf("error = %+v", be)
	}
}

func TestRefreshSessionUsesExpiresAt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "refresh_token" {
			t.Fatalf("grant_type = %q", got)
		}
		_, _ = w.Write([]byte(`{"access_token":"at2","refresh_token":"rt2","expires_at":1800000000,"expires_in":3600,"user":{"id":"u1"}}`))
	})

	s, err := c.RefreshSession(context.Background(), "rt")
	if err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if !s.ExpiresAt.Equal(time.Unix(1_800_000_000, 0)) {
		t.Fatalf("ExpiresAt = %v", s.ExpiresAt)
	}
}

func TestExchangeCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "pkce" {
			t.Fatalf("grant_type = %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["auth_code"] != "code-1" || body["code_verifier"] != "verifier" {
			t.Fatalf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","user":{"id":"u1"}}`))
	})

	s, err := c.ExchangeCode(context.Background(), "code-1", "verifier")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if s.User.ID != "u1" {
		t.Fatalf("user = %+v", s.User)
	}
}

func TestSignUp(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantSession bool
		wantUserID  string
	}{
		{
			name:        "auto confirm",
			response:    `{"access_token":"at","refresh_token":"rt","user":{"id":"u1","email":"a@example.com"}}`,
			wantSession: true,
			wantUserID:  "u1",
		},
		{
			name:       "confirmation pending",
			response:   `{"id":"u2","email":"b@example.com","user_metadata":{"full_name":"Bo"}}`,
			wantUserID: "u2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/auth/v1/signup" {
					t.Fatalf("path = %s", r.URL.Path)
				}
				var body struct {
					Data map[string]string `json:"data"`
				}
				_ = json.NewDecoder(r.Body).Decode(&body)
				if body.Data["full_name"] != "Ada" {
					t.Fatalf("full_name = %q", body.Data["full_name"])
				}
				_, _ = w.Write([]byte(tt.response))
			})

			s, u, err := c.SignUp(context.Background(), "a@example.com", "secret", "Ada")
			if err != nil {
				t.Fatalf("SignUp: %v", err)
			}
			if (s != nil) != tt.wantSession {
				t.Fatalf("session = %v, want present=%v", s, tt.wantSession)
			}
			if u == nil || u.ID != tt.wantUserID {
				t.Fatalf("user = %+v", u)
			}
		})
	}
}

func TestGetUserAndSignOutSendToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Fatalf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/auth/v1/user":
			_, _ = w.Write([]byte(`{"id":"u1","email":"a@example.com"}`))
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("path = %s", r.URL.Path)
		}
	})

	u, err := c.GetUser(context.Background(), "user-token")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Email != "a@example.com" {
		t.Fatalf("user = %+v", u)
	}
	if err := c.SignOut(context.Background(), "user-token"); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
}

func TestGetUserUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":401,"error_code":"bad_jwt","msg":"invalid JWT"}`))
	})

	_, err := c.GetUser(context.Background(), "expired")
	if !models.IsUnauthorized(err) {
		t.Fatalf("IsUnauthorized(%v) = false", err)
	}
	if !strings.Contains(err.Error(), "bad_jwt") {
		t.Fatalf("error = %v", err)
	}
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient("https://proj.example.co/", "k", nil, nil)
	raw := c.AuthorizeURL("google", "http://127.0.0.1:54321/auth/callback", "challenge")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "proj.example.co" || u.Path != "/auth/v1/authorize" {
		t.Fatalf("url = %s", raw)
	}
	q := u.Query()
	if q.Get("provider") != "google" || q.Get("code_challenge") != "challenge" || q.Get("code_challenge_method") != "s256" {
		t.Fatalf("query = %v", q)
	}
	if q.Get("redirect_to") != "http://127.0.0.1:54321/auth/callback" {
		t.Fatalf("redirect_to = %q", q.Get("redirect_to"))
	}
}

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{"postgrest", 409, `{"code":"23505","message":"duplicate key"}`, "23505", "duplicate key"},
		{"gotrue", 422, `{"error_code":"weak_password","msg":"Password too short"}`, "weak_password", "Password too short"},
		{"plain text", 502, "upstream down", "", "upstream down"},
		{"empty", 503, "", "", "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := decodeError(tt.status, []byte(tt.body))
			if be.Code != tt.wantCode || be.Message != tt.wantMsg || be.Status != tt.status {
				t.Fatalf("decodeError = %+v", be)
			}
		})
	}
}
