package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abhijith/smart-bookmark/internal/models"
)

type fakeRefresher struct {
	refresh func(ctx context.Context, refreshToken string) (*models.Session, error)
	calls   int
}

func (f *fakeRefresher) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	f.calls++
	return f.refresh(ctx, refreshToken)
}

func signedToken(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
		Role:  "authenticated",
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newTestStore(t *testing.T, r Refresher, now time.Time) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "nested", "session.json"), r, nil)
	s.now = func() time.Time { return now }
	return s
}

func TestCurrentWithoutSession(t *testing.T) {
	s := newTestStore(t, nil, time.Now())
	if _, err := s.Current(context.Background()); !errors.Is(err, models.ErrNotAuthenticated) {
		t.Fatalf("Current err = %v, want ErrNotAuthenticated", err)
	}
}

func TestSaveFillsFromClaims(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestStore(t, nil, now)
	exp := now.Add(time.Hour)
	tok := signedToken(t, "u1", "a@example.com", exp)

	if err := s.Save(&models.Session{AccessToken: tok, RefreshToken: "rt"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("session file mode = %o, want 600", perm)
	}

	// A fresh store reads what the first one wrote.
	other := NewStore(s.Path(), nil, nil)
	other.now = s.now
	sess, err := other.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if sess.User.ID != "u1" || sess.User.Email != "a@example.com" {
		t.Fatalf("user = %+v", sess.User)
	}
	if !sess.ExpiresAt.Equal(exp) {
		t.Fatalf("ExpiresAt = %v, want %v", sess.ExpiresAt, exp)
	}
}

func TestCurrentRefreshesNearExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := &fakeRefresher{refresh: func(_ context.Context, rt string) (*models.Session, error) {
		if rt != "rt-old" {
			t.Fatalf("refresh token = %q", rt)
		}
		return &models.Session{AccessToken: "at-new", RefreshToken: "rt-new", ExpiresAt: now.Add(time.Hour)}, nil
	}}
	s := newTestStore(t, r, now)
	if err := s.Save(&models.Session{
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		ExpiresAt:    now.Add(30 * time.Second),
		User:         models.User{ID: "u1"},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tok, err := s.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if tok != "at-new" {
		t.Fatalf("token = %q, want refreshed", tok)
	}
	sess, _ := s.Current(context.Background())
	if sess.User.ID != "u1" {
		t.Fatalf("user lost on refresh: %+v", sess.User)
	}
	if r.calls != 1 {
		t.Fatalf("refresh calls = %d, want 1", r.calls)
	}

	// The refreshed session is persisted.
	reread := NewStore(s.Path(), nil, nil)
	reread.now = s.now
	if got, err := reread.AccessToken(context.Background()); err != nil || got != "at-new" {
		t.Fatalf("persisted token = %q, %v", got, err)
	}
}

func TestCurrentValidTokenSkipsRefresh(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := &fakeRefresher{refresh: func(context.Context, string) (*models.Session, error) {
		t.Fatal("unexpected refresh")
		return nil, nil
	}}
	s := newTestStore(t, r, now)
	if err := s.Save(&models.Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(10 * time.Minute)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if tok, err := s.AccessToken(context.Background()); err != nil || tok != "at" {
		t.Fatalf("AccessToken = %q, %v", tok, err)
	}
}

func TestCurrentRefreshRejected(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := &fakeRefresher{refresh: func(context.Context, string) (*models.Session, error) {
		return nil, &models.BackendError{Status: 401, Message: "refresh token revoked"}
	}}
	s := newTestStore(t, r, now)
	if err := s.Save(&models.Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(-time.Minute)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Current(context.Background()); !errors.Is(err, models.ErrNotAuthenticated) {
		t.Fatalf("Current err = %v, want ErrNotAuthenticated", err)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t, nil, time.Now())
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear without session: %v", err)
	}
	if err := s.Save(&models.Session{AccessToken: "at"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Current(context.Background()); !errors.Is(err, models.ErrNotAuthenticated) {
		t.Fatalf("Current after Clear err = %v", err)
	}
}

func TestParseClaims(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)
	c, err := ParseClaims(signedToken(t, "u9", "z@example.com", exp))
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if c.Subject != "u9" || c.Email != "z@example.com" || !c.ExpiresAt.Time.Equal(exp) {
		t.Fatalf("claims = %+v", c)
	}
	if _, err := ParseClaims("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
