// Package session keeps the signed-in user's tokens on disk and refreshes
// them before they expire.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
)

// RefreshSkew is how close to expiry an access token may get before it is refreshed.
const RefreshSkew = time.Minute

// Refresher trades a refresh token for a new session.
type Refresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)
}

type Store struct {
	path      string
	refresher Refresher
	logger    logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	current *models.Session
}

func NewStore(path string, refresher Refresher, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{path: path, refresher: refresher, logger: log, now: time.Now}
}

// Path is the session file location.
func (s *Store) Path() string { return s.path }

// Current returns the stored session, refreshing it first when the access
// token is about to expire. It returns models.ErrNotAuthenticated when
// nobody is signed in.
func (s *Store) Current(ctx context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.current
	if sess == nil {
		loaded, err := s.read()
		if err != nil {
			return nil, err
		}
		sess = loaded
		s.current = sess
	}

	if !sess.Expired(s.now(), RefreshSkew) {
		return sess, nil
	}
	if sess.RefreshToken == "" || s.refresher == nil {
		return nil, fmt.Errorf("session expired: %w", models.ErrNotAuthenticated)
	}

	s.logger.Debug("refreshing session", logger.String("user_id", sess.User.ID))
	fresh, err := s.refresher.RefreshSession(ctx, sess.RefreshToken)
	if err != nil {
		if models.IsUnauthorized(err) {
			return nil, fmt.Errorf("refresh rejected (%v): %w", err, models.ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	if fresh.User.ID == "" {
		fresh.User = sess.User
	}
	if err := s.write(fresh); err != nil {
		return nil, err
	}
	s.current = fresh
	return fresh, nil
}

// AccessToken returns a valid access token for the current session.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	return sess.AccessToken, nil
}

// Save persists sess, filling missing user id and expiry from the token claims.
func (s *Store) Save(sess *models.Session) error {
	if sess == nil || sess.AccessToken == "" {
		return errors.New("save session: missing access token")
	}
	if claims, err := ParseClaims(sess.AccessToken); err == nil {
		if sess.User.ID == "" {
			sess.User.ID = claims.Subject
		}
		if sess.User.Email == "" {
			sess.User.Email = claims.Email
		}
		if sess.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			sess.ExpiresAt = claims.ExpiresAt.Time
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(sess); err != nil {
		return err
	}
	s.current = sess
	return nil
}

// Clear forgets the session. Clearing when signed out is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *Store) read() (*models.Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, models.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session file %s: %w", s.path, err)
	}
	if sess.AccessToken == "" {
		return nil, models.ErrNotAuthenticated
	}
	return &sess, nil
}

func (s *Store) write(sess *models.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Claims are the access-token fields the client cares about.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ParseClaims decodes the token without verifying its signature; the
// backend verifies every request.
func ParseClaims(token string) (*Claims, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return &c, nil
}
