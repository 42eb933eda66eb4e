package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type User struct {
	ID       string       `json:"id"`
	Email    string       `json:"email,omitempty"`
	Metadata UserMetadata `json:"user_metadata"`
}

// DisplayName falls back from the profile name to the email, then to "User".
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Metadata.FullName); name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return "User"
}

// Initial is the avatar letter shown when no avatar image is available.
func (u User) Initial() string {
	r, _ := utf8.DecodeRuneInString(u.DisplayName())
	return string(unicode.ToUpper(r))
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token expires within skew of now.
func (s Session) Expired(now time.Time, skew time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(s.ExpiresAt)
}
