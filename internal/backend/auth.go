package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/abhijith/smart-bookmark/internal/models"
)

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

func (c *Client) toSession(tr tokenResponse) *models.Session {
	var expires time.Time
	switch {
	case tr.ExpiresAt > 0:
		expires = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		expires = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return &models.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresAt:    expires,
		User:         tr.User,
	}
}

func (c *Client) token(ctx context.Context, grant string, body any) (*models.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grant}},
		body:   body,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return c.toSession(tr), nil
}

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	return c.token(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// RefreshSession trades a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	return c.token(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

// ExchangeCode completes a PKCE sign-in started with AuthorizeURL.
func (c *Client) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*models.Session, error) {
	return c.token(ctx, "pkce", map[string]string{
		"auth_code":     authCode,
		"code_verifier": codeVerifier,
	})
}

// SignUp registers a new account. When the backend requires email
// confirmation no session is returned, only the pending user.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*models.Session, *models.User, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if fullName != "" {
		body["data"] = map[string]string{"full_name": fullName}
	}

	// The response is a session when auto-confirm is on, a bare user otherwise.
	var raw struct {
		tokenResponse
		ID       string              `json:"id"`
		Email    string              `json:"email"`
		Metadata models.UserMetadata `json:"user_metadata"`
	}
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/signup", body: body}, &raw)
	if err != nil {
		return nil, nil, err
	}
	if raw.AccessToken == "" {
		return nil, &models.User{ID: raw.ID, Email: raw.Email, Metadata: raw.Metadata}, nil
	}
	s := c.toSession(raw.tokenResponse)
	return s, &s.User, nil
}

// GetUser returns the user that owns accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	var u models.User
	err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user", token: accessToken}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut revokes the session server side.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/logout", token: accessToken}, nil)
}

// AuthorizeURL is where the browser is sent to sign in with an OAuth provider.
func (c *Client) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	q := url.Values{
		"provider":              {provider},
		"redirect_to":           {redirectTo},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"s256"},
	}
	return c.baseURL + "/auth/v1/authorize?" + q.Encode()
}
