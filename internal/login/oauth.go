// Package login runs the browser-based OAuth sign-in.
package login

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abhijith/smart-bookmark/internal/browser"
	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
)

const CallbackPath = "/auth/callback"

// Backend is the part of the auth API the OAuth flow needs.
type Backend interface {
	AuthorizeURL(provider, redirectTo, codeChallenge string) string
	ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*models.Session, error)
}

// SessionSaver persists the session once sign-in completes.
type SessionSaver interface {
	Save(sess *models.Session) error
}

// OAuth signs a user in through their browser with PKCE and a loopback
// redirect.
type OAuth struct {
	backend  Backend
	sessions SessionSaver
	addr     string
	logger   logger.Logger

	// Open launches the authorize URL. Defaults to the system browser.
	Open func(url string) error
}

func NewOAuth(b Backend, sessions SessionSaver, callbackAddr string, log logger.Logger) *OAuth {
	if log == nil {
		log = logger.Nop()
	}
	return &OAuth{
		backend:  b,
		sessions: sessions,
		addr:     callbackAddr,
		logger:   log,
		Open:     browser.Open,
	}
}

type callbackResult struct {
	code string
	err  error
}

// SignIn blocks until the provider redirects back, the user cancels
// (ctx), or the exchange fails.
func (o *OAuth) SignIn(ctx context.Context, provider string) (*models.Session, error) {
	verifier, challenge, err := NewPKCE()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", o.addr)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback on %s: %w", o.addr, err)
	}
	redirect := "http://" + ln.Addr().String() + CallbackPath

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           o.router(results),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.logger.Warn("oauth callback server stopped", logger.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := o.backend.AuthorizeURL(provider, redirect, challenge)
	o.logger.Info("opening browser for sign-in",
		logger.String("provider", provider),
		logger.String("redirect", redirect))
	if err := o.Open(authURL); err != nil {
		o.logger.Warn("could not open browser; visit the URL manually",
			logger.String("url", authURL), logger.Error(err))
	}

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	sess, err := o.backend.ExchangeCode(ctx, res.code, verifier)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}
	if err := o.sessions.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Smart Bookmark</title></head>
<body style="font-family:sans-serif;text-align:center;margin-top:20vh">
<p>{{.Title}}</p><p style="color:#888">{{.Detail}}</p>
</body></html>`))

func (o *OAuth) router(results chan<- callbackResult) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(CallbackPath, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			msg := q.Get("error_description")
			if msg == "" {
				msg = q.Get("error")
			}
			res.err = fmt.Errorf("sign-in failed: %s", msg)
		case q.Get("code") == "":
			res.err = errors.New("sign-in failed: callback carried no auth code")
		default:
			res.code = q.Get("code")
		}

		page := struct{ Title, Detail string }{"Signed in.", "You can close this tab and return to the terminal."}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			page = struct{ Title, Detail string }{"Sign-in failed.", res.err.Error()}
		}
		_ = callbackPage.Execute(w, page)

		select {
		case results <- res:
		default:
		}
	})
	return r
}
