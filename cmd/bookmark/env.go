package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/abhijith/smart-bookmark/internal/backend"
	"github.com/abhijith/smart-bookmark/internal/cache"
	"github.com/abhijith/smart-bookmark/internal/config"
	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
	"github.com/abhijith/smart-bookmark/internal/session"
	"github.com/abhijith/smart-bookmark/internal/store"
	"github.com/abhijith/smart-bookmark/internal/telemetry"
)

const envKey = "env"

// env holds the dependencies commands share. Backend pieces are built on
// first use so commands like migrate run without backend settings.
type env struct {
	cfg      *config.Config
	log      logger.Logger
	shutdown func(context.Context) error

	client   *backend.Client
	sessions *session.Store
	cache    *cache.Cache
}

func setup(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	logFile := cfg.LogFile
	if logFile == "" && c.Args().First() == "ui" {
		// the dashboard owns the terminal
		logFile = filepath.Join(filepath.Dir(cfg.SessionFile), "bm.log")
		_ = os.MkdirAll(filepath.Dir(logFile), 0o700)
	}
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: cfg.PrettyLog, File: logFile})
	if err != nil {
		return cli.Exit(fmt.Sprintf("init logger: %v", err), 2)
	}
	if cmd := c.Args().First(); cmd != "" {
		log = log.With(logger.String("command", cmd))
	}

	shutdown, err := telemetry.Setup(c.Context, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Warn("tracing disabled", logger.Error(err))
	}

	c.App.Metadata[envKey] = &env{cfg: cfg, log: log, shutdown: shutdown}
	return nil
}

func teardown(c *cli.Context) error {
	e, ok := c.App.Metadata[envKey].(*env)
	if !ok {
		return nil
	}
	if e.cache != nil {
		_ = e.cache.Close()
	}
	if e.shutdown != nil {
		if err := e.shutdown(context.Background()); err != nil {
			e.log.Warn("flush traces", logger.Error(err))
		}
	}
	_ = e.log.Sync()
	return nil
}

func getEnv(c *cli.Context) *env {
	return c.App.Metadata[envKey].(*env)
}

// api validates the backend settings and builds the client and
// session store.
func (e *env) api() (*backend.Client, *session.Store, error) {
	if e.client != nil {
		return e.client, e.sessions, nil
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}
	e.client = backend.NewClient(e.cfg.BackendURL, e.cfg.AnonKey, &http.Client{Timeout: e.cfg.HTTPTimeout}, e.log)
	e.sessions = session.NewStore(e.cfg.SessionFile, e.client, e.log)
	return e.client, e.sessions, nil
}

// currentSession returns the signed-in session or a friendly exit error.
func (e *env) currentSession(ctx context.Context) (*models.Session, error) {
	_, sessions, err := e.api()
	if err != nil {
		return nil, err
	}
	sess, err := sessions.Current(ctx)
	if errors.Is(err, models.ErrNotAuthenticated) {
		return nil, cli.Exit("Not signed in. Run `bm login` first.", 1)
	}
	return sess, err
}

// snapshotCache connects to Redis when configured. A cache that can't be
// reached is logged and skipped.
func (e *env) snapshotCache(ctx context.Context) *cache.Cache {
	if e.cache != nil || !e.cfg.CacheEnabled() {
		return e.cache
	}
	c, err := cache.Connect(ctx, cache.ConnectOptions{
		Addr:           e.cfg.RedisAddr,
		Password:       e.cfg.RedisPassword,
		DB:             e.cfg.RedisDB,
		ConnectTimeout: e.cfg.RedisConnectTimeout,
	}, e.log)
	if err != nil {
		e.log.Warn("snapshot cache unavailable", logger.Error(err))
		return nil
	}
	e.cache = c
	return c
}

// openStore builds the bookmark store for the signed-in user without
// fetching.
func (e *env) openStore(ctx context.Context) (*store.Store, *models.Session, error) {
	sess, err := e.currentSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts := []store.Option{store.WithLogger(e.log.With(logger.String("user_id", sess.User.ID)))}
	if c := e.snapshotCache(ctx); c != nil {
		opts = append(opts, store.WithCache(c))
	}
	return store.New(e.client, e.sessions.AccessToken, sess.User.ID, opts...), sess, nil
}

// loadStore opens the store and fetches. When the fetch fails and a
// snapshot is cached, the snapshot is used instead.
func (e *env) loadStore(ctx context.Context) (*store.Store, *models.Session, error) {
	st, sess, err := e.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Fetch(ctx); err != nil {
		if models.IsUnauthorized(err) {
			return nil, nil, cli.Exit("Session rejected by the backend. Run `bm login` again.", 1)
		}
		if e.cache == nil {
			return nil, nil, err
		}
		if cerr := st.LoadCached(ctx); cerr != nil || len(st.Bookmarks()) == 0 {
			return nil, nil, err
		}
		fmt.Fprintf(os.Stderr, "warning: %v; showing cached bookmarks\n", err)
	}
	return st, sess, nil
}

func (e *env) realtime() *backend.Realtime {
	return backend.NewRealtime(e.cfg.BackendURL, e.cfg.AnonKey, e.sessions.AccessToken, e.log)
}
