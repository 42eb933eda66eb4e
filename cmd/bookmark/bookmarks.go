package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/urfave/cli/v2"

	"github.com/abhijith/smart-bookmark/internal/backend"
	"github.com/abhijith/smart-bookmark/internal/browser"
	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
	"github.com/abhijith/smart-bookmark/internal/searcher"
	"github.com/abhijith/smart-bookmark/internal/store"
	"github.com/abhijith/smart-bookmark/internal/ui"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List your bookmarks, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Value: "all", Usage: "all, today or week"},
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "match title or URL"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "show at most n bookmarks (0 = all)"},
		},
		Action: func(c *cli.Context) error {
			period, err := store.ParsePeriod(c.String("filter"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			st, _, err := getEnv(c).loadStore(c.Context)
			if err != nil {
				return err
			}
			now := time.Now()
			opts := searcher.Options{Query: c.String("search"), Period: period, Limit: c.Int("limit")}
			fmt.Printf("Showing: %s Bookmarks\n\n", period.Label())
			searcher.Print(os.Stdout, opts.Apply(st.Bookmarks(), now), now)
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search bookmarks; interactive when no query is given",
		ArgsUsage: "[query] [@today|@week|@all]",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			st, _, err := e.loadStore(c.Context)
			if err != nil {
				return err
			}
			if c.NArg() > 0 {
				now := time.Now()
				opts := searcher.ParseInput(strings.Join(c.Args().Slice(), " "))
				searcher.Print(os.Stdout, opts.Apply(st.Bookmarks(), now), now)
				return nil
			}

			// keep results fresh while the prompt is open
			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()
			go func() {
				if err := st.Watch(ctx, store.RealtimeFeed{Realtime: e.realtime()}); err != nil {
					e.log.Warn("live updates stopped", logger.Error(err))
				}
			}()
			return searcher.Interactive(ctx, os.Stdin, os.Stdout, st.Bookmarks, time.Now)
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Save a bookmark",
		ArgsUsage: "<title> <url>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: bm add <title> <url>", 2)
			}
			st, _, err := getEnv(c).openStore(c.Context)
			if err != nil {
				return err
			}
			b, err := st.Submit(c.Context, c.Args().Get(0), c.Args().Get(1))
			switch {
			case errors.Is(err, models.ErrEmptyTitle), errors.Is(err, models.ErrEmptyURL), errors.Is(err, models.ErrInvalidURL):
				return cli.Exit(err.Error(), 2)
			case err != nil:
				return fmt.Errorf("failed to add bookmark: %w", err)
			}
			fmt.Printf("Bookmark added successfully! %s (%s)\n", b.URL, b.ID)
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a bookmark",
		ArgsUsage: "<id>",
		Action: withBookmark(func(c *cli.Context, st *store.Store, b models.Bookmark) error {
			if err := st.Delete(c.Context, b.ID); err != nil {
				return fmt.Errorf("failed to delete bookmark: %w", err)
			}
			fmt.Printf("Bookmark deleted: %s\n", b.Title)
			return nil
		}),
	}
}

func copyCommand() *cli.Command {
	return &cli.Command{
		Name:      "copy",
		Usage:     "Copy a bookmark's link to the clipboard",
		ArgsUsage: "<id>",
		Action: withBookmark(func(_ *cli.Context, _ *store.Store, b models.Bookmark) error {
			if err := clipboard.WriteAll(b.URL); err != nil {
				return fmt.Errorf("failed to copy link: %w", err)
			}
			fmt.Println("Link copied to clipboard")
			return nil
		}),
	}
}

func openCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Open a bookmark in your browser",
		ArgsUsage: "<id>",
		Action: withBookmark(func(_ *cli.Context, _ *store.Store, b models.Bookmark) error {
			return browser.Open(b.URL)
		}),
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show how many bookmarks you saved today, this week and in total",
		Action: func(c *cli.Context) error {
			st, _, err := getEnv(c).loadStore(c.Context)
			if err != nil {
				return err
			}
			s := store.ComputeStats(st.Bookmarks(), time.Now())
			fmt.Printf("Added Today:      %d\n", s.Today)
			fmt.Printf("Added This Week:  %d\n", s.Week)
			fmt.Printf("Total Bookmarks:  %d\n", s.Total)
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow live changes to your bookmarks until interrupted",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			st, sess, err := e.loadStore(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("Watching bookmarks for %s (Ctrl+C to stop)\n", describeUser(sess.User))

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()
			go printChanges(ctx, st)

			return st.Watch(ctx, store.RealtimeFeed{Realtime: e.realtime()})
		},
	}
}

// printChanges reports status transitions and count changes as the
// store converges.
func printChanges(ctx context.Context, st *store.Store) {
	lastStatus := backend.Status("")
	lastCount := len(st.Bookmarks())
	for {
		select {
		case <-ctx.Done():
			return
		case <-st.Changes():
		}
		if s := st.Status(); s != lastStatus {
			lastStatus = s
			fmt.Printf("[%s] realtime %s\n", time.Now().Format(time.TimeOnly), s)
		}
		if st.Loading() {
			continue
		}
		if err := st.Err(); err != nil {
			fmt.Printf("[%s] refresh failed: %v\n", time.Now().Format(time.TimeOnly), err)
			continue
		}
		if n := len(st.Bookmarks()); n != lastCount {
			lastCount = n
			fmt.Printf("[%s] %d bookmarks\n", time.Now().Format(time.TimeOnly), n)
		}
	}
}

func uiCommand() *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Open the interactive dashboard",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			st, sess, err := e.openStore(c.Context)
			if err != nil {
				return err
			}
			if err := st.LoadCached(c.Context); err != nil {
				e.log.Debug("no cached snapshot", logger.Error(err))
			}

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()
			go func() {
				if err := st.Watch(ctx, store.RealtimeFeed{Realtime: e.realtime()}); err != nil {
					e.log.Warn("live updates stopped", logger.Error(err))
				}
			}()
			return ui.Run(ctx, st, ui.Options{User: sess.User, Logger: e.log})
		},
	}
}

// withBookmark loads the store and resolves the id argument before
// running fn.
func withBookmark(fn func(c *cli.Context, st *store.Store, b models.Bookmark) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.Exit(fmt.Sprintf("usage: bm %s <id>", c.Command.Name), 2)
		}
		st, _, err := getEnv(c).loadStore(c.Context)
		if err != nil {
			return err
		}
		b, err := resolveBookmark(st.Bookmarks(), c.Args().First())
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return fn(c, st, b)
	}
}

// resolveBookmark finds a bookmark by exact id or by a unique id prefix.
func resolveBookmark(list []models.Bookmark, id string) (models.Bookmark, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Bookmark{}, store.ErrNotFound
	}
	var matches []models.Bookmark
	for _, b := range list {
		if b.ID == id {
			return b, nil
		}
		if strings.HasPrefix(b.ID, id) {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 0:
		return models.Bookmark{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return models.Bookmark{}, fmt.Errorf("id prefix %q matches %d bookmarks", id, len(matches))
	}
}
