package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

const description = `A personal bookmark manager synced live across all your sessions.

Commands:
┌──────────┬──────────────────────────────────────────────────────────────┐
│ Command  │ Description                                                  │
├──────────┼──────────────────────────────────────────────────────────────┤
│ login    │ Sign in with email/password or --provider in your browser    │
│ list     │ List bookmarks (--filter today|week, --search text)          │
│ search   │ Search bookmarks; interactive prompt without a query         │
│ add      │ Save a bookmark                                              │
│ delete   │ Delete a bookmark by id (a unique prefix is enough)          │
│ ui       │ Interactive dashboard with live updates                      │
│ watch    │ Follow live changes from other sessions                      │
│ import   │ Import from JSON, browsers, HTML, Homepage or feeds          │
│ export   │ Export to places.sqlite or bookmarks HTML                    │
│ check    │ Find dead links and duplicates                               │
└──────────┴──────────────────────────────────────────────────────────────┘

Search Shortcuts:
┌──────────┬──────────────────────────────────────────────────────────────┐
│ Shortcut │ Description                                                  │
├──────────┼──────────────────────────────────────────────────────────────┤
│ /query   │ Text search in title and URL                                 │
│ @today   │ Bookmarks added since midnight                               │
│ @week    │ Bookmarks added in the last 7 days                           │
│ @all     │ Everything                                                   │
└──────────┴──────────────────────────────────────────────────────────────┘

Examples:
  bm login --provider google
  bm add "Go docs" go.dev
  bm list --filter week
  bm search @today /go
  bm browser chrome
  bm ui`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:        "bm",
		Usage:       "Smart Bookmark - bookmarks synced live across sessions",
		Description: description,
		Metadata:    map[string]interface{}{},
		Before:      setup,
		After:       teardown,
		Commands: []*cli.Command{
			loginCommand(),
			signupCommand(),
			logoutCommand(),
			whoamiCommand(),
			listCommand(),
			searchCommand(),
			addCommand(),
			deleteCommand(),
			copyCommand(),
			openCommand(),
			statsCommand(),
			watchCommand(),
			uiCommand(),
			importCommand(),
			browserCommand(),
			exportCommand(),
			checkCommand(),
			migrateCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
