package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/abhijith/smart-bookmark/internal/checker"
	"github.com/abhijith/smart-bookmark/internal/database"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Find dead links and duplicate URLs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "concurrency", Aliases: []string{"c"}, Value: 20},
			&cli.DurationFlag{Name: "timeout", Value: 8 * time.Second, Usage: "per request"},
			&cli.Float64Flag{Name: "rate", Value: 10, Usage: "requests per second, 0 for unlimited"},
			&cli.BoolFlag{Name: "delete", Usage: "delete the dead bookmarks"},
		},
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			st, _, err := e.loadStore(c.Context)
			if err != nil {
				return err
			}

			ck := checker.New(checker.Options{
				Concurrency: c.Int("concurrency"),
				Timeout:     c.Duration("timeout"),
				Rate:        c.Float64("rate"),
			}, e.log)
			report := ck.Check(c.Context, st.Bookmarks())

			fmt.Printf("\nChecked %d bookmarks: %d dead, %d duplicated URLs\n", report.Checked, len(report.Dead), len(report.Duplicates))
			for _, r := range report.Dead {
				reason := fmt.Sprintf("HTTP %d", r.Status)
				if r.Err != nil {
					reason = r.Err.Error()
				}
				fmt.Printf("  ✗ %s\n    %s (%s) id %s\n", r.Bookmark.Title, r.Bookmark.URL, reason, r.Bookmark.ID)
			}
			for _, d := range report.Duplicates {
				fmt.Printf("  = %s saved %d times\n", d.URL, len(d.IDs))
			}

			if !c.Bool("delete") || len(report.Dead) == 0 {
				return nil
			}
			deleted, err := checker.Prune(c.Context, st, report.Dead)
			fmt.Printf("Deleted %d dead bookmarks\n", deleted)
			return err
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the bookmarks schema on the backend database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
				Usage:    "postgres connection string with schema privileges",
			},
			&cli.IntFlag{Name: "down", Usage: "roll back this many migrations instead"},
		},
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			url := c.String("database-url")
			if n := c.Int("down"); n > 0 {
				if err := database.Down(url, n); err != nil {
					return err
				}
				fmt.Printf("Rolled back %d migrations\n", n)
				return nil
			}
			if err := database.Up(url, e.log); err != nil {
				return err
			}
			fmt.Println("Schema is up to date")
			return nil
		},
	}
}
