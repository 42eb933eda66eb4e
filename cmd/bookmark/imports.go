package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/abhijith/smart-bookmark/internal/browser"
	"github.com/abhijith/smart-bookmark/internal/importer"
	"github.com/abhijith/smart-bookmark/internal/models"
)

// draftSource turns a path argument into drafts.
type draftSource func(c *cli.Context, path string) ([]models.Draft, error)

func fileSource(parse func([]byte) ([]models.Draft, error)) draftSource {
	return func(_ *cli.Context, path string) ([]models.Draft, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return parse(data)
	}
}

func lenient(parse func([]byte) []models.Draft) func([]byte) ([]models.Draft, error) {
	return func(data []byte) ([]models.Draft, error) { return parse(data), nil }
}

// importAction reads drafts from the path argument (or defaultPath) and
// adds them through the store.
func importAction(source draftSource, defaultPath func() string) cli.ActionFunc {
	return func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" && defaultPath != nil {
			path = defaultPath()
		}
		if path == "" {
			return cli.Exit(fmt.Sprintf("usage: bm %s <path>", c.Command.FullName()), 2)
		}

		drafts, err := source(c, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		fmt.Printf("Found %d bookmarks in %s\n", len(drafts), path)

		e := getEnv(c)
		st, _, err := e.loadStore(c.Context)
		if err != nil {
			return err
		}
		res, err := importer.New(st, e.log).Import(c.Context, path, drafts)
		fmt.Printf("Import complete: %s\n", res)
		return err
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import bookmarks from a JSON file",
		ArgsUsage: "<file>",
		Action:    importAction(fileSource(importer.ParseJSON), nil),
	}
}

func browserCommand() *cli.Command {
	return &cli.Command{
		Name:  "browser",
		Usage: "Import bookmarks from a browser or another bookmark format",
		Subcommands: []*cli.Command{
			{
				Name:      "chrome",
				Usage:     "Import from Chrome's Bookmarks file",
				ArgsUsage: "[path]",
				Action:    importAction(fileSource(lenient(browser.ParseChrome)), browser.ChromeBookmarksPath),
			},
			{
				Name:      "firefox",
				Usage:     "Import from a Firefox JSON backup",
				ArgsUsage: "<file>",
				Action:    importAction(fileSource(lenient(browser.ParseFirefox)), nil),
			},
			{
				Name:      "places",
				Usage:     "Import from a Firefox or Zen places.sqlite",
				ArgsUsage: "[path]",
				Action: importAction(func(c *cli.Context, path string) ([]models.Draft, error) {
					return browser.ReadPlaces(c.Context, path)
				}, browser.PlacesPath),
			},
			{
				Name:      "html",
				Usage:     "Import from a Netscape bookmarks HTML export",
				ArgsUsage: "<file>",
				Action:    importAction(fileSource(lenient(browser.ParseNetscapeHTML)), nil),
			},
			{
				Name:      "homepage",
				Usage:     "Import from a Homepage bookmarks.yaml",
				ArgsUsage: "<file>",
				Action:    importAction(fileSource(importer.ParseHomepage), nil),
			},
			{
				Name:      "feed",
				Usage:     "Import item links from an RSS or Atom feed (file or URL)",
				ArgsUsage: "<file|url>",
				Action: importAction(func(c *cli.Context, path string) ([]models.Draft, error) {
					if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
						return importer.FetchFeed(c.Context, path)
					}
					return fileSource(importer.ParseFeed)(c, path)
				}, nil),
			},
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export your bookmarks to a browser format",
		Subcommands: []*cli.Command{
			{
				Name:      "html",
				Usage:     "Write a Netscape bookmarks HTML file (stdout when no file is given)",
				ArgsUsage: "[file]",
				Action: func(c *cli.Context) error {
					st, _, err := getEnv(c).loadStore(c.Context)
					if err != nil {
						return err
					}
					out := os.Stdout
					if path := c.Args().First(); path != "" && path != "-" {
						f, err := os.Create(path)
						if err != nil {
							return err
						}
						defer f.Close()
						out = f
					}
					if err := browser.WriteNetscapeHTML(out, st.Bookmarks()); err != nil {
						return fmt.Errorf("write html: %w", err)
					}
					if out != os.Stdout {
						fmt.Printf("Exported %d bookmarks to %s\n", len(st.Bookmarks()), out.Name())
					}
					return nil
				},
			},
			{
				Name:      "places",
				Usage:     "Add your bookmarks to a Firefox or Zen places.sqlite (close the browser first)",
				ArgsUsage: "[path]",
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						path = browser.PlacesPath()
					}
					if path == "" {
						return cli.Exit("no places.sqlite found; pass its path", 2)
					}
					st, _, err := getEnv(c).loadStore(c.Context)
					if err != nil {
						return err
					}
					added, skipped, err := browser.ExportPlaces(c.Context, path, st.Bookmarks())
					if err != nil {
						return err
					}
					fmt.Printf("Export complete: %d added, %d already present\n", added, skipped)
					return nil
				},
			},
		},
	}
}
