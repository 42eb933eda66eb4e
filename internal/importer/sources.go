package importer

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/mmcdole/gofeed"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/abhijith/smart-bookmark/internal/models"
)

// ParseJSON reads the export format {"bookmarks":[{"title","url"}]}; a
// bare top-level array is accepted too.
func ParseJSON(data []byte) ([]models.Draft, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	items := gjson.GetBytes(data, "bookmarks")
	if !items.Exists() {
		items = gjson.ParseBytes(data)
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("expected a bookmarks array")
	}
	var out []models.Draft
	for _, item := range items.Array() {
		out = append(out, models.Draft{
			Title: item.Get("title").String(),
			URL:   item.Get("url").String(),
		})
	}
	return out, nil
}

// homepageEntry is one link in a Homepage dashboard bookmarks.yaml.
type homepageEntry struct {
	Abbr        string `yaml:"abbr"`
	Href        string `yaml:"href"`
	Description string `yaml:"description"`
}

// Layout: - Group: [ - Name: [ {abbr, href} ] ]
type homepageConfig []map[string][]map[string][]homepageEntry

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// ParseHomepage reads a Homepage dashboard bookmarks.yaml.
func ParseHomepage(data []byte) ([]models.Draft, error) {
	// Homepage substitutes {{HOMEPAGE_VAR_*}} at runtime; blank them so the YAML parses.
	data = templateVar.ReplaceAll(data, []byte(`""`))

	var cfg homepageConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse homepage bookmarks: %w", err)
	}
	var out []models.Draft
	for _, group := range cfg {
		for _, links := range group {
			for _, link := range links {
				for name, entries := range link {
					for _, e := range entries {
						if e.Href == "" {
							continue
						}
						out = append(out, models.Draft{Title: name, URL: e.Href})
					}
				}
			}
		}
	}
	return out, nil
}

// ParseFeed turns each item of an RSS, Atom or JSON feed into a draft.
func ParseFeed(data []byte) ([]models.Draft, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feedDrafts(feed), nil
}

// FetchFeed downloads and parses a feed by URL.
func FetchFeed(ctx context.Context, url string) ([]models.Draft, error) {
	feed, err := gofeed.NewParser().ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}
	return feedDrafts(feed), nil
}

func feedDrafts(feed *gofeed.Feed) []models.Draft {
	out := make([]models.Draft, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := item.Link
		if link == "" && len(item.Links) > 0 {
			link = item.Links[0]
		}
		if link == "" {
			continue
		}
		out = append(out, models.Draft{Title: item.Title, URL: link})
	}
	return out
}
