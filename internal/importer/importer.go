// Package importer bulk-adds bookmarks from files and feeds.
package importer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/schollz/progressbar/v3"

	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
	"github.com/abhijith/smart-bookmark/internal/urlutil"
)

// Adder is the part of the store an import writes through.
type Adder interface {
	Add(ctx context.Context, title, url string) (*models.Bookmark, error)
	Bookmarks() []models.Bookmark
}

type Result struct {
	Imported int
	Skipped  int // duplicates and invalid URLs
	Failed   int // rejected by the backend
}

func (r Result) String() string {
	return fmt.Sprintf("%d imported, %d skipped, %d failed", r.Imported, r.Skipped, r.Failed)
}

type Importer struct {
	store  Adder
	logger logger.Logger
	policy *bluemonday.Policy

	// NewBar builds the progress bar; tests swap in a silent one.
	NewBar func(max int64, description ...string) *progressbar.ProgressBar
}

func New(store Adder, log logger.Logger) *Importer {
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{
		store:  store,
		logger: log,
		policy: bluemonday.StrictPolicy(),
		NewBar: progressbar.Default,
	}
}

// Import adds drafts one by one. URLs already bookmarked, repeated in the
// batch, or invalid are skipped. A missing title falls back to the domain.
func (im *Importer) Import(ctx context.Context, source string, drafts []models.Draft) (Result, error) {
	var res Result
	if len(drafts) == 0 {
		return res, fmt.Errorf("no bookmarks found in %s", source)
	}

	seen := make(map[string]bool, len(drafts))
	for _, b := range im.store.Bookmarks() {
		seen[b.URL] = true
	}

	bar := im.NewBar(int64(len(drafts)), "Importing from "+source)
	defer bar.Finish()

	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_ = bar.Add(1)

		u, err := urlutil.ValidateAndNormalize(d.URL)
		if err != nil || seen[u] {
			res.Skipped++
			continue
		}
		seen[u] = true

		title := im.cleanTitle(d.Title)
		if title == "" {
			title = urlutil.ExtractDomain(u)
		}

		if _, err := im.store.Add(ctx, title, u); err != nil {
			if errors.Is(err, models.ErrNotAuthenticated) || models.IsUnauthorized(err) {
				return res, err
			}
			res.Failed++
			im.logger.Warn("import: add failed", logger.String("url", u), logger.Error(err))
			continue
		}
		res.Imported++
	}

	im.logger.Info("import finished",
		logger.String("source", source),
		logger.Int("imported", res.Imported),
		logger.Int("skipped", res.Skipped),
		logger.Int("failed", res.Failed))
	return res, nil
}

// cleanTitle strips markup and collapses whitespace.
func (im *Importer) cleanTitle(s string) string {
	s = html.UnescapeString(im.policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}
