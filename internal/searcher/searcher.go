// Package searcher prints bookmark lists and runs the line-based
// interactive search prompt.
package searcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abhijith/smart-bookmark/internal/models"
	"github.com/abhijith/smart-bookmark/internal/store"
	"github.com/abhijith/smart-bookmark/internal/urlutil"
)

const defaultLimit = 20

type Options struct {
	Query  string
	Period store.Period
	Limit  int
}

// ParseInput reads a prompt line. "@today", "@week" and "@all" pick the
// period, "/text" or bare words form the query.
func ParseInput(input string) Options {
	opts := Options{Period: store.PeriodAll, Limit: defaultLimit}

	var words []string
	for _, part := range strings.Fields(input) {
		switch {
		case strings.HasPrefix(part, "@"):
			if p, err := store.ParsePeriod(strings.TrimPrefix(part, "@")); err == nil {
				opts.Period = p
			}
		case strings.HasPrefix(part, "/"):
			if q := strings.TrimPrefix(part, "/"); q != "" {
				words = append(words, q)
			}
		default:
			words = append(words, part)
		}
	}
	opts.Query = strings.Join(words, " ")
	return opts
}

// Apply filters list by period then query, keeping at most Limit entries
// when Limit is positive.
func (o Options) Apply(list []models.Bookmark, now time.Time) []models.Bookmark {
	out := store.Search(store.Filter(list, o.Period, now), o.Query)
	if o.Limit > 0 && len(out) > o.Limit {
		out = out[:o.Limit]
	}
	return out
}

// Print writes a numbered listing with the domain and relative age.
func Print(w io.Writer, list []models.Bookmark, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No bookmarks found")
		return
	}
	fmt.Fprintf(w, "%d bookmarks:\n\n", len(list))
	for i, b := range list {
		fmt.Fprintf(w, "%d. %s\n", i+1, b.Title)
		fmt.Fprintf(w, "   %s\n", b.URL)
		age := "saving..."
		if !b.IsTemp() {
			age = humanize.RelTime(b.CreatedAt, now, "ago", "from now")
		}
		fmt.Fprintf(w, "   %s · %s · id %s\n\n", urlutil.ExtractDomain(b.URL), age, b.ID)
	}
}

// Interactive reads queries from in until EOF or ctx is done. Each query
// runs against a fresh snapshot from source.
func Interactive(ctx context.Context, in io.Reader, out io.Writer, source func() []models.Bookmark, now func() time.Time) error {
	fmt.Fprintln(out, "Interactive bookmark search (Ctrl+D to exit)")
	fmt.Fprintln(out, "Shortcuts: /text, @today, @week, @all")

	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		opts := ParseInput(input)
		t := now()
		Print(out, opts.Apply(source(), t), t)
	}
}
