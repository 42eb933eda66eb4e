// Package checker finds dead and duplicated links among bookmarks.
package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
)

const userAgent = "smart-bookmark-linkcheck/1.0"

type Options struct {
	Concurrency int           // parallel probes
	Timeout     time.Duration // per request
	Rate        float64       // requests per second across all workers; <= 0 means unlimited
}

func (o *Options) setDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 8 * time.Second
	}
}

// Result is the outcome of probing one bookmark.
type Result struct {
	Bookmark models.Bookmark
	Alive    bool
	Status   int // last HTTP status seen, 0 when no response
	Err      error
}

type Duplicate struct {
	URL string
	IDs []string
}

type Report struct {
	Checked    int
	Dead       []Result
	Duplicates []Duplicate
}

type Checker struct {
	client      *http.Client
	limiter     *rate.Limiter
	concurrency int
	logger      logger.Logger

	NewBar func(max int64, description ...string) *progressbar.ProgressBar
}

func New(opts Options, log logger.Logger) *Checker {
	opts.setDefaults()
	if log == nil {
		log = logger.Nop()
	}
	limit := rate.Inf
	burst := 1
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
		burst = max(1, int(opts.Rate))
	}
	return &Checker{
		client:      &http.Client{Timeout: opts.Timeout},
		limiter:     rate.NewLimiter(limit, burst),
		concurrency: opts.Concurrency,
		logger:      log,
		NewBar:      progressbar.Default,
	}
}

// Check probes every bookmark and reports the dead ones in input order,
// along with URLs bookmarked more than once.
func (c *Checker) Check(ctx context.Context, list []models.Bookmark) Report {
	results := make([]Result, len(list))
	bar := c.NewBar(int64(len(list)), "Checking links")

	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	for i, b := range list {
		if ctx.Err() != nil {
			results[i] = Result{Bookmark: b, Alive: true, Err: ctx.Err()}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, b models.Bookmark) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = c.probe(ctx, b)
			_ = bar.Add(1)
		}(i, b)
	}
	wg.Wait()
	_ = bar.Finish()

	rep := Report{Checked: len(list), Duplicates: FindDuplicates(list)}
	for _, r := range results {
		if !r.Alive {
			rep.Dead = append(rep.Dead, r)
		}
	}
	c.logger.Info("link check finished",
		logger.Int("checked", rep.Checked),
		logger.Int("dead", len(rep.Dead)),
		logger.Int("duplicates", len(rep.Duplicates)))
	return rep
}

// probe sends HEAD, then falls back to a one-byte ranged GET for servers
// that mishandle HEAD. Anything below 400 counts as alive.
func (c *Checker) probe(ctx context.Context, b models.Bookmark) Result {
	res := Result{Bookmark: b}

	status, err := c.request(ctx, http.MethodHead, b.URL)
	if err == nil && status < 400 {
		res.Alive, res.Status = true, status
		return res
	}
	if ctx.Err() != nil {
		// Cancelled checks say nothing about the link.
		res.Alive, res.Err = true, ctx.Err()
		return res
	}

	status, err = c.request(ctx, http.MethodGet, b.URL)
	res.Status, res.Err = status, err
	res.Alive = err == nil && status < 400
	if err == nil && !res.Alive {
		res.Err = fmt.Errorf("HTTP %d", status)
	}
	return res
}

func (c *Checker) request(ctx context.Context, method, url string) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	return resp.StatusCode, nil
}

// FindDuplicates groups bookmarks sharing a URL, most repeated first.
func FindDuplicates(list []models.Bookmark) []Duplicate {
	byURL := map[string][]string{}
	var order []string
	for _, b := range list {
		if _, ok := byURL[b.URL]; !ok {
			order = append(order, b.URL)
		}
		byURL[b.URL] = append(byURL[b.URL], b.ID)
	}
	var out []Duplicate
	for _, u := range order {
		if ids := byURL[u]; len(ids) > 1 {
			out = append(out, Duplicate{URL: u, IDs: ids})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].IDs) > len(out[j].IDs) })
	return out
}

// Deleter removes a bookmark by id.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Prune deletes the dead bookmarks and returns how many went.
func Prune(ctx context.Context, d Deleter, dead []Result) (int, error) {
	var (
		deleted int
		errs    []error
	)
	for _, r := range dead {
		if err := d.Delete(ctx, r.Bookmark.ID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Bookmark.URL, err))
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}
