package checker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/abhijith/smart-bookmark/internal/models"
)

func newSilentChecker(opts Options) *Checker {
	c := New(opts, nil)
	c.NewBar = progressbar.DefaultSilent
	return c
}

func TestCheckClassifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/no-head":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if r.Header.Get("Range") != "bytes=0-0" {
				t.Errorf("fallback GET without Range header")
			}
			w.WriteHeader(http.StatusPartialContent)
		case "/redirect":
			http.Redirect(w, r, "/ok", http.StatusFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	list := []models.Bookmark{
		{ID: "ok", URL: srv.URL + "/ok"},
		{ID: "no-head", URL: srv.URL + "/no-head"},
		{ID: "redirect", URL: srv.URL + "/redirect"},
		{ID: "gone", URL: srv.URL + "/gone"},
		{ID: "down", URL: closedURL + "/x"},
	}

	rep := newSilentChecker(Options{Concurrency: 2, Timeout: 2 * time.Second}).Check(context.Background(), list)
	if rep.Checked != 5 {
		t.Fatalf("Checked = %d", rep.Checked)
	}
	if len(rep.Dead) != 2 {
		t.Fatalf("dead = %+v", rep.Dead)
	}
	if rep.Dead[0].Bookmark.ID != "gone" || rep.Dead[0].Status != http.StatusNotFound {
		t.Fatalf("dead[0] = %+v", rep.Dead[0])
	}
	if rep.Dead[1].Bookmark.ID != "down" || rep.Dead[1].Err == nil {
		t.Fatalf("dead[1] = %+v", rep.Dead[1])
	}
}

func TestCheckCancelledIsNotDead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := newSilentChecker(Options{}).Check(ctx, []models.Bookmark{{ID: "a", URL: "https://a.example"}})
	if len(rep.Dead) != 0 {
		t.Fatalf("dead = %+v", rep.Dead)
	}
}

func TestFindDuplicates(t *testing.T) {
	list := []models.Bookmark{
		{ID: "1", URL: "https://a.example"},
		{ID: "2", URL: "https://b.example"},
		{ID: "3", URL: "https://a.example"},
		{ID: "4", URL: "https://b.example"},
		{ID: "5", URL: "https://b.example"},
		{ID: "6", URL: "https://c.example"},
	}
	got := FindDuplicates(list)
	if len(got) != 2 {
		t.Fatalf("duplicates = %+v", got)
	}
	if got[0].URL != "https://b.example" || len(got[0].IDs) != 3 {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].URL != "https://a.example" || got[1].IDs[1] != "3" {
		t.Fatalf("second = %+v", got[1])
	}
}

type fakeDeleter struct {
	del func(ctx context.Context, id string) error
}

func (f *fakeDeleter) Delete(ctx context.Context, id string) error { return f.del(ctx, id) }

func TestPrune(t *testing.T) {
	var deleted []string
	d := &fakeDeleter{del: func(_ context.Context, id string) error {
		if id == "b" {
			return errors.New("forbidden")
		}
		deleted = append(deleted, id)
		return nil
	}}
	dead := []Result{
		{Bookmark: models.Bookmark{ID: "a", URL: "https://a.example"}},
		{Bookmark: models.Bookmark{ID: "b", URL: "https://b.example"}},
		{Bookmark: models.Bookmark{ID: "c", URL: "https://c.example"}},
	}
	n, err := Prune(context.Background(), d, dead)
	if n != 2 || len(deleted) != 2 {
		t.Fatalf("deleted %d %v", n, deleted)
	}
	if err == nil {
		t.Fatal("expected joined error for b")
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Options{Rate: 5}, nil)
	if c.concurrency != 20 || c.client.Timeout != 8*time.Second {
		t.Fatalf("defaults not applied: concurrency=%d timeout=%v", c.concurrency, c.client.Timeout)
	}
	if c.limiter.Limit() != 5 || c.limiter.Burst() != 5 {
		t.Fatalf("limiter = %v/%d", c.limiter.Limit(), c.limiter.Burst())
	}
}
