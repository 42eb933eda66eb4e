package searcher

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/abhijith/smart-bookmark/internal/models"
	"github.com/abhijith/smart-bookmark/internal/store"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		in   string
		want Options
	}{
		{"golang docs", Options{Query: "golang docs", Period: store.PeriodAll, Limit: defaultLimit}},
		{"/redis @week", Options{Query: "redis", Period: store.PeriodWeek, Limit: defaultLimit}},
		{"@today", Options{Query: "", Period: store.PeriodToday, Limit: defaultLimit}},
		{"@bogus go", Options{Query: "go", Period: store.PeriodAll, Limit: defaultLimit}},
	}
	for _, tt := range tests {
		if got := ParseInput(tt.in); got != tt.want {
			t.Errorf("ParseInput(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestApplyLimit(t *testing.T) {
	now := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	var list []models.Bookmark
	for i := 0; i < 5; i++ {
		list = append(list, models.Bookmark{ID: string(rune('a' + i)), Title: "go", CreatedAt: now})
	}
	got := Options{Query: "go", Period: store.PeriodAll, Limit: 3}.Apply(list, now)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
}

func TestInteractive(t *testing.T) {
	now := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	list := []models.Bookmark{
		{ID: "b1", Title: "Go", URL: "https://go.dev", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "b2", Title: "Redis", URL: "https://redis.io", CreatedAt: now.AddDate(0, 0, -30)},
	}
	in := strings.NewReader("go\n\n@week redis\n")
	var out bytes.Buffer

	err := Interactive(context.Background(), in, &out, func() []models.Bookmark { return list }, func() time.Time { return now })
	if err != nil {
		t.Fatalf("Interactive: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "1 bookmarks:") || !strings.Contains(s, "go.dev · 2 hours ago · id b1") {
		t.Fatalf("missing go result:\n%s", s)
	}
	if !strings.Contains(s, "No bookmarks found") {
		t.Fatalf("redis is older than a week and should not match:\n%s", s)
	}
}
