package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhijith/smart-bookmark/internal/models"
)

// Period narrows the list to recently created bookmarks.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PeriodAll:
		return PeriodAll, nil
	case PeriodToday, PeriodWeek:
		return p, nil
	default:
		return "", fmt.Errorf("unknown filter %q (want all, today or week)", s)
	}
}

// Label is the heading shown for the period.
func (p Period) Label() string {
	switch p {
	case PeriodToday:
		return "Today"
	case PeriodWeek:
		return "This Week"
	default:
		return "All"
	}
}

// StartOfDay is local midnight of now's day.
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// WeekAgo is the same wall-clock time seven days before now.
func WeekAgo(now time.Time) time.Time {
	return now.AddDate(0, 0, -7)
}

// Since is the earliest creation time the period admits; zero for all.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodToday:
		return StartOfDay(now)
	case PeriodWeek:
		return WeekAgo(now)
	default:
		return time.Time{}
	}
}

// Filter keeps the bookmarks created within p, preserving order.
func Filter(list []models.Bookmark, p Period, now time.Time) []models.Bookmark {
	since := p.Since(now)
	if since.IsZero() {
		return list
	}
	out := make([]models.Bookmark, 0, len(list))
	for _, b := range list {
		if !b.CreatedAt.Before(since) {
			out = append(out, b)
		}
	}
	return out
}

// Search keeps bookmarks whose title or URL contains q, ignoring case.
// A blank query keeps everything.
func Search(list []models.Bookmark, q string) []models.Bookmark {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return list
	}
	out := make([]models.Bookmark, 0, len(list))
	for _, b := range list {
		if strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.URL), q) {
			out = append(out, b)
		}
	}
	return out
}

type Stats struct {
	Total int
	Today int
	Week  int
}

func ComputeStats(list []models.Bookmark, now time.Time) Stats {
	st := Stats{Total: len(list)}
	today, week := StartOfDay(now), WeekAgo(now)
	for _, b := range list {
		if !b.CreatedAt.Before(today) {
			st.Today++
		}
		if !b.CreatedAt.Before(week) {
			st.Week++
		}
	}
	return st
}

// Count returns the stat matching p.
func (st Stats) Count(p Period) int {
	switch p {
	case PeriodToday:
		return st.Today
	case PeriodWeek:
		return st.Week
	default:
		return st.Total
	}
}
