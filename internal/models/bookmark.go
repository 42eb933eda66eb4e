package models

import (
	"strings"
	"time"
)

// TempIDPrefix marks records fabricated locally while an insert is in flight.
const TempIDPrefix = "temp-"

type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// IsTemp reports whether the bookmark is an optimistic placeholder.
func (b Bookmark) IsTemp() bool {
	return strings.HasPrefix(b.ID, TempIDPrefix)
}

// Draft is a bookmark that has not been stored yet.
type Draft struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewBookmark is the insert payload sent to the backend.
type NewBookmark struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}
