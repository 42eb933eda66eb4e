package browser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abhijith/smart-bookmark/internal/models"
)

// bookmarksMenu is the moz_bookmarks id of the "Bookmarks Menu" folder.
const bookmarksMenu = 2

// ReadPlaces lists the bookmarks stored in a Firefox or Zen places.sqlite.
// The database is opened read-only and immutable so a running browser
// doesn't block the read.
func ReadPlaces(ctx context.Context, path string) ([]models.Draft, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("open places db: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT p.url, COALESCE(NULLIF(b.title, ''), p.title, '')
		FROM moz_bookmarks b
		JOIN moz_places p ON p.id = b.fk
		WHERE b.type = 1
		ORDER BY b.dateAdded`)
	if err != nil {
		return nil, fmt.Errorf("query places db: %w", err)
	}
	defer rows.Close()

	var out []models.Draft
	for rows.Next() {
		var link, title string
		if err := rows.Scan(&link, &title); err != nil {
			return nil, fmt.Errorf("scan places row: %w", err)
		}
		out = append(out, draft(title, link))
	}
	return out, rows.Err()
}

// ExportPlaces writes bookmarks into a places.sqlite under the Bookmarks
// Menu. URLs the profile already knows are skipped. The browser must be
// closed, otherwise the database is locked.
func ExportPlaces(ctx context.Context, path string, bookmarks []models.Bookmark) (added, skipped int, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return 0, 0, fmt.Errorf("open places db: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return 0, 0, fmt.Errorf("places db is locked, close the browser first: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, b := range bookmarks {
		ok, err := insertPlace(ctx, tx, b)
		if err != nil {
			return 0, 0, err
		}
		if ok {
			added++
		} else {
			skipped++
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit places: %w", err)
	}
	return added, skipped, nil
}

func insertPlace(ctx context.Context, tx *sql.Tx, b models.Bookmark) (bool, error) {
	var placeID int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM moz_places WHERE url = ?", b.URL).Scan(&placeID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("lookup %s: %w", b.URL, err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO moz_places
		(url, title, rev_host, hidden, typed, frecency)
		VALUES (?, ?, ?, 0, 0, -1)`,
		b.URL, b.Title, reverseHost(hostOf(b.URL)))
	if err != nil {
		return false, fmt.Errorf("insert place %s: %w", b.URL, err)
	}
	if placeID, err = res.LastInsertId(); err != nil {
		return false, err
	}

	// dateAdded is in microseconds.
	added := b.CreatedAt
	if added.IsZero() {
		added = time.Now()
	}
	date := added.UnixMicro()
	if _, err := tx.ExecContext(ctx, `INSERT INTO moz_bookmarks
		(type, fk, parent, position, title, dateAdded, lastModified)
		VALUES (1, ?, ?, 0, ?, ?, ?)`,
		placeID, bookmarksMenu, b.Title, date, date); err != nil {
		return false, fmt.Errorf("insert bookmark %s: %w", b.URL, err)
	}
	return true, nil
}

// reverseHost converts "example.com" to "moc.elpmaxe.", the form Firefox indexes.
func reverseHost(host string) string {
	if host == "" {
		return ""
	}
	runes := []rune(host + ".")
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
