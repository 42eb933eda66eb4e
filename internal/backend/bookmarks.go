package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/abhijith/smart-bookmark/internal/models"
)

const bookmarksPath = "/rest/v1/bookmarks"

// ListBookmarks returns the user's bookmarks, newest first.
func (c *Client) ListBookmarks(ctx context.Context, accessToken, userID string) ([]models.Bookmark, error) {
	var out []models.Bookmark
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   bookmarksPath,
		token:  accessToken,
		query: url.Values{
			"select":  {"*"},
			"user_id": {"eq." + userID},
			"order":   {"created_at.desc"},
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Bookmark{}
	}
	return out, nil
}

// InsertBookmark stores a bookmark and returns the row as the backend saved it.
func (c *Client) InsertBookmark(ctx context.Context, accessToken string, nb models.NewBookmark) (*models.Bookmark, error) {
	var out models.Bookmark
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   bookmarksPath,
		token:  accessToken,
		query:  url.Values{"select": {"*"}},
		body:   nb,
		headers: map[string]string{
			"Prefer": "return=representation",
			// single-object response instead of a one-element array
			"Accept": "application/vnd.pgrst.object+json",
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBookmark removes one of the user's bookmarks.
func (c *Client) DeleteBookmark(ctx context.Context, accessToken, id, userID string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   bookmarksPath,
		token:  accessToken,
		query: url.Values{
			"id":      {"eq." + id},
			"user_id": {"eq." + userID},
		},
		headers: map[string]string{"Prefer": "return=minimal"},
	}, nil)
}
