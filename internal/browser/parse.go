package browser

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"

	"github.com/abhijith/smart-bookmark/internal/models"
)

// ParseChrome walks the roots of a Chrome "Bookmarks" file.
func ParseChrome(data []byte) []models.Draft {
	var out []models.Draft
	gjson.GetBytes(data, "roots").ForEach(func(_, root gjson.Result) bool {
		walkChrome(root, &out)
		return true
	})
	return out
}

func walkChrome(node gjson.Result, out *[]models.Draft) {
	switch node.Get("type").String() {
	case "url":
		if d := draft(node.Get("name").String(), node.Get("url").String()); d.URL != "" {
			*out = append(*out, d)
		}
	case "folder":
		node.Get("children").ForEach(func(_, child gjson.Result) bool {
			walkChrome(child, out)
			return true
		})
	}
}

// firefoxBookmark is the typeCode of a link in a Firefox JSON backup.
const firefoxBookmark = 1

// ParseFirefox reads a Firefox JSON bookmark backup.
func ParseFirefox(data []byte) []models.Draft {
	var out []models.Draft
	walkFirefox(gjson.ParseBytes(data), &out)
	return out
}

func walkFirefox(node gjson.Result, out *[]models.Draft) {
	if node.Get("typeCode").Int() == firefoxBookmark {
		if d := draft(node.Get("title").String(), node.Get("uri").String()); d.URL != "" {
			*out = append(*out, d)
		}
		return
	}
	// Folders and the untyped backup root both carry children.
	node.Get("children").ForEach(func(_, child gjson.Result) bool {
		walkFirefox(child, out)
		return true
	})
}

// ParseNetscapeHTML extracts links from the bookmarks.html export format
// every major browser can produce.
func ParseNetscapeHTML(data []byte) []models.Draft {
	var (
		out    []models.Draft
		href   string
		title  strings.Builder
		inLink bool
	)
	z := html.NewTokenizer(bytes.NewReader(data))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" {
				continue
			}
			inLink, href = true, ""
			title.Reset()
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "href" {
					href = string(val)
				}
			}
		case html.TextToken:
			if inLink {
				title.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != "a" || !inLink {
				continue
			}
			inLink = false
			d := draft(title.String(), href)
			if d.URL == "" || !strings.HasPrefix(strings.ToLower(d.URL), "http") {
				continue
			}
			out = append(out, d)
		}
	}
}

func draft(title, url string) models.Draft {
	return models.Draft{Title: strings.TrimSpace(title), URL: strings.TrimSpace(url)}
}
