package browser

import (
	"bufio"
	"fmt"
	"html"
	"io"

	"github.com/abhijith/smart-bookmark/internal/models"
	"github.com/abhijith/smart-bookmark/internal/urlutil"
)

// WriteNetscapeHTML writes bookmarks in the bookmarks.html format that
// browsers import natively.
func WriteNetscapeHTML(w io.Writer, bookmarks []models.Bookmark) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "<!DOCTYPE NETSCAPE-Bookmark-file-1>")
	fmt.Fprintln(bw, `<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">`)
	fmt.Fprintln(bw, "<TITLE>Bookmarks</TITLE>")
	fmt.Fprintln(bw, "<H1>Bookmarks</H1>")
	fmt.Fprintln(bw, "<DL><p>")
	for _, b := range bookmarks {
		icon := ""
		if fav := urlutil.FaviconURL(b.URL, 32); fav != "" {
			icon = fmt.Sprintf(` ICON_URI="%s"`, html.EscapeString(fav))
		}
		fmt.Fprintf(bw, "    <DT><A HREF=\"%s\" ADD_DATE=\"%d\"%s>%s</A>\n",
			html.EscapeString(b.URL), b.CreatedAt.Unix(), icon, html.EscapeString(b.Title))
	}
	fmt.Fprintln(bw, "</DL><p>")
	return bw.Flush()
}
