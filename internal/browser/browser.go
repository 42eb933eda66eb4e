// Package browser reads and writes the bookmark stores of local web
// browsers and opens links in the default one.
package browser

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	pkgbrowser "github.com/pkg/browser"
)

func init() {
	// The launcher echoes the child's output, which would garble the dashboard.
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard
}

// Open shows url in the user's default browser.
func Open(url string) error {
	return pkgbrowser.OpenURL(url)
}

// ChromeBookmarksPath returns the default Chrome profile's Bookmarks file,
// or "" on platforms without a known location.
func ChromeBookmarksPath() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Google", "Chrome", "User Data", "Default", "Bookmarks")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Bookmarks")
	case "linux":
		return filepath.Join(home, ".config", "google-chrome", "Default", "Bookmarks")
	default:
		return ""
	}
}

// PlacesPath finds the places.sqlite of the first Firefox or Zen profile.
// Zen is a Firefox fork and keeps the same database layout.
func PlacesPath() string {
	home, _ := os.UserHomeDir()
	var patterns []string
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		patterns = []string{
			filepath.Join(appData, "Mozilla", "Firefox", "Profiles", "*", "places.sqlite"),
			filepath.Join(appData, "zen", "Profiles", "*", "places.sqlite"),
		}
	case "darwin":
		patterns = []string{
			filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles", "*", "places.sqlite"),
			filepath.Join(home, "Library", "Application Support", "zen", "Profiles", "*", "places.sqlite"),
		}
	default:
		patterns = []string{
			filepath.Join(home, ".mozilla", "firefox", "*", "places.sqlite"),
			filepath.Join(home, ".zen", "*", "places.sqlite"),
		}
	}
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[0]
	}
	return ""
}
