// Package ui is the interactive terminal dashboard: a navbar with the
// live-sync indicator, stats cards that double as filters, a searchable
// bookmark list, and modals for adding and deleting bookmarks.
package ui
