package ui

import "github.com/abhijith/smart-bookmark/internal/models"

// StoreChangedMsg is sent whenever the store signals a mirror update.
type StoreChangedMsg struct{}

// SubmitAddMsg is sent by the add modal once its fields pass validation.
type SubmitAddMsg struct {
	Title string
	URL   string
}

// DeleteBookmarkMsg is sent when the user confirms a delete.
type DeleteBookmarkMsg struct {
	ID    string
	Title string
}

// DismissModalMsg closes the open modal.
type DismissModalMsg struct{}

// ShowToastMsg asks the dashboard to show a notification.
type ShowToastMsg struct {
	Text string
	Kind ToastKind
}

type addDoneMsg struct {
	bookmark *models.Bookmark
	err      error
}

type deleteDoneMsg struct {
	title string
	err   error
}

type fetchDoneMsg struct {
	err error
}

type toastExpiredMsg struct {
	id int
}
