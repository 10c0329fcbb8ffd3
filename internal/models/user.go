package models

// UserID is an opaque identifier supplied by the embedding application.
// Docbox never authenticates users itself; it stores just enough to
// resolve breadcrumbs ("created by") in the UI.
type UserID string

// User is a breadcrumb record, not an account. Name and ImageID are
// optional display hints supplied by the caller at upload/create time.
type User struct {
	ID      UserID
	Name    *string
	ImageID *string
}
