package store

import "errors"

var (
	// ErrNotFound is returned under the Strict policy when an operation
	// references a chat id that exists in neither collection.
	ErrNotFound = errors.New("chat not found")

	// ErrPasswordMismatch is returned under the Strict policy when an
	// unhide password does not match the one recorded at hide time.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrEmptyTitle rejects renames to a title that is empty after trimming.
	ErrEmptyTitle = errors.New("title must not be empty")

	// ErrEmptyPassword rejects hiding a chat with a password that is empty
	// after trimming.
	ErrEmptyPassword = errors.New("password must not be empty")

	// ErrNotVisible is returned under the Strict policy when hiding a chat
	// that is not currently in the visible collection.
	ErrNotVisible = errors.New("chat is not in the visible collection")
)
