package accountrepo

import "errors"

var (
	// ErrNotFound indicates the requested account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrEmailTaken indicates another account already holds the (case-folded) email.
	ErrEmailTaken = errors.New("account email already in use")

	// ErrAlreadyExists indicates an account already exists with the provided ID.
	ErrAlreadyExists = errors.New("account already exists")

	// ErrEmptyPasswordHash indicates a write that would leave an account without a password hash.
	ErrEmptyPasswordHash = errors.New("account password hash is empty")
)
