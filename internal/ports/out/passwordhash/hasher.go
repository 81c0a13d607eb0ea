package passwordhash

import (
	"context"
	"errors"
)

// ErrPasswordTooLong indicates the plaintext exceeds what the hashing scheme accepts.
var ErrPasswordTooLong = errors.New("password too long")

// Hasher hashes and verifies account passwords.
//
// Hash must salt every call, so hashing the same plaintext twice yields different values.
// Verify must compare in constant time.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
	// NeedsRehash reports whether hash was produced with parameters other than the current ones.
	NeedsRehash(hash string) bool
}
