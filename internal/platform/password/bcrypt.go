// Package password implements passwordhash.Hasher with bcrypt.
package password

import (
	"context"
	"errors"
	"runtime"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/passwordhash"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// BcryptHasher hashes passwords with bcrypt at a fixed cost.
//
// Hashing is CPU-bound, so at most GOMAXPROCS hash/verify calls run at once; callers
// beyond that wait on ctx.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("INVALID_BCRYPT_COST").With("cost", cost).Errorf("bcrypt cost must be in [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}, nil
}

func (h *BcryptHasher) Cost() int { return h.cost }

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", passwordhash.ErrPasswordTooLong
		}
		return "", oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. A mismatch is not an error.
func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("PASSWORD_VERIFY_FAILED").Wrap(err)
	}
}

// NeedsRehash reports whether hash was produced at a different cost (or is not bcrypt).
func (h *BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != h.cost
}
