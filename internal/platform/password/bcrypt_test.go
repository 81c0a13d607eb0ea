package password

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/passwordhash"
)

func newTestHasher(t *testing.T) *BcryptHasher {
	t.Helper()
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newTestHasher(t)

	h1, err := h.Hash(ctx, "Abcd1!23")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(h1))
	require.NoError(t, err)
	assert.Equal(t, h.Cost(), cost)
	h2, err := h.Hash(ctx, "Abcd1!23")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2, "hashes must be salted")
	assert.NotContains(t, h1, "Abcd1!23")

	ok, err := h.Verify(ctx, "Abcd1!23", h1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "Abcd1!24", h1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_VerifyMalformedHash(t *testing.T) {
	t.Parallel()

	ok, err := newTestHasher(t).Verify(context.Background(), "x", "not-a-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_PasswordTooLong(t *testing.T) {
	t.Parallel()

	_, err := newTestHasher(t).Hash(context.Background(), strings.Repeat("a", 73))
	assert.ErrorIs(t, err, passwordhash.ErrPasswordTooLong)
}

func TestBcryptHasher_NeedsRehash(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	low := newTestHasher(t)
	hash, err := low.Hash(ctx, "Abcd1!23")
	require.NoError(t, err)
	assert.False(t, low.NeedsRehash(hash))

	higher, err := NewBcryptHasher(bcrypt.MinCost + 1)
	require.NoError(t, err)
	assert.True(t, higher.NeedsRehash(hash))
	assert.True(t, higher.NeedsRehash("garbage"))
}

func TestNewBcryptHasher_RejectsCostOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := NewBcryptHasher(bcrypt.MinCost - 1)
	assert.Error(t, err)
	_, err = NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestBcryptHasher_WaitsForSlotAndHonorsContext(t *testing.T) {
	t.Parallel()

	h := &BcryptHasher{cost: bcrypt.MinCost, sem: semaphore.NewWeighted(1)}
	require.True(t, h.sem.TryAcquire(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Hash(ctx, "Abcd1!23")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = h.Verify(ctx, "Abcd1!23", "$2a$04$x")
	assert.ErrorIs(t, err, context.Canceled)

	h.sem.Release(1)
	_, err = h.Hash(context.Background(), "Abcd1!23")
	assert.NoError(t, err)
}
