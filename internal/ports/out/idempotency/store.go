package idempotency

import (
	"context"
	"time"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request for idempotency purposes: key + route + request body hash.
// Route is represented as HTTP method + route pattern (e.g. "POST /api/trajets").
//
// A fingerprint with an empty BodyHash addresses the key's metadata record, whose Body
// holds the body hash first seen for that key.
type Fingerprint struct {
	Key      Key
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
