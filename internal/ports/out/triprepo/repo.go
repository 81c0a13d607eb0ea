package triprepo

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
)

// Trip is the persistence shape used by the trip repository.
type Trip struct {
	ID        domain.TripID
	AccountID domain.AccountID
	LookupKey domain.LookupKey

	Origin      domain.Coordinates
	Destination domain.Coordinates

	PickupAddress      *string
	DestinationAddress *string
	ScheduleDays       []string
	ScheduleTime       *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted trips.
//
// Upsert semantics (shared by Upsert and UpsertByAccount):
//   - when no trip matches, t is inserted as given and created=true is returned;
//   - otherwise the earliest matching trip is updated in place: coordinates are replaced,
//     addresses/ScheduleTime are replaced when non-nil, ScheduleDays when non-nil,
//     AccountID when non-empty, and UpdatedAt from t. ID and CreatedAt of t are ignored.
//
// Both upserts must be atomic with respect to concurrent calls for the same key.
//
// List returns trips ordered by CreatedAt ascending (ID as tie-breaker).
type Repository interface {
	Create(ctx context.Context, t Trip) error

	// Upsert matches on t.LookupKey, which must be non-empty.
	Upsert(ctx context.Context, t Trip) (stored Trip, created bool, err error)
	// UpsertByAccount matches on t.AccountID, which must be non-empty.
	UpsertByAccount(ctx context.Context, t Trip) (stored Trip, created bool, err error)

	GetByID(ctx context.Context, id domain.TripID) (Trip, error)
	List(ctx context.Context) ([]Trip, error)
}
