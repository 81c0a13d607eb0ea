package triprepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	postgres "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/triprepo"
)

const (
	lookupKeyConstraint  = "trips_lookup_key_unique"
	primaryKeyConstraint = "trips_pkey"
)

const tripColumns = `
	id,
	account_id,
	lookup_key,
	origin_longitude,
	origin_latitude,
	destination_longitude,
	destination_latitude,
	pickup_address,
	destination_address,
	schedule_days,
	schedule_time,
	created_at,
	updated_at
`

const insertTrip = `
	INSERT INTO trips (` + tripColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`

// upsertByKey relies on trips_lookup_key_unique; (xmax = 0) is true only for freshly inserted rows.
const upsertByKey = insertTrip + `
	ON CONFLICT (lookup_key) WHERE lookup_key IS NOT NULL DO UPDATE SET
		account_id = COALESCE(EXCLUDED.account_id, trips.account_id),
		origin_longitude = EXCLUDED.origin_longitude,
		origin_latitude = EXCLUDED.origin_latitude,
		destination_longitude = EXCLUDED.destination_longitude,
		destination_latitude = EXCLUDED.destination_latitude,
		pickup_address = COALESCE(EXCLUDED.pickup_address, trips.pickup_address),
		destination_address = COALESCE(EXCLUDED.destination_address, trips.destination_address),
		schedule_days = COALESCE(EXCLUDED.schedule_days, trips.schedule_days),
		schedule_time = COALESCE(EXCLUDED.schedule_time, trips.schedule_time),
		updated_at = EXCLUDED.updated_at
	RETURNING ` + tripColumns + `, (xmax = 0) AS inserted
`

const updateByID = `
	UPDATE trips
	SET account_id = $2,
	    origin_longitude = $3,
	    origin_latitude = $4,
	    destination_longitude = $5,
	    destination_latitude = $6,
	    pickup_address = $7,
	    destination_address = $8,
	    schedule_days = $9,
	    schedule_time = $10,
	    updated_at = $11
	WHERE id = $1
`

// Repo is a Postgres implementation of triprepo.Repository.
type Repo struct {
	db postgres.DB
}

func NewRepo(db postgres.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	if r.db == nil {
		return errors.New("nil postgres pool")
	}
	args, err := insertArgs(t)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, insertTrip, args...); err != nil {
		if postgres.IsUniqueViolation(err, primaryKeyConstraint) || postgres.IsUniqueViolation(err, lookupKeyConstraint) {
			return triprepo.ErrAlreadyExists
		}
		return oops.Code("TRIP_INSERT_FAILED").With("trip_id", t.ID).Wrap(err)
	}
	return nil
}

func (r *Repo) Upsert(ctx context.Context, t triprepo.Trip) (triprepo.Trip, bool, error) {
	if r.db == nil {
		return triprepo.Trip{}, false, errors.New("nil postgres pool")
	}
	if t.LookupKey == "" {
		return triprepo.Trip{}, false, errors.New("upsert requires a lookup key")
	}
	args, err := insertArgs(t)
	if err != nil {
		return triprepo.Trip{}, false, err
	}

	var created bool
	stored, err := scanTrip(r.db.QueryRow(ctx, upsertByKey, args...), &created)
	if err != nil {
		return triprepo.Trip{}, false, oops.Code("TRIP_UPSERT_FAILED").With("lookup_key", t.LookupKey).Wrap(err)
	}
	return stored, created, nil
}

// UpsertByAccount serializes callers for the same account with a transaction-scoped
// advisory lock, since account_id carries no unique constraint.
func (r *Repo) UpsertByAccount(ctx context.Context, t triprepo.Trip) (triprepo.Trip, bool, error) {
	if r.db == nil {
		return triprepo.Trip{}, false, errors.New("nil postgres pool")
	}
	if t.AccountID == "" {
		return triprepo.Trip{}, false, errors.New("upsert by account requires an account id")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return triprepo.Trip{}, false, oops.Code("TRIP_UPSERT_FAILED").With("account_id", t.AccountID).Wrap(err)
	}
	stored, created, err := upsertByAccountTx(ctx, tx, t)
	if err != nil {
		_ = tx.Rollback(ctx)
		return triprepo.Trip{}, false, oops.Code("TRIP_UPSERT_FAILED").With("account_id", t.AccountID).Wrap(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return triprepo.Trip{}, false, oops.Code("TRIP_UPSERT_FAILED").With("account_id", t.AccountID).Wrap(err)
	}
	return stored, created, nil
}

func upsertByAccountTx(ctx context.Context, tx pgx.Tx, t triprepo.Trip) (triprepo.Trip, bool, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(t.AccountID)); err != nil {
		return triprepo.Trip{}, false, err
	}

	existing, err := scanTrip(tx.QueryRow(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE account_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, string(t.AccountID)), nil)
	if errors.Is(err, triprepo.ErrNotFound) {
		args, err := insertArgs(t)
		if err != nil {
			return triprepo.Trip{}, false, err
		}
		stored, err := scanTrip(tx.QueryRow(ctx, insertTrip+` RETURNING `+tripColumns, args...), nil)
		if err != nil {
			return triprepo.Trip{}, false, err
		}
		return stored, true, nil
	}
	if err != nil {
		return triprepo.Trip{}, false, err
	}

	merged := triprepo.Merge(existing, t)
	id, err := uuid.Parse(string(merged.ID))
	if err != nil {
		return triprepo.Trip{}, false, err
	}
	if _, err := tx.Exec(ctx, updateByID,
		id,
		nullIfEmpty(string(merged.AccountID)),
		merged.Origin.Longitude,
		merged.Origin.Latitude,
		merged.Destination.Longitude,
		merged.Destination.Latitude,
		merged.PickupAddress,
		merged.DestinationAddress,
		merged.ScheduleDays,
		merged.ScheduleTime,
		merged.UpdatedAt.UTC(),
	); err != nil {
		return triprepo.Trip{}, false, err
	}
	merged.UpdatedAt = merged.UpdatedAt.UTC()
	return merged, false, nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	if r.db == nil {
		return triprepo.Trip{}, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	t, err := scanTrip(r.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, tripUUID), nil)
	if err != nil && !errors.Is(err, triprepo.ErrNotFound) {
		return triprepo.Trip{}, oops.Code("TRIP_QUERY_FAILED").With("trip_id", id).Wrap(err)
	}
	return t, err
}

func (r *Repo) List(ctx context.Context) ([]triprepo.Trip, error) {
	if r.db == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.db.Query(ctx, `SELECT `+tripColumns+` FROM trips ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, oops.Code("TRIP_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	out := make([]triprepo.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows, nil)
		if err != nil {
			return nil, oops.Code("TRIP_LIST_FAILED").Wrap(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("TRIP_LIST_FAILED").Wrap(err)
	}
	return out, nil
}

func insertArgs(t triprepo.Trip) ([]any, error) {
	id, err := uuid.Parse(string(t.ID))
	if err != nil {
		return nil, oops.Code("TRIP_ID_INVALID").With("trip_id", t.ID).Wrap(err)
	}
	return []any{
		id,
		nullIfEmpty(string(t.AccountID)),
		nullIfEmpty(string(t.LookupKey)),
		t.Origin.Longitude,
		t.Origin.Latitude,
		t.Destination.Longitude,
		t.Destination.Latitude,
		t.PickupAddress,
		t.DestinationAddress,
		t.ScheduleDays,
		t.ScheduleTime,
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	}, nil
}

// scanTrip reads one row of tripColumns; inserted, when non-nil, receives a trailing bool column.
func scanTrip(row pgx.Row, inserted *bool) (triprepo.Trip, error) {
	var (
		t         triprepo.Trip
		id        uuid.UUID
		accountID *string
		lookupKey *string
		createdAt time.Time
		updatedAt time.Time
	)
	dest := []any{
		&id,
		&accountID,
		&lookupKey,
		&t.Origin.Longitude,
		&t.Origin.Latitude,
		&t.Destination.Longitude,
		&t.Destination.Latitude,
		&t.PickupAddress,
		&t.DestinationAddress,
		&t.ScheduleDays,
		&t.ScheduleTime,
		&createdAt,
		&updatedAt,
	}
	if inserted != nil {
		dest = append(dest, inserted)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return triprepo.Trip{}, triprepo.ErrNotFound
		}
		return triprepo.Trip{}, err
	}
	t.ID = domain.TripID(id.String())
	if accountID != nil {
		t.AccountID = domain.AccountID(*accountID)
	}
	if lookupKey != nil {
		t.LookupKey = domain.LookupKey(*lookupKey)
	}
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return t, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
