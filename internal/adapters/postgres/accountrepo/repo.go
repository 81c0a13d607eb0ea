package accountrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/oops"

	postgres "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/accountrepo"
)

const (
	emailUniqueConstraint = "accounts_email_unique"
	primaryKeyConstraint  = "accounts_pkey"
)

const selectColumns = `
	id, first_name, last_name, birth_date, phone, email, password_hash,
	is_driver, is_passenger, connected, vehicle_id, created_at, updated_at
`

// Repo is a Postgres implementation of accountrepo.Repository.
type Repo struct {
	db postgres.DB
}

func NewRepo(db postgres.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, a accountrepo.Account) error {
	if r.db == nil {
		return errors.New("nil postgres pool")
	}
	if a.PasswordHash == "" {
		return accountrepo.ErrEmptyPasswordHash
	}
	id, err := uuid.Parse(string(a.ID))
	if err != nil {
		return oops.Code("ACCOUNT_ID_INVALID").With("account_id", a.ID).Wrap(err)
	}
	vehicleID, err := vehicleUUID(a.VehicleID)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO accounts (
			id,
			first_name,
			last_name,
			birth_date,
			phone,
			email,
			password_hash,
			is_driver,
			is_passenger,
			connected,
			vehicle_id,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		id,
		a.FirstName,
		a.LastName,
		dateArg(a.BirthDate),
		a.Phone,
		domain.NormalizeEmail(a.Email),
		a.PasswordHash,
		a.IsDriver,
		a.IsPassenger,
		a.Connected,
		vehicleID,
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, emailUniqueConstraint):
			return accountrepo.ErrEmailTaken
		case postgres.IsUniqueViolation(err, primaryKeyConstraint):
			return accountrepo.ErrAlreadyExists
		}
		return oops.Code("ACCOUNT_INSERT_FAILED").With("account_id", a.ID).Wrap(err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.AccountID) (accountrepo.Account, error) {
	if r.db == nil {
		return accountrepo.Account{}, errors.New("nil postgres pool")
	}
	accountUUID, err := uuid.Parse(string(id))
	if err != nil {
		return accountrepo.Account{}, accountrepo.ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM accounts WHERE id = $1`, accountUUID)
	return queryOne(row)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (accountrepo.Account, error) {
	if r.db == nil {
		return accountrepo.Account{}, errors.New("nil postgres pool")
	}
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM accounts WHERE lower(email) = $1`, domain.NormalizeEmail(email))
	return queryOne(row)
}

func (r *Repo) SetConnected(ctx context.Context, email string, connected bool, at time.Time) error {
	if r.db == nil {
		return errors.New("nil postgres pool")
	}
	ct, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET connected = $2,
		    updated_at = $3
		WHERE lower(email) = $1
	`, domain.NormalizeEmail(email), connected, at.UTC())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("op", "set_connected").Wrap(err)
	}
	if ct.RowsAffected() == 0 {
		return accountrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) UpdateProfile(ctx context.Context, id domain.AccountID, p accountrepo.ProfileUpdate) (accountrepo.Account, error) {
	if r.db == nil {
		return accountrepo.Account{}, errors.New("nil postgres pool")
	}
	accountUUID, err := uuid.Parse(string(id))
	if err != nil {
		return accountrepo.Account{}, accountrepo.ErrNotFound
	}
	row := r.db.QueryRow(ctx, `
		UPDATE accounts
		SET first_name = $2,
		    last_name = $3,
		    phone = $4,
		    email = $5,
		    updated_at = $6
		WHERE id = $1
		RETURNING `+selectColumns,
		accountUUID,
		p.FirstName,
		p.LastName,
		p.Phone,
		domain.NormalizeEmail(p.Email),
		p.UpdatedAt.UTC(),
	)
	a, err := scanAccount(row)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, emailUniqueConstraint):
			return accountrepo.Account{}, accountrepo.ErrEmailTaken
		case errors.Is(err, accountrepo.ErrNotFound):
			return accountrepo.Account{}, err
		}
		return accountrepo.Account{}, oops.Code("ACCOUNT_UPDATE_FAILED").With("op", "update_profile").Wrap(err)
	}
	return a, nil
}

func (r *Repo) UpdatePasswordHash(ctx context.Context, id domain.AccountID, hash string, at time.Time) error {
	if r.db == nil {
		return errors.New("nil postgres pool")
	}
	if hash == "" {
		return accountrepo.ErrEmptyPasswordHash
	}
	accountUUID, err := uuid.Parse(string(id))
	if err != nil {
		return accountrepo.ErrNotFound
	}
	ct, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $2,
		    updated_at = $3
		WHERE id = $1
	`, accountUUID, hash, at.UTC())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("op", "update_password_hash").Wrap(err)
	}
	if ct.RowsAffected() == 0 {
		return accountrepo.ErrNotFound
	}
	return nil
}

func queryOne(row pgx.Row) (accountrepo.Account, error) {
	a, err := scanAccount(row)
	if err != nil && !errors.Is(err, accountrepo.ErrNotFound) {
		return accountrepo.Account{}, oops.Code("ACCOUNT_QUERY_FAILED").Wrap(err)
	}
	return a, err
}

func scanAccount(row pgx.Row) (accountrepo.Account, error) {
	var (
		a         accountrepo.Account
		id        uuid.UUID
		birthDate pgtype.Date
		vehicleID pgtype.UUID
	)
	err := row.Scan(
		&id,
		&a.FirstName,
		&a.LastName,
		&birthDate,
		&a.Phone,
		&a.Email,
		&a.PasswordHash,
		&a.IsDriver,
		&a.IsPassenger,
		&a.Connected,
		&vehicleID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accountrepo.Account{}, accountrepo.ErrNotFound
		}
		return accountrepo.Account{}, err
	}
	a.ID = domain.AccountID(id.String())
	if birthDate.Valid {
		d := birthDate.Time.UTC()
		a.BirthDate = &d
	}
	if vehicleID.Valid {
		v := domain.VehicleID(uuid.UUID(vehicleID.Bytes).String())
		a.VehicleID = &v
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func dateArg(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	y, m, d := t.Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

func vehicleUUID(id *domain.VehicleID) (pgtype.UUID, error) {
	if id == nil {
		return pgtype.UUID{}, nil
	}
	u, err := uuid.Parse(string(*id))
	if err != nil {
		return pgtype.UUID{}, oops.Code("VEHICLE_ID_INVALID").With("vehicle_id", *id).Wrap(err)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}
