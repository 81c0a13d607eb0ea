package accountrepo

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
)

// Account is the persistence shape used by the account repository.
// It's used as an internal record, not an HTTP DTO.
type Account struct {
	ID domain.AccountID

	FirstName string
	LastName  string
	BirthDate *time.Time
	Phone     string
	// Email is stored case-folded; implementations must enforce uniqueness themselves.
	Email        string
	PasswordHash string

	IsDriver    bool
	IsPassenger bool
	Connected   bool

	VehicleID *domain.VehicleID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileUpdate carries the full replacement values for an account's profile fields.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	UpdatedAt time.Time
}

// Repository provides access to persisted accounts.
//
// Email arguments are matched case-insensitively.
type Repository interface {
	// Create fails with ErrEmailTaken when the email is already held, even under concurrent creates.
	Create(ctx context.Context, a Account) error

	GetByID(ctx context.Context, id domain.AccountID) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)

	SetConnected(ctx context.Context, email string, connected bool, at time.Time) error
	UpdateProfile(ctx context.Context, id domain.AccountID, p ProfileUpdate) (Account, error)
	UpdatePasswordHash(ctx context.Context, id domain.AccountID, hash string, at time.Time) error
}
