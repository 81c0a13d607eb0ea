package accounts

import (
	"time"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/session"
)

// Options tunes AuthService behavior.
type Options struct {
	// RevealUnknownEmail makes login report an unknown email as EMAIL_NOT_FOUND instead of
	// the uniform INVALID_CREDENTIALS. Off by default: the distinction enables account enumeration.
	RevealUnknownEmail bool
}

type VehicleInput struct {
	Model           string
	Year            int
	FuelConsumption float64
}

type SignupInput struct {
	FirstName string
	LastName  string
	BirthDate *time.Time
	Phone     string
	Email     string
	Password  string

	IsDriver    bool
	IsPassenger bool
	// Vehicle is required when IsDriver is set and ignored otherwise.
	Vehicle *VehicleInput
}

type UpdateProfileInput struct {
	AccountID domain.AccountID
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

// AuthResult is returned by a successful signup or login.
type AuthResult struct {
	Token   session.Token
	Account domain.Account
	// Vehicle is set when the account owns one.
	Vehicle *domain.Vehicle
}

// NewAccount carries the fields for CredentialStore.CreateAccount.
type NewAccount struct {
	FirstName   string
	LastName    string
	BirthDate   *time.Time
	Phone       string
	Email       string
	Password    string
	IsDriver    bool
	IsPassenger bool
	Vehicle     *VehicleInput
}

// ProfileFields are full replacement values for UpdateProfile; nothing is merged.
type ProfileFields struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
}
