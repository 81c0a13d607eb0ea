package domain

import "time"

// Vehicle is owned by exactly one driver account.
type Vehicle struct {
	ID VehicleID

	Model           string
	Year            int
	FuelConsumption float64

	CreatedAt time.Time
}

// Account is the domain representation of a registered user.
type Account struct {
	ID AccountID

	FirstName string
	LastName  string
	BirthDate *time.Time // date-only semantics at the edges
	Phone     string
	Email     string

	// PasswordHash is never empty for a persisted account.
	PasswordHash string

	IsDriver    bool
	IsPassenger bool

	// Connected is true after signup/login and false after logout.
	Connected bool

	VehicleID *VehicleID

	CreatedAt time.Time
	UpdatedAt time.Time
}
