package vehiclerepo

import (
	"context"
	"errors"
	"time"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
)

var (
	ErrNotFound      = errors.New("vehicle not found")
	ErrAlreadyExists = errors.New("vehicle already exists")
)

type Vehicle struct {
	ID              domain.VehicleID
	Model           string
	Year            int
	FuelConsumption float64
	CreatedAt       time.Time
}

// Repository provides access to persisted vehicles.
type Repository interface {
	Create(ctx context.Context, v Vehicle) error
	GetByID(ctx context.Context, id domain.VehicleID) (Vehicle, error)
	// Delete removes a vehicle that was never attached to an account.
	Delete(ctx context.Context, id domain.VehicleID) error
}
