package vehiclerepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	postgres "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/vehiclerepo"
)

// Repo is a Postgres implementation of vehiclerepo.Repository.
type Repo struct {
	db postgres.DB
}

func NewRepo(db postgres.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, v vehiclerepo.Vehicle) error {
	if r.db == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(v.ID))
	if err != nil {
		return oops.Code("VEHICLE_ID_INVALID").With("vehicle_id", v.ID).Wrap(err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO vehicles (id, model, year, fuel_consumption, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, v.Model, v.Year, v.FuelConsumption, v.CreatedAt.UTC())
	if err != nil {
		if postgres.IsUniqueViolation(err, "vehicles_pkey") {
			return vehiclerepo.ErrAlreadyExists
		}
		return oops.Code("VEHICLE_INSERT_FAILED").With("vehicle_id", v.ID).Wrap(err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (vehiclerepo.Vehicle, error) {
	if r.db == nil {
		return vehiclerepo.Vehicle{}, errors.New("nil postgres pool")
	}
	vehicleUUID, err := uuid.Parse(string(id))
	if err != nil {
		return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
	}
	v := vehiclerepo.Vehicle{ID: id}
	err = r.db.QueryRow(ctx, `
		SELECT model, year, fuel_consumption, created_at
		FROM vehicles
		WHERE id = $1
	`, vehicleUUID).Scan(&v.Model, &v.Year, &v.FuelConsumption, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
		}
		return vehiclerepo.Vehicle{}, oops.Code("VEHICLE_QUERY_FAILED").With("vehicle_id", id).Wrap(err)
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.VehicleID) error {
	if r.db == nil {
		return errors.New("nil postgres pool")
	}
	vehicleUUID, err := uuid.Parse(string(id))
	if err != nil {
		return vehiclerepo.ErrNotFound
	}
	ct, err := r.db.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, vehicleUUID)
	if err != nil {
		return oops.Code("VEHICLE_DELETE_FAILED").With("vehicle_id", id).Wrap(err)
	}
	if ct.RowsAffected() == 0 {
		return vehiclerepo.ErrNotFound
	}
	return nil
}
