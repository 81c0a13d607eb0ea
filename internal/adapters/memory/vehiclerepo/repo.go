package vehiclerepo

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/vehiclerepo"
)

// Repo is an in-memory implementation of vehiclerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex
	m  map[domain.VehicleID]vehiclerepo.Vehicle
}

func NewRepo() *Repo {
	return &Repo{m: make(map[domain.VehicleID]vehiclerepo.Vehicle)}
}

func (r *Repo) Create(ctx context.Context, v vehiclerepo.Vehicle) error {
	_ = ctx
	if v.ID == "" {
		return vehiclerepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[v.ID]; ok {
		return vehiclerepo.ErrAlreadyExists
	}
	r.m[v.ID] = v
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (vehiclerepo.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[id]
	if !ok {
		return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.VehicleID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; !ok {
		return vehiclerepo.ErrNotFound
	}
	delete(r.m, id)
	return nil
}

// Len reports the number of stored vehicles.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}
