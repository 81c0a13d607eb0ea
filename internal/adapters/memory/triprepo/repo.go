package triprepo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/triprepo"
)

// Repo is an in-memory implementation of triprepo.Repository.
// It is safe for concurrent use; both upserts run entirely under the write lock.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.TripID]triprepo.Trip
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.TripID]triprepo.Trip),
	}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	if t.ID == "" {
		return triprepo.ErrAlreadyExists // treat empty ID as invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; ok {
		return triprepo.ErrAlreadyExists
	}
	r.byID[t.ID] = cloneTrip(t)
	return nil
}

func (r *Repo) Upsert(ctx context.Context, t triprepo.Trip) (triprepo.Trip, bool, error) {
	_ = ctx
	if t.LookupKey == "" {
		return triprepo.Trip{}, false, errors.New("upsert requires a lookup key")
	}
	return r.upsert(t, func(existing triprepo.Trip) bool { return existing.LookupKey == t.LookupKey })
}

func (r *Repo) UpsertByAccount(ctx context.Context, t triprepo.Trip) (triprepo.Trip, bool, error) {
	_ = ctx
	if t.AccountID == "" {
		return triprepo.Trip{}, false, errors.New("upsert by account requires an account id")
	}
	return r.upsert(t, func(existing triprepo.Trip) bool { return existing.AccountID == t.AccountID })
}

func (r *Repo) upsert(t triprepo.Trip, match func(triprepo.Trip) bool) (triprepo.Trip, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		found    triprepo.Trip
		hasMatch bool
	)
	for _, existing := range r.byID {
		if !match(existing) {
			continue
		}
		if !hasMatch || lessTrip(existing, found) {
			found = existing
			hasMatch = true
		}
	}

	if !hasMatch {
		if t.ID == "" {
			return triprepo.Trip{}, false, triprepo.ErrAlreadyExists
		}
		if _, ok := r.byID[t.ID]; ok {
			return triprepo.Trip{}, false, triprepo.ErrAlreadyExists
		}
		r.byID[t.ID] = cloneTrip(t)
		return cloneTrip(t), true, nil
	}

	updated := cloneTrip(triprepo.Merge(found, t))
	r.byID[updated.ID] = updated
	return cloneTrip(updated), false, nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	return cloneTrip(t), nil
}

func (r *Repo) List(ctx context.Context) ([]triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]triprepo.Trip, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, cloneTrip(t))
	}
	sort.Slice(out, func(i, j int) bool { return lessTrip(out[i], out[j]) })
	return out, nil
}

func lessTrip(a, b triprepo.Trip) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return string(a.ID) < string(b.ID)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func cloneTrip(t triprepo.Trip) triprepo.Trip {
	out := t
	out.PickupAddress = cloneStringPtr(t.PickupAddress)
	out.DestinationAddress = cloneStringPtr(t.DestinationAddress)
	out.ScheduleTime = cloneStringPtr(t.ScheduleTime)
	if t.ScheduleDays != nil {
		out.ScheduleDays = append([]string{}, t.ScheduleDays...)
	}
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
