package trips

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	clockport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/triprepo"
)

// Service orchestrates trip creation, replacement and listing.
type Service struct {
	repo triprepo.Repository
	clk  clockport.Clock
	opts Options

	newTripID func() domain.TripID
}

func NewService(repo triprepo.Repository, clk clockport.Clock, opts Options) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		opts: opts,
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.NewString())
		},
	}
}

// SetNewTripIDForTest overrides trip ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

// Upsert creates the trip for key, or replaces the mutable fields of the trip already
// stored under key. The find-or-create runs atomically in the repository.
func (s *Service) Upsert(ctx context.Context, key domain.LookupKey, in UpsertTripInput) (domain.Trip, error) {
	key = domain.LookupKey(strings.TrimSpace(string(key)))
	v, details := validateFields(in.TripFields)
	if key == "" {
		details["id"] = "required"
	}
	if len(details) > 0 {
		return domain.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid trip", Details: details}
	}

	rec := s.newRecord(domain.AccountID(strings.TrimSpace(string(in.AccountID))), v)
	rec.LookupKey = key
	stored, _, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return domain.Trip{}, oops.Code("TRIP_UPSERT_FAILED").With("lookup_key", key).Wrap(err)
	}
	return toDomain(stored), nil
}

// Create inserts a new trip. With Options.DedupByAccount it instead upserts the
// account's existing trip.
func (s *Service) Create(ctx context.Context, in CreateTripInput) (domain.Trip, error) {
	accountID := domain.AccountID(strings.TrimSpace(string(in.AccountID)))
	v, details := validateFields(in.TripFields)
	if accountID == "" {
		details["userId"] = "required"
	}
	if len(details) > 0 {
		return domain.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid trip", Details: details}
	}

	rec := s.newRecord(accountID, v)
	if s.opts.DedupByAccount {
		stored, _, err := s.repo.UpsertByAccount(ctx, rec)
		if err != nil {
			return domain.Trip{}, oops.Code("TRIP_CREATE_FAILED").With("account_id", accountID).With("dedup", true).Wrap(err)
		}
		return toDomain(stored), nil
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return domain.Trip{}, oops.Code("TRIP_CREATE_FAILED").With("account_id", accountID).Wrap(err)
	}
	return toDomain(rec), nil
}

// List returns every stored trip. Callers must not rely on the order.
func (s *Service) List(ctx context.Context) ([]domain.Trip, error) {
	ts, err := s.repo.List(ctx)
	if err != nil {
		return nil, oops.Code("TRIP_LIST_FAILED").Wrap(err)
	}
	out := make([]domain.Trip, 0, len(ts))
	for _, t := range ts {
		out = append(out, toDomain(t))
	}
	return out, nil
}

func (s *Service) newRecord(accountID domain.AccountID, v validatedFields) triprepo.Trip {
	now := s.clk.Now()
	return triprepo.Trip{
		ID:                 s.newTripID(),
		AccountID:          accountID,
		Origin:             v.origin,
		Destination:        v.destination,
		PickupAddress:      v.pickupAddress,
		DestinationAddress: v.destinationAddress,
		ScheduleDays:       v.scheduleDays,
		ScheduleTime:       v.scheduleTime,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func toDomain(t triprepo.Trip) domain.Trip {
	out := domain.Trip{
		ID:          t.ID,
		AccountID:   t.AccountID,
		LookupKey:   t.LookupKey,
		Origin:      t.Origin,
		Destination: t.Destination,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
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
