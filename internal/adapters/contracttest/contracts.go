package contracttest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	accountrepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/accountrepo"
	idempotencyport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/idempotency"
	triprepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/triprepo"
	vehiclerepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/vehiclerepo"
)

type CleanupFunc = func()

type AccountRepoFactory func(t *testing.T) (accountrepoport.Repository, CleanupFunc)
type VehicleRepoFactory func(t *testing.T) (vehiclerepoport.Repository, CleanupFunc)
type TripRepoFactory func(t *testing.T) (triprepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// The suites below may run against a shared database: every record they create uses
// fresh identifiers and assertions only look at those records.

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Method:   "POST",
		Route:    "/api/trajets",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// The response record is addressed separately from the metadata record.
	respFP := fp
	respFP.BodyHash = "hash-def"
	if _, ok, err := store.Get(ctx, respFP); err != nil || ok {
		t.Fatalf("response record before Put: ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, respFP, idempotencyport.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"message":"ok"}`),
		CreatedAt:   time.Unix(124, 0).UTC(),
	}); err != nil {
		t.Fatalf("Put response: %v", err)
	}
	got, ok, err = store.Get(ctx, respFP)
	if err != nil || !ok || got.StatusCode != 200 || string(got.Body) != `{"message":"ok"}` {
		t.Fatalf("response record: ok=%v err=%v rec=%+v", ok, err, got)
	}
}

func newAccount(email string, now time.Time) accountrepoport.Account {
	return accountrepoport.Account{
		ID:           domain.AccountID(uuid.NewString()),
		FirstName:    "Alice",
		LastName:     "Martin",
		Phone:        "0600000000",
		Email:        email,
		PasswordHash: "$2a$10$hash",
		IsPassenger:  true,
		Connected:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8] + "@example.com"
}

func RunAccountRepo(t *testing.T, newRepo AccountRepoFactory, newVehicleRepo VehicleRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	vehicles, vcleanup := newVehicleRepo(t)
	if vcleanup != nil {
		t.Cleanup(vcleanup)
	}

	now := time.Unix(1000, 0).UTC()
	email := uniqueEmail("alice")
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)

	vID := domain.VehicleID(uuid.NewString())
	if err := vehicles.Create(ctx, vehiclerepoport.Vehicle{ID: vID, Model: "Clio", Year: 2019, FuelConsumption: 5.4, CreatedAt: now}); err != nil {
		t.Fatalf("Create vehicle: %v", err)
	}

	a := newAccount(email, now)
	a.BirthDate = &birth
	a.IsDriver = true
	a.VehicleID = &vID
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != email || got.PasswordHash != a.PasswordHash || !got.IsDriver || !got.Connected {
		t.Fatalf("GetByID=%+v", got)
	}
	if got.BirthDate == nil || !got.BirthDate.Equal(birth) {
		t.Fatalf("BirthDate=%v", got.BirthDate)
	}
	if got.VehicleID == nil || *got.VehicleID != vID {
		t.Fatalf("VehicleID=%v", got.VehicleID)
	}

	// Case-insensitive lookup.
	byEmail, err := repo.GetByEmail(ctx, "  "+strings.ToUpper(email)+" ")
	if err != nil || byEmail.ID != a.ID {
		t.Fatalf("GetByEmail: id=%s err=%v", byEmail.ID, err)
	}

	// Case-insensitive uniqueness.
	dup := newAccount(strings.ToUpper(email), now)
	if err := repo.Create(ctx, dup); !errors.Is(err, accountrepoport.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := repo.GetByID(ctx, dup.ID); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("duplicate should not be stored, err=%v", err)
	}

	// Connection state toggling.
	later := now.Add(time.Minute)
	if err := repo.SetConnected(ctx, strings.ToUpper(email), false, later); err != nil {
		t.Fatalf("SetConnected: %v", err)
	}
	got, _ = repo.GetByID(ctx, a.ID)
	if got.Connected || !got.UpdatedAt.Equal(later) {
		t.Fatalf("after SetConnected(false): %+v", got)
	}
	if err := repo.SetConnected(ctx, uniqueEmail("nobody"), true, later); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("SetConnected unknown: %v", err)
	}

	// Profile overwrite, including an email change.
	newEmail := uniqueEmail("alice.new")
	updated, err := repo.UpdateProfile(ctx, a.ID, accountrepoport.ProfileUpdate{
		FirstName: "Alicia",
		LastName:  "",
		Phone:     "",
		Email:     strings.ToUpper(newEmail),
		UpdatedAt: later,
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.FirstName != "Alicia" || updated.LastName != "" || updated.Phone != "" || updated.Email != newEmail {
		t.Fatalf("UpdateProfile=%+v", updated)
	}
	if _, err := repo.GetByEmail(ctx, email); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("old email should be released, err=%v", err)
	}
	if _, err := repo.UpdateProfile(ctx, domain.AccountID(uuid.NewString()), accountrepoport.ProfileUpdate{Email: uniqueEmail("x")}); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("UpdateProfile unknown: %v", err)
	}

	// Email change onto another account's email.
	b := newAccount(uniqueEmail("bob"), now)
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if _, err := repo.UpdateProfile(ctx, b.ID, accountrepoport.ProfileUpdate{FirstName: "Bob", Email: newEmail, UpdatedAt: later}); !errors.Is(err, accountrepoport.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken on profile update, got %v", err)
	}

	// The freed email is reusable.
	c := newAccount(email, now)
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create with released email: %v", err)
	}

	if err := repo.UpdatePasswordHash(ctx, c.ID, "$2a$12$other", later); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, _ = repo.GetByID(ctx, c.ID)
	if got.PasswordHash != "$2a$12$other" {
		t.Fatalf("PasswordHash=%q", got.PasswordHash)
	}

	// A stored account always carries a password hash.
	if err := repo.UpdatePasswordHash(ctx, c.ID, "", later); !errors.Is(err, accountrepoport.ErrEmptyPasswordHash) {
		t.Fatalf("UpdatePasswordHash empty: expected ErrEmptyPasswordHash, got %v", err)
	}
	got, _ = repo.GetByID(ctx, c.ID)
	if got.PasswordHash != "$2a$12$other" {
		t.Fatalf("PasswordHash after rejected update=%q", got.PasswordHash)
	}
	noHash := newAccount(uniqueEmail("nohash"), now)
	noHash.PasswordHash = ""
	if err := repo.Create(ctx, noHash); !errors.Is(err, accountrepoport.ErrEmptyPasswordHash) {
		t.Fatalf("Create empty hash: expected ErrEmptyPasswordHash, got %v", err)
	}
	if _, err := repo.GetByID(ctx, noHash.ID); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("account without hash should not be stored, err=%v", err)
	}
}

// RunAccountRepoConcurrentCreate checks that uniqueness holds without relying on a pre-check.
func RunAccountRepoConcurrentCreate(t *testing.T, newRepo AccountRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	email := uniqueEmail("race")
	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, newAccount(email, time.Unix(1000, 0).UTC()))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, accountrepoport.ErrEmailTaken) {
				t.Errorf("Create: unexpected err=%v", err)
			}
		}()
	}
	wg.Wait()
	if successes != 1 {
		t.Fatalf("successes=%d, want 1", successes)
	}
}

func RunVehicleRepo(t *testing.T, newRepo VehicleRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	v := vehiclerepoport.Vehicle{
		ID:              domain.VehicleID(uuid.NewString()),
		Model:           "Model 3",
		Year:            2021,
		FuelConsumption: 0,
		CreatedAt:       time.Unix(1000, 0).UTC(),
	}
	if err := repo.Create(ctx, v); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, v); !errors.Is(err, vehiclerepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	got, err := repo.GetByID(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Model != v.Model || got.Year != v.Year || got.FuelConsumption != v.FuelConsumption || !got.CreatedAt.Equal(v.CreatedAt) {
		t.Fatalf("GetByID=%+v", got)
	}
	if err := repo.Delete(ctx, v.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, v.ID); !errors.Is(err, vehiclerepoport.ErrNotFound) {
		t.Fatalf("after Delete: %v", err)
	}
	if err := repo.Delete(ctx, v.ID); !errors.Is(err, vehiclerepoport.ErrNotFound) {
		t.Fatalf("Delete twice: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func RunTripRepo(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	t0 := time.Unix(2000, 0).UTC()
	accountID := domain.AccountID(uuid.NewString())

	// Create never dedups against the account.
	first := triprepoport.Trip{
		ID:           domain.TripID(uuid.NewString()),
		AccountID:    accountID,
		Origin:       domain.Coordinates{Longitude: 2.35, Latitude: 48.85},
		Destination:  domain.Coordinates{Longitude: 2.29, Latitude: 48.85},
		ScheduleDays: []string{"Monday", "Wednesday"},
		ScheduleTime: strPtr("08:30"),
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	second := first
	second.ID = domain.TripID(uuid.NewString())
	second.CreatedAt = t0.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if err := repo.Create(ctx, first); !errors.Is(err, triprepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate id: %v", err)
	}

	got, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AccountID != accountID || got.Origin != first.Origin || got.Destination != first.Destination {
		t.Fatalf("GetByID=%+v", got)
	}
	if len(got.ScheduleDays) != 2 || got.ScheduleDays[0] != "Monday" || got.ScheduleDays[1] != "Wednesday" {
		t.Fatalf("ScheduleDays=%v", got.ScheduleDays)
	}
	if got.ScheduleTime == nil || *got.ScheduleTime != "08:30" || got.PickupAddress != nil {
		t.Fatalf("optionals=%+v", got)
	}
	if _, err := repo.GetByID(ctx, domain.TripID(uuid.NewString())); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("GetByID unknown: %v", err)
	}

	// Upsert by lookup key: insert then update in place.
	key := domain.LookupKey("key-" + uuid.NewString())
	created, wasCreated, err := repo.Upsert(ctx, triprepoport.Trip{
		ID:            domain.TripID(uuid.NewString()),
		LookupKey:     key,
		Origin:        domain.Coordinates{Longitude: 1, Latitude: 1},
		Destination:   domain.Coordinates{Longitude: 2, Latitude: 2},
		PickupAddress: strPtr("Gare du Nord"),
		CreatedAt:     t0.Add(2 * time.Second),
		UpdatedAt:     t0.Add(2 * time.Second),
	})
	if err != nil || !wasCreated {
		t.Fatalf("Upsert create: created=%v err=%v", wasCreated, err)
	}
	updated, wasCreated, err := repo.Upsert(ctx, triprepoport.Trip{
		ID:          domain.TripID(uuid.NewString()),
		LookupKey:   key,
		Origin:      domain.Coordinates{Longitude: 3, Latitude: 3},
		Destination: domain.Coordinates{Longitude: 4, Latitude: 4},
		CreatedAt:   t0.Add(3 * time.Second),
		UpdatedAt:   t0.Add(3 * time.Second),
	})
	if err != nil || wasCreated {
		t.Fatalf("Upsert update: created=%v err=%v", wasCreated, err)
	}
	if updated.ID != created.ID || updated.Origin.Longitude != 3 || updated.Destination.Latitude != 4 {
		t.Fatalf("Upsert update=%+v", updated)
	}
	if updated.PickupAddress == nil || *updated.PickupAddress != "Gare du Nord" {
		t.Fatalf("unsupplied address should be kept: %+v", updated.PickupAddress)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) || !updated.UpdatedAt.Equal(t0.Add(3*time.Second)) {
		t.Fatalf("timestamps: created=%v updated=%v", updated.CreatedAt, updated.UpdatedAt)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if n := countByKey(all, key); n != 1 {
		t.Fatalf("trips for key=%d, want 1", n)
	}
	if n := countByAccount(all, accountID); n != 2 {
		t.Fatalf("trips for account=%d, want 2", n)
	}
	if !sortedByCreatedAt(all) {
		t.Fatalf("List not ordered by createdAt")
	}

	// UpsertByAccount updates the earliest trip of the account.
	merged, wasCreated, err := repo.UpsertByAccount(ctx, triprepoport.Trip{
		ID:           domain.TripID(uuid.NewString()),
		AccountID:    accountID,
		Origin:       domain.Coordinates{Longitude: 9, Latitude: 9},
		Destination:  domain.Coordinates{Longitude: 8, Latitude: 8},
		ScheduleDays: []string{"Friday"},
		CreatedAt:    t0.Add(4 * time.Second),
		UpdatedAt:    t0.Add(4 * time.Second),
	})
	if err != nil || wasCreated {
		t.Fatalf("UpsertByAccount: created=%v err=%v", wasCreated, err)
	}
	if merged.ID != first.ID || merged.Origin.Longitude != 9 || len(merged.ScheduleDays) != 1 || merged.ScheduleDays[0] != "Friday" {
		t.Fatalf("UpsertByAccount=%+v", merged)
	}
	if merged.ScheduleTime == nil || *merged.ScheduleTime != "08:30" {
		t.Fatalf("ScheduleTime should be kept: %v", merged.ScheduleTime)
	}

	otherAccount := domain.AccountID(uuid.NewString())
	fresh, wasCreated, err := repo.UpsertByAccount(ctx, triprepoport.Trip{
		ID:          domain.TripID(uuid.NewString()),
		AccountID:   otherAccount,
		Origin:      domain.Coordinates{Longitude: 1, Latitude: 1},
		Destination: domain.Coordinates{Longitude: 1, Latitude: 1},
		CreatedAt:   t0.Add(5 * time.Second),
		UpdatedAt:   t0.Add(5 * time.Second),
	})
	if err != nil || !wasCreated || fresh.AccountID != otherAccount {
		t.Fatalf("UpsertByAccount create: created=%v err=%v trip=%+v", wasCreated, err, fresh)
	}
}

// RunTripRepoConcurrentUpsert checks that concurrent upserts on one key never duplicate the record.
func RunTripRepoConcurrentUpsert(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	key := domain.LookupKey("race-" + uuid.NewString())
	accountID := domain.AccountID(uuid.NewString())
	const n = 8

	race := func(upsert func(triprepoport.Trip) error, mutate func(*triprepoport.Trip)) {
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				now := time.Unix(3000, 0).UTC()
				tr := triprepoport.Trip{
					ID:          domain.TripID(uuid.NewString()),
					Origin:      domain.Coordinates{Longitude: float64(i), Latitude: 1},
					Destination: domain.Coordinates{Longitude: 2, Latitude: 2},
					CreatedAt:   now,
					UpdatedAt:   now,
				}
				mutate(&tr)
				if err := upsert(tr); err != nil {
					t.Errorf("upsert: %v", err)
				}
			}(i)
		}
		wg.Wait()
	}

	race(func(tr triprepoport.Trip) error {
		_, _, err := repo.Upsert(ctx, tr)
		return err
	}, func(tr *triprepoport.Trip) { tr.LookupKey = key })

	race(func(tr triprepoport.Trip) error {
		_, _, err := repo.UpsertByAccount(ctx, tr)
		return err
	}, func(tr *triprepoport.Trip) { tr.AccountID = accountID })

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if c := countByKey(all, key); c != 1 {
		t.Fatalf("trips for key=%d, want 1", c)
	}
	if c := countByAccount(all, accountID); c != 1 {
		t.Fatalf("trips for account=%d, want 1", c)
	}
}

func countByKey(ts []triprepoport.Trip, key domain.LookupKey) int {
	n := 0
	for _, tr := range ts {
		if tr.LookupKey == key {
			n++
		}
	}
	return n
}

func countByAccount(ts []triprepoport.Trip, id domain.AccountID) int {
	n := 0
	for _, tr := range ts {
		if tr.AccountID == id {
			n++
		}
	}
	return n
}

func sortedByCreatedAt(ts []triprepoport.Trip) bool {
	for i := 1; i < len(ts); i++ {
		if ts[i].CreatedAt.Before(ts[i-1].CreatedAt) {
			return false
		}
	}
	return true
}
