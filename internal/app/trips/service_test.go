package trips_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/clock"
	memtriprepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/triprepo"
	"github.com/Overland-East-Bay/carpool-api/internal/app/trips"
	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/triprepo"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func parisFields() trips.TripFields {
	return trips.TripFields{
		Longitude:       f64(2.35),
		Latitude:        f64(48.85),
		TargetLongitude: f64(2.29),
		TargetLatitude:  f64(48.85),
	}
}

func newService(t *testing.T, opts trips.Options) (*trips.Service, *memtriprepo.Repo, *memclock.ManualClock) {
	t.Helper()
	repo := memtriprepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	svc := trips.NewService(repo, clk, opts)
	n := 0
	var mu sync.Mutex
	svc.SetNewTripIDForTest(func() domain.TripID {
		mu.Lock()
		defer mu.Unlock()
		n++
		return domain.TripID(fmt.Sprintf("t%d", n))
	})
	return svc, repo, clk
}

func TestService_Create_StoresTripVerbatim(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, trips.Options{})
	ctx := context.Background()

	in := trips.CreateTripInput{AccountID: "u1", TripFields: parisFields()}
	in.ScheduleDays = []string{"Monday", "Wednesday"}
	in.ScheduleTime = str("08:30")

	created, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if created.ID != "t1" || created.AccountID != "u1" || created.LookupKey != "" {
		t.Fatalf("created=%+v", created)
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List err=%v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len=%d", len(all))
	}
	got := all[0]
	if got.Origin != (domain.Coordinates{Longitude: 2.35, Latitude: 48.85}) || got.Destination != (domain.Coordinates{Longitude: 2.29, Latitude: 48.85}) {
		t.Fatalf("coordinates=%+v/%+v", got.Origin, got.Destination)
	}
	if !reflect.DeepEqual(got.ScheduleDays, []string{"Monday", "Wednesday"}) || got.ScheduleTime == nil || *got.ScheduleTime != "08:30" {
		t.Fatalf("schedule=%v %v", got.ScheduleDays, got.ScheduleTime)
	}
}

func TestService_Create_NoDedupByDefault(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, trips.Options{})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := svc.Create(ctx, trips.CreateTripInput{AccountID: "u1", TripFields: parisFields()}); err != nil {
			t.Fatalf("Create #%d err=%v", i, err)
		}
	}
	all, _ := svc.List(ctx)
	if len(all) != 2 {
		t.Fatalf("len=%d, want 2", len(all))
	}
}

func TestService_Create_DedupByAccount(t *testing.T) {
	t.Parallel()

	svc, _, clk := newService(t, trips.Options{DedupByAccount: true})
	ctx := context.Background()

	first, err := svc.Create(ctx, trips.CreateTripInput{AccountID: "u1", TripFields: parisFields()})
	if err != nil {
		t.Fatalf("Create err=%v", err)
	}
	clk.Advance(time.Minute)
	moved := parisFields()
	moved.Longitude = f64(-1.55)
	second, err := svc.Create(ctx, trips.CreateTripInput{AccountID: "u1", TripFields: moved})
	if err != nil {
		t.Fatalf("Create again err=%v", err)
	}
	if second.ID != first.ID || second.Origin.Longitude != -1.55 {
		t.Fatalf("second=%+v", second)
	}
	if !second.UpdatedAt.After(second.CreatedAt) {
		t.Fatalf("timestamps=%v/%v", second.CreatedAt, second.UpdatedAt)
	}
	all, _ := svc.List(ctx)
	if len(all) != 1 {
		t.Fatalf("len=%d, want 1", len(all))
	}
}

func TestService_Create_Validation(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t, trips.Options{})
	ctx := context.Background()

	cases := []struct {
		name  string
		in    trips.CreateTripInput
		field string
	}{
		{"missing account", trips.CreateTripInput{TripFields: parisFields()}, "userId"},
		{"missing longitude", trips.CreateTripInput{AccountID: "u1", TripFields: trips.TripFields{Latitude: f64(1), TargetLongitude: f64(1), TargetLatitude: f64(1)}}, "long"},
		{"latitude out of range", func() trips.CreateTripInput {
			in := trips.CreateTripInput{AccountID: "u1", TripFields: parisFields()}
			in.TargetLatitude = f64(91)
			return in
		}(), "targetLat"},
		{"longitude out of range", func() trips.CreateTripInput {
			in := trips.CreateTripInput{AccountID: "u1", TripFields: parisFields()}
			in.Longitude = f64(-180.5)
			return in
		}(), "long"},
		{"bad weekday", func() trips.CreateTripInput {
			in := trips.CreateTripInput{AccountID: "u1", TripFields: parisFields()}
			in.ScheduleDays = []string{"Monday", "Funday"}
			return in
		}(), "scheduleDays"},
		{"bad time", func() trips.CreateTripInput {
			in := trips.CreateTripInput{AccountID: "u1", TripFields: parisFields()}
			in.ScheduleTime = str("8:30")
			return in
		}(), "scheduleTime"},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, tc.in)
		ae := (*trips.Error)(nil)
		if !errors.As(err, &ae) || ae.Status != 422 || ae.Code != "VALIDATION_ERROR" {
			t.Fatalf("%s: expected 422 VALIDATION_ERROR, got %v", tc.name, err)
		}
		if _, ok := ae.Details[tc.field]; !ok {
			t.Fatalf("%s: details=%v, want key %q", tc.name, ae.Details, tc.field)
		}
	}
	all, _ := repo.List(ctx)
	if len(all) != 0 {
		t.Fatalf("invalid trips persisted: %d", len(all))
	}
}

func TestService_Create_NormalizesWeekdays(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, trips.Options{})
	in := trips.CreateTripInput{AccountID: "u1", TripFields: parisFields()}
	in.ScheduleDays = []string{"friday", "MONDAY", "Friday"}
	created, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if !reflect.DeepEqual(created.ScheduleDays, []string{"Friday", "Monday"}) {
		t.Fatalf("days=%v", created.ScheduleDays)
	}
}

func TestService_Upsert_ReplacesInPlace(t *testing.T) {
	t.Parallel()

	svc, _, clk := newService(t, trips.Options{})
	ctx := context.Background()

	first := parisFields()
	first.ScheduleDays = []string{"Monday"}
	first.PickupAddress = str("10 rue de Rivoli")
	created, err := svc.Upsert(ctx, "K", trips.UpsertTripInput{TripFields: first})
	if err != nil {
		t.Fatalf("Upsert create err=%v", err)
	}
	if created.LookupKey != "K" || created.AccountID != "" {
		t.Fatalf("created=%+v", created)
	}

	clk.Advance(time.Minute)
	next := trips.TripFields{Longitude: f64(5), Latitude: f64(45), TargetLongitude: f64(6), TargetLatitude: f64(46)}
	updated, err := svc.Upsert(ctx, " K ", trips.UpsertTripInput{AccountID: "u9", TripFields: next})
	if err != nil {
		t.Fatalf("Upsert update err=%v", err)
	}
	if updated.ID != created.ID || updated.AccountID != "u9" {
		t.Fatalf("updated=%+v", updated)
	}

	all, _ := svc.List(ctx)
	count := 0
	for _, tr := range all {
		if tr.LookupKey == "K" {
			count++
			if tr.Origin != (domain.Coordinates{Longitude: 5, Latitude: 45}) || tr.Destination != (domain.Coordinates{Longitude: 6, Latitude: 46}) {
				t.Fatalf("coordinates not replaced: %+v", tr)
			}
			if !reflect.DeepEqual(tr.ScheduleDays, []string{"Monday"}) || tr.PickupAddress == nil || *tr.PickupAddress != "10 rue de Rivoli" {
				t.Fatalf("unsupplied fields should be kept: %+v", tr)
			}
		}
	}
	if count != 1 {
		t.Fatalf("trips for key=%d, want 1", count)
	}
}

func TestService_Upsert_RequiresKey(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, trips.Options{})
	_, err := svc.Upsert(context.Background(), "  ", trips.UpsertTripInput{TripFields: parisFields()})
	ae := (*trips.Error)(nil)
	if !errors.As(err, &ae) || ae.Status != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
	if _, ok := ae.Details["id"]; !ok {
		t.Fatalf("details=%v", ae.Details)
	}
}

func TestService_Upsert_ConcurrentSameKey_SingleRecord(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, trips.Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := parisFields()
			f.Longitude = f64(float64(i))
			if _, err := svc.Upsert(ctx, "shared", trips.UpsertTripInput{TripFields: f}); err != nil {
				t.Errorf("Upsert err=%v", err)
			}
		}(i)
	}
	wg.Wait()

	all, _ := svc.List(ctx)
	if len(all) != 1 {
		t.Fatalf("len=%d, want 1", len(all))
	}
}

type failingRepo struct{ triprepo.Repository }

func (failingRepo) List(context.Context) ([]triprepo.Trip, error) {
	return nil, errors.New("connection reset")
}

func TestService_List_StorageErrorIsNotAnAppError(t *testing.T) {
	t.Parallel()

	svc := trips.NewService(failingRepo{}, memclock.NewManualClock(time.Unix(0, 0)), trips.Options{})
	_, err := svc.List(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if ae := (*trips.Error)(nil); errors.As(err, &ae) {
		t.Fatalf("storage failure must not map to an app error: %+v", ae)
	}
}
