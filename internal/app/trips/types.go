package trips

import "github.com/Overland-East-Bay/carpool-api/internal/domain"

// Options tunes TripService behavior.
type Options struct {
	// DedupByAccount turns Create into an upsert keyed by the owning account, so an
	// account holds at most one trip created this way. Off by default: Create always inserts.
	DedupByAccount bool
}

// TripFields are the caller-supplied trip attributes.
//
// All four coordinates are required. A nil optional field means "not supplied": on
// update it leaves the stored value in place. ScheduleDays is "supplied" when non-nil.
type TripFields struct {
	Longitude       *float64
	Latitude        *float64
	TargetLongitude *float64
	TargetLatitude  *float64

	PickupAddress      *string
	DestinationAddress *string

	ScheduleDays []string
	ScheduleTime *string
}

type UpsertTripInput struct {
	// AccountID is optional on upsert; when set it replaces the stored owner.
	AccountID domain.AccountID
	TripFields
}

type CreateTripInput struct {
	AccountID domain.AccountID
	TripFields
}
