package domain

import "time"

type Coordinates struct {
	Longitude float64
	Latitude  float64
}

// Trip is a recurring commute record.
type Trip struct {
	ID        TripID
	AccountID AccountID
	// LookupKey is empty for trips created without an upsert key.
	LookupKey LookupKey

	Origin      Coordinates
	Destination Coordinates

	PickupAddress      *string
	DestinationAddress *string

	// ScheduleDays holds canonical weekday names ("Monday".."Sunday"), without duplicates.
	ScheduleDays []string
	// ScheduleTime is a 24-hour "HH:mm" time of day.
	ScheduleTime *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
