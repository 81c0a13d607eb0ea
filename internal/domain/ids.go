package domain

// AccountID is an internal identifier for an account record.
type AccountID string

// VehicleID is an internal identifier for a vehicle record.
type VehicleID string

// TripID is an internal identifier for a trip record.
type TripID string

// LookupKey is the caller-supplied correlation key used to upsert a trip.
// It is not guaranteed to equal the owning account's identifier.
type LookupKey string
