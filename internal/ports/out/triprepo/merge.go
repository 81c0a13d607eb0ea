package triprepo

// Merge applies the update half of the upsert rules: it returns existing with
// the mutable fields of in laid over it. The result shares no memory with in.
func Merge(existing, in Trip) Trip {
	out := existing
	out.Origin = in.Origin
	out.Destination = in.Destination
	if in.AccountID != "" {
		out.AccountID = in.AccountID
	}
	if in.PickupAddress != nil {
		v := *in.PickupAddress
		out.PickupAddress = &v
	}
	if in.DestinationAddress != nil {
		v := *in.DestinationAddress
		out.DestinationAddress = &v
	}
	if in.ScheduleDays != nil {
		out.ScheduleDays = append([]string{}, in.ScheduleDays...)
	}
	if in.ScheduleTime != nil {
		v := *in.ScheduleTime
		out.ScheduleTime = &v
	}
	out.UpdatedAt = in.UpdatedAt
	return out
}
