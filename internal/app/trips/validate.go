package trips

import (
	"fmt"
	"strings"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
)

type validatedFields struct {
	origin      domain.Coordinates
	destination domain.Coordinates

	pickupAddress      *string
	destinationAddress *string
	scheduleDays       []string
	scheduleTime       *string
}

// validateFields checks f and returns normalized values, or an error detail per field.
func validateFields(f TripFields) (validatedFields, map[string]any) {
	details := map[string]any{}
	var out validatedFields

	out.origin.Longitude = checkCoordinate(details, "long", f.Longitude, 180)
	out.origin.Latitude = checkCoordinate(details, "lat", f.Latitude, 90)
	out.destination.Longitude = checkCoordinate(details, "targetLong", f.TargetLongitude, 180)
	out.destination.Latitude = checkCoordinate(details, "targetLat", f.TargetLatitude, 90)

	out.pickupAddress = trimmedOrNil(f.PickupAddress)
	out.destinationAddress = trimmedOrNil(f.DestinationAddress)

	if f.ScheduleDays != nil {
		days, invalid := domain.NormalizeScheduleDays(f.ScheduleDays)
		if len(invalid) > 0 {
			details["scheduleDays"] = fmt.Sprintf("invalid weekday names: %s", strings.Join(invalid, ", "))
		}
		out.scheduleDays = days
	}
	if f.ScheduleTime != nil {
		st := strings.TrimSpace(*f.ScheduleTime)
		if !domain.ValidScheduleTime(st) {
			details["scheduleTime"] = "must be a 24-hour HH:mm time"
		}
		out.scheduleTime = &st
	}
	return out, details
}

func checkCoordinate(details map[string]any, field string, v *float64, limit float64) float64 {
	if v == nil {
		details[field] = "required"
		return 0
	}
	if *v < -limit || *v > limit {
		details[field] = fmt.Sprintf("must be between %g and %g", -limit, limit)
	}
	return *v
}

// trimmedOrNil trims a supplied address. A blank address is kept as supplied-but-empty.
func trimmedOrNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
