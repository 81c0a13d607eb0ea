package httpapi

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/carpool-api/internal/app/accounts"
	"github.com/Overland-East-Bay/carpool-api/internal/app/trips"
	"github.com/Overland-East-Bay/carpool-api/internal/domain"
)

// Wire field names follow the mobile client's existing (French) contract.

type signupRequest struct {
	Nom           string              `json:"nom"`
	Prenom        string              `json:"prenom"`
	DateNaissance *openapi_types.Date `json:"dateNaissance,omitempty"`
	Telephone     string              `json:"telephone"`
	Email         string              `json:"email"`
	Mdp           string              `json:"mdp"`
	Conducteur    bool                `json:"conducteur"`
	Passager      bool                `json:"passager"`

	ModeleVoiture       string  `json:"modeleVoiture"`
	AnneeVoiture        int     `json:"anneeVoiture"`
	ConsommationVoiture float64 `json:"consommationVoiture"`
}

func (b signupRequest) toInput() accounts.SignupInput {
	in := accounts.SignupInput{
		FirstName:   b.Prenom,
		LastName:    b.Nom,
		Phone:       b.Telephone,
		Email:       b.Email,
		Password:    b.Mdp,
		IsDriver:    b.Conducteur,
		IsPassenger: b.Passager,
	}
	if b.DateNaissance != nil {
		d := b.DateNaissance.Time
		in.BirthDate = &d
	}
	if b.Conducteur {
		in.Vehicle = &accounts.VehicleInput{
			Model:           b.ModeleVoiture,
			Year:            b.AnneeVoiture,
			FuelConsumption: b.ConsommationVoiture,
		}
	}
	return in
}

type loginRequest struct {
	Email string `json:"email"`
	Mdp   string `json:"mdp"`
}

type logoutRequest struct {
	Email string `json:"email"`
}

type updateUserInfosRequest struct {
	ID        string `json:"id"`
	Prenom    string `json:"prenom"`
	Nom       string `json:"nom"`
	Telephone string `json:"telephone"`
	Email     string `json:"email"`
}

type vehicleDTO struct {
	ID                  string  `json:"id"`
	ModeleVoiture       string  `json:"modeleVoiture"`
	AnneeVoiture        int     `json:"anneeVoiture"`
	ConsommationVoiture float64 `json:"consommationVoiture"`
}

type signupUserDTO struct {
	ID      string      `json:"id"`
	Nom     string      `json:"nom"`
	Prenom  string      `json:"prenom"`
	Email   string      `json:"email"`
	Voiture *vehicleDTO `json:"voiture,omitempty"`
}

type signupResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      signupUserDTO `json:"user"`
}

type loginUserDTO struct {
	ID          string `json:"id"`
	Nom         string `json:"nom"`
	Prenom      string `json:"prenom"`
	Telephone   string `json:"telephone"`
	Email       string `json:"email"`
	EstConnecte bool   `json:"estConnecte"`
}

type loginResponse struct {
	Token       string       `json:"token"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	Utilisateur loginUserDTO `json:"utilisateur"`
}

type messageResponse struct {
	Msg string `json:"msg"`
}

// tripFieldsRequest leaves absent members nil so validation can tell "missing" from zero.
type tripFieldsRequest struct {
	Long               *float64 `json:"long"`
	Lat                *float64 `json:"lat"`
	TargetLong         *float64 `json:"targetLong"`
	TargetLat          *float64 `json:"targetLat"`
	PickupAddress      *string  `json:"pickupAddress,omitempty"`
	DestinationAddress *string  `json:"destinationAddress,omitempty"`
	ScheduleDays       []string `json:"scheduleDays"`
	ScheduleTime       *string  `json:"scheduleTime,omitempty"`
}

func (b tripFieldsRequest) toFields() trips.TripFields {
	return trips.TripFields{
		Longitude:          b.Long,
		Latitude:           b.Lat,
		TargetLongitude:    b.TargetLong,
		TargetLatitude:     b.TargetLat,
		PickupAddress:      b.PickupAddress,
		DestinationAddress: b.DestinationAddress,
		ScheduleDays:       b.ScheduleDays,
		ScheduleTime:       b.ScheduleTime,
	}
}

// upsertTripRequest: ID is the lookup key, not a trip or account identifier.
type upsertTripRequest struct {
	ID     string `json:"id"`
	UserID string `json:"userId,omitempty"`
	tripFieldsRequest
}

type createTripRequest struct {
	UserID string `json:"userId"`
	tripFieldsRequest
}

type tripDTO struct {
	ID                 string    `json:"_id"`
	LookupKey          string    `json:"id,omitempty"`
	UserID             string    `json:"userId,omitempty"`
	Long               float64   `json:"long"`
	Lat                float64   `json:"lat"`
	TargetLong         float64   `json:"targetLong"`
	TargetLat          float64   `json:"targetLat"`
	PickupAddress      *string   `json:"pickupAddress,omitempty"`
	DestinationAddress *string   `json:"destinationAddress,omitempty"`
	ScheduleDays       []string  `json:"scheduleDays"`
	ScheduleTime       *string   `json:"scheduleTime,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type upsertTripResponse struct {
	Trajet tripDTO `json:"trajet"`
}

type createTripResponse struct {
	Message string  `json:"message"`
	Trajet  tripDTO `json:"trajet"`
}

func toTripDTO(t domain.Trip) tripDTO {
	days := t.ScheduleDays
	if days == nil {
		days = []string{}
	}
	return tripDTO{
		ID:                 string(t.ID),
		LookupKey:          string(t.LookupKey),
		UserID:             string(t.AccountID),
		Long:               t.Origin.Longitude,
		Lat:                t.Origin.Latitude,
		TargetLong:         t.Destination.Longitude,
		TargetLat:          t.Destination.Latitude,
		PickupAddress:      t.PickupAddress,
		DestinationAddress: t.DestinationAddress,
		ScheduleDays:       days,
		ScheduleTime:       t.ScheduleTime,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func toVehicleDTO(v *domain.Vehicle) *vehicleDTO {
	if v == nil {
		return nil
	}
	return &vehicleDTO{
		ID:                  string(v.ID),
		ModeleVoiture:       v.Model,
		AnneeVoiture:        v.Year,
		ConsommationVoiture: v.FuelConsumption,
	}
}
