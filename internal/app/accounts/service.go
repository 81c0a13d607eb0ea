package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/accountrepo"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/passwordhash"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/session"
)

// ViolationTooLong is reported when the hashing scheme rejects the password length.
const ViolationTooLong = "password must be at most 72 bytes long"

// Service orchestrates signup, login, logout and profile updates.
//
// Account state machine: Disconnected -> Connected (signup, login) -> Disconnected (logout).
type Service struct {
	creds  *CredentialStore
	issuer session.Issuer
	opts   Options
	logger *slog.Logger
}

func NewService(creds *CredentialStore, issuer session.Issuer, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{creds: creds, issuer: issuer, opts: opts, logger: logger}
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (AuthResult, error) {
	details := map[string]any{}
	if domain.NormalizeHumanName(in.LastName) == "" {
		details["lastName"] = "must be non-empty"
	}
	if err := validateEmail(domain.NormalizeEmail(in.Email)); err != nil {
		details["email"] = err.Error()
	}
	if in.Password == "" {
		details["password"] = "must be non-empty"
	}
	if in.IsDriver {
		validateVehicle(in.Vehicle, details)
	}
	if len(details) > 0 {
		return AuthResult{}, validationError("invalid signup request", details)
	}

	if violations := ValidatePassword(in.Password); len(violations) > 0 {
		return AuthResult{}, invalidPasswordError(violations)
	}

	nv := NewAccount{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		BirthDate:   in.BirthDate,
		Phone:       in.Phone,
		Email:       in.Email,
		Password:    in.Password,
		IsDriver:    in.IsDriver,
		IsPassenger: in.IsPassenger,
	}
	if in.IsDriver {
		nv.Vehicle = in.Vehicle
	}
	acc, vehicle, err := s.creds.CreateAccount(ctx, nv)
	if err != nil {
		switch {
		case errors.Is(err, accountrepo.ErrEmailTaken):
			return AuthResult{}, emailInUseError()
		case errors.Is(err, passwordhash.ErrPasswordTooLong):
			return AuthResult{}, invalidPasswordError([]string{ViolationTooLong})
		}
		return AuthResult{}, oops.Code("SIGNUP_FAILED").Wrap(err)
	}

	tok, err := s.issuer.Issue(ctx, acc.ID)
	if err != nil {
		return AuthResult{}, oops.Code("SIGNUP_FAILED").With("operation", "issue session token").Wrap(err)
	}
	return AuthResult{Token: tok, Account: acc, Vehicle: vehicle}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = domain.NormalizeEmail(email)
	details := map[string]any{}
	if err := validateEmail(email); err != nil {
		details["email"] = err.Error()
	}
	if password == "" {
		details["password"] = "must be non-empty"
	}
	if len(details) > 0 {
		return AuthResult{}, validationError("invalid login request", details)
	}

	acc, err := s.creds.Authenticate(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, accountrepo.ErrNotFound):
			if s.opts.RevealUnknownEmail {
				return AuthResult{}, emailNotFoundError()
			}
			return AuthResult{}, invalidCredentialsError()
		case errors.Is(err, ErrPasswordMismatch):
			return AuthResult{}, invalidCredentialsError()
		}
		return AuthResult{}, oops.Code("LOGIN_FAILED").Wrap(err)
	}

	if err := s.creds.UpdateConnectionState(ctx, email, true); err != nil {
		return AuthResult{}, oops.Code("LOGIN_FAILED").Wrap(err)
	}
	acc.Connected = true

	if s.creds.NeedsRehash(acc.PasswordHash) {
		if err := s.creds.Rehash(ctx, acc.ID, password); err != nil {
			s.logger.Warn("password rehash failed", "account_id", acc.ID, "error", err)
		}
	}

	tok, err := s.issuer.Issue(ctx, acc.ID)
	if err != nil {
		return AuthResult{}, oops.Code("LOGIN_FAILED").With("operation", "issue session token").Wrap(err)
	}
	return AuthResult{Token: tok, Account: acc}, nil
}

// Logout marks the account disconnected. Logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return &Error{
			Status:  400,
			Code:    CodeMissingField,
			Message: "email is required",
			Details: map[string]any{"email": "required"},
		}
	}
	if err := s.creds.UpdateConnectionState(ctx, email, false); err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) {
			return accountNotFoundError()
		}
		return oops.Code("LOGOUT_FAILED").Wrap(err)
	}
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, in UpdateProfileInput) (domain.Account, error) {
	details := map[string]any{}
	if strings.TrimSpace(string(in.AccountID)) == "" {
		details["id"] = "must be non-empty"
	}
	if domain.NormalizeHumanName(in.LastName) == "" {
		details["lastName"] = "must be non-empty"
	}
	if err := validateEmail(domain.NormalizeEmail(in.Email)); err != nil {
		details["email"] = err.Error()
	}
	if len(details) > 0 {
		return domain.Account{}, validationError("invalid profile update", details)
	}

	acc, err := s.creds.UpdateProfile(ctx, domain.AccountID(strings.TrimSpace(string(in.AccountID))), ProfileFields{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Email:     in.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, accountrepo.ErrNotFound):
			return domain.Account{}, accountNotFoundError()
		case errors.Is(err, accountrepo.ErrEmailTaken):
			return domain.Account{}, emailInUseError()
		}
		return domain.Account{}, oops.Code("PROFILE_UPDATE_FAILED").Wrap(err)
	}
	return acc, nil
}

func validateVehicle(v *VehicleInput, details map[string]any) {
	if v == nil {
		details["vehicle"] = "required for drivers"
		return
	}
	if v.Year < 0 {
		details["vehicle.year"] = "must be non-negative"
	}
	if v.FuelConsumption < 0 {
		details["vehicle.fuelConsumption"] = "must be non-negative"
	}
}
