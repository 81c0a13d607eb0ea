package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/accountrepo"
	clockport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/passwordhash"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/vehiclerepo"
)

// ErrPasswordMismatch is returned by Authenticate when the password does not verify.
var ErrPasswordMismatch = errors.New("password mismatch")

// dummyPassword is hashed once per store so that logins for unknown emails still pay
// for one full verification.
const dummyPassword = "carpool-unknown-account"

// CredentialStore owns password hashing and the account/vehicle records.
type CredentialStore struct {
	accounts accountrepo.Repository
	vehicles vehiclerepo.Repository
	hasher   passwordhash.Hasher
	clk      clockport.Clock

	newAccountID func() domain.AccountID
	newVehicleID func() domain.VehicleID

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialStore(accounts accountrepo.Repository, vehicles vehiclerepo.Repository, hasher passwordhash.Hasher, clk clockport.Clock) *CredentialStore {
	return &CredentialStore{
		accounts: accounts,
		vehicles: vehicles,
		hasher:   hasher,
		clk:      clk,
		newAccountID: func() domain.AccountID {
			return domain.AccountID(uuid.NewString())
		},
		newVehicleID: func() domain.VehicleID {
			return domain.VehicleID(uuid.NewString())
		},
	}
}

// SetNewAccountIDForTest overrides account ID generation (tests only).
func (c *CredentialStore) SetNewAccountIDForTest(fn func() domain.AccountID) {
	if fn != nil {
		c.newAccountID = fn
	}
}

func (c *CredentialStore) Hash(ctx context.Context, plaintext string) (string, error) {
	return c.hasher.Hash(ctx, plaintext)
}

func (c *CredentialStore) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	return c.hasher.Verify(ctx, plaintext, hash)
}

// CreateAccount persists a new connected account, plus its vehicle for drivers.
//
// It fails with accountrepo.ErrEmailTaken when the case-folded email is already held.
// The pre-check only avoids a wasted hash; the repository enforces uniqueness.
func (c *CredentialStore) CreateAccount(ctx context.Context, in NewAccount) (domain.Account, *domain.Vehicle, error) {
	email := domain.NormalizeEmail(in.Email)
	if _, err := c.accounts.GetByEmail(ctx, email); err == nil {
		return domain.Account{}, nil, accountrepo.ErrEmailTaken
	} else if !errors.Is(err, accountrepo.ErrNotFound) {
		return domain.Account{}, nil, oops.Code("ACCOUNT_LOOKUP_FAILED").With("operation", "get account by email").Wrap(err)
	}

	hash, err := c.hasher.Hash(ctx, in.Password)
	if err != nil {
		return domain.Account{}, nil, err
	}
	if hash == "" {
		return domain.Account{}, nil, oops.Code("PASSWORD_HASH_EMPTY").Errorf("hasher returned an empty hash")
	}

	now := c.clk.Now()
	var vehicle *domain.Vehicle
	if in.IsDriver && in.Vehicle != nil {
		v := vehiclerepo.Vehicle{
			ID:              c.newVehicleID(),
			Model:           strings.TrimSpace(in.Vehicle.Model),
			Year:            in.Vehicle.Year,
			FuelConsumption: in.Vehicle.FuelConsumption,
			CreatedAt:       now,
		}
		if err := c.vehicles.Create(ctx, v); err != nil {
			return domain.Account{}, nil, oops.Code("VEHICLE_CREATE_FAILED").With("operation", "create vehicle").Wrap(err)
		}
		dv := vehicleToDomain(v)
		vehicle = &dv
	}

	rec := accountrepo.Account{
		ID:           c.newAccountID(),
		FirstName:    domain.NormalizeHumanName(in.FirstName),
		LastName:     domain.NormalizeHumanName(in.LastName),
		BirthDate:    in.BirthDate,
		Phone:        strings.TrimSpace(in.Phone),
		Email:        email,
		PasswordHash: hash,
		IsDriver:     in.IsDriver,
		IsPassenger:  in.IsPassenger,
		Connected:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if vehicle != nil {
		id := vehicle.ID
		rec.VehicleID = &id
	}
	if err := c.accounts.Create(ctx, rec); err != nil {
		if vehicle != nil {
			// Best effort: the vehicle is not referenced by anything yet.
			_ = c.vehicles.Delete(ctx, vehicle.ID)
		}
		if errors.Is(err, accountrepo.ErrEmailTaken) {
			return domain.Account{}, nil, err
		}
		return domain.Account{}, nil, oops.Code("ACCOUNT_CREATE_FAILED").With("operation", "create account").Wrap(err)
	}
	return toDomain(rec), vehicle, nil
}

func (c *CredentialStore) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	a, err := c.accounts.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) {
			return domain.Account{}, err
		}
		return domain.Account{}, oops.Code("ACCOUNT_LOOKUP_FAILED").With("operation", "get account by email").Wrap(err)
	}
	return toDomain(a), nil
}

// Authenticate resolves email and verifies password against the stored hash.
// An unknown email still costs one verification against a dummy hash.
// Failures are accountrepo.ErrNotFound or ErrPasswordMismatch.
func (c *CredentialStore) Authenticate(ctx context.Context, email, password string) (domain.Account, error) {
	acc, lookupErr := c.FindByEmail(ctx, email)
	if lookupErr != nil && !errors.Is(lookupErr, accountrepo.ErrNotFound) {
		return domain.Account{}, lookupErr
	}

	target := acc.PasswordHash
	if lookupErr != nil {
		target = c.dummy(ctx)
	}
	ok, verifyErr := c.hasher.Verify(ctx, password, target)
	if lookupErr != nil {
		return domain.Account{}, lookupErr
	}
	if verifyErr != nil {
		return domain.Account{}, oops.Code("PASSWORD_VERIFY_FAILED").With("account_id", acc.ID).Wrap(verifyErr)
	}
	if !ok {
		return domain.Account{}, ErrPasswordMismatch
	}
	return acc, nil
}

// NeedsRehash reports whether hash was produced with outdated hashing parameters.
func (c *CredentialStore) NeedsRehash(hash string) bool {
	return c.hasher.NeedsRehash(hash)
}

// Rehash stores a fresh hash of password for the account.
func (c *CredentialStore) Rehash(ctx context.Context, id domain.AccountID, password string) error {
	hash, err := c.hasher.Hash(ctx, password)
	if err != nil {
		return err
	}
	return c.accounts.UpdatePasswordHash(ctx, id, hash, c.clk.Now())
}

func (c *CredentialStore) UpdateConnectionState(ctx context.Context, email string, connected bool) error {
	err := c.accounts.SetConnected(ctx, domain.NormalizeEmail(email), connected, c.clk.Now())
	if err != nil && !errors.Is(err, accountrepo.ErrNotFound) {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "set connected").With("connected", connected).Wrap(err)
	}
	return err
}

// UpdateProfile overwrites the profile fields with f. Absent values are stored as given.
func (c *CredentialStore) UpdateProfile(ctx context.Context, id domain.AccountID, f ProfileFields) (domain.Account, error) {
	a, err := c.accounts.UpdateProfile(ctx, id, accountrepo.ProfileUpdate{
		FirstName: domain.NormalizeHumanName(f.FirstName),
		LastName:  domain.NormalizeHumanName(f.LastName),
		Phone:     strings.TrimSpace(f.Phone),
		Email:     domain.NormalizeEmail(f.Email),
		UpdatedAt: c.clk.Now(),
	})
	if err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) || errors.Is(err, accountrepo.ErrEmailTaken) {
			return domain.Account{}, err
		}
		return domain.Account{}, oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "update profile").With("account_id", id).Wrap(err)
	}
	return toDomain(a), nil
}

func (c *CredentialStore) dummy(ctx context.Context) string {
	c.dummyOnce.Do(func() {
		h, err := c.hasher.Hash(context.WithoutCancel(ctx), dummyPassword)
		if err == nil {
			c.dummyHash = h
		}
	})
	return c.dummyHash
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return errors.New("must be a valid email address")
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func toDomain(a accountrepo.Account) domain.Account {
	out := domain.Account{
		ID:           a.ID,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Phone:        a.Phone,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		IsDriver:     a.IsDriver,
		IsPassenger:  a.IsPassenger,
		Connected:    a.Connected,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.BirthDate != nil {
		v := *a.BirthDate
		out.BirthDate = &v
	}
	if a.VehicleID != nil {
		v := *a.VehicleID
		out.VehicleID = &v
	}
	return out
}

func vehicleToDomain(v vehiclerepo.Vehicle) domain.Vehicle {
	return domain.Vehicle{
		ID:              v.ID,
		Model:           v.Model,
		Year:            v.Year,
		FuelConsumption: v.FuelConsumption,
		CreatedAt:       v.CreatedAt,
	}
}
