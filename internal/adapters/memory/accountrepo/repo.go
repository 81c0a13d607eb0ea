package accountrepo

import (
	"context"
	"sync"
	"time"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/accountrepo"
)

// Repo is an in-memory implementation of accountrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID      map[domain.AccountID]accountrepo.Account
	idByEmail map[string]domain.AccountID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.AccountID]accountrepo.Account),
		idByEmail: make(map[string]domain.AccountID),
	}
}

func (r *Repo) Create(ctx context.Context, a accountrepo.Account) error {
	_ = ctx
	if a.ID == "" {
		return accountrepo.ErrAlreadyExists // treat empty ID as invalid
	}
	if a.PasswordHash == "" {
		return accountrepo.ErrEmptyPasswordHash
	}
	email := domain.NormalizeEmail(a.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; ok {
		return accountrepo.ErrAlreadyExists
	}
	if _, ok := r.idByEmail[email]; ok {
		return accountrepo.ErrEmailTaken
	}

	a.Email = email
	r.byID[a.ID] = cloneAccount(a)
	r.idByEmail[email] = a.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.AccountID) (accountrepo.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return accountrepo.Account{}, accountrepo.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (accountrepo.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.lookupEmailLocked(email)
	if !ok {
		return accountrepo.Account{}, accountrepo.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *Repo) SetConnected(ctx context.Context, email string, connected bool, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.lookupEmailLocked(email)
	if !ok {
		return accountrepo.ErrNotFound
	}
	a.Connected = connected
	a.UpdatedAt = at
	r.byID[a.ID] = a
	return nil
}

func (r *Repo) UpdateProfile(ctx context.Context, id domain.AccountID, p accountrepo.ProfileUpdate) (accountrepo.Account, error) {
	_ = ctx
	email := domain.NormalizeEmail(p.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return accountrepo.Account{}, accountrepo.ErrNotFound
	}
	if holder, ok := r.idByEmail[email]; ok && holder != id {
		return accountrepo.Account{}, accountrepo.ErrEmailTaken
	}

	delete(r.idByEmail, a.Email)
	a.FirstName = p.FirstName
	a.LastName = p.LastName
	a.Phone = p.Phone
	a.Email = email
	a.UpdatedAt = p.UpdatedAt
	r.byID[id] = a
	r.idByEmail[email] = id
	return cloneAccount(a), nil
}

func (r *Repo) UpdatePasswordHash(ctx context.Context, id domain.AccountID, hash string, at time.Time) error {
	_ = ctx
	if hash == "" {
		return accountrepo.ErrEmptyPasswordHash
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return accountrepo.ErrNotFound
	}
	a.PasswordHash = hash
	a.UpdatedAt = at
	r.byID[id] = a
	return nil
}

func (r *Repo) lookupEmailLocked(email string) (accountrepo.Account, bool) {
	id, ok := r.idByEmail[domain.NormalizeEmail(email)]
	if !ok {
		return accountrepo.Account{}, false
	}
	a, ok := r.byID[id]
	return a, ok
}

func cloneAccount(a accountrepo.Account) accountrepo.Account {
	out := a
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
