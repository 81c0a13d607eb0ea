package accounts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Overland-East-Bay/carpool-api/internal/app/accounts"
	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/accountrepo"
)

type emptyHasher struct{ fakeHasher }

func (*emptyHasher) Hash(context.Context, string) (string, error) { return "", nil }

func TestCredentialStore_HashIsSaltedAndVerifies(t *testing.T) {
	t.Parallel()

	f := newFixture(t, accounts.Options{})
	ctx := context.Background()

	h1, err := f.creds.Hash(ctx, "Abcd1!23")
	if err != nil {
		t.Fatalf("Hash err=%v", err)
	}
	h2, _ := f.creds.Hash(ctx, "Abcd1!23")
	if h1 == h2 {
		t.Fatalf("expected distinct hashes, got %q twice", h1)
	}
	if ok, err := f.creds.Verify(ctx, "Abcd1!23", h2); err != nil || !ok {
		t.Fatalf("Verify(same)=%v err=%v", ok, err)
	}
	if ok, _ := f.creds.Verify(ctx, "Abcd1!24", h1); ok {
		t.Fatalf("Verify(other) should fail")
	}
}

func TestCredentialStore_CreateAccount_RejectsEmptyHash(t *testing.T) {
	t.Parallel()

	f := newFixture(t, accounts.Options{})
	creds := accounts.NewCredentialStore(f.accounts, f.vehicles, &emptyHasher{}, f.clk)

	_, _, err := creds.CreateAccount(context.Background(), accounts.NewAccount{LastName: "X", Email: "x@x.com", Password: "Abcd1!23"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, err := f.accounts.GetByEmail(context.Background(), "x@x.com"); !errors.Is(err, accountrepo.ErrNotFound) {
		t.Fatalf("account persisted with empty hash, err=%v", err)
	}
}

func TestCredentialStore_Authenticate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, accounts.Options{})
	ctx := context.Background()
	f.creds.SetNewAccountIDForTest(func() domain.AccountID { return "acc-1" })
	if _, _, err := f.creds.CreateAccount(ctx, accounts.NewAccount{LastName: "X", Email: "X@x.com", Password: "Abcd1!23"}); err != nil {
		t.Fatalf("CreateAccount err=%v", err)
	}

	acc, err := f.creds.Authenticate(ctx, "x@X.com", "Abcd1!23")
	if err != nil || acc.ID != "acc-1" {
		t.Fatalf("Authenticate id=%s err=%v", acc.ID, err)
	}
	if _, err := f.creds.Authenticate(ctx, "x@x.com", "nope"); !errors.Is(err, accounts.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if _, err := f.creds.Authenticate(ctx, "y@x.com", "Abcd1!23"); !errors.Is(err, accountrepo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
