package accountrepo

import (
	"testing"

	"github.com/Overland-East-Bay/carpool-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/testutil"
	"github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/vehiclerepo"
	accountrepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/accountrepo"
	vehiclerepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/vehiclerepo"
)

func TestContract_PostgresAccountRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunAccountRepo(t,
		func(t *testing.T) (accountrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(pool), nil
		},
		func(t *testing.T) (vehiclerepoport.Repository, func()) {
			t.Helper()
			return vehiclerepo.NewRepo(pool), nil
		},
	)
}

func TestContract_PostgresAccountRepoConcurrentCreate(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunAccountRepoConcurrentCreate(t, func(t *testing.T) (accountrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
