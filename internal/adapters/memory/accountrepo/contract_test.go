package accountrepo

import (
	"testing"

	"github.com/Overland-East-Bay/carpool-api/internal/adapters/contracttest"
	memvehiclerepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/vehiclerepo"
	accountrepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/accountrepo"
	vehiclerepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/vehiclerepo"
)

func TestContract_AccountRepo(t *testing.T) {
	contracttest.RunAccountRepo(t,
		func(t *testing.T) (accountrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
		func(t *testing.T) (vehiclerepoport.Repository, func()) {
			t.Helper()
			return memvehiclerepo.NewRepo(), nil
		},
	)
}

func TestContract_AccountRepoConcurrentCreate(t *testing.T) {
	contracttest.RunAccountRepoConcurrentCreate(t, func(t *testing.T) (accountrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
