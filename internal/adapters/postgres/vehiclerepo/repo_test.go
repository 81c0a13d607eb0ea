package vehiclerepo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/vehiclerepo"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestCreateAndGet(t *testing.T) {
	mock := newMock(t)
	repo := NewRepo(mock)
	id := uuid.New()
	now := time.Unix(100, 0).UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicles")).
		WithArgs(id, "Clio", 2019, 5.4, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Create(context.Background(), vehiclerepo.Vehicle{
		ID: domain.VehicleID(id.String()), Model: "Clio", Year: 2019, FuelConsumption: 5.4, CreatedAt: now,
	}))

	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"model", "year", "fuel_consumption", "created_at"}).
			AddRow("Clio", 2019, 5.4, now))
	got, err := repo.GetByID(context.Background(), domain.VehicleID(id.String()))
	require.NoError(t, err)
	assert.Equal(t, "Clio", got.Model)
	assert.Equal(t, 2019, got.Year)
	assert.InDelta(t, 5.4, got.FuelConsumption, 1e-9)
}

func TestCreate_DuplicateID(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicles")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "vehicles_pkey"})

	err := NewRepo(mock).Create(context.Background(), vehiclerepo.Vehicle{ID: domain.VehicleID(uuid.NewString())})
	assert.ErrorIs(t, err, vehiclerepo.ErrAlreadyExists)
}

func TestDelete(t *testing.T) {
	mock := newMock(t)
	repo := NewRepo(mock)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM vehicles")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(context.Background(), domain.VehicleID(id.String())))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM vehicles")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), domain.VehicleID(id.String())), vehiclerepo.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(context.Background(), "bogus"), vehiclerepo.ErrNotFound)
}

func TestGetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"model", "year", "fuel_consumption", "created_at"}))

	_, err := NewRepo(mock).GetByID(context.Background(), domain.VehicleID(uuid.NewString()))
	assert.ErrorIs(t, err, vehiclerepo.ErrNotFound)
}
