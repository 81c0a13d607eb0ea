package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Overland-East-Bay/carpool-api/internal/adapters/httpapi"
	memaccountrepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/accountrepo"
	memidempotency "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/triprepo"
	memvehiclerepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/vehiclerepo"
	"github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres"
	pgaccountrepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/accountrepo"
	pgidempotency "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/idempotency"
	pgtriprepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/triprepo"
	pgvehiclerepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/vehiclerepo"
	"github.com/Overland-East-Bay/carpool-api/internal/app/accounts"
	"github.com/Overland-East-Bay/carpool-api/internal/app/trips"
	platformclock "github.com/Overland-East-Bay/carpool-api/internal/platform/clock"
	"github.com/Overland-East-Bay/carpool-api/internal/platform/config"
	"github.com/Overland-East-Bay/carpool-api/internal/platform/logging"
	"github.com/Overland-East-Bay/carpool-api/internal/platform/observability"
	"github.com/Overland-East-Bay/carpool-api/internal/platform/password"
	"github.com/Overland-East-Bay/carpool-api/internal/platform/session"
	accountrepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/accountrepo"
	idempotencyport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/idempotency"
	triprepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/triprepo"
	vehiclerepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/vehiclerepo"
)

const serviceName = "carpool-api"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			if err := cfg.Validate(); err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

type stores struct {
	accounts    accountrepoport.Repository
	vehicles    vehiclerepoport.Repository
	trips       triprepoport.Repository
	idempotency idempotencyport.Store
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, func(), error) {
	if cfg.Storage.Backend != config.StoragePostgres {
		return stores{
			accounts:    memaccountrepo.NewRepo(),
			vehicles:    memvehiclerepo.NewRepo(),
			trips:       memtriprepo.NewRepo(),
			idempotency: memidempotency.NewStore(),
		}, func() {}, nil
	}

	if cfg.Storage.AutoMigrate {
		if err := migrateUp(cfg.Storage.DatabaseURL, logger); err != nil {
			return stores{}, nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL, postgres.PoolOptions{Logger: logger})
	if err != nil {
		return stores{}, nil, err
	}
	logger.Info("connected to database")
	return stores{
		accounts:    pgaccountrepo.NewRepo(pool),
		vehicles:    pgvehiclerepo.NewRepo(pool),
		trips:       pgtriprepo.NewRepo(pool),
		idempotency: pgidempotency.NewStore(pool),
	}, pool.Close, nil
}

func runServe(ctx context.Context, cfg config.Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := logging.Setup(serviceName, cfg.Log.Format, level, os.Stderr)
	slog.SetDefault(logger)

	st, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	clk := platformclock.NewSystemClock()
	hasher, err := password.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger.Info("password hashing ready", "bcrypt_cost", hasher.Cost())
	issuer, err := session.NewJWTIssuer(cfg.Auth.JWTSecret, clk)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	creds := accounts.NewCredentialStore(st.accounts, st.vehicles, hasher, clk)
	accountsSvc := accounts.NewService(creds, issuer, accounts.Options{RevealUnknownEmail: cfg.Auth.RevealUnknownEmail}, logger)
	tripsSvc := trips.NewService(st.trips, clk, trips.Options{DedupByAccount: cfg.Trips.DedupByAccount})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	api := httpapi.NewServer(accountsSvc, tripsSvc, st.idempotency, logger)
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.NewRouter(api, httpapi.RouterOptions{
			Metrics:     metrics,
			CORSOrigins: cfg.HTTP.CORSOrigins,
		}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", "addr", srv.Addr, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("HTTP_LISTEN_FAILED").Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logging.LogError(ctx, logger, "server stopped with error", err)
		return err
	}
	return nil
}
