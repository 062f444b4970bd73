package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	amqpevents "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/amqp/events"
	boltidempotency "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/bolt/idempotency"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/httpapi"
	memexpenserepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/expenserepo"
	memidempotency "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/idempotency"
	meminviterepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/inviterepo"
	memmemberrepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/memberrepo"
	memtriprepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/triprepo"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres"
	pgexpenserepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/expenserepo"
	pgidempotency "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/idempotency"
	pginviterepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/inviterepo"
	pgmemberrepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/memberrepo"
	pgtriprepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/triprepo"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/expenses"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/members"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/trips"
	platformclock "github.com/Overland-East-Bay/trip-wallet-api/internal/platform/clock"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/config"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/logging"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/triplock"
	eventsport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/events"
	expenserepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/expenserepo"
	idempotencyport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/idempotency"
	inviterepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/inviterepo"
	memberrepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/memberrepo"
	triprepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/triprepo"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

type repositories struct {
	trips    triprepoport.Repository
	members  memberrepoport.Repository
	invites  inviterepoport.Repository
	expenses expenserepoport.Repository
	idem     idempotencyport.Store
	fence    triplock.Fence
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("close", logging.FieldError, err)
			}
		}
	}()

	var repos repositories
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		if cfg.DBMigrate {
			if err := postgres.Migrate(ctx, cfg.DatabaseURL, log); err != nil {
				return err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		repos = repositories{
			trips:    pgtriprepo.NewRepo(pool),
			members:  pgmemberrepo.NewRepo(pool),
			invites:  pginviterepo.NewRepo(pool),
			expenses: pgexpenserepo.NewRepo(pool),
			idem:     pgidempotency.NewStore(pool),
			fence:    postgres.NewTripFence(pool),
		}
	default:
		repos = repositories{
			trips:    memtriprepo.NewRepo(),
			members:  memmemberrepo.NewRepo(),
			invites:  meminviterepo.NewRepo(),
			expenses: memexpenserepo.NewRepo(),
			idem:     memidempotency.NewStore(),
		}
	}

	if cfg.IdempotencyBackend == config.IdempotencyBolt {
		store, err := boltidempotency.Open(cfg.BoltPath)
		if err != nil {
			return err
		}
		closers = append(closers, store)
		repos.idem = store
	}

	var publisher eventsport.Publisher = eventsport.Nop{}
	if cfg.EventsBackend == config.EventsAMQP {
		p, err := amqpevents.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		closers = append(closers, p)
		publisher = p
	}

	clk := platformclock.NewSystemClock()
	var lockOpts []triplock.Option
	if repos.fence != nil {
		lockOpts = append(lockOpts, triplock.WithFence(repos.fence))
	}
	locks := triplock.NewRegistry(lockOpts...)
	registry := members.NewService(repos.trips, repos.members)
	tripSvc := trips.NewService(repos.trips, repos.members, repos.invites, registry, locks, clk, log)
	expenseSvc := expenses.NewService(expenses.Deps{
		Expenses:               repos.expenses,
		Members:                registry,
		Locks:                  locks,
		Clock:                  clk,
		Events:                 publisher,
		Logger:                 log,
		PinDefaultParticipants: cfg.PinDefaultParticipants,
	})

	authMW := httpapi.NewHeaderAuthMiddleware(cfg.AuthHeader)
	if cfg.AuthMode == config.AuthDev {
		log.Warn("dev auth enabled; callers may act as any user via " + httpapi.DebugSubjectHeader)
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	}

	api := httpapi.NewServer(tripSvc, expenseSvc, repos.idem, clk, log)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		IdentityHeader: cfg.AuthHeader,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         log,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening",
			"addr", srv.Addr,
			"storage", cfg.StorageBackend,
			"idempotency", cfg.IdempotencyBackend,
			"events", cfg.EventsBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
