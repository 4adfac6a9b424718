package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/playerbank/internal/api"
	"github.com/fastprodman/playerbank/internal/infra/gameclock"
	"github.com/fastprodman/playerbank/internal/infra/logging"
	"github.com/fastprodman/playerbank/internal/infra/metrics"
	"github.com/fastprodman/playerbank/internal/infra/pgutils"
	"github.com/fastprodman/playerbank/internal/repos/snapshots"
	"github.com/fastprodman/playerbank/internal/repos/snapshots/memory"
	snapshotspg "github.com/fastprodman/playerbank/internal/repos/snapshots/postgres"
	"github.com/fastprodman/playerbank/internal/services/bank"
	"github.com/fastprodman/playerbank/internal/services/daily"
	"github.com/fastprodman/playerbank/internal/services/persist"
	"github.com/fastprodman/playerbank/pkg/envconf"
	"github.com/fastprodman/playerbank/pkg/shutdownqueue"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	queue := shutdownqueue.New()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := queue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	store, err := openStore(ctx, cfg, queue)
	if err != nil {
		return err
	}

	collector := metrics.New()
	clock := gameclock.New(cfg.Game)
	tracker := persist.NewTracker()

	// --- Domain ---
	bk := bank.New(cfg.Bank, clock, tracker, collector)

	saver := persist.NewSaver(store, tracker, collector)
	bk.RegisterPersistence(saver)

	loaded, err := saver.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	slog.Info("state loaded", "records", loaded, "day", clock.Day())

	// Runs after the server has stopped, so no command dirties state once
	// the last flush starts.
	queue.Add("final flush", func(c context.Context) error {
		return saver.Flush(c)
	})

	runner := daily.New(clock, collector)
	bk.RegisterDaily(runner)

	// --- HTTP server ---
	srv := api.NewServer(cfg.HTTP, api.NewRouter(bk, collector.Handler(), cfg.SigningSecret))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	})

	g.Go(func() error {
		return runner.Run(gctx, cfg.Game.PollEvery)
	})

	g.Go(func() error {
		return saver.Run(gctx, cfg.PersistInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shut down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	slog.Info("API started", "port", cfg.HTTP.Port, "store", cfg.Store, "day", clock.Day())

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func openStore(ctx context.Context, cfg *apiConfig, queue *shutdownqueue.Queue) (snapshots.Store, error) {
	switch cfg.Store {
	case storeMemory:
		slog.Warn("using in-memory snapshot store; state is lost on exit")
		return memory.New(), nil
	case storePostgres:
		db, err := pgutils.OpenDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}

		queue.Add("postgres", func(context.Context) error {
			return db.Close()
		})

		return snapshotspg.New(db), nil
	default:
		return nil, fmt.Errorf("init config: unknown PERSIST_STORE %q", cfg.Store)
	}
}
