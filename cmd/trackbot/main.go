package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/diogoviieira/register-track-bot/internal/backend"
	"github.com/diogoviieira/register-track-bot/internal/cache"
	"github.com/diogoviieira/register-track-bot/internal/cli"
	"github.com/diogoviieira/register-track-bot/internal/config"
	"github.com/diogoviieira/register-track-bot/internal/conversation"
	"github.com/diogoviieira/register-track-bot/internal/core"
	"github.com/diogoviieira/register-track-bot/internal/gateway"
	"github.com/diogoviieira/register-track-bot/internal/log"
	"github.com/diogoviieira/register-track-bot/internal/middleware/ratelimit"
	"github.com/diogoviieira/register-track-bot/internal/services"
)

const usage = `usage: trackbot [command]

commands:
  serve           run the chat gateway (default)
  owners          list owners with their entry counts
  purge <owner>   delete every entry of one owner
  backfill <year> copy the entries of one year into the sheet mirror
`

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.MustConfig(logger)

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(logger, cfg)
	case "owners":
		err = withStore(logger, cfg, listOwners)
	case "purge":
		if len(os.Args) != 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = withStore(logger, cfg, func(ctx context.Context, store backend.Store) error {
			return purgeOwner(ctx, store, os.Args[2])
		})
	case "backfill":
		year := 0
		if len(os.Args) == 3 {
			year, _ = strconv.Atoi(os.Args[2])
		}
		if year < 1 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = backfill(logger, cfg, year)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("trackbot failed", "command", cmd, log.FieldError, err)
		os.Exit(1)
	}
}

func serve(logger *log.Logger, cfg *config.Config) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	catalog, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}

	sessions := conversation.NewSessions(cfg.SessionIdleTimeout, cfg.MaxSessions, logger)
	engine := conversation.NewEngine(conversation.Config{
		Store:      res.Store,
		Catalog:    catalog,
		Limits:     cfg.Limits(),
		DateLayout: cfg.DateLayout,
		Clock:      core.Clock{Location: cfg.Location()},
		Sessions:   sessions,
		Logger:     logger,
	})
	dispatcher := conversation.NewDispatcher(engine)

	caches := cache.NewManager()
	caches.Register(sessions.Cleaner())
	caches.StartCleanup(cfg.SessionCleanupInterval)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})

	gcfg := gateway.DefaultConfig()
	gcfg.DateLayout = cfg.DateLayout
	gcfg.TrustedProxies = cfg.TrustedProxies
	srv := gateway.NewServer(gcfg, dispatcher, sessions, limiter, logger)

	logger.Info("Starting trackbot",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", cfg.AMQPURL != "",
		"timezone", cfg.Location().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		return cli.RunCleanup(logger, 30*time.Second,
			srv.Shutdown,
			dispatcher.Close,
			func(context.Context) error { caches.Stop(); limiter.Stop(); return nil },
			func(context.Context) error { return res.Cleanup() },
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func withStore(logger *log.Logger, cfg *config.Config, fn func(context.Context, backend.Store) error) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	// maintenance changes are not mirrored
	bcfg.AMQPURL = ""
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	return fn(ctx, res.Store)
}

func listOwners(ctx context.Context, store backend.Store) error {
	owners, err := store.Owners(ctx)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		fmt.Println("no owners")
		return nil
	}
	fmt.Printf("%-24s %8s %8s\n", "OWNER", "EXPENSES", "INCOMES")
	for _, o := range owners {
		fmt.Printf("%-24s %8d %8d\n", o.Owner, o.Expenses, o.Incomes)
	}
	return nil
}

func purgeOwner(ctx context.Context, store backend.Store, owner string) error {
	stats, err := store.PurgeOwner(ctx, owner)
	if err != nil {
		return err
	}
	fmt.Printf("purged %s: %d expenses, %d incomes\n", stats.Owner, stats.Expenses, stats.Incomes)
	return nil
}

func backfill(logger *log.Logger, cfg *config.Config, year int) error {
	return withStore(logger, cfg, func(ctx context.Context, store backend.Store) error {
		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return err
		}
		mirror, err := backend.NewFactory(logger).CreateMirror(ctx, bcfg)
		if err != nil {
			return err
		}
		stats, err := services.NewBackfill(store, mirror).Run(ctx, core.YearPeriod(year))
		fmt.Printf("backfill %d: %d owners, %d rows mirrored, %d failed\n", year, stats.Owners, stats.Mirrored, stats.Failed)
		return err
	})
}
