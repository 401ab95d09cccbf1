package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/pathworklabs/pathwork/internal/account"
	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	"github.com/pathworklabs/pathwork/internal/clock"
	"github.com/pathworklabs/pathwork/internal/config"
	"github.com/pathworklabs/pathwork/internal/ledger"
	"github.com/pathworklabs/pathwork/internal/migration"
	"github.com/pathworklabs/pathwork/internal/observability"
	"github.com/pathworklabs/pathwork/internal/orchestrator"
	"github.com/pathworklabs/pathwork/internal/pricing"
	"github.com/pathworklabs/pathwork/internal/redis"
	"github.com/pathworklabs/pathwork/internal/runner"
	runnerservice "github.com/pathworklabs/pathwork/internal/runner/service"
	"github.com/pathworklabs/pathwork/internal/scheduler"
	"github.com/pathworklabs/pathwork/internal/seed"
	"github.com/pathworklabs/pathwork/internal/server"
	"github.com/pathworklabs/pathwork/internal/wallet"
	"github.com/pathworklabs/pathwork/pkg/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "pathwork",
		Short:   "Pathwork CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newWorkerCmd(), newSchedulerCmd(), newSeedCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the async job worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			runWorker()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run background maintenance jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed a demo tenant and accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start API server, worker and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

// domainModules is the wiring every runtime process shares.
func domainModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		wallet.Module,
		ledger.Module,
		account.Module,
		pricing.Module,
		runner.Module,
		orchestrator.Module,
	)
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		domainModules(),
		server.Module,
	)
	app.Run()
}

func runWorker() {
	app := fx.New(
		domainModules(),
		fx.Invoke(startWorker),
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		domainModules(),
		scheduler.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runSeed() error {
	app := fx.New(
		domainModules(),
		fx.Invoke(func(accounts accountdomain.Service, log *zap.Logger) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			return seed.Run(ctx, accounts, log)
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runMonolith() {
	app := fx.New(
		domainModules(),
		server.Module,
		scheduler.Module,
		fx.Invoke(startWorker),
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}

func startWorker(lc fx.Lifecycle, r *runnerservice.Runner) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go r.Work(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
