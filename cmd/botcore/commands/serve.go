package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/cache"
	"github.com/sbvh/botcore/config"
	"github.com/sbvh/botcore/db"
	"github.com/sbvh/botcore/errors"
	"github.com/sbvh/botcore/groupsettings"
	"github.com/sbvh/botcore/logger"
	"github.com/sbvh/botcore/plugin"
	"github.com/sbvh/botcore/scheduler"
	"github.com/sbvh/botcore/version"
)

// ServeCmd runs the scheduler daemon in the foreground: it loads every
// enabled schedule from the database and ticks until interrupted.
//
// ServeCmd provides infrastructure only. A host application embedding this
// module registers its own plugin.Registration values against
// plugin.DefaultRegistry before this binary's main runs; botcore itself
// ships no domain plugins.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler daemon in the foreground",
	Long: `Run the scheduler daemon: load every enabled schedule, tick, fan
invocations out to registered plugins, and persist results.

Example:
  botcore serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		database, err := db.OpenWithMigrations(cfg.Database.Path, logger.Logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		registry := plugin.DefaultRegistry()
		if registry == nil {
			logger.Logger.Warnw("no plugin registry configured, serving with zero plugins")
			registry = plugin.NewRegistry(version.Version)
		}

		c := cache.NewFromConfig(cfg.Cache)
		settings := groupsettings.New(database, c)
		exec := scheduler.NewExecutor(registry, settingsBlockChecker{settings: settings}, logger.Logger)

		sched := scheduler.New(scheduler.NewStore(database), exec, unconfiguredTagResolver{}, nil, cfg.Scheduler, logger.Logger)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		fmt.Println("botcore scheduler started")
		fmt.Printf("  database: %s\n", cfg.Database.Path)
		fmt.Printf("  plugins: %d registered\n", len(registry.List()))
		fmt.Println("  press Ctrl+C for graceful shutdown")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		fmt.Println("shutting down...")
		sched.Stop()
		fmt.Println("botcore scheduler stopped")
		return nil
	},
}

// settingsBlockChecker adapts groupsettings.Service to scheduler.BlockChecker:
// a target is blocked when its effective per-group config for the plugin
// sets "enabled" to false. Only GROUP targets carry a group-settings
// override; every other target type is never blocked by this checker.
type settingsBlockChecker struct {
	settings *groupsettings.Service
}

func (b settingsBlockChecker) IsBlocked(ctx context.Context, pluginName, targetType, targetIdentifier string) (bool, error) {
	if targetType != string(scheduler.TargetGroup) {
		return false, nil
	}

	effective, err := b.settings.GetAllForPlugin(ctx, targetIdentifier, pluginName, map[string]any{"enabled": true})
	if err != nil {
		return false, errors.Wrapf(err, "check block status for group %s plugin %s", targetIdentifier, pluginName)
	}

	enabled, ok := effective["enabled"].(bool)
	if !ok {
		return false, nil
	}
	return !enabled, nil
}
