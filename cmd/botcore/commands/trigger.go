package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/logger"
	"github.com/sbvh/botcore/plugin"
	"github.com/sbvh/botcore/scheduler"
	"github.com/sbvh/botcore/version"
)

// TriggerCmd runs a schedule's execution immediately, bypassing its
// is_enabled=false skip.
var TriggerCmd = &cobra.Command{
	Use:   "trigger <id>",
	Short: "Run a schedule immediately, even if it is disabled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		cfg, database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		registry := plugin.DefaultRegistry()
		if registry == nil {
			registry = plugin.NewRegistry(version.Version)
		}
		exec := scheduler.NewExecutor(registry, nil, logger.Logger)
		sched := scheduler.New(scheduler.NewStore(database), exec, unconfiguredTagResolver{}, nil, cfg.Scheduler, logger.Logger)

		if err := sched.TriggerNow(context.Background(), id); err != nil {
			return fmt.Errorf("trigger failed: %w", err)
		}
		fmt.Printf("schedule %d triggered\n", id)
		return nil
	},
}

// unconfiguredTagResolver reports a clear error for TAG and ALL_GROUPS
// targets when the CLI is run standalone, without a host application's
// group store wired in.
type unconfiguredTagResolver struct{}

func (unconfiguredTagResolver) Resolve(_ context.Context, name, _ string) ([]string, error) {
	return nil, fmt.Errorf("no tag resolver configured: cannot resolve tag %q outside a host application", name)
}
