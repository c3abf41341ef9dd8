package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/config"
	"github.com/sbvh/botcore/logger"
	"github.com/sbvh/botcore/scheduler"
)

// SetCmd creates or upserts a scheduled job, the imperative job source.
var SetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update a scheduled job for a plugin and target",
	Long: `Create a scheduled job, or update one already matching the same
plugin, target, and bot.

Examples:
  botcore set -p digest -g g1 --cron "0 9 * * *"
  botcore set -p digest --all --interval 3600 --kwargs "verbose=true"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		job, err := buildJob(cmd, cfg)
		if err != nil {
			return err
		}

		sched := scheduler.New(scheduler.NewStore(database), nil, nil, nil, cfg.Scheduler, logger.Logger)
		saved, err := sched.AddSchedule(context.Background(), job)
		if err != nil {
			return fmt.Errorf("failed to save schedule: %w", err)
		}

		fmt.Printf("schedule %d saved for plugin %q\n", saved.ID, saved.PluginName)
		return nil
	},
}

func buildJob(cmd *cobra.Command, cfg *config.Config) (*scheduler.ScheduledJob, error) {
	flags := readTargetFlags(cmd)
	if flags.plugin == "" {
		return nil, fmt.Errorf("-p/--plugin is required")
	}

	targetType, identifier, err := flags.targetType()
	if err != nil {
		return nil, err
	}
	if targetType == "" {
		return nil, fmt.Errorf("specify a target via -g, -u, -t, --all, or --global")
	}

	triggerType, triggerConfig, err := readTrigger(cmd, cfg.Scheduler.Timezone)
	if err != nil {
		return nil, err
	}
	if triggerType == "" {
		return nil, fmt.Errorf("specify a trigger via --cron, --interval, --date, or --daily")
	}

	kwargsRaw, _ := cmd.Flags().GetString("kwargs")
	kwargs, err := parseKwargs(kwargsRaw)
	if err != nil {
		return nil, err
	}

	return &scheduler.ScheduledJob{
		PluginName:       flags.plugin,
		BotID:            flags.bot,
		TargetType:       targetType,
		TargetIdentifier: identifier,
		TriggerType:      triggerType,
		TriggerConfig:    triggerConfig,
		JobKwargs:        kwargs,
		IsEnabled:        true,
	}, nil
}

func init() {
	addTargetFlags(SetCmd)
	addTriggerFlags(SetCmd)
}
