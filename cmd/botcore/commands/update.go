package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/logger"
	"github.com/sbvh/botcore/scheduler"
)

// UpdateCmd applies a partial update to an existing schedule's trigger
// and/or kwargs.
var UpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a schedule's trigger and/or kwargs",
	Long: `Update an existing schedule in place. Fields left unset are kept
as they are; only the flags you pass are changed.

Example:
  botcore update 42 --interval 1800`,
	Args: cobra.ExactArgs(1),
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

		triggerType, triggerConfig, err := readTrigger(cmd, cfg.Scheduler.Timezone)
		if err != nil {
			return err
		}

		var kwargs []byte
		if raw, _ := cmd.Flags().GetString("kwargs"); raw != "" {
			parsed, err := parseKwargs(raw)
			if err != nil {
				return err
			}
			kwargs = parsed
		}

		sched := scheduler.New(scheduler.NewStore(database), nil, nil, nil, cfg.Scheduler, logger.Logger)
		if err := sched.UpdateSchedule(context.Background(), id, triggerType, triggerConfig, kwargs); err != nil {
			return fmt.Errorf("failed to update schedule: %w", err)
		}

		fmt.Printf("schedule %d updated\n", id)
		return nil
	},
}

func init() {
	addTriggerFlags(UpdateCmd)
}
