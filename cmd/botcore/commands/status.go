package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/scheduler"
)

// StatusCmd reports a schedule's persisted run state: whether it is
// enabled, its last outcome, and its consecutive failure count.
var StatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show a schedule's persisted run state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		_, database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		job, err := scheduler.NewStore(database).Get(context.Background(), id)
		if err != nil {
			return fmt.Errorf("failed to get schedule: %w", err)
		}

		fmt.Printf("Schedule %d (%s)\n", job.ID, job.PluginName)
		fmt.Printf("  Enabled: %t\n", job.IsEnabled)
		fmt.Printf("  Consecutive failures: %d\n", job.ConsecutiveFailures)
		if job.LastRunAt != nil {
			fmt.Printf("  Last run: %s (%s)\n", job.LastRunAt.Format("2006-01-02 15:04:05"), job.LastRunStatus)
		} else {
			fmt.Printf("  Last run: never\n")
		}
		return nil
	},
}
