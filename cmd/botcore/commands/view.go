package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/scheduler"
)

// ViewCmd lists or inspects scheduled jobs.
var ViewCmd = &cobra.Command{
	Use:   "view [id]",
	Short: "List scheduled jobs, or show one job's detail",
	Long: `List scheduled jobs matching the given filters, or, given a numeric
id, show that one job's full detail.

Examples:
  botcore view                     # list every schedule
  botcore view -p digest -g g1     # list digest's schedules for group g1
  botcore view 42                  # show schedule 42 in detail`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		store := scheduler.NewStore(database)
		ctx := context.Background()

		if len(args) == 1 {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := store.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get schedule: %w", err)
			}
			printJobDetail(job)
			return nil
		}

		flags := readTargetFlags(cmd)
		filter, err := flags.filter()
		if err != nil {
			return err
		}
		page, _ := cmd.Flags().GetInt("page")

		targeter := scheduler.NewTargeter(store)
		jobs, err := targeter.Match(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list schedules: %w", err)
		}

		printJobTable(paginate(jobs, page))
		return nil
	},
}

const pageSize = 20

func paginate(jobs []*scheduler.ScheduledJob, page int) []*scheduler.ScheduledJob {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(jobs) {
		return nil
	}
	end := start + pageSize
	if end > len(jobs) {
		end = len(jobs)
	}
	return jobs[start:end]
}

func printJobTable(jobs []*scheduler.ScheduledJob) {
	if len(jobs) == 0 {
		fmt.Println("no schedules found")
		return
	}

	fmt.Printf("%-6s %-20s %-10s %-20s %-8s %-10s %s\n", "ID", "PLUGIN", "TARGET", "IDENTIFIER", "ENABLED", "TRIGGER", "LAST RUN")
	for _, job := range jobs {
		lastRun := "-"
		if job.LastRunAt != nil {
			lastRun = fmt.Sprintf("%s (%s)", job.LastRunAt.Format("2006-01-02 15:04"), job.LastRunStatus)
		}
		fmt.Printf("%-6d %-20s %-10s %-20s %-8t %-10s %s\n",
			job.ID,
			truncate(job.PluginName, 20),
			job.TargetType,
			truncate(job.TargetIdentifier, 20),
			job.IsEnabled,
			job.TriggerType,
			lastRun)
	}
	fmt.Printf("\n%d schedule(s)\n", len(jobs))
}

func printJobDetail(job *scheduler.ScheduledJob) {
	fmt.Printf("Schedule %d: %s\n", job.ID, job.PluginName)
	fmt.Printf("  Name: %s\n", job.Name)
	fmt.Printf("  Bot: %s\n", job.BotID)
	fmt.Printf("  Target: %s %s\n", job.TargetType, job.TargetIdentifier)
	fmt.Printf("  Trigger: %s %s\n", job.TriggerType, string(job.TriggerConfig))
	fmt.Printf("  Kwargs: %s\n", string(job.JobKwargs))
	fmt.Printf("  Options: jitter=%s spread=%s interval=%s policy=%s retries=%d\n",
		job.Options.Jitter, job.Options.Spread, job.Options.Interval, job.Options.ConcurrencyPolicy, job.Options.Retries)
	fmt.Printf("  Enabled: %t   One-off: %t\n", job.IsEnabled, job.IsOneOff)
	fmt.Printf("  Consecutive failures: %d\n", job.ConsecutiveFailures)
	if job.LastRunAt != nil {
		fmt.Printf("  Last run: %s (%s)\n", job.LastRunAt.Format("2006-01-02 15:04:05"), job.LastRunStatus)
	} else {
		fmt.Printf("  Last run: never\n")
	}
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
}

func init() {
	addTargetFlags(ViewCmd)
	ViewCmd.Flags().Int("page", 1, "page number for list output")
}
