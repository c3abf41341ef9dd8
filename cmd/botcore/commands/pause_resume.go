package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/scheduler"
)

// PauseCmd disables a schedule by id, or every schedule matching filters.
var PauseCmd = &cobra.Command{
	Use:   "pause [id]",
	Short: "Pause a schedule by id, or every schedule matching filters",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabledByArgsOrFilter(cmd, args, false)
	},
}

// ResumeCmd re-enables a schedule by id, or every schedule matching filters.
var ResumeCmd = &cobra.Command{
	Use:   "resume [id]",
	Short: "Resume a schedule by id, or every schedule matching filters",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabledByArgsOrFilter(cmd, args, true)
	},
}

func setEnabledByArgsOrFilter(cmd *cobra.Command, args []string, enabled bool) error {
	_, database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	store := scheduler.NewStore(database)
	ctx := context.Background()
	action, verb := "pause", "paused"
	if enabled {
		action, verb = "resume", "resumed"
	}

	if len(args) == 1 {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := store.SetEnabled(ctx, id, enabled); err != nil {
			return fmt.Errorf("failed to %s schedule: %w", verb, err)
		}
		fmt.Printf("schedule %d %s\n", id, verb)
		return nil
	}

	flags := readTargetFlags(cmd)
	if !flags.hasAnyFilter() {
		return fmt.Errorf("refusing to %s every schedule; pass an id or at least one filter flag", action)
	}
	filter, err := flags.filter()
	if err != nil {
		return err
	}

	targeter := scheduler.NewTargeter(store)
	var count int
	if enabled {
		count, err = targeter.ResumeMatching(ctx, filter)
	} else {
		count, err = targeter.PauseMatching(ctx, filter)
	}
	if err != nil {
		return fmt.Errorf("failed to %s schedules: %w", verb, err)
	}
	fmt.Printf("%d schedule(s) %s\n", count, verb)
	return nil
}

func init() {
	addTargetFlags(PauseCmd)
	addTargetFlags(ResumeCmd)
}
