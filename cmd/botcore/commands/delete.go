package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/scheduler"
)

// DeleteCmd removes a single schedule by id, or every schedule matching the
// given filters.
var DeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a schedule by id, or every schedule matching filters",
	Args:  cobra.MaximumNArgs(1),
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
			if err := store.Delete(ctx, id); err != nil {
				return fmt.Errorf("failed to delete schedule: %w", err)
			}
			fmt.Printf("schedule %d deleted\n", id)
			return nil
		}

		flags := readTargetFlags(cmd)
		if !flags.hasAnyFilter() {
			return fmt.Errorf("refusing to delete every schedule; pass an id or at least one filter flag")
		}
		filter, err := flags.filter()
		if err != nil {
			return err
		}

		count, err := scheduler.NewTargeter(store).RemoveMatching(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to delete schedules: %w", err)
		}
		fmt.Printf("%d schedule(s) deleted\n", count)
		return nil
	},
}

func init() {
	addTargetFlags(DeleteCmd)
}
