// Command botcore is the administration CLI for the botcore scheduler: it
// runs the daemon (serve) and manages scheduled jobs (view, set, delete,
// pause, resume, trigger, update, status, plugins).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/cmd/botcore/commands"
	"github.com/sbvh/botcore/logger"
)

var rootCmd = &cobra.Command{
	Use:   "botcore",
	Short: "botcore - persistent job scheduler and authorization infrastructure",
	Long: `botcore - the scheduler, tag resolver, and authorization pipeline
infrastructure shared by bot plugins.

Available commands:
  serve    - Run the scheduler daemon in the foreground
  view     - List or inspect scheduled jobs
  set      - Create or update a scheduled job
  update   - Update a schedule's trigger and/or kwargs
  delete   - Delete a schedule
  pause    - Disable a schedule
  resume   - Re-enable a schedule
  trigger  - Run a schedule immediately
  status   - Show a schedule's persisted run state
  plugins  - List plugins registered in this process
  version  - Show botcore version information

Examples:
  botcore serve
  botcore set -p digest -g g1 --cron "0 9 * * *"
  botcore view -p digest`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ViewCmd)
	rootCmd.AddCommand(commands.SetCmd)
	rootCmd.AddCommand(commands.UpdateCmd)
	rootCmd.AddCommand(commands.DeleteCmd)
	rootCmd.AddCommand(commands.PauseCmd)
	rootCmd.AddCommand(commands.ResumeCmd)
	rootCmd.AddCommand(commands.TriggerCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.PluginsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
