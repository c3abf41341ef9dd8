package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/plugin"
)

// PluginsCmd lists every plugin registered in this process's default
// registry. It only shows plugins this particular binary registers at
// startup; the standalone botcore binary registers none.
var PluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List plugins registered in this process",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := plugin.DefaultRegistry()
		if registry == nil {
			fmt.Println("no plugin registry configured")
			return nil
		}

		names := registry.List()
		if len(names) == 0 {
			fmt.Println("no plugins registered")
			return nil
		}

		for _, name := range names {
			reg, _ := registry.Get(name)
			fmt.Printf("%-20s default_permission=%d\n", name, reg.DefaultPermission)
		}
		return nil
	},
}
