package sync

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tasksquire/taskbridge/cmd/util"
)

// SyncCmd synchronizes the local task database with a sync server. The
// server is described by a JSON configuration document, e.g.
//
//	{"type": "local", "path": "/mnt/sync", "encryption_secret": "s3cret"}
var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the task database with a sync server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Bind command flags to viper
		if err := util.BindCommandFlags(cmd); err != nil {
			return err
		}
		util.SetupLogging()

		config := viper.GetString("sync-config")
		if path := viper.GetString("sync-config-file"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			config = string(data)
		}
		if config == "" {
			return fmt.Errorf("no sync server configured (use --sync-config or --sync-config-file)")
		}

		b, h, err := util.OpenBridge()
		if err != nil {
			return err
		}
		defer b.Destroy(h)

		result := b.Sync(h, config)
		fmt.Println(result)
		if result != "SUCCESS" {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common flags to the sync command
	util.SetupCommonFlags(SyncCmd)

	SyncCmd.Flags().String("sync-config", "", util.WrapString("Sync server configuration as inline JSON"))
	SyncCmd.Flags().String("sync-config-file", "", util.WrapString("Path to a file holding the sync server configuration JSON"))
}
