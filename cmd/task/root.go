package task

import (
	"github.com/spf13/cobra"

	"github.com/tasksquire/taskbridge/cmd/util"
	"github.com/tasksquire/taskbridge/lib/bridge"
)

var (
	taskBridge *bridge.Bridge
	taskHandle uint64

	// TaskCommands represents the task command group
	TaskCommands = &cobra.Command{
		Use:                "task",
		Short:              "Work with the local task database",
		PersistentPreRunE:  setupTaskBridge,
		PersistentPostRunE: teardownTaskBridge,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common flags to the task command
	util.SetupCommonFlags(TaskCommands)

	// Add subcommands
	TaskCommands.AddCommand(addCmd)
	TaskCommands.AddCommand(listCmd)
	TaskCommands.AddCommand(showCmd)
	TaskCommands.AddCommand(doneCmd)
	TaskCommands.AddCommand(annotateCmd)
	TaskCommands.AddCommand(tagCmd)
	TaskCommands.AddCommand(undoCmd)
	TaskCommands.AddCommand(clearCmd)
}

// setupTaskBridge opens the task database for the configured data dir
func setupTaskBridge(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	util.SetupLogging()

	var err error
	taskBridge, taskHandle, err = util.OpenBridge()
	return err
}

// teardownTaskBridge closes the task database again
func teardownTaskBridge(cmd *cobra.Command, _ []string) error {
	taskBridge.Destroy(taskHandle)
	return nil
}
