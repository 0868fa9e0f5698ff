package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tasksquire/taskbridge/cmd/sync"
	"github.com/tasksquire/taskbridge/cmd/task"
)

const (
	Version = "1.2.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "taskbridge",
		Short: "embeddable task database",
		Long: fmt.Sprintf(`taskbridge (v%s)

An embeddable task database with an operation log, undo, a working set
and encrypted synchronization, built to be driven safely from foreign
callers through opaque handles.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of taskbridge",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("taskbridge v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(task.TaskCommands)
	RootCmd.AddCommand(sync.SyncCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
