// Package cmd implements the command-line interface for the taskbridge
// task database. It provides a hierarchical command structure with
// operations for managing tasks and synchronizing with a sync server.
//
// The package is organized into several subpackages:
//
//   - task: Commands for task operations (add, list, show, done, etc.)
//   - sync: Command for synchronizing with a sync server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See taskbridge -help for a list of all commands.
package cmd
