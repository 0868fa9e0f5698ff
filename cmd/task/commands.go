package task

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	addCmd = &cobra.Command{
		Use:   "add [description]",
		Short: "Adds a new pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := uuid.New().String()
			if !taskBridge.CreateTask(taskHandle, id) {
				return fmt.Errorf("could not create task")
			}
			if !taskBridge.TaskSetDescription(taskHandle, id, args[0]) {
				return fmt.Errorf("could not set description")
			}
			fmt.Println(id)
			return nil
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := taskBridge.AllTaskUUIDs(taskHandle)
			sort.Strings(ids)
			for _, id := range ids {
				record, err := decodeTask(id)
				if err != nil {
					return err
				}
				status := record["status"]
				if status == "" {
					status = "pending"
				}
				fmt.Printf("%s  %-9s  %s\n", id, status, record["description"])
			}
			return nil
		},
	}

	showCmd = &cobra.Command{
		Use:   "show [index|uuid]",
		Short: "Shows one task as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveTask(args[0])
			if err != nil {
				return err
			}
			data := taskBridge.TaskData(taskHandle, id)
			if data == "" {
				return fmt.Errorf("could not load task %s", id)
			}
			fmt.Println(data)
			return nil
		},
	}

	doneCmd = &cobra.Command{
		Use:   "done [index|uuid]",
		Short: "Marks a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveTask(args[0])
			if err != nil {
				return err
			}
			if !taskBridge.AddUndoPoint(taskHandle, "complete task") {
				return fmt.Errorf("could not record undo point")
			}
			if !taskBridge.TaskSetStatus(taskHandle, id, "completed") {
				return fmt.Errorf("could not complete task %s", id)
			}
			fmt.Println("done")
			return nil
		},
	}

	annotateCmd = &cobra.Command{
		Use:   "annotate [index|uuid] [note]",
		Short: "Attaches a timestamped note to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveTask(args[0])
			if err != nil {
				return err
			}
			if !taskBridge.TaskAddAnnotation(taskHandle, id, time.Now().Unix(), args[1]) {
				return fmt.Errorf("could not annotate task %s", id)
			}
			fmt.Println("annotated")
			return nil
		},
	}

	tagCmd = &cobra.Command{
		Use:   "tag [index|uuid] [tag]",
		Short: "Adds a tag to a task (prefix the tag with - to remove it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveTask(args[0])
			if err != nil {
				return err
			}
			tag, remove := args[1], false
			if len(tag) > 1 && tag[0] == '-' {
				tag, remove = tag[1:], true
			}
			ok := false
			if remove {
				ok = taskBridge.TaskRemoveTag(taskHandle, id, tag)
			} else {
				ok = taskBridge.TaskAddTag(taskHandle, id, tag)
			}
			if !ok {
				return fmt.Errorf("could not tag task %s", id)
			}
			fmt.Println("tagged")
			return nil
		},
	}

	undoCmd = &cobra.Command{
		Use:   "undo",
		Short: "Rolls back to the latest undo point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !taskBridge.Undo(taskHandle) {
				return fmt.Errorf("nothing to undo")
			}
			fmt.Println("undone")
			return nil
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Marks every task deleted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !taskBridge.ClearAllTasks(taskHandle) {
				return fmt.Errorf("could not clear tasks")
			}
			fmt.Println("cleared")
			return nil
		},
	}
)

// resolveTask turns a working-set index or a full uuid into a task uuid.
func resolveTask(arg string) (string, error) {
	if index, err := strconv.Atoi(arg); err == nil {
		id := taskBridge.UUIDForIndex(taskHandle, index)
		if id == "" {
			return "", fmt.Errorf("no task with index %d", index)
		}
		return id, nil
	}
	if _, err := uuid.Parse(arg); err != nil {
		return "", fmt.Errorf("%q is neither an index nor a task uuid", arg)
	}
	return arg, nil
}

// decodeTask loads one exported task record.
func decodeTask(id string) (map[string]string, error) {
	data := taskBridge.TaskData(taskHandle, id)
	if data == "" {
		return nil, fmt.Errorf("could not load task %s", id)
	}
	record := map[string]string{}
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, err
	}
	return record, nil
}
