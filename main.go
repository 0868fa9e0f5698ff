package main

import "github.com/tasksquire/taskbridge/cmd"

func main() {
	cmd.Execute()
}
