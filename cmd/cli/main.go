package main

import (
	"github.com/duetrack/deadline-api/cmd/cli/auth"
	"github.com/duetrack/deadline-api/cmd/cli/deadlines"
	"github.com/duetrack/deadline-api/cmd/cli/root"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	deadlines.InitDeadlines(rootCmd)
	root.Execute()
}
