package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coderoom",
	Short: "coderoom - Collaborative code editing and execution server",
	Long: `coderoom relays code edits and cursor positions between the participants
of a room and executes the shared document in a sandboxed child process,
broadcasting the result to everyone.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
