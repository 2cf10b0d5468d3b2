// Package cmd wires configuration, storage, retrieval and the agent into the
// memocore command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "memocore",
	Short: "Memocore - a document assistant that remembers for you",
	Long: `Memocore is a retrieval-augmented document assistant. It keeps your
markdown notes in PostgreSQL with vector search, and answers questions by
searching, reading and (with your confirmation) editing those notes.

Running memocore without arguments starts an interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
