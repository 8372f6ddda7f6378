package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// rootVerbose enables debug logging on every subcommand.
	rootVerbose bool

	rootCmd = &cobra.Command{
		Use:   "termglyph",
		Short: "Termglyph - terminal Unicode capability test orchestrator",
		Long: `Termglyph launches terminal emulators, runs a Unicode capability probe
inside each one, collects the per-terminal reports, and ranks the
terminals by how faithfully they render wide characters, ZWJ emoji
sequences, and VS16 emoji.`,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
}
