// Package cmd contains CLI command definitions
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/termglyph/termglyph/internal/config"
	"github.com/termglyph/termglyph/internal/detect"
	"github.com/termglyph/termglyph/internal/profile"
	"github.com/termglyph/termglyph/pkg/interactive"
)

// interactiveCmd represents the interactive command
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Pick terminals interactively, then run the probe batch",
	Long: `Detects which terminal emulators are available, lets you pick a
subset, and runs the probe batch over the selection.`,
	RunE: runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := newLogger(rootVerbose)

	registry, err := profile.NewLoader(log).Load(cfg.ProfilesFile)
	if err != nil {
		return err
	}

	detector := detect.NewDetector(log, cfg.DetectTimeout)

	available, _ := detector.Detect(context.Background(), registry.All())
	if len(available) == 0 {
		return errNoTerminals
	}

	names := make([]string, 0, len(available))
	for _, p := range available {
		names = append(names, p.Name)
	}

	selected, err := interactive.PickTerminals(names)
	if err != nil {
		if errors.Is(err, interactive.ErrNoSelection) {
			fmt.Println("Nothing selected.")
			return nil
		}

		return err
	}

	if !interactive.Confirm(fmt.Sprintf("Test %d terminal(s) now?", len(selected))) {
		fmt.Println("Canceled.")
		return nil
	}

	return executeBatch(log, cfg, selected)
}
