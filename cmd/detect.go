package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/termglyph/termglyph/internal/config"
	"github.com/termglyph/termglyph/internal/detect"
	"github.com/termglyph/termglyph/internal/output"
	"github.com/termglyph/termglyph/internal/profile"
)

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List available and missing terminal emulators",
	Long: `Probes every registered profile's binary with its version arguments
and reports which terminals this host can test.`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(_ *cobra.Command, _ []string) error {
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
	ctx := context.Background()

	profiles := registry.All()
	rows := make([]output.DetectedTerminal, 0, len(profiles))

	for _, p := range profiles {
		row := output.DetectedTerminal{Name: p.Name, Binary: p.Binary}
		if detector.Available(ctx, p) {
			row.Available = true
			row.Version = detector.VersionLabel(ctx, p)
		}

		rows = append(rows, row)
	}

	fmt.Println(output.FormatDetected(output.NewTableRenderer(log), rows))

	return nil
}
