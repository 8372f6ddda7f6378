package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/termglyph/termglyph/internal/config"
	"github.com/termglyph/termglyph/internal/output"
	"github.com/termglyph/termglyph/internal/profile"
)

// profilesCmd represents the profiles command
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Print the terminal profile registry",
	Long: `Lists every terminal profile the run command can launch, including
overlay entries from PROFILES_FILE.`,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := newLogger(rootVerbose)

	registry, err := profile.NewLoader(log).Load(cfg.ProfilesFile)
	if err != nil {
		return err
	}

	profiles := registry.All()

	headers := []string{"Terminal", "Kind", "Binary", "Display", "Timeout"}
	rows := make([][]string, 0, len(profiles))

	for _, p := range profiles {
		displayCell := "no"
		if p.RequiresDisplay {
			displayCell = "yes"
		}

		timeoutCell := "default"
		if p.Timeout > 0 {
			timeoutCell = p.Timeout.String()
		}

		rows = append(rows, []string{p.Name, string(p.Kind), p.Binary, displayCell, timeoutCell})
	}

	fmt.Println(output.NewTableRenderer(log).RenderToString(headers, rows))

	return nil
}
