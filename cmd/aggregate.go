package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/termglyph/termglyph/internal/aggregate"
	"github.com/termglyph/termglyph/internal/config"
	"github.com/termglyph/termglyph/internal/output"
	"github.com/termglyph/termglyph/internal/report"
)

var aggregateRankPolicy string

// aggregateCmd represents the aggregate command
var aggregateCmd = &cobra.Command{
	Use:   "aggregate [results-dir]",
	Short: "Re-rank an existing results directory",
	Long: `Parses every report file in the results directory, rebuilds the
aggregate comparison, and rewrites the JSON and Markdown artifacts.

Example:
  termglyph aggregate
  termglyph aggregate ./results --rank-policy available`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAggregate,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVar(&aggregateRankPolicy, "rank-policy", config.DefaultRankPolicy, "Ranking policy when exercised categories differ (intersect, available)")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if cmd.Flags().Changed("rank-policy") {
		cfg.RankPolicy = aggregateRankPolicy
	}

	policy, err := aggregate.ParsePolicy(cfg.RankPolicy)
	if err != nil {
		return err
	}

	dir := cfg.ResultsDir
	if len(args) == 1 {
		dir = args[0]
	}

	log := newLogger(rootVerbose)

	reports, skipped, err := report.NewCollector(log).LoadDir(dir)
	if err != nil {
		return err
	}

	if len(skipped) > 0 {
		log.WithField("files", strings.Join(skipped, ",")).Warn("skipped unusable report files")
	}

	if len(reports) == 0 {
		return fmt.Errorf("no report files found in %s", dir)
	}

	agg := aggregate.Aggregate(reports, policy)

	renderer := output.NewTableRenderer(log)
	fmt.Println(output.FormatComparison(renderer, agg))
	fmt.Println(output.FormatGrades(renderer, agg))

	writer := output.NewWriter(log)
	now := time.Now()

	if _, err := writer.WriteJSON(dir, agg, nil, now); err != nil {
		return err
	}

	if _, err := writer.WriteMarkdown(dir, agg, nil, now); err != nil {
		return err
	}

	return nil
}
