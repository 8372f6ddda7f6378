package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/termglyph/termglyph/internal/aggregate"
	"github.com/termglyph/termglyph/internal/config"
	"github.com/termglyph/termglyph/internal/format"
	"github.com/termglyph/termglyph/internal/orchestrator"
	"github.com/termglyph/termglyph/internal/report"
)

// jsonScore is one graded category in the JSON artifact.
type jsonScore struct {
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
	Errors     int     `json:"errors"`
	Total      int     `json:"total"`
}

// jsonTerminal summarizes one terminal in the JSON artifact. Scores holds
// only the categories the report exercised; an absent key means the
// category never ran.
type jsonTerminal struct {
	Version      string               `json:"version"`
	TestDuration float64              `json:"test_duration"`
	TotalErrors  int                  `json:"total_errors"`
	Scores       map[string]jsonScore `json:"scores"`
	Final        jsonScore            `json:"final"`
}

type jsonFailure struct {
	Terminal string `json:"terminal"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}

type jsonReport struct {
	GeneratedAt     string                  `json:"generated_at"`
	TerminalsTested int                     `json:"terminals_tested"`
	TerminalList    []string                `json:"terminal_list"`
	Policy          string                  `json:"policy"`
	Ranking         []string                `json:"ranking"`
	RankedOn        []string                `json:"ranked_on,omitempty"`
	Summary         map[string]jsonTerminal `json:"summary"`
	Failures        []jsonFailure           `json:"failures,omitempty"`
}

// Writer persists the aggregate comparison next to the collected results.
// The caller supplies the generation timestamp so identical aggregations
// produce identical artifacts.
type Writer interface {
	WriteJSON(dir string, agg *aggregate.Report, failures []orchestrator.RunFailure, at time.Time) (string, error)
	WriteMarkdown(dir string, agg *aggregate.Report, failures []orchestrator.RunFailure, at time.Time) (string, error)
}

type writer struct {
	log logrus.FieldLogger
}

var _ Writer = (*writer)(nil)

// NewWriter creates an artifact writer.
func NewWriter(log logrus.FieldLogger) Writer {
	return &writer{
		log: log.WithField("component", "artifact_writer"),
	}
}

// WriteJSON writes the machine-readable aggregate report into dir and
// returns the written path.
func (w *writer) WriteJSON(dir string, agg *aggregate.Report, failures []orchestrator.RunFailure, at time.Time) (string, error) {
	path := filepath.Join(dir, config.JSONReportName)

	data, err := json.MarshalIndent(buildJSONReport(agg, failures, at), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling aggregate report: %w", err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: report artifact with standard permissions
		return "", fmt.Errorf("writing aggregate report: %w", err)
	}

	w.log.WithField("path", path).Info("aggregate report saved")

	return path, nil
}

func buildJSONReport(agg *aggregate.Report, failures []orchestrator.RunFailure, at time.Time) *jsonReport {
	doc := &jsonReport{
		GeneratedAt:     at.Format(time.RFC3339),
		TerminalsTested: len(agg.Terminals),
		TerminalList:    agg.Terminals,
		Policy:          string(agg.Policy),
		Ranking:         agg.Ranking,
		RankedOn:        agg.RankedOn,
		Summary:         make(map[string]jsonTerminal, len(agg.Terminals)),
	}

	for _, name := range agg.Terminals {
		row := agg.Rows[name]

		scores := make(map[string]jsonScore, len(row.Scores))
		for cat, s := range row.Scores {
			if !s.Exercised {
				continue
			}

			scores[cat] = jsonScore{
				Percentage: s.Percent,
				Grade:      s.Grade,
				Errors:     s.Errors,
				Total:      s.Total,
			}
		}

		doc.Summary[name] = jsonTerminal{
			Version:      row.Version,
			TestDuration: row.Elapsed,
			TotalErrors:  row.Errors,
			Scores:       scores,
			Final: jsonScore{
				Percentage: row.Final.Percent,
				Grade:      row.Final.Grade,
				Errors:     row.Final.Errors,
				Total:      row.Final.Total,
			},
		}
	}

	for _, f := range failures {
		jf := jsonFailure{Terminal: f.Terminal, Reason: f.Reason}
		if f.Err != nil {
			jf.Detail = f.Err.Error()
		}

		doc.Failures = append(doc.Failures, jf)
	}

	return doc
}

// WriteMarkdown writes the human-readable aggregate report into dir and
// returns the written path.
func (w *writer) WriteMarkdown(dir string, agg *aggregate.Report, failures []orchestrator.RunFailure, at time.Time) (string, error) {
	path := filepath.Join(dir, config.MarkdownReportName)

	if err := os.WriteFile(path, []byte(renderMarkdown(agg, failures, at)), 0o644); err != nil { //nolint:gosec // G306: report artifact with standard permissions
		return "", fmt.Errorf("writing markdown report: %w", err)
	}

	w.log.WithField("path", path).Info("markdown report saved")

	return path, nil
}

func renderMarkdown(agg *aggregate.Report, failures []orchestrator.RunFailure, at time.Time) string {
	var b strings.Builder

	b.WriteString("# Terminal Unicode Support Test Results\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", at.Format(time.RFC3339))
	fmt.Fprintf(&b, "Terminals Tested: %d\n", len(agg.Terminals))

	if len(agg.Ranking) > 0 {
		b.WriteString("\n## Unicode Support Grades\n\n")
		b.WriteString("| Terminal Software | FINAL score | WIDE score | ZWJ score | VS16 score |\n")
		b.WriteString("|-------------------|-------------|------------|-----------|------------|\n")

		for _, name := range agg.Ranking {
			row := agg.Rows[name]
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				name,
				markdownGrade(row.Final),
				markdownGrade(row.Scores[report.BucketWide]),
				markdownGrade(row.Scores[report.BucketZWJ]),
				markdownGrade(row.Scores[report.BucketVS16]))
		}

		b.WriteString("\n## Detailed Percentages\n\n")
		b.WriteString("| Terminal Software | FINAL % | WIDE % | ZWJ % | VS16 % |\n")
		b.WriteString("|-------------------|---------|--------|-------|--------|\n")

		for _, name := range agg.Ranking {
			row := agg.Rows[name]
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				name,
				markdownPercent(row.Final),
				markdownPercent(row.Scores[report.BucketWide]),
				markdownPercent(row.Scores[report.BucketZWJ]),
				markdownPercent(row.Scores[report.BucketVS16]))
		}

		b.WriteString("\n## Test Details\n")

		for _, name := range agg.Ranking {
			row := agg.Rows[name]
			fmt.Fprintf(&b, "\n### %s\n\n", name)
			fmt.Fprintf(&b, "- Version: %s\n", row.Version)
			fmt.Fprintf(&b, "- Test Duration: %s\n", format.Seconds(row.Elapsed))
			fmt.Fprintf(&b, "- Total Failures: %d\n", row.Errors)
		}
	}

	if len(failures) > 0 {
		b.WriteString("\n## Failed Runs\n\n")
		b.WriteString("| Terminal | Reason | Detail |\n")
		b.WriteString("|----------|--------|--------|\n")

		for _, f := range failures {
			detail := ""
			if f.Err != nil {
				detail = f.Err.Error()
			}

			fmt.Fprintf(&b, "| %s | %s | %s |\n", f.Terminal, f.Reason, detail)
		}
	}

	return b.String()
}

func markdownGrade(s aggregate.Score) string {
	if !s.Exercised {
		return "n/a"
	}
	return s.Grade
}

func markdownPercent(s aggregate.Score) string {
	if !s.Exercised {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", s.Percent)
}
