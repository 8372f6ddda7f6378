// Package output renders aggregate comparisons for humans and writes the
// machine-readable report artifacts.
package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"github.com/termglyph/termglyph/internal/aggregate"
	"github.com/termglyph/termglyph/internal/format"
	"github.com/termglyph/termglyph/internal/orchestrator"
	"github.com/termglyph/termglyph/internal/report"
)

// categoryLabels maps canonical bucket names to table column labels.
var categoryLabels = map[string]string{
	report.BucketWide: "WIDE",
	report.BucketZWJ:  "ZWJ",
	report.BucketVS16: "VS16",
}

// DetectedTerminal is one availability probe outcome for the detect table.
type DetectedTerminal struct {
	Name      string
	Binary    string
	Version   string
	Available bool
}

// TableRenderer provides table rendering utilities using tablewriter.
type TableRenderer struct {
	log logrus.FieldLogger
}

// NewTableRenderer creates a new table renderer.
func NewTableRenderer(log logrus.FieldLogger) *TableRenderer {
	return &TableRenderer{
		log: log.WithField("component", "table_renderer"),
	}
}

// RenderToString renders a table to a string with the given headers and rows.
func (r *TableRenderer) RenderToString(headers []string, rows [][]string) string {
	buf := &bytes.Buffer{}
	r.RenderToWriter(buf, headers, rows)
	return buf.String()
}

// RenderToWriter renders a table to the given writer with headers and rows.
func (r *TableRenderer) RenderToWriter(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)

	// Apply consistent styling
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetBorder(true)
	table.SetTablePadding(" ")
	table.SetNoWhiteSpace(false)

	table.AppendBulk(rows)
	table.Render()
}

// Color helper functions - auto-disabled when stdout is not a terminal
var (
	colorEnabled = !color.NoColor
)

func colorSuccess(text string) string {
	if !colorEnabled {
		return text
	}
	return color.GreenString(text)
}

func colorFailure(text string) string {
	if !colorEnabled {
		return text
	}
	return color.RedString(text)
}

func colorWarning(text string) string {
	if !colorEnabled {
		return text
	}
	return color.YellowString(text)
}

func colorInfo(text string) string {
	if !colorEnabled {
		return text
	}
	return color.CyanString(text)
}

func colorMuted(text string) string {
	if !colorEnabled {
		return text
	}
	return color.New(color.FgHiBlack).Sprint(text)
}

func colorBold(text string) string {
	if !colorEnabled {
		return text
	}
	return color.New(color.Bold).Sprint(text)
}

func colorHeader(text string) string {
	if !colorEnabled {
		return text
	}
	return color.New(color.FgCyan, color.Bold).Sprint(text)
}

// formatCategory renders one bucket cell: the failure count when the
// category ran, a muted n/a when the report never exercised it.
func formatCategory(s aggregate.Score) string {
	if !s.Exercised {
		return colorMuted("n/a")
	}

	text := fmt.Sprintf("%d", s.Errors)
	if s.Errors == 0 {
		return colorSuccess(text)
	}
	return colorFailure(text)
}

func formatGrade(s aggregate.Score) string {
	if !s.Exercised {
		return colorMuted("n/a")
	}

	switch {
	case strings.HasPrefix(s.Grade, "A"):
		return colorSuccess(s.Grade)
	case strings.HasPrefix(s.Grade, "B"), strings.HasPrefix(s.Grade, "C"):
		return colorWarning(s.Grade)
	default:
		return colorFailure(s.Grade)
	}
}

// FormatComparison formats the failure-count matrix as a table, one row per
// terminal in ranking order.
func FormatComparison(renderer *TableRenderer, agg *aggregate.Report) string {
	if len(agg.Ranking) == 0 {
		return "No terminal reports collected"
	}

	headers := []string{"Terminal", "Version", "WIDE", "ZWJ", "VS16", "Total", "Grade", "Duration"}
	rows := make([][]string, 0, len(agg.Ranking))

	for _, name := range agg.Ranking {
		row := agg.Rows[name]

		cells := []string{row.Terminal, row.Version}
		for _, cat := range report.BucketOrder {
			cells = append(cells, formatCategory(row.Scores[cat]))
		}

		cells = append(cells,
			colorBold(fmt.Sprintf("%d", row.Errors)),
			formatGrade(row.Final),
			format.Seconds(row.Elapsed),
		)

		rows = append(rows, cells)
	}

	output := "\n" + colorHeader("▸ Unicode Support Comparison") + "\n\n" + renderer.RenderToString(headers, rows)

	if note := rankingNote(agg); note != "" {
		output += "\n" + colorMuted(note) + "\n"
	}

	return output
}

// rankingNote explains which categories the ranking compared when quick
// runs kept some terminals from exercising all of them.
func rankingNote(agg *aggregate.Report) string {
	if agg.RankedOn == nil {
		if agg.Policy == aggregate.PolicyAvailable {
			return "ranked each terminal over its own exercised categories"
		}
		return "no categories shared by every terminal; ranking is alphabetical"
	}

	if len(agg.RankedOn) == len(report.BucketOrder) {
		return ""
	}

	labels := make([]string, 0, len(agg.RankedOn))
	for _, cat := range agg.RankedOn {
		labels = append(labels, categoryLabels[cat])
	}

	return "ranked over the shared categories: " + strings.Join(labels, ", ")
}

// FormatGrades formats the per-category letter grades as a table in ranking
// order.
func FormatGrades(renderer *TableRenderer, agg *aggregate.Report) string {
	if len(agg.Ranking) == 0 {
		return "No terminal reports collected"
	}

	headers := []string{"Terminal", "FINAL", "WIDE", "ZWJ", "VS16"}
	rows := make([][]string, 0, len(agg.Ranking))

	for _, name := range agg.Ranking {
		row := agg.Rows[name]

		cells := []string{row.Terminal, formatGrade(row.Final)}
		for _, cat := range report.BucketOrder {
			cells = append(cells, formatGrade(row.Scores[cat]))
		}

		rows = append(rows, cells)
	}

	return "\n" + colorHeader("▸ Unicode Support Grades") + "\n\n" + renderer.RenderToString(headers, rows)
}

// FormatFailures formats the profiles that never produced a report. Returns
// an empty string when every run succeeded.
func FormatFailures(renderer *TableRenderer, failures []orchestrator.RunFailure) string {
	if len(failures) == 0 {
		return ""
	}

	headers := []string{"Terminal", "Reason", "Details"}
	rows := make([][]string, 0, len(failures))

	for _, f := range failures {
		details := ""
		if f.Err != nil {
			details = f.Err.Error()
			if len(details) > 50 {
				details = details[:47] + "..."
			}
			details = colorMuted(details)
		}

		rows = append(rows, []string{f.Terminal, colorFailure(f.Reason), details})
	}

	return "\n" + colorHeader("▸ Failed Runs") + "\n\n" + renderer.RenderToString(headers, rows)
}

// FormatDetected formats availability probe outcomes as a table.
func FormatDetected(renderer *TableRenderer, terminals []DetectedTerminal) string {
	if len(terminals) == 0 {
		return "No terminal profiles registered"
	}

	headers := []string{"Terminal", "Binary", "Version", "Status"}
	rows := make([][]string, 0, len(terminals))

	for _, t := range terminals {
		version := colorMuted("-")
		status := colorFailure("✗ missing")

		if t.Available {
			version = colorInfo(t.Version)
			status = colorSuccess("✓ available")
		}

		rows = append(rows, []string{t.Name, t.Binary, version, status})
	}

	return "\n" + colorHeader("▸ Detected Terminals") + "\n\n" + renderer.RenderToString(headers, rows)
}

// FormatBatchSummary formats end-of-batch statistics as a table.
func FormatBatchSummary(renderer *TableRenderer, out *orchestrator.Outcome, elapsed time.Duration) string {
	total := len(out.Results)
	succeeded := total - len(out.Failures)

	var successRate float64
	if total > 0 {
		successRate = float64(succeeded) / float64(total) * 100.0
	}

	succeededValue := fmt.Sprintf("%d (%.1f%%)", succeeded, successRate)
	if succeeded == total && total > 0 {
		succeededValue = colorSuccess(succeededValue)
	}

	failedValue := fmt.Sprintf("%d (%.1f%%)", len(out.Failures), 100.0-successRate)
	if len(out.Failures) > 0 {
		failedValue = colorFailure(failedValue)
	} else {
		failedValue = colorSuccess(failedValue)
	}

	headers := []string{"Metric", "Value"}
	rows := [][]string{
		{"Terminals Tested", colorBold(fmt.Sprintf("%d", total))},
		{"Succeeded", succeededValue},
		{"Failed", failedValue},
		{"Total Duration", format.Duration(elapsed)},
	}

	return "\n" + colorHeader("▸ Summary") + "\n\n" + renderer.RenderToString(headers, rows)
}
