// Package aggregate merges a batch of terminal reports into comparison
// statistics, grades, and a ranking.
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/termglyph/termglyph/internal/report"
)

// Policy selects the ranking key when reports differ in which buckets they
// exercised.
type Policy string

const (
	// PolicyIntersect ranks every terminal over the buckets exercised by
	// all compared reports whenever availability differs.
	PolicyIntersect Policy = "intersect"
	// PolicyAvailable ranks each terminal over whatever buckets its own
	// report exercised.
	PolicyAvailable Policy = "available"
)

var errUnknownPolicy = errors.New("unknown ranking policy")

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyIntersect, PolicyAvailable:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("%w: %q (must be %s or %s)", errUnknownPolicy, s, PolicyIntersect, PolicyAvailable)
	}
}

// Score is one category's graded outcome for a terminal. An unexercised
// category keeps the zero value with Exercised false; it is never folded
// into a genuine zero-failure score.
type Score struct {
	Exercised bool
	Errors    int
	Total     int
	Percent   float64
	Grade     string
}

// Row is one terminal's slice of the aggregate report.
type Row struct {
	Terminal string
	Version  string
	Elapsed  float64
	// Scores holds one entry per canonical bucket name.
	Scores map[string]Score
	// Errors sums failures over the buckets this terminal exercised.
	Errors int
	// Final grades the mean success percentage over the exercised buckets.
	Final Score
}

// Report is the outcome of one aggregation pass. It is regenerated from
// scratch on every call and never mutated incrementally.
type Report struct {
	// Terminals lists the aggregated terminal names in ascending order.
	Terminals []string
	// Rows is keyed by terminal name.
	Rows map[string]*Row
	// Ranking orders terminal names ascending by rank key, ties broken by
	// name.
	Ranking []string
	// RankedOn names the categories the rank keys were computed over when
	// one common set applies to every terminal; nil when each terminal was
	// ranked over its own categories.
	RankedOn []string
	Policy   Policy
}

// Aggregate merges reports into a ranked comparison. It is a pure function
// of its input: no clock, no randomness, identical input always yields an
// identical report. When several reports carry the same software name the
// last one wins. Any policy other than PolicyAvailable ranks like
// PolicyIntersect.
func Aggregate(reports []*report.TerminalReport, policy Policy) *Report {
	byName := make(map[string]*report.TerminalReport, len(reports))
	rows := make(map[string]*Row, len(reports))

	for _, r := range reports {
		byName[r.Software] = r
		rows[r.Software] = buildRow(r)
	}

	terminals := make([]string, 0, len(rows))
	for name := range rows {
		terminals = append(terminals, name)
	}

	sort.Strings(terminals)

	rankedOn, keys := rankKeys(byName, rows, terminals, policy)

	ranking := make([]string, len(terminals))
	copy(ranking, terminals)
	sort.Slice(ranking, func(i, j int) bool {
		if keys[ranking[i]] != keys[ranking[j]] {
			return keys[ranking[i]] < keys[ranking[j]]
		}

		return ranking[i] < ranking[j]
	})

	return &Report{
		Terminals: terminals,
		Rows:      rows,
		Ranking:   ranking,
		RankedOn:  rankedOn,
		Policy:    policy,
	}
}

func buildRow(r *report.TerminalReport) *Row {
	scores := make(map[string]Score, len(report.BucketOrder))
	for _, name := range report.BucketOrder {
		scores[name] = scoreBucket(r, name)
	}

	return &Row{
		Terminal: r.Software,
		Version:  r.Version,
		Elapsed:  r.SecondsElapsed,
		Scores:   scores,
		Errors:   r.Total(),
		Final:    finalScore(scores),
	}
}

func scoreBucket(r *report.TerminalReport, name string) Score {
	b, ok := r.Bucket(name)
	if !ok {
		return Score{}
	}

	errs, total := b.Failures(), b.Totals()
	pct := successPercent(errs, total)

	return Score{
		Exercised: true,
		Errors:    errs,
		Total:     total,
		Percent:   pct,
		Grade:     GradeFor(pct),
	}
}

// finalScore averages the success percentage over exercised categories
// that actually ran tests, weighting them equally.
func finalScore(scores map[string]Score) Score {
	var (
		sum        float64
		components int
		errs       int
		total      int
	)

	for _, name := range report.BucketOrder {
		s := scores[name]
		if !s.Exercised || s.Total == 0 {
			continue
		}

		sum += s.Percent
		components++
		errs += s.Errors
		total += s.Total
	}

	final := Score{
		Exercised: components > 0,
		Errors:    errs,
		Total:     total,
	}

	if components > 0 {
		final.Percent = sum / float64(components)
	}

	final.Grade = GradeFor(final.Percent)

	return final
}

// rankKeys computes the per-terminal ranking keys. When every report
// exercised the same categories the key is simply the terminal's own
// failure total; otherwise PolicyIntersect restricts the key to the
// categories every report shares, so quick-mode runs are never compared
// against categories they skipped.
func rankKeys(
	byName map[string]*report.TerminalReport,
	rows map[string]*Row,
	terminals []string,
	policy Policy,
) ([]string, map[string]int) {
	common, uniform := commonBuckets(byName, terminals)
	keys := make(map[string]int, len(terminals))

	if uniform || policy == PolicyAvailable {
		for _, name := range terminals {
			keys[name] = rows[name].Errors
		}

		if uniform {
			return common, keys
		}

		return nil, keys
	}

	for _, name := range terminals {
		total := 0
		for _, cat := range common {
			total += rows[name].Scores[cat].Errors
		}

		keys[name] = total
	}

	return common, keys
}

// commonBuckets returns the categories exercised by every terminal, in
// canonical order, and whether availability is uniform across all of them.
func commonBuckets(byName map[string]*report.TerminalReport, terminals []string) (common []string, uniform bool) {
	if len(terminals) == 0 {
		return nil, true
	}

	present := make(map[string]int, len(report.BucketOrder))

	for _, name := range terminals {
		for _, cat := range byName[name].Exercised() {
			present[cat]++
		}
	}

	uniform = true

	for _, cat := range report.BucketOrder {
		switch n := present[cat]; {
		case n == len(terminals):
			common = append(common, cat)
		case n > 0:
			uniform = false
		}
	}

	return common, uniform
}
