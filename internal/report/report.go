// Package report models the probe's per-terminal output document and loads
// it from disk. Bucket absence means the category was not exercised, which
// is distinct from a bucket present with zero failures; both shapes survive
// a marshal round-trip.
package report

import (
	"fmt"
	"strings"
	"time"
)

// Canonical bucket names, in display order.
const (
	BucketWide = "wide_character"
	BucketZWJ  = "emoji_zwj"
	BucketVS16 = "emoji_vs16"
)

// BucketOrder fixes the iteration order over the three categories.
var BucketOrder = []string{BucketWide, BucketZWJ, BucketVS16}

// VersionResult holds one Unicode version's outcome within a bucket.
type VersionResult struct {
	NErrors int      `yaml:"n_errors"`
	NTotal  int      `yaml:"n_total"`
	Failed  []string `yaml:"failed,omitempty"`
}

// Failures returns the failure count for this version. The explicit error
// count wins; otherwise the listed failing identifiers are counted.
func (v VersionResult) Failures() int {
	if v.NErrors > 0 {
		return v.NErrors
	}

	return len(v.Failed)
}

// Bucket maps a Unicode version label to its result. A nil bucket means the
// category was not exercised.
type Bucket map[string]VersionResult

// Failures sums the failure counts across all version entries.
func (b Bucket) Failures() int {
	total := 0
	for _, v := range b {
		total += v.Failures()
	}

	return total
}

// Totals sums the known test totals across all version entries.
func (b Bucket) Totals() int {
	total := 0
	for _, v := range b {
		total += v.NTotal
	}

	return total
}

// TerminalReport is the parsed probe output for one completed run.
type TerminalReport struct {
	Software       string  `yaml:"software"`
	Version        string  `yaml:"version"`
	SecondsElapsed float64 `yaml:"seconds_elapsed"`
	WideCharacter  Bucket  `yaml:"wide_character_results,omitempty"`
	EmojiZWJ       Bucket  `yaml:"emoji_zwj_results,omitempty"`
	EmojiVS16      Bucket  `yaml:"emoji_vs16_results,omitempty"`
}

// Bucket returns the named bucket and whether it was exercised.
func (r *TerminalReport) Bucket(name string) (Bucket, bool) {
	switch name {
	case BucketWide:
		return r.WideCharacter, r.WideCharacter != nil
	case BucketZWJ:
		return r.EmojiZWJ, r.EmojiZWJ != nil
	case BucketVS16:
		return r.EmojiVS16, r.EmojiVS16 != nil
	default:
		return nil, false
	}
}

// Exercised returns the names of the buckets present in this report, in
// canonical order.
func (r *TerminalReport) Exercised() []string {
	names := make([]string, 0, len(BucketOrder))

	for _, name := range BucketOrder {
		if _, ok := r.Bucket(name); ok {
			names = append(names, name)
		}
	}

	return names
}

// Total sums failures over every exercised bucket.
func (r *TerminalReport) Total() int {
	total := 0

	for _, name := range BucketOrder {
		if b, ok := r.Bucket(name); ok {
			total += b.Failures()
		}
	}

	return total
}

// OutputFileName builds the per-run report filename for a terminal:
// <name>_<YYYYMMDD>_<HHMMSS>.yaml. TerminalNameFromFilename inverts it.
func OutputFileName(terminal string, at time.Time) string {
	return fmt.Sprintf("%s_%s.yaml", terminal, at.Format("20060102_150405"))
}

// TerminalNameFromFilename recovers the terminal name from a report
// filename by stripping the two trailing timestamp segments. Filenames
// without them are returned with only the extension stripped.
func TerminalNameFromFilename(filename string) string {
	name := strings.TrimSuffix(filename, ".yaml")

	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return name
	}

	return strings.Join(parts[:len(parts)-2], "_")
}
