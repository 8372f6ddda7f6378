package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingOutput marks a run whose report file never materialized or
	// came out empty.
	ErrMissingOutput = errors.New("missing output")
	// ErrMalformedOutput marks a report file that exists but does not parse
	// or validate into a TerminalReport.
	ErrMalformedOutput = errors.New("malformed output")
)

// Collector validates and parses probe output files.
type Collector interface {
	Collect(path string) (*TerminalReport, error)
	LoadDir(dir string) ([]*TerminalReport, []string, error)
}

type collector struct {
	log logrus.FieldLogger
}

var _ Collector = (*collector)(nil)

// NewCollector creates a new result collector.
func NewCollector(log logrus.FieldLogger) Collector {
	return &collector{
		log: log.WithField("component", "collector"),
	}
}

// Collect reads the report at path. A file that is absent or empty fails
// with ErrMissingOutput; one that parses badly or carries invalid values
// fails with ErrMalformedOutput. Absent buckets stay absent — they are
// never defaulted to zero-failure buckets.
func (c *collector) Collect(path string) (*TerminalReport, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading run output from paths this process created
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingOutput, path)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrMissingOutput, path)
	}

	var r TerminalReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOutput, path, err)
	}

	if err := c.validate(&r); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOutput, path, err)
	}

	return &r, nil
}

// LoadDir parses every report file in a results directory. Unreadable or
// invalid files are skipped and reported back by name.
func (c *collector) LoadDir(dir string) ([]*TerminalReport, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading results directory %s: %w", dir, err)
	}

	reports := make([]*TerminalReport, 0, len(entries))
	skipped := make([]string, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		r, err := c.Collect(filepath.Join(dir, entry.Name()))
		if err != nil {
			c.log.WithError(err).WithField("file", entry.Name()).Warn("skipping unusable report")
			skipped = append(skipped, entry.Name())

			continue
		}

		if derived := TerminalNameFromFilename(entry.Name()); derived != r.Software {
			c.log.WithFields(logrus.Fields{
				"file":     entry.Name(),
				"software": r.Software,
			}).Debug("filename does not match declared software")
		}

		reports = append(reports, r)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Software < reports[j].Software
	})

	return reports, skipped, nil
}

// validate checks the structural invariants of a parsed report.
func (c *collector) validate(r *TerminalReport) error {
	if r.Software == "" {
		return errors.New("software is required")
	}

	if r.Version == "" {
		return errors.New("version is required")
	}

	if r.SecondsElapsed < 0 {
		return fmt.Errorf("seconds_elapsed is negative: %f", r.SecondsElapsed)
	}

	for _, name := range BucketOrder {
		b, ok := r.Bucket(name)
		if !ok {
			continue
		}

		for version, result := range b {
			if result.NErrors < 0 || result.NTotal < 0 {
				return fmt.Errorf("bucket %s version %s has negative counts", name, version)
			}
		}
	}

	return nil
}
