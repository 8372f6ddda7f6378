// Package detect probes which terminal binaries are usable on this host.
package detect

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/termglyph/termglyph/internal/profile"
)

// Detector checks terminal availability ahead of a test batch.
type Detector interface {
	Available(ctx context.Context, p *profile.TerminalProfile) bool
	VersionLabel(ctx context.Context, p *profile.TerminalProfile) string
	Detect(ctx context.Context, profiles []*profile.TerminalProfile) (available, missing []*profile.TerminalProfile)
}

type detector struct {
	log     logrus.FieldLogger
	timeout time.Duration
}

var _ Detector = (*detector)(nil)

// NewDetector creates a detector whose version probes are bounded by timeout.
func NewDetector(log logrus.FieldLogger, timeout time.Duration) Detector {
	return &detector{
		log:     log.WithField("component", "detector"),
		timeout: timeout,
	}
}

// Available runs the profile's version probe. A terminal counts as available
// when its binary exists and the probe completes within the timeout; the
// exit code is ignored because several terminals exit non-zero from
// --version style flags.
func (d *detector) Available(ctx context.Context, p *profile.TerminalProfile) bool {
	if _, err := exec.LookPath(p.Binary); err != nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, p.Binary, p.DetectArgs...) //nolint:gosec // G204: binary and args come from the profile registry

	err := cmd.Run()
	if err == nil {
		return true
	}

	if probeCtx.Err() != nil {
		d.log.WithField("terminal", p.Name).Debug("availability probe timed out")
		return false
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return true
	}

	d.log.WithError(err).WithField("terminal", p.Name).Debug("availability probe failed")

	return false
}

// VersionLabel runs the version probe and returns the first line of its
// combined output as the terminal's declared version label, or "unknown"
// when nothing usable comes back.
func (d *detector) VersionLabel(ctx context.Context, p *profile.TerminalProfile) string {
	probeCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, p.Binary, p.DetectArgs...) //nolint:gosec // G204: binary and args come from the profile registry

	out, err := cmd.CombinedOutput()
	if len(out) == 0 && err != nil {
		return "unknown"
	}

	line, _, _ := strings.Cut(string(out), "\n")

	line = strings.TrimSpace(line)
	if line == "" {
		return "unknown"
	}

	return line
}

// Detect partitions profiles into available and missing, preserving order.
func (d *detector) Detect(ctx context.Context, profiles []*profile.TerminalProfile) (available, missing []*profile.TerminalProfile) {
	for _, p := range profiles {
		if d.Available(ctx, p) {
			available = append(available, p)
		} else {
			missing = append(missing, p)
		}
	}

	d.log.WithFields(logrus.Fields{
		"available": len(available),
		"missing":   len(missing),
	}).Debug("terminal detection finished")

	return available, missing
}
