// Package supervisor drives one terminal probe run from launch through cleanup.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/termglyph/termglyph/internal/config"
	"github.com/termglyph/termglyph/internal/detect"
	"github.com/termglyph/termglyph/internal/display"
	"github.com/termglyph/termglyph/internal/launch"
	"github.com/termglyph/termglyph/internal/profile"
	"github.com/termglyph/termglyph/internal/report"
)

// Status tracks a supervised run through its lifecycle.
type Status string

const (
	// StatusPending means the run exists but nothing has started yet.
	StatusPending Status = "pending"
	// StatusAcquiringDisplay means the run is waiting on a display lease.
	StatusAcquiringDisplay Status = "acquiring_display"
	// StatusLaunched means the terminal is up and the probe is running.
	StatusLaunched Status = "launched"
	// StatusSucceeded means the probe completed and its report was collected.
	StatusSucceeded Status = "succeeded"
	// StatusTimedOut means the probe did not complete within the run timeout.
	StatusTimedOut Status = "timed_out"
	// StatusFailed means the run broke down before a report could be collected.
	StatusFailed Status = "failed"
	// StatusCleaned means every resource held by the run has been released.
	StatusCleaned Status = "cleaned"
)

// Failure reasons recorded on results whose outcome is not success.
const (
	ReasonTimeout         = "timeout"
	ReasonLaunchFailure   = "launch failure"
	ReasonMissingBinary   = "missing binary"
	ReasonNoDisplay       = "display unavailable"
	ReasonCanceled        = "canceled"
	ReasonMissingOutput   = "missing output"
	ReasonMalformedOutput = "malformed output"
)

// ErrRunTimeout is recorded on results whose probe outlived the run timeout.
var ErrRunTimeout = errors.New("run timed out")

// Result is the record of one supervised terminal run.
type Result struct {
	Terminal   string
	RunID      string
	Status     Status
	Outcome    Status
	Reason     string
	Err        error
	Report     *report.TerminalReport
	OutputPath string
	Elapsed    time.Duration
}

// Succeeded reports whether the run produced a collected report.
func (r *Result) Succeeded() bool {
	return r.Outcome == StatusSucceeded
}

// Config wires the supervisor's collaborators and its run policy.
type Config struct {
	Logger    logrus.FieldLogger
	Launcher  *launch.Launcher
	Allocator display.Allocator
	Detector  detect.Detector
	Collector report.Collector

	// ResultsDir receives the probe's YAML reports.
	ResultsDir string
	// RunTimeout bounds runs whose profile carries no timeout of its own.
	RunTimeout time.Duration
	// PollInterval is how often a launched run is checked for completion.
	PollInterval time.Duration
}

// Supervisor runs a single terminal probe to completion. Failures are
// recorded on the result rather than returned, so one broken run never
// takes down the batch.
type Supervisor interface {
	Run(ctx context.Context, p *profile.TerminalProfile) *Result
}

type supervisor struct {
	log logrus.FieldLogger
	cfg Config
}

var _ Supervisor = (*supervisor)(nil)

// NewSupervisor creates a supervisor from cfg, defaulting the run timeout
// and poll interval when unset.
func NewSupervisor(cfg Config) Supervisor {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = config.DefaultRunTimeout
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.DefaultPollInterval
	}

	return &supervisor{
		log: cfg.Logger.WithField("component", "supervisor"),
		cfg: cfg,
	}
}

// Run takes one terminal through the full lifecycle: acquire a display if
// the launch strategy needs one, launch the probe, poll until it completes
// or the timeout lapses, collect the report, and clean up. Cleanup runs
// exactly once on every exit path.
func (s *supervisor) Run(ctx context.Context, p *profile.TerminalProfile) *Result {
	started := time.Now()

	res := &Result{
		Terminal: p.Name,
		RunID:    uuid.New().String(),
		Status:   StatusPending,
	}

	log := s.log.WithFields(logrus.Fields{
		"terminal": p.Name,
		"run":      res.RunID[:8],
	})

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = s.cfg.RunTimeout
	}

	res.OutputPath = filepath.Join(s.cfg.ResultsDir, report.OutputFileName(p.Name, started))
	sentinel := res.OutputPath + ".done"

	var (
		lease  *display.Lease
		handle launch.Handle
	)

	defer func() {
		res.Elapsed = time.Since(started)
		s.cleanup(log, res, handle, lease, sentinel)
	}()

	if err := os.MkdirAll(s.cfg.ResultsDir, 0o755); err != nil {
		s.conclude(log, res, StatusFailed, ReasonLaunchFailure, fmt.Errorf("creating results dir: %w", err))
		return res
	}

	strategy, err := s.cfg.Launcher.StrategyFor(p)
	if err != nil {
		s.conclude(log, res, StatusFailed, ReasonLaunchFailure, err)
		return res
	}

	req := &launch.Request{
		Profile:      p,
		RunID:        res.RunID,
		OutputPath:   res.OutputPath,
		SentinelPath: sentinel,
		VersionLabel: s.cfg.Detector.VersionLabel(ctx, p),
	}

	if s.cfg.Launcher.NeedsLease(p) {
		s.transition(log, res, StatusAcquiringDisplay)

		lease, err = s.cfg.Allocator.Acquire(ctx)
		if err != nil {
			reason := ReasonNoDisplay
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				reason = ReasonCanceled
			}

			s.conclude(log, res, StatusFailed, reason, err)

			return res
		}

		req.Display = lease.Display()
	}

	handle, err = strategy.Launch(ctx, req)
	if err != nil {
		reason := ReasonLaunchFailure
		if errors.Is(err, launch.ErrMissingBinary) {
			reason = ReasonMissingBinary
		}

		s.conclude(log, res, StatusFailed, reason, err)

		return res
	}

	s.transition(log, res, StatusLaunched)

	if waitErr := s.awaitCompletion(ctx, handle, timeout); waitErr != nil {
		if errors.Is(waitErr, ErrRunTimeout) {
			s.conclude(log, res, StatusTimedOut, ReasonTimeout, waitErr)
		} else {
			s.conclude(log, res, StatusFailed, ReasonCanceled, waitErr)
		}

		return res
	}

	rep, err := s.cfg.Collector.Collect(res.OutputPath)
	if err != nil {
		reason := ReasonMalformedOutput
		if errors.Is(err, report.ErrMissingOutput) {
			reason = ReasonMissingOutput
		}

		s.conclude(log, res, StatusFailed, reason, err)

		return res
	}

	res.Report = rep
	s.conclude(log, res, StatusSucceeded, "", nil)

	return res
}

// awaitCompletion polls the handle until the probe finishes, the timeout
// lapses, or the context is canceled.
func (s *supervisor) awaitCompletion(ctx context.Context, handle launch.Handle, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if handle.Complete(ctx) {
				return nil
			}

			if time.Now().After(deadline) {
				return fmt.Errorf("%w after %s", ErrRunTimeout, timeout)
			}
		}
	}
}

// cleanup tears down whatever the run holds: the probe process or session,
// the display lease, and the completion marker. Safe to call with a nil
// handle or lease, so every exit path funnels through it.
func (s *supervisor) cleanup(log logrus.FieldLogger, res *Result, handle launch.Handle, lease *display.Lease, sentinel string) {
	if handle != nil {
		handle.Terminate()
	}

	if lease != nil {
		s.cfg.Allocator.Release(lease)
	}

	if err := os.Remove(sentinel); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to remove completion marker")
	}

	s.transition(log, res, StatusCleaned)
}

func (s *supervisor) transition(log logrus.FieldLogger, res *Result, next Status) {
	res.Status = next
	log.WithField("status", next).Debug("run state changed")
}

func (s *supervisor) conclude(log logrus.FieldLogger, res *Result, outcome Status, reason string, err error) {
	res.Outcome = outcome
	res.Reason = reason
	res.Err = err

	s.transition(log, res, outcome)

	if outcome == StatusSucceeded {
		log.WithField("report", filepath.Base(res.OutputPath)).Info("probe run succeeded")
		return
	}

	log.WithError(err).WithField("reason", reason).Error("probe run failed")
}
