// Package orchestrator drives a batch of terminal probe runs and hands the
// collected reports to the aggregator.
package orchestrator

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/termglyph/termglyph/internal/aggregate"
	"github.com/termglyph/termglyph/internal/profile"
	"github.com/termglyph/termglyph/internal/report"
	"github.com/termglyph/termglyph/internal/supervisor"
)

// RunFailure records one profile that never produced a report.
type RunFailure struct {
	Terminal string
	Reason   string
	Err      error
}

// Outcome is the product of one batch: the aggregate comparison over the
// runs that succeeded, every run record, and the failure list.
type Outcome struct {
	Aggregate *aggregate.Report
	Results   []*supervisor.Result
	Failures  []RunFailure
}

// Config wires the orchestrator's collaborators and batch policy.
type Config struct {
	Logger     logrus.FieldLogger
	Supervisor supervisor.Supervisor
	// Policy picks the ranking key for the final aggregation.
	Policy aggregate.Policy
	// Workers bounds how many probe runs may be live at once; 1 runs the
	// batch sequentially.
	Workers int
}

// Orchestrator runs a set of terminal profiles end to end.
type Orchestrator interface {
	Run(ctx context.Context, profiles []*profile.TerminalProfile) *Outcome
}

type orchestrator struct {
	log logrus.FieldLogger
	cfg Config
}

var _ Orchestrator = (*orchestrator)(nil)

// NewOrchestrator creates an orchestrator from cfg.
func NewOrchestrator(cfg Config) Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	return &orchestrator{
		log: cfg.Logger.WithField("component", "orchestrator"),
		cfg: cfg,
	}
}

// Run supervises every profile, then aggregates once over the full set of
// collected reports so a partial batch never corrupts the ranking of the
// runs that did succeed. Profiles that never reach success land in the
// failure list with their reason instead of aborting the batch.
func (o *orchestrator) Run(ctx context.Context, profiles []*profile.TerminalProfile) *Outcome {
	workers := o.cfg.Workers
	if workers > len(profiles) && len(profiles) > 0 {
		workers = len(profiles)
	}

	o.log.WithFields(logrus.Fields{
		"terminals": len(profiles),
		"workers":   workers,
		"policy":    o.cfg.Policy,
	}).Info("starting probe batch")

	results := make([]*supervisor.Result, len(profiles))

	var g errgroup.Group
	g.SetLimit(workers)

	for i, p := range profiles {
		i, p := i, p
		g.Go(func() error {
			results[i] = o.cfg.Supervisor.Run(ctx, p)
			return nil
		})
	}

	_ = g.Wait()

	succeeded := make([]*report.TerminalReport, 0, len(results))
	failures := make([]RunFailure, 0)

	for _, res := range results {
		if res.Succeeded() {
			succeeded = append(succeeded, res.Report)
			continue
		}

		failures = append(failures, RunFailure{
			Terminal: res.Terminal,
			Reason:   res.Reason,
			Err:      res.Err,
		})
	}

	agg := aggregate.Aggregate(succeeded, o.cfg.Policy)

	o.log.WithFields(logrus.Fields{
		"succeeded": len(succeeded),
		"failed":    len(failures),
	}).Info("probe batch complete")

	return &Outcome{
		Aggregate: agg,
		Results:   results,
		Failures:  failures,
	}
}
