package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termglyph/termglyph/internal/aggregate"
	"github.com/termglyph/termglyph/internal/profile"
	"github.com/termglyph/termglyph/internal/report"
	"github.com/termglyph/termglyph/internal/supervisor"
)

// fakeSupervisor returns canned results and records call order and overlap.
type fakeSupervisor struct {
	mu      sync.Mutex
	results map[string]*supervisor.Result
	delay   time.Duration

	calls         []string
	active        int
	maxConcurrent int
}

func (f *fakeSupervisor) Run(_ context.Context, p *profile.TerminalProfile) *supervisor.Result {
	f.mu.Lock()
	f.calls = append(f.calls, p.Name)
	f.active++
	if f.active > f.maxConcurrent {
		f.maxConcurrent = f.active
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.active--
	res := f.results[p.Name]
	f.mu.Unlock()

	if res == nil {
		res = failed(p.Name, supervisor.ReasonLaunchFailure)
	}

	return res
}

func succeeded(name string, wide int) *supervisor.Result {
	return &supervisor.Result{
		Terminal: name,
		Status:   supervisor.StatusCleaned,
		Outcome:  supervisor.StatusSucceeded,
		Report: &report.TerminalReport{
			Software:      name,
			Version:       "1.0",
			WideCharacter: report.Bucket{"15.0.0": {NErrors: wide, NTotal: 100}},
		},
	}
}

func failed(name, reason string) *supervisor.Result {
	return &supervisor.Result{
		Terminal: name,
		Status:   supervisor.StatusCleaned,
		Outcome:  supervisor.StatusFailed,
		Reason:   reason,
		Err:      supervisor.ErrRunTimeout,
	}
}

func profiles(names ...string) []*profile.TerminalProfile {
	ps := make([]*profile.TerminalProfile, 0, len(names))
	for _, name := range names {
		ps = append(ps, &profile.TerminalProfile{Name: name, Kind: profile.KindDirectDisplay, Binary: name})
	}

	return ps
}

func newOrchestrator(fake *fakeSupervisor, workers int) Orchestrator {
	return NewOrchestrator(Config{
		Logger:     logrus.New(),
		Supervisor: fake,
		Policy:     aggregate.PolicyIntersect,
		Workers:    workers,
	})
}

func TestRunAggregatesSuccesses(t *testing.T) {
	t.Parallel()

	fake := &fakeSupervisor{results: map[string]*supervisor.Result{
		"tmux":   succeeded("tmux", 50),
		"screen": succeeded("screen", 50),
		"xterm":  succeeded("xterm", 0),
	}}

	out := newOrchestrator(fake, 1).Run(context.Background(), profiles("tmux", "screen", "xterm"))

	require.NotNil(t, out.Aggregate)
	assert.Equal(t, []string{"xterm", "screen", "tmux"}, out.Aggregate.Ranking)
	assert.Empty(t, out.Failures)
	assert.Len(t, out.Results, 3)
}

func TestRunCollectsFailuresWithoutAborting(t *testing.T) {
	t.Parallel()

	fake := &fakeSupervisor{results: map[string]*supervisor.Result{
		"xterm": succeeded("xterm", 3),
		"kitty": {
			Terminal: "kitty",
			Status:   supervisor.StatusCleaned,
			Outcome:  supervisor.StatusTimedOut,
			Reason:   supervisor.ReasonTimeout,
			Err:      supervisor.ErrRunTimeout,
		},
		"foot": {
			Terminal: "foot",
			Status:   supervisor.StatusCleaned,
			Outcome:  supervisor.StatusFailed,
			Reason:   supervisor.ReasonMissingBinary,
		},
	}}

	out := newOrchestrator(fake, 1).Run(context.Background(), profiles("xterm", "kitty", "foot"))

	assert.Equal(t, []string{"xterm"}, out.Aggregate.Terminals)

	require.Len(t, out.Failures, 2)
	assert.Equal(t, "kitty", out.Failures[0].Terminal)
	assert.Equal(t, supervisor.ReasonTimeout, out.Failures[0].Reason)
	require.ErrorIs(t, out.Failures[0].Err, supervisor.ErrRunTimeout)
	assert.Equal(t, "foot", out.Failures[1].Terminal)
	assert.Equal(t, supervisor.ReasonMissingBinary, out.Failures[1].Reason)
}

func TestRunSequentialPreservesOrder(t *testing.T) {
	t.Parallel()

	fake := &fakeSupervisor{results: map[string]*supervisor.Result{}}

	newOrchestrator(fake, 1).Run(context.Background(), profiles("xterm", "kitty", "foot", "st"))

	assert.Equal(t, []string{"xterm", "kitty", "foot", "st"}, fake.calls)
	assert.Equal(t, 1, fake.maxConcurrent)
}

func TestRunBoundsConcurrency(t *testing.T) {
	t.Parallel()

	fake := &fakeSupervisor{
		results: map[string]*supervisor.Result{},
		delay:   50 * time.Millisecond,
	}

	out := newOrchestrator(fake, 2).Run(context.Background(), profiles("a", "b", "c", "d"))

	assert.Len(t, fake.calls, 4)
	assert.LessOrEqual(t, fake.maxConcurrent, 2)
	assert.Len(t, out.Results, 4)
}

func TestRunEmptyBatch(t *testing.T) {
	t.Parallel()

	out := newOrchestrator(&fakeSupervisor{}, 4).Run(context.Background(), nil)

	assert.Empty(t, out.Results)
	assert.Empty(t, out.Failures)
	assert.Empty(t, out.Aggregate.Ranking)
}
