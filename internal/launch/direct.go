package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

// directStrategy drives GUI terminals: the terminal binary is started with
// an inline shell command that runs the probe and then writes the sentinel
// marker. Completion is sentinel presence — the only signal available
// across an unsynchronized process boundary with an arbitrary GUI program.
type directStrategy struct {
	log logrus.FieldLogger
	cfg Config
}

func newDirectStrategy(log logrus.FieldLogger, cfg Config) *directStrategy {
	return &directStrategy{
		log: log.WithField("strategy", "direct"),
		cfg: cfg,
	}
}

var _ Strategy = (*directStrategy)(nil)

func (s *directStrategy) Launch(ctx context.Context, req *Request) (Handle, error) {
	p := req.Profile

	if _, err := exec.LookPath(p.Binary); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingBinary, p.Binary)
	}

	inline := inlineCommand(s.cfg.ProbeBinary, req, true)
	args := substituteArgs(p.Args, inline, req.Session())

	var cmd *exec.Cmd

	if s.cfg.Method == MethodScripted {
		wrapped := append([]string{
			"-a",
			"--server-args=-screen 0 " + s.cfg.ScreenGeometry,
			p.Binary,
		}, args...)
		cmd = exec.Command(s.cfg.XvfbRunPath, wrapped...) //nolint:gosec // G204: args are built from registry templates
	} else {
		cmd = exec.Command(p.Binary, args...) //nolint:gosec // G204: args are built from registry templates
		if req.Display != "" {
			cmd.Env = append(os.Environ(), "DISPLAY="+req.Display)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLaunchFailure, p.Name, err)
	}

	s.log.WithFields(logrus.Fields{
		"terminal": p.Name,
		"pid":      cmd.Process.Pid,
		"display":  req.Display,
	}).Debug("terminal started")

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	return &processHandle{
		cmd:      cmd,
		exited:   exited,
		sentinel: req.SentinelPath,
	}, nil
}

// processHandle tracks a directly launched terminal process.
type processHandle struct {
	cmd      *exec.Cmd
	exited   chan error
	sentinel string
	once     sync.Once
}

func (h *processHandle) Complete(_ context.Context) bool {
	_, err := os.Stat(h.sentinel)
	return err == nil
}

func (h *processHandle) Terminate() {
	h.once.Do(func() {
		if h.cmd.Process != nil {
			// The terminal usually exited on its own; this race is expected.
			_ = h.cmd.Process.Kill()
		}

		<-h.exited
	})
}
