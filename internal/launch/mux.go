package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

// muxStrategy drives terminal multiplexers through detached named
// sessions. Profiles with a liveness query (tmux has-session) signal
// completion by the session being gone; profiles without one (screen) fall
// back to the sentinel-marker convention.
type muxStrategy struct {
	log    logrus.FieldLogger
	cfg    Config
	runner Runner
}

func newMuxStrategy(log logrus.FieldLogger, cfg Config, runner Runner) *muxStrategy {
	return &muxStrategy{
		log:    log.WithField("strategy", "mux"),
		cfg:    cfg,
		runner: runner,
	}
}

var _ Strategy = (*muxStrategy)(nil)

func (s *muxStrategy) Launch(ctx context.Context, req *Request) (Handle, error) {
	p := req.Profile

	if _, err := exec.LookPath(p.Binary); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingBinary, p.Binary)
	}

	session := req.Session()
	inline := inlineCommand(s.cfg.ProbeBinary, req, p.UsesSentinel())
	args := substituteArgs(p.Args, inline, session)

	if out, err := s.runner(ctx, p.Binary, args...); err != nil {
		return nil, fmt.Errorf("%w: %s: %v (%s)", ErrLaunchFailure, p.Name, err, out)
	}

	s.log.WithFields(logrus.Fields{
		"terminal": p.Name,
		"session":  session,
	}).Debug("session started")

	h := &muxHandle{
		runner:   s.runner,
		binary:   p.Binary,
		session:  session,
		stopArgs: substituteArgs(p.StopArgs, "", session),
	}

	if p.UsesSentinel() {
		h.sentinel = req.SentinelPath
	} else {
		h.queryArgs = substituteArgs(p.QueryArgs, "", session)
	}

	return h, nil
}

// muxHandle tracks a detached multiplexer session.
type muxHandle struct {
	runner    Runner
	binary    string
	session   string
	queryArgs []string
	stopArgs  []string
	sentinel  string
	once      sync.Once
}

func (h *muxHandle) Complete(ctx context.Context) bool {
	if h.sentinel != "" {
		_, err := os.Stat(h.sentinel)
		return err == nil
	}

	// The liveness query failing means the session is gone, which is the
	// completion signal itself.
	_, err := h.runner(ctx, h.binary, h.queryArgs...)

	return err != nil
}

func (h *muxHandle) Terminate() {
	h.once.Do(func() {
		if len(h.stopArgs) == 0 {
			return
		}

		// Killing a session that already ended fails; that is expected.
		_, _ = h.runner(context.Background(), h.binary, h.stopArgs...)
	})
}
