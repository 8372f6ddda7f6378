package launch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// containerStrategy delegates a run to a container image carrying the
// terminal and its own display stack. The results directory is bind-mounted
// so report files land next to the other methods' output.
type containerStrategy struct {
	log    logrus.FieldLogger
	cfg    Config
	runner Runner
}

func newContainerStrategy(log logrus.FieldLogger, cfg Config, runner Runner) *containerStrategy {
	return &containerStrategy{
		log:    log.WithField("strategy", "container"),
		cfg:    cfg,
		runner: runner,
	}
}

var _ Strategy = (*containerStrategy)(nil)

func (s *containerStrategy) Launch(ctx context.Context, req *Request) (Handle, error) {
	name := req.Session()
	mount := filepath.Dir(req.OutputPath) + ":/results"

	out, err := s.runner(ctx, "docker",
		"run", "-d", "--rm",
		"--name", name,
		"-v", mount,
		s.cfg.DockerImage,
		req.Profile.Name,
	)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%w: docker", ErrMissingBinary)
		}

		return nil, fmt.Errorf("%w: %s: %v (%s)", ErrLaunchFailure, req.Profile.Name, err, strings.TrimSpace(out))
	}

	s.log.WithFields(logrus.Fields{
		"terminal":  req.Profile.Name,
		"container": name,
	}).Debug("container started")

	return &containerHandle{
		runner: s.runner,
		name:   name,
	}, nil
}

// containerHandle tracks one test container.
type containerHandle struct {
	runner Runner
	name   string
	once   sync.Once
}

func (h *containerHandle) Complete(ctx context.Context) bool {
	out, err := h.runner(ctx, "docker", "inspect", "-f", "{{.State.Running}}", h.name)
	if err != nil {
		// Inspect failing means the container is gone (--rm reaped it).
		return true
	}

	return strings.TrimSpace(out) != "true"
}

func (h *containerHandle) Terminate() {
	h.once.Do(func() {
		// Removing an already-reaped container fails; that is expected.
		_, _ = h.runner(context.Background(), "docker", "rm", "-f", h.name)
	})
}
