package launch

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termglyph/termglyph/internal/profile"
)

func containerRequest() *Request {
	return &Request{
		Profile:      &profile.TerminalProfile{Name: "xterm", Kind: profile.KindDirectDisplay},
		RunID:        "runabc123",
		OutputPath:   "/results/xterm_20240101_120000.yaml",
		SentinelPath: "/results/xterm.done",
		VersionLabel: "389",
	}
}

func TestContainerLaunchMountsResults(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	s := newContainerStrategy(logrus.New(), Config{DockerImage: "termglyph-test"}, fake.run)

	_, err := s.Launch(context.Background(), containerRequest())
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	call := strings.Join(fake.calls[0], " ")
	assert.Contains(t, call, "docker run -d --rm --name termglyph-runabc12")
	assert.Contains(t, call, "-v /results:/results")
	assert.Contains(t, call, "termglyph-test xterm")
}

func TestContainerComplete(t *testing.T) {
	t.Parallel()

	inspectKey := callKey("docker", "inspect", "-f", "{{.State.Running}}", "termglyph-runabc12")

	tests := []struct {
		name     string
		out      string
		err      error
		complete bool
	}{
		{name: "still running", out: "true\n", complete: false},
		{name: "exited", out: "false\n", complete: true},
		{name: "already reaped", err: errors.New("no such container"), complete: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := newFakeRunner()
			fake.out[inspectKey] = tt.out
			if tt.err != nil {
				fake.errs[inspectKey] = tt.err
			}

			s := newContainerStrategy(logrus.New(), Config{DockerImage: "termglyph-test"}, fake.run)

			h, err := s.Launch(context.Background(), containerRequest())
			require.NoError(t, err)

			assert.Equal(t, tt.complete, h.Complete(context.Background()))
		})
	}
}

func TestContainerTerminateRemovesOnce(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	s := newContainerStrategy(logrus.New(), Config{DockerImage: "termglyph-test"}, fake.run)

	h, err := s.Launch(context.Background(), containerRequest())
	require.NoError(t, err)

	h.Terminate()
	h.Terminate()

	assert.Equal(t, 1, fake.countCalls("rm"))
}

func TestContainerLaunchFailure(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	runKey := callKey("docker", "run", "-d", "--rm", "--name", "termglyph-runabc12",
		"-v", "/results:/results", "termglyph-test", "xterm")
	fake.errs[runKey] = errors.New("exit status 125")
	fake.out[runKey] = "Unable to find image"

	s := newContainerStrategy(logrus.New(), Config{DockerImage: "termglyph-test"}, fake.run)

	_, err := s.Launch(context.Background(), containerRequest())
	require.ErrorIs(t, err, ErrLaunchFailure)
	assert.Contains(t, err.Error(), "Unable to find image")
}

func TestContainerMissingDocker(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	runKey := callKey("docker", "run", "-d", "--rm", "--name", "termglyph-runabc12",
		"-v", "/results:/results", "termglyph-test", "xterm")
	fake.errs[runKey] = &exec.Error{Name: "docker", Err: exec.ErrNotFound}

	s := newContainerStrategy(logrus.New(), Config{DockerImage: "termglyph-test"}, fake.run)

	_, err := s.Launch(context.Background(), containerRequest())
	require.ErrorIs(t, err, ErrMissingBinary)
}
