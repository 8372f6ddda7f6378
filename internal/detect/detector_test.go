package detect

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/termglyph/termglyph/internal/profile"
)

func TestAvailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		profile   *profile.TerminalProfile
		timeout   time.Duration
		available bool
	}{
		{
			name:      "binary exists and probe exits zero",
			profile:   &profile.TerminalProfile{Name: "ok", Binary: "true"},
			timeout:   2 * time.Second,
			available: true,
		},
		{
			name:      "non-zero exit still counts as available",
			profile:   &profile.TerminalProfile{Name: "grumpy", Binary: "false"},
			timeout:   2 * time.Second,
			available: true,
		},
		{
			name:      "missing binary",
			profile:   &profile.TerminalProfile{Name: "ghost", Binary: "no-such-terminal-anywhere"},
			timeout:   2 * time.Second,
			available: false,
		},
		{
			name:      "probe that hangs past the timeout",
			profile:   &profile.TerminalProfile{Name: "slow", Binary: "sleep", DetectArgs: []string{"5"}},
			timeout:   50 * time.Millisecond,
			available: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := NewDetector(logrus.New(), tt.timeout)
			assert.Equal(t, tt.available, d.Available(context.Background(), tt.profile))
		})
	}
}

func TestVersionLabel(t *testing.T) {
	t.Parallel()

	d := NewDetector(logrus.New(), 2*time.Second)

	p := &profile.TerminalProfile{
		Name:       "fake-term",
		Binary:     "sh",
		DetectArgs: []string{"-c", "echo fake-term 1.2.3; echo trailing noise"},
	}
	assert.Equal(t, "fake-term 1.2.3", d.VersionLabel(context.Background(), p))

	silent := &profile.TerminalProfile{Name: "mute", Binary: "true"}
	assert.Equal(t, "unknown", d.VersionLabel(context.Background(), silent))

	missing := &profile.TerminalProfile{Name: "ghost", Binary: "no-such-terminal-anywhere"}
	assert.Equal(t, "unknown", d.VersionLabel(context.Background(), missing))
}

func TestDetectPartitionsInOrder(t *testing.T) {
	t.Parallel()

	profiles := []*profile.TerminalProfile{
		{Name: "first", Binary: "true"},
		{Name: "ghost", Binary: "no-such-terminal-anywhere"},
		{Name: "second", Binary: "true"},
	}

	available, missing := NewDetector(logrus.New(), 2*time.Second).Detect(context.Background(), profiles)

	assert.Len(t, available, 2)
	assert.Equal(t, "first", available[0].Name)
	assert.Equal(t, "second", available[1].Name)
	assert.Len(t, missing, 1)
	assert.Equal(t, "ghost", missing[0].Name)
}
