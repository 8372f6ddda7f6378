// Package launch starts a terminal or multiplexer program running the
// probe and detects that the run has finished. Strategies are polymorphic
// over the profile's launch kind; the handle a launch returns knows how to
// poll its own completion and how to tear itself down.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"

	"github.com/termglyph/termglyph/internal/profile"
)

var (
	// ErrMissingBinary means the terminal executable is not on PATH.
	ErrMissingBinary = errors.New("missing binary")
	// ErrLaunchFailure means the terminal refused to start.
	ErrLaunchFailure = errors.New("launch failure")

	errUnknownMethod = errors.New("unknown method")
	errUnknownKind   = errors.New("no strategy for launch kind")
)

// Launch methods selectable on the command line.
const (
	MethodAuto     = "auto"
	MethodNative   = "native"
	MethodScripted = "scripted"
	MethodDocker   = "docker"
)

// Request describes one run to be launched.
type Request struct {
	Profile      *profile.TerminalProfile
	RunID        string
	OutputPath   string
	SentinelPath string
	// Display is the DISPLAY value for the child process. Empty when the
	// profile needs none or the method manages the display itself.
	Display string
	// VersionLabel is handed to the probe as --version.
	VersionLabel string
}

// Session returns the multiplexer session name for this run.
func (r *Request) Session() string {
	id := r.RunID
	if len(id) > 8 {
		id = id[:8]
	}

	return "termglyph-" + id
}

// Handle is an opaque reference to a started run.
type Handle interface {
	// Complete reports whether the run has finished: the sentinel marker
	// exists, or the named session is gone, depending on the strategy.
	Complete(ctx context.Context) bool
	// Terminate tears the run down. Idempotent; failure to kill something
	// already dead is not an error.
	Terminate()
}

// Strategy starts a run for profiles of one launch kind.
type Strategy interface {
	Launch(ctx context.Context, req *Request) (Handle, error)
}

// Runner executes a control command (tmux, screen, docker) and returns its
// combined output. Injectable so strategies are testable without the real
// binaries.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec // G204: commands are built from registry templates
	return string(out), err
}

// Config carries the launcher's cross-strategy settings.
type Config struct {
	ProbeBinary    string
	Method         string
	XvfbRunPath    string
	ScreenGeometry string
	DockerImage    string
}

// Launcher picks the strategy implementation for a profile under the
// configured method.
type Launcher struct {
	log logrus.FieldLogger
	cfg Config

	direct    *directStrategy
	mux       *muxStrategy
	container *containerStrategy
}

// NewLauncher creates the strategy set for one batch.
func NewLauncher(log logrus.FieldLogger, cfg Config) *Launcher {
	log = log.WithField("component", "launcher")

	return &Launcher{
		log:       log,
		cfg:       cfg,
		direct:    newDirectStrategy(log, cfg),
		mux:       newMuxStrategy(log, cfg, execRunner),
		container: newContainerStrategy(log, cfg, execRunner),
	}
}

// StrategyFor resolves the launch strategy for a profile. Under the docker
// method every profile routes through the container strategy.
func (l *Launcher) StrategyFor(p *profile.TerminalProfile) (Strategy, error) {
	if l.cfg.Method == MethodDocker {
		return l.container, nil
	}

	switch p.Kind {
	case profile.KindDirectDisplay:
		return l.direct, nil
	case profile.KindMultiplexer:
		return l.mux, nil
	case profile.KindContainer:
		return l.container, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownKind, p.Kind)
	}
}

// NeedsLease reports whether a run of this profile must hold a display
// lease before launching. Only the native method allocates displays; the
// scripted method delegates to xvfb-run and containers bring their own.
func (l *Launcher) NeedsLease(p *profile.TerminalProfile) bool {
	return l.cfg.Method == MethodNative &&
		p.Kind == profile.KindDirectDisplay &&
		p.RequiresDisplay
}

// ResolveMethod turns the auto method into a concrete one based on what is
// installed, preferring a native display server, then the xvfb-run
// wrapper, then docker.
func ResolveMethod(method, xvfbPath, xvfbRunPath string) (string, error) {
	switch method {
	case MethodNative, MethodScripted, MethodDocker:
		return method, nil
	case MethodAuto:
	default:
		return "", fmt.Errorf("%w: %q (must be one of: %s, %s, %s, %s)",
			errUnknownMethod, method, MethodAuto, MethodNative, MethodScripted, MethodDocker)
	}

	if _, err := exec.LookPath(xvfbPath); err == nil {
		return MethodNative, nil
	}

	if _, err := exec.LookPath(xvfbRunPath); err == nil {
		return MethodScripted, nil
	}

	if _, err := exec.LookPath("docker"); err == nil {
		return MethodDocker, nil
	}

	return "", fmt.Errorf("%w: auto found no display server, no xvfb-run, no docker", errUnknownMethod)
}

// probeArgs builds the probe invocation for one run.
func probeArgs(probeBinary string, req *Request) []string {
	return []string{
		probeBinary,
		"--save-yaml=" + req.OutputPath,
		"--quick",
		"--software=" + req.Profile.Name,
		"--version=" + req.VersionLabel,
	}
}

// inlineCommand joins the probe argv into a single shell command line,
// chaining the sentinel write behind it when the run completes via the
// marker convention. The sentinel is written whatever the probe exits
// with; the collector decides afterwards whether the output is usable.
func inlineCommand(probeBinary string, req *Request, withSentinel bool) string {
	cmdline := shellquote.Join(probeArgs(probeBinary, req)...)

	if withSentinel {
		cmdline += "; touch " + shellquote.Join(req.SentinelPath)
	}

	return cmdline
}

// substituteArgs fills the {cmd} and {session} placeholders in a launch
// template.
func substituteArgs(template []string, cmdline, session string) []string {
	args := make([]string, 0, len(template))

	for _, arg := range template {
		arg = strings.ReplaceAll(arg, profile.CmdPlaceholder, cmdline)
		arg = strings.ReplaceAll(arg, profile.SessionPlaceholder, session)
		args = append(args, arg)
	}

	return args
}
