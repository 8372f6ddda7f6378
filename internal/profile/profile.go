// Package profile defines terminal profiles and the registry they live in.
// A profile describes one terminal or multiplexer kind and how to launch it;
// new terminals register a profile referencing an existing launch kind plus a
// command template, not new code.
package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind selects the launch strategy variant for a profile.
type Kind string

const (
	// KindDirectDisplay launches a GUI terminal with an inline shell command.
	KindDirectDisplay Kind = "direct-display"
	// KindMultiplexer launches a detached named session in a terminal multiplexer.
	KindMultiplexer Kind = "multiplexer"
	// KindContainer delegates the run to a container image.
	KindContainer Kind = "container"
)

// Template placeholders substituted at launch time.
const (
	// CmdPlaceholder is replaced with the inline probe command line.
	CmdPlaceholder = "{cmd}"
	// SessionPlaceholder is replaced with the per-run session name.
	SessionPlaceholder = "{session}"
)

var (
	errUnknownTerminal = errors.New("unknown terminal")
	errDuplicateName   = errors.New("duplicate profile name")
)

// TerminalProfile is the immutable configuration for one terminal kind.
type TerminalProfile struct {
	// Name is the unique registry key and the probe's --software label.
	Name string
	// Kind selects the launch strategy variant.
	Kind Kind
	// Binary is the terminal executable.
	Binary string
	// Args is the launch argument template. Direct-display templates carry a
	// {cmd} placeholder; multiplexer templates carry {session} and {cmd}.
	Args []string
	// QueryArgs, when set, is a session-liveness query template for
	// multiplexers: the session being gone signals completion. Empty means
	// the profile falls back to the sentinel-marker convention.
	QueryArgs []string
	// StopArgs is the session termination template for multiplexers.
	StopArgs []string
	// RequiresDisplay marks profiles that cannot start without a display.
	RequiresDisplay bool
	// DetectArgs are the arguments for the availability probe.
	DetectArgs []string
	// Timeout bounds one run of this profile. Zero means the global default.
	Timeout time.Duration
}

// UsesSentinel reports whether run completion is detected through the
// sentinel marker file rather than a session-liveness query.
func (p *TerminalProfile) UsesSentinel() bool {
	return p.Kind != KindMultiplexer || len(p.QueryArgs) == 0
}

// Registry holds an ordered, name-unique set of terminal profiles.
type Registry struct {
	ordered []*TerminalProfile
	byName  map[string]*TerminalProfile
}

// NewRegistry builds a registry from the given profiles, rejecting
// duplicate names.
func NewRegistry(profiles ...*TerminalProfile) (*Registry, error) {
	r := &Registry{
		ordered: make([]*TerminalProfile, 0, len(profiles)),
		byName:  make(map[string]*TerminalProfile, len(profiles)),
	}

	for _, p := range profiles {
		if err := r.add(p); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) add(p *TerminalProfile) error {
	if _, exists := r.byName[p.Name]; exists {
		return fmt.Errorf("%w: %s", errDuplicateName, p.Name)
	}

	r.ordered = append(r.ordered, p)
	r.byName[p.Name] = p

	return nil
}

// replace swaps an existing profile in place, preserving registry order.
func (r *Registry) replace(p *TerminalProfile) {
	for i, existing := range r.ordered {
		if existing.Name == p.Name {
			r.ordered[i] = p
			break
		}
	}

	r.byName[p.Name] = p
}

// Get returns the profile registered under name.
func (r *Registry) Get(name string) (*TerminalProfile, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (known: %s)", errUnknownTerminal, name, strings.Join(r.Names(), ", "))
	}

	return p, nil
}

// All returns the profiles in registration order.
func (r *Registry) All() []*TerminalProfile {
	out := make([]*TerminalProfile, len(r.ordered))
	copy(out, r.ordered)

	return out
}

// Names returns the registered profile names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Select resolves a list of terminal names into profiles, preserving the
// requested order. An unknown name fails the whole selection.
func (r *Registry) Select(names []string) ([]*TerminalProfile, error) {
	selected := make([]*TerminalProfile, 0, len(names))

	for _, name := range names {
		p, err := r.Get(name)
		if err != nil {
			return nil, err
		}

		selected = append(selected, p)
	}

	return selected, nil
}

// Builtin returns the default registry covering the terminals the system
// knows how to drive out of the box.
func Builtin() *Registry {
	r, err := NewRegistry(
		&TerminalProfile{
			Name:            "xterm",
			Kind:            KindDirectDisplay,
			Binary:          "xterm",
			Args:            []string{"-e", "{cmd}"},
			RequiresDisplay: true,
			DetectArgs:      []string{"-version"},
		},
		&TerminalProfile{
			Name:            "konsole",
			Kind:            KindDirectDisplay,
			Binary:          "konsole",
			Args:            []string{"-e", "{cmd}"},
			RequiresDisplay: true,
			DetectArgs:      []string{"--version"},
		},
		&TerminalProfile{
			Name:            "gnome-terminal",
			Kind:            KindDirectDisplay,
			Binary:          "gnome-terminal",
			Args:            []string{"--", "bash", "-c", "{cmd}; read"},
			RequiresDisplay: true,
			DetectArgs:      []string{"--version"},
		},
		&TerminalProfile{
			Name:            "kitty",
			Kind:            KindDirectDisplay,
			Binary:          "kitty",
			Args:            []string{"sh", "-c", "{cmd}"},
			RequiresDisplay: true,
			DetectArgs:      []string{"--version"},
		},
		&TerminalProfile{
			Name:            "alacritty",
			Kind:            KindDirectDisplay,
			Binary:          "alacritty",
			Args:            []string{"-e", "sh", "-c", "{cmd}"},
			RequiresDisplay: true,
			DetectArgs:      []string{"--version"},
		},
		&TerminalProfile{
			Name:            "foot",
			Kind:            KindDirectDisplay,
			Binary:          "foot",
			Args:            []string{"sh", "-c", "{cmd}"},
			RequiresDisplay: true,
			DetectArgs:      []string{"--version"},
		},
		&TerminalProfile{
			Name:            "rxvt-unicode",
			Kind:            KindDirectDisplay,
			Binary:          "urxvt",
			Args:            []string{"-e", "sh", "-c", "{cmd}"},
			RequiresDisplay: true,
			DetectArgs:      []string{"-help"},
		},
		&TerminalProfile{
			Name:            "st",
			Kind:            KindDirectDisplay,
			Binary:          "st",
			Args:            []string{"-e", "sh", "-c", "{cmd}"},
			RequiresDisplay: true,
			DetectArgs:      []string{"-v"},
		},
		&TerminalProfile{
			Name:            "wezterm",
			Kind:            KindDirectDisplay,
			Binary:          "wezterm",
			Args:            []string{"start", "--", "sh", "-c", "{cmd}"},
			RequiresDisplay: true,
			DetectArgs:      []string{"--version"},
		},
		&TerminalProfile{
			Name:       "tmux",
			Kind:       KindMultiplexer,
			Binary:     "tmux",
			Args:       []string{"new-session", "-d", "-s", "{session}", "{cmd}"},
			QueryArgs:  []string{"has-session", "-t", "{session}"},
			StopArgs:   []string{"kill-session", "-t", "{session}"},
			DetectArgs: []string{"-V"},
		},
		&TerminalProfile{
			Name:       "screen",
			Kind:       KindMultiplexer,
			Binary:     "screen",
			Args:       []string{"-d", "-m", "-S", "{session}", "sh", "-c", "{cmd}"},
			StopArgs:   []string{"-X", "-S", "{session}", "quit"},
			DetectArgs: []string{"--version"},
		},
	)
	if err != nil {
		// Builtin names are fixed at compile time; a duplicate is a programming error.
		panic(err)
	}

	return r
}
