package profile

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	errProfileNameRequired   = errors.New("profile name is required")
	errProfileBinaryRequired = errors.New("profile binary is required")
	errProfileKindInvalid    = errors.New("profile kind is invalid")
	errTemplateMissingCmd    = errors.New("launch template missing {cmd} placeholder")
	errTemplateMissingSess   = errors.New("launch template missing {session} placeholder")
	errInvalidTimeout        = errors.New("invalid timeout")
)

// overlayFile is the on-disk shape of a profile overlay document.
type overlayFile struct {
	Profiles []*overlayProfile `yaml:"profiles"`
}

type overlayProfile struct {
	Name            string   `yaml:"name"`
	Kind            string   `yaml:"kind"`
	Binary          string   `yaml:"binary"`
	Args            []string `yaml:"args"`
	QueryArgs       []string `yaml:"query_args,omitempty"`
	StopArgs        []string `yaml:"stop_args,omitempty"`
	RequiresDisplay bool     `yaml:"requires_display"`
	DetectArgs      []string `yaml:"detect_args,omitempty"`
	Timeout         string   `yaml:"timeout,omitempty"`
}

// Loader builds the profile registry, optionally overlaying a YAML file on
// top of the built-in set. Overlay entries replace built-ins of the same
// name and append otherwise.
type Loader interface {
	Load(path string) (*Registry, error)
}

type loader struct {
	log logrus.FieldLogger
}

// NewLoader creates a new profile loader.
func NewLoader(log logrus.FieldLogger) Loader {
	return &loader{
		log: log.WithField("component", "profile_loader"),
	}
}

// Load returns the built-in registry, extended by the overlay file at path
// when one is configured.
func (l *loader) Load(path string) (*Registry, error) {
	registry := Builtin()

	if path == "" {
		return registry, nil
	}

	l.log.WithField("path", path).Debug("loading profile overlay")

	data, err := os.ReadFile(path) //nolint:gosec // G304: reading operator-supplied profile config
	if err != nil {
		return nil, fmt.Errorf("reading profiles from %s: %w", path, err)
	}

	var doc overlayFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing profiles from %s: %w", path, err)
	}

	seen := make(map[string]bool, len(doc.Profiles))

	for i, entry := range doc.Profiles {
		p, err := l.convert(entry)
		if err != nil {
			return nil, fmt.Errorf("validating profile %d (%s): %w", i, entry.Name, err)
		}

		if seen[p.Name] {
			return nil, fmt.Errorf("%w: %s", errDuplicateName, p.Name)
		}

		seen[p.Name] = true

		if _, err := registry.Get(p.Name); err == nil {
			l.log.WithField("profile", p.Name).Debug("overlay replaces built-in profile")
			registry.replace(p)

			continue
		}

		if err := registry.add(p); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// convert validates an overlay entry and turns it into a TerminalProfile.
func (l *loader) convert(entry *overlayProfile) (*TerminalProfile, error) {
	if entry.Name == "" {
		return nil, errProfileNameRequired
	}

	if entry.Binary == "" {
		return nil, errProfileBinaryRequired
	}

	kind := Kind(entry.Kind)

	switch kind {
	case KindDirectDisplay:
		if !hasPlaceholder(entry.Args, CmdPlaceholder) {
			return nil, errTemplateMissingCmd
		}
	case KindMultiplexer:
		if !hasPlaceholder(entry.Args, CmdPlaceholder) {
			return nil, errTemplateMissingCmd
		}

		if !hasPlaceholder(entry.Args, SessionPlaceholder) {
			return nil, errTemplateMissingSess
		}
	case KindContainer:
		// The container image carries its own launch logic.
	default:
		return nil, fmt.Errorf("%w: %q (must be one of: %s, %s, %s)",
			errProfileKindInvalid, entry.Kind, KindDirectDisplay, KindMultiplexer, KindContainer)
	}

	p := &TerminalProfile{
		Name:            entry.Name,
		Kind:            kind,
		Binary:          entry.Binary,
		Args:            entry.Args,
		QueryArgs:       entry.QueryArgs,
		StopArgs:        entry.StopArgs,
		RequiresDisplay: entry.RequiresDisplay,
		DetectArgs:      entry.DetectArgs,
	}

	if len(p.DetectArgs) == 0 {
		p.DetectArgs = []string{"--version"}
	}

	if entry.Timeout != "" {
		timeout, err := time.ParseDuration(entry.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errInvalidTimeout, entry.Timeout)
		}

		p.Timeout = timeout
	}

	return p, nil
}

func hasPlaceholder(args []string, placeholder string) bool {
	for _, arg := range args {
		if strings.Contains(arg, placeholder) {
			return true
		}
	}

	return false
}
