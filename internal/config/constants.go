package config

import "time"

const (
	// DefaultProbeBinary is the Unicode-capability probe invoked inside each terminal.
	DefaultProbeBinary = "ucs-detect"
	// DefaultResultsDir is where per-run report files and aggregate artifacts land.
	DefaultResultsDir = "./results"
	// DefaultMethod selects the launch pathway when none is requested.
	DefaultMethod = "auto"
	// DefaultWorkers is the number of concurrent test runs.
	DefaultWorkers = 1
	// DefaultRunTimeout bounds a single terminal run.
	DefaultRunTimeout = 120 * time.Second
	// DefaultPollInterval is how often a run is checked for completion.
	DefaultPollInterval = 1 * time.Second
	// DefaultDisplayMin is the first virtual-display identifier the allocator scans.
	DefaultDisplayMin = 99
	// DefaultDisplayMax is the last virtual-display identifier the allocator scans.
	DefaultDisplayMax = 110
	// DefaultSettleDelay is how long a freshly started display server gets to become ready.
	DefaultSettleDelay = 1 * time.Second
	// DefaultLockDir holds X server lock files and the allocator's claim files.
	DefaultLockDir = "/tmp"
	// DefaultXvfbPath is the headless display server binary.
	DefaultXvfbPath = "Xvfb"
	// DefaultXvfbRunPath is the display wrapper script used by the scripted method.
	DefaultXvfbRunPath = "xvfb-run"
	// DefaultDockerImage is the container image used by the docker method.
	DefaultDockerImage = "termglyph-test"
	// DefaultRankPolicy decides how unevenly exercised buckets compare.
	DefaultRankPolicy = "intersect"
	// DefaultDetectTimeout bounds a terminal availability probe.
	DefaultDetectTimeout = 2 * time.Second
	// ScreenGeometry is the virtual screen passed to the display server.
	ScreenGeometry = "1024x768x24"
	// JSONReportName is the machine-readable aggregate artifact filename.
	JSONReportName = "aggregate_report.json"
	// MarkdownReportName is the human-readable aggregate artifact filename.
	MarkdownReportName = "aggregate_report.md"
)
