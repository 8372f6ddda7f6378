// Package config handles configuration loading and management
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	ProbeBinary   string
	ResultsDir    string
	Method        string
	Workers       int
	RunTimeout    time.Duration
	PollInterval  time.Duration
	DisplayMin    int
	DisplayMax    int
	SettleDelay   time.Duration
	LockDir       string
	XvfbPath      string
	XvfbRunPath   string
	DockerImage   string
	RankPolicy    string
	ProfilesFile  string
	DetectTimeout time.Duration
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if the file doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		ProbeBinary:  getEnv("PROBE_BINARY", DefaultProbeBinary),
		ResultsDir:   getEnv("RESULTS_DIR", DefaultResultsDir),
		Method:       getEnv("METHOD", DefaultMethod),
		LockDir:      getEnv("LOCK_DIR", DefaultLockDir),
		XvfbPath:     getEnv("XVFB_PATH", DefaultXvfbPath),
		XvfbRunPath:  getEnv("XVFB_RUN_PATH", DefaultXvfbRunPath),
		DockerImage:  getEnv("DOCKER_IMAGE", DefaultDockerImage),
		RankPolicy:   getEnv("RANK_POLICY", DefaultRankPolicy),
		ProfilesFile: getEnv("PROFILES_FILE", ""),
	}

	var err error

	if cfg.Workers, err = getEnvInt("WORKERS", DefaultWorkers); err != nil {
		return nil, err
	}

	if cfg.DisplayMin, err = getEnvInt("DISPLAY_MIN", DefaultDisplayMin); err != nil {
		return nil, err
	}

	if cfg.DisplayMax, err = getEnvInt("DISPLAY_MAX", DefaultDisplayMax); err != nil {
		return nil, err
	}

	if cfg.RunTimeout, err = getEnvDuration("RUN_TIMEOUT", DefaultRunTimeout); err != nil {
		return nil, err
	}

	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}

	if cfg.SettleDelay, err = getEnvDuration("SETTLE_DELAY", DefaultSettleDelay); err != nil {
		return nil, err
	}

	if cfg.DetectTimeout, err = getEnvDuration("DETECT_TIMEOUT", DefaultDetectTimeout); err != nil {
		return nil, err
	}

	if cfg.DisplayMin > cfg.DisplayMax {
		return nil, fmt.Errorf("invalid display range: %d..%d", cfg.DisplayMin, cfg.DisplayMax)
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("invalid WORKERS: %d", cfg.Workers)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return parsed, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return parsed, nil
}

func (c *Config) String() string {
	profilesDisplay := c.ProfilesFile
	if profilesDisplay == "" {
		profilesDisplay = "(built-in registry)"
	}

	return fmt.Sprintf(`Current Configuration:
======================
Probe Binary:     %s
Results Dir:      %s
Method:           %s
Workers:          %d
Run Timeout:      %s
Poll Interval:    %s
Display Range:    :%d..:%d
Settle Delay:     %s
Lock Dir:         %s
Rank Policy:      %s
Profiles File:    %s`,
		c.ProbeBinary,
		c.ResultsDir,
		c.Method,
		c.Workers,
		c.RunTimeout,
		c.PollInterval,
		c.DisplayMin,
		c.DisplayMax,
		c.SettleDelay,
		c.LockDir,
		c.RankPolicy,
		profilesDisplay,
	)
}
