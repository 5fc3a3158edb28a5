// Package config handles .vizbench configuration file parsing.
//
// The .vizbench file is located at the workspace root and contains:
//
//	server_url: "http://..."      - vizbench backend URL
//	api_key: "..."                - Optional bearer token
//	histogram_bins: 10            - Default histogram bin count
//	request_timeout: "10s"        - Per-request HTTP timeout
//	fetch_timeout: "60s"          - Bound on the fetches of one file selection
//
// VIZBENCH_URL and VIZBENCH_API_KEY override the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = ".vizbench"

// Defaults used when a field is absent.
const (
	DefaultServerURL      = "http://localhost:5000"
	DefaultHistogramBins  = 10
	DefaultRequestTimeout = 10 * time.Second
	DefaultFetchTimeout   = 60 * time.Second
)

// Environment variables that override the file.
const (
	EnvServerURL = "VIZBENCH_URL"
	EnvAPIKey    = "VIZBENCH_API_KEY"
)

// pathOverride is the --config path. Empty means search.
var pathOverride string

// SetPath makes Load read path instead of searching for FileName. An empty
// path restores the search.
func SetPath(path string) {
	pathOverride = path
}

// GetPath returns the path Save writes to: the SetPath override, or FileName
// in the current directory.
func GetPath() string {
	if pathOverride == "" {
		return FileName
	}
	return pathOverride
}

// FindPath returns the file Load reads. The search climbs from the current
// directory to the enclosing git worktree root; outside a worktree only the
// current directory is tried. When nothing is found inside a worktree, the
// root candidate is returned with an error matching os.ErrNotExist.
func FindPath() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return FileName, nil
	}

	dirs := searchDirs(cwd)
	if len(dirs) == 0 {
		return FileName, nil
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, FileName)
		if exists(candidate) {
			return candidate, nil
		}
	}
	top := filepath.Join(dirs[len(dirs)-1], FileName)
	return top, &os.PathError{Op: "open", Path: top, Err: os.ErrNotExist}
}

// WorkspaceRoot returns the directory holding the config file Load reads.
func WorkspaceRoot() (string, error) {
	path, err := FindPath()
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Dir(path), nil
	}
	return filepath.Dir(abs), nil
}

// searchDirs lists start and its ancestors up to the nearest one holding
// .git. Nested worktrees stop the climb at the inner root. The result is
// empty when start is not inside a worktree.
func searchDirs(start string) []string {
	var dirs []string
	dir := start
	for {
		dirs = append(dirs, dir)
		if exists(filepath.Join(dir, ".git")) {
			return dirs
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var urlPattern = regexp.MustCompile(`^https?://[^\s]+$`)

// Config represents the .vizbench configuration file.
type Config struct {
	ServerURL      string `yaml:"server_url"`
	APIKey         string `yaml:"api_key,omitempty"`
	HistogramBins  int    `yaml:"histogram_bins,omitempty"`
	RequestTimeout string `yaml:"request_timeout,omitempty"`
	FetchTimeout   string `yaml:"fetch_timeout,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{ServerURL: DefaultServerURL}
}

// Load reads the config file found by FindPath.
func Load() (*Config, error) {
	path, err := FindPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadOrDefault loads the configuration file, falling back to Default when it
// does not exist, and applies environment overrides.
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFrom reads the config file at path. A missing file is reported with the
// unwrapped os error so errors.Is(err, os.ErrNotExist) holds.
func LoadFrom(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	if strings.TrimSpace(cfg.ServerURL) == "" {
		cfg.ServerURL = DefaultServerURL
	}
	return cfg, nil
}

// ApplyEnv overrides fields with VIZBENCH_URL and VIZBENCH_API_KEY when set.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		c.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.APIKey = v
	}
}

// Save writes the config to GetPath with owner-only permissions.
func (c *Config) Save() error {
	body, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# Generated by: vzb init\n")
	if c.APIKey != "" {
		buf.WriteString("# DO NOT COMMIT: holds the vizbench API key\n")
	}
	buf.WriteByte('\n')
	buf.Write(body)

	path := GetPath()
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// Validate checks that all fields are present and valid.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if !urlPattern.MatchString(c.ServerURL) {
		return fmt.Errorf("server_url must be a valid HTTP(S) URL")
	}
	if c.HistogramBins < 0 {
		return fmt.Errorf("histogram_bins must be positive")
	}
	if _, err := parseTimeout(c.RequestTimeout, DefaultRequestTimeout); err != nil {
		return fmt.Errorf("request_timeout: %w", err)
	}
	if _, err := parseTimeout(c.FetchTimeout, DefaultFetchTimeout); err != nil {
		return fmt.Errorf("fetch_timeout: %w", err)
	}
	return nil
}

// Bins returns the histogram bin count, or the default when unset.
func (c *Config) Bins() int {
	if c.HistogramBins <= 0 {
		return DefaultHistogramBins
	}
	return c.HistogramBins
}

// RequestTimeoutDuration returns the per-request timeout.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, err := parseTimeout(c.RequestTimeout, DefaultRequestTimeout)
	if err != nil {
		return DefaultRequestTimeout
	}
	return d
}

// FetchTimeoutDuration returns the bound on one selection's fetches.
func (c *Config) FetchTimeoutDuration() time.Duration {
	d, err := parseTimeout(c.FetchTimeout, DefaultFetchTimeout)
	if err != nil {
		return DefaultFetchTimeout
	}
	return d
}

func parseTimeout(value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}
