package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vizbench/vzb/internal/client"
	"github.com/vizbench/vzb/internal/config"
	"github.com/vizbench/vzb/internal/workbench"
)

// waitTimeout bounds how long open/upload wait for the fetches to settle.
// The controller's own fetch timeout normally fires first.
const waitTimeout = 5 * time.Minute

// loadConfig loads .vizbench (or defaults) with env overrides and validates it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", config.FileName, err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *client.Client {
	var c *client.Client
	if cfg.APIKey != "" {
		c = client.NewWithAPIKey(cfg.ServerURL, cfg.APIKey)
	} else {
		c = client.New(cfg.ServerURL)
	}
	c.SetTimeout(cfg.RequestTimeoutDuration())
	return c
}

// newController wires a workbench controller to the backend described by cfg.
// bins overrides the configured histogram bin count when positive.
func newController(cfg *config.Config, bins int) *workbench.Controller {
	if bins <= 0 {
		bins = cfg.Bins()
	}
	return workbench.New(newClient(cfg),
		workbench.WithLogger(logger),
		workbench.WithBinCount(bins),
		workbench.WithFetchTimeout(cfg.FetchTimeoutDuration()),
	)
}

// parseFileID parses a positive file id argument.
func parseFileID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid file id %q: must be a positive integer", arg)
	}
	return id, nil
}

// describeError returns the backend's error message when there is one.
func describeError(err error) string {
	var httpErr *client.Error
	if errors.As(err, &httpErr) {
		if msg := httpErr.Message(); msg != "" {
			return fmt.Sprintf("%s (HTTP %d)", msg, httpErr.StatusCode)
		}
	}
	return err.Error()
}
