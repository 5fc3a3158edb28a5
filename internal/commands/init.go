package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vizbench/vzb/internal/config"
)

var (
	initURL     string
	initAPIKey  string
	initBins    int
	initTimeout string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a .vizbench config file",
	Long: `Write a .vizbench config file in the current directory.

Values default to VIZBENCH_URL / VIZBENCH_API_KEY (or .env) when the flags
are not given.

Examples:
  vzb init --url http://localhost:5000
  vzb init --url https://viz.example.com --api-key $KEY --bins 20`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initURL, "url", "", "Server URL (default: VIZBENCH_URL or http://localhost:5000)")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key sent as a bearer token")
	initCmd.Flags().IntVar(&initBins, "bins", 0, "Default histogram bin count")
	initCmd.Flags().StringVar(&initTimeout, "request-timeout", "", "Per-request timeout (e.g. 30s)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.GetPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists - use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	cfg := buildInitConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), styled(successStyle, fmt.Sprintf("✓ Wrote %s (server %s)", path, cfg.ServerURL)))
	if cfg.APIKey != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  Add %s to .gitignore: it contains your API key.\n", path)
	}
	return nil
}

func buildInitConfig() *config.Config {
	cfg := config.Default()
	cfg.ApplyEnv()
	if v := strings.TrimSpace(initURL); v != "" {
		cfg.ServerURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(initAPIKey); v != "" {
		cfg.APIKey = v
	}
	if initBins > 0 {
		cfg.HistogramBins = initBins
	}
	cfg.RequestTimeout = strings.TrimSpace(initTimeout)
	return cfg
}
