// Package commands implements the vzb CLI commands.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vizbench/vzb/internal/config"
)

var versionInfo struct {
	version string
	commit  string
	date    string
}

// SetVersionInfo sets version information from main (populated by goreleaser).
func SetVersionInfo(version, commit, date string) {
	versionInfo.version = version
	versionInfo.commit = commit
	versionInfo.date = date
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("vzb %s (commit %s, built %s)\n",
		versionInfo.version, versionInfo.commit, versionInfo.date))
}

var (
	configPath string
	verbose    bool
)

// logger is built in PersistentPreRunE; commands log through it.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "vzb",
	Short: "Chart and AI workbench for tabular files",
	Long: `vzb talks to a vizbench backend: upload CSV/Excel files, resolve the
backend's chart suggestions into renderer-ready chart specs, read the AI
summary of a file and chat about its data.

Commands:
  vzb init                 - Write a .vizbench config file
  vzb files                - List uploaded files
  vzb upload <path>        - Upload a file and open it
  vzb open <file-id>       - Show the summary and charts of a file
  vzb delete <file-id>     - Delete a file (requires --confirm)
  vzb chat <file-id> [msg] - Ask the AI about a file

Environment variables:
  VIZBENCH_URL      - Server URL (default: http://localhost:5000)
  VIZBENCH_API_KEY  - Bearer token sent with every request`,
	// Don't show usage/errors on errors from subcommands (main.go handles errors)
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			config.SetPath(configPath)
		}
		loadDotenvBestEffort()
		colorEnabled = term.IsTerminal(int(os.Stdout.Fd()))

		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	// Disable cobra's auto-generated commands - they pollute the namespace
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Use an alternate .vizbench config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(chatCmd)
}

func loadDotenvBestEffort() {
	// Prefer the workspace root (dir containing .vizbench) so subdir invocations work.
	if root, err := config.WorkspaceRoot(); err == nil {
		_ = godotenv.Load(filepath.Join(root, ".env"))
		return
	}
	// Fallback: load from the current working directory.
	_ = godotenv.Load()
}

// newLogger builds the CLI logger: production JSON on stderr, debug level with --verbose.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}
