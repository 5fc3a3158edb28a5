package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var uploadJSON bool

// uploadExtensions are the file types the backend accepts.
var uploadExtensions = map[string]bool{".csv": true, ".xlsx": true, ".xls": true}

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a CSV or Excel file and open it",
	Long: `Upload a CSV or Excel file to the vizbench backend, then open it in the
workbench and print its AI summary and charts.

Examples:
  vzb upload sales.csv
  vzb upload report.xlsx --json`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadJSON, "json", false, "Output as JSON")
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := checkUploadPath(path); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
	defer cancel()

	resp, err := newClient(cfg).Upload(ctx, path, f)
	if err != nil {
		return fmt.Errorf("uploading %s: %s", filepath.Base(path), describeError(err))
	}
	if !uploadJSON {
		fmt.Fprintln(cmd.OutOrStdout(), styled(successStyle, fmt.Sprintf("✓ Uploaded %s as file #%d", resp.Filename, resp.FileID)))
		fmt.Fprintln(cmd.OutOrStdout())
	}

	ctrl := newController(cfg, 0)
	defer ctrl.Close()

	ctrl.AdoptUpload(ctx, resp)
	s, err := ctrl.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for file %d: %w", resp.FileID, err)
	}
	return printSession(cmd, s, uploadJSON)
}

func checkUploadPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); !uploadExtensions[ext] {
		return fmt.Errorf("unsupported file type %q: use .csv, .xlsx or .xls", ext)
	}
	return nil
}
