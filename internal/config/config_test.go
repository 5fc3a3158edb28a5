package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error: %v", err)
	}
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadAndSave(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	cfg := &Config{
		ServerURL:      "http://localhost:5000",
		APIKey:         "vz_secret",
		HistogramBins:  12,
		RequestTimeout: "15s",
		FetchTimeout:   "2m",
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(tmpDir, FileName))
	if err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
	if !strings.Contains(string(raw), "DO NOT COMMIT") {
		t.Error("Expected warning header for a file holding an API key")
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("Load() = %+v, want %+v", *loaded, *cfg)
	}
	if loaded.Bins() != 12 {
		t.Errorf("Bins() = %d, want 12", loaded.Bins())
	}
	if loaded.RequestTimeoutDuration() != 15*time.Second {
		t.Errorf("RequestTimeoutDuration() = %v, want 15s", loaded.RequestTimeoutDuration())
	}
	if loaded.FetchTimeoutDuration() != 2*time.Minute {
		t.Errorf("FetchTimeoutDuration() = %v, want 2m", loaded.FetchTimeoutDuration())
	}
}

func TestSave_NoKeyNoWarning(t *testing.T) {
	chdir(t, t.TempDir())

	if err := (&Config{ServerURL: "http://localhost:5000"}).Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	raw, _ := os.ReadFile(FileName)
	if strings.Contains(string(raw), "DO NOT COMMIT") {
		t.Error("Did not expect warning header without an API key")
	}
	if strings.Contains(string(raw), "api_key") {
		t.Error("Empty api_key should be omitted")
	}
}

func TestLoadNotFound(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load()
	if err == nil {
		t.Error("Load() should return error when file doesn't exist")
	}
	if !os.IsNotExist(err) {
		t.Errorf("Load() error should be IsNotExist, got: %v", err)
	}
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvServerURL, "")
	t.Setenv(EnvAPIKey, "")

	cfg, err := LoadOrDefault()
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %q, want %q", cfg.ServerURL, DefaultServerURL)
	}
	if cfg.Bins() != DefaultHistogramBins {
		t.Errorf("Bins() = %d, want %d", cfg.Bins(), DefaultHistogramBins)
	}
	if cfg.RequestTimeoutDuration() != DefaultRequestTimeout {
		t.Errorf("RequestTimeoutDuration() = %v", cfg.RequestTimeoutDuration())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadOrDefault_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	data := []byte("server_url: \"http://files.example:5000\"\napi_key: \"from_file\"\n")
	if err := os.WriteFile(filepath.Join(tmpDir, FileName), data, 0600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	t.Setenv(EnvServerURL, "https://env.example")
	t.Setenv(EnvAPIKey, "")

	cfg, err := LoadOrDefault()
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if cfg.ServerURL != "https://env.example" {
		t.Errorf("ServerURL = %q, want env override", cfg.ServerURL)
	}
	if cfg.APIKey != "from_file" {
		t.Errorf("APIKey = %q, want file value when env is empty", cfg.APIKey)
	}
}

func TestLoadOrDefault_ParseError(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	if err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte("server_url: [unclosed\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if _, err := LoadOrDefault(); err == nil {
		t.Error("LoadOrDefault() should surface parse errors")
	}
}

func TestLoadFrom_MissingURLUsesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("histogram_bins: 4\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %q, want default", cfg.ServerURL)
	}
	if cfg.Bins() != 4 {
		t.Errorf("Bins() = %d, want 4", cfg.Bins())
	}
}

// tree creates each relative dir under root and writes files (path -> body).
func tree(t *testing.T, root string, dirs []string, files map[string]string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			t.Fatalf("MkdirAll(%s) error: %v", d, err)
		}
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(body), 0600); err != nil {
			t.Fatalf("WriteFile(%s) error: %v", name, err)
		}
	}
}

func TestLoad_SearchesUpToWorktreeRoot(t *testing.T) {
	root := t.TempDir()
	tree(t, root,
		[]string{"repo/.git", "repo/nested/dir"},
		map[string]string{"repo/" + FileName: "server_url: \"http://localhost:5001\"\nhistogram_bins: 20\n"},
	)
	chdir(t, filepath.Join(root, "repo", "nested", "dir"))

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.ServerURL != "http://localhost:5001" || loaded.Bins() != 20 {
		t.Errorf("Load() = %+v, want the repo root config", *loaded)
	}

	ws, err := WorkspaceRoot()
	if err != nil {
		t.Fatalf("WorkspaceRoot() error: %v", err)
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(root, "repo"))
	got, _ := filepath.EvalSymlinks(ws)
	if got != want {
		t.Errorf("WorkspaceRoot() = %q, want %q", got, want)
	}
}

func TestLoad_StopsAtInnerWorktree(t *testing.T) {
	root := t.TempDir()
	tree(t, root,
		[]string{"outer/.git", "outer/inner/.git", "outer/inner/subdir"},
		map[string]string{"outer/" + FileName: "server_url: \"http://localhost:5000\"\n"},
	)
	chdir(t, filepath.Join(root, "outer", "inner", "subdir"))

	path, err := FindPath()
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("FindPath() error = %v, want ErrNotExist", err)
	}
	if filepath.Base(filepath.Dir(path)) != "inner" {
		t.Errorf("FindPath() = %q, want a candidate in the inner root", path)
	}
	if _, err := Load(); !os.IsNotExist(err) {
		t.Errorf("Load() error = %v, want IsNotExist", err)
	}
}

func TestSearchDirs_EndsAtWorktreeRoot(t *testing.T) {
	root := t.TempDir()
	tree(t, root, []string{"repo/.git", "repo/a/b"}, nil)
	repo := filepath.Join(root, "repo")

	got := searchDirs(filepath.Join(repo, "a", "b"))
	want := []string{filepath.Join(repo, "a", "b"), filepath.Join(repo, "a"), repo}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("searchDirs() = %v, want %v", got, want)
	}
}

func TestSetPath_UsesCustomPath(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	defer SetPath("")

	customPath := filepath.Join(tmpDir, "custom", ".vizbench-dev")
	os.MkdirAll(filepath.Dir(customPath), 0755)
	if err := os.WriteFile(customPath, []byte("server_url: \"http://localhost:9999\"\n"), 0600); err != nil {
		t.Fatalf("Failed to write custom config: %v", err)
	}

	SetPath(customPath)

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.ServerURL != "http://localhost:9999" {
		t.Errorf("ServerURL = %q, want custom path value", loaded.ServerURL)
	}
	if path, _ := FindPath(); path != customPath {
		t.Errorf("FindPath() = %q, want %q", path, customPath)
	}
}

func TestGetPath_ReturnsCurrentPath(t *testing.T) {
	defer SetPath("")

	if GetPath() != FileName {
		t.Errorf("GetPath() = %q, want %q", GetPath(), FileName)
	}

	SetPath("/custom/path/.vizbench")
	if GetPath() != "/custom/path/.vizbench" {
		t.Errorf("GetPath() = %q, want %q", GetPath(), "/custom/path/.vizbench")
	}

	SetPath("")
	if GetPath() != FileName {
		t.Errorf("GetPath() = %q, want %q", GetPath(), FileName)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid full config",
			cfg: Config{
				ServerURL:      "https://vizbench.example.com",
				APIKey:         "vz_key",
				HistogramBins:  8,
				RequestTimeout: "5s",
				FetchTimeout:   "1m30s",
			},
		},
		{
			name: "valid minimal config",
			cfg:  Config{ServerURL: "http://localhost:5000"},
		},
		{
			name:    "missing url",
			cfg:     Config{},
			wantErr: "server_url is required",
		},
		{
			name:    "non-http url",
			cfg:     Config{ServerURL: "ftp://example.com"},
			wantErr: "server_url must be a valid HTTP(S) URL",
		},
		{
			name:    "negative bins",
			cfg:     Config{ServerURL: "http://localhost:5000", HistogramBins: -2},
			wantErr: "histogram_bins",
		},
		{
			name:    "bad request timeout",
			cfg:     Config{ServerURL: "http://localhost:5000", RequestTimeout: "soon"},
			wantErr: "request_timeout",
		},
		{
			name:    "negative fetch timeout",
			cfg:     Config{ServerURL: "http://localhost:5000", FetchTimeout: "-1s"},
			wantErr: "fetch_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestDurations_FallBackOnInvalid(t *testing.T) {
	cfg := Config{RequestTimeout: "nonsense", FetchTimeout: "0s"}
	if cfg.RequestTimeoutDuration() != DefaultRequestTimeout {
		t.Errorf("RequestTimeoutDuration() = %v, want default", cfg.RequestTimeoutDuration())
	}
	if cfg.FetchTimeoutDuration() != 0 {
		t.Errorf("FetchTimeoutDuration() = %v, want 0 (disabled)", cfg.FetchTimeoutDuration())
	}
}
