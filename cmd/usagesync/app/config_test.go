package app

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/agentstation/usagesync/pkg/constants"
)

// isolate points HOME at a temporary directory, clears every variable the
// config reads and runs the test from an empty working directory so no real
// config or .env file is read.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	unsetenv(t, envPrefix+"_CONFIG")
	for _, key := range configKeys {
		upper := strings.ToUpper(key)
		unsetenv(t, envPrefix+"_"+upper)
		unsetenv(t, upper)
	}
	t.Chdir(t.TempDir())
	return home
}

// unsetenv removes key for the duration of the test. godotenv never
// overrides a variable that exists, even when it is empty.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	old, ok := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if ok {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// TestLoadConfig_Defaults verifies the defaults used when no source sets a value.
func TestLoadConfig_Defaults(t *testing.T) {
	home := isolate(t)

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	wantSyncDir := filepath.Join(home, constants.ICloudDriveDir, constants.DefaultSyncDirName)
	if config.SyncDir != wantSyncDir {
		t.Errorf("SyncDir = %s, want %s", config.SyncDir, wantSyncDir)
	}
	if config.ResolvedOutputDir() != wantSyncDir {
		t.Errorf("ResolvedOutputDir() = %s, want %s", config.ResolvedOutputDir(), wantSyncDir)
	}
	wantLedger := filepath.Join(home, constants.DefaultStateDir, constants.LedgerFileName)
	if config.LedgerPath != wantLedger {
		t.Errorf("LedgerPath = %s, want %s", config.LedgerPath, wantLedger)
	}
	if config.Timezone != constants.DefaultTimezone {
		t.Errorf("Timezone = %s, want %s", config.Timezone, constants.DefaultTimezone)
	}
	if !reflect.DeepEqual(config.Windows, constants.DefaultWindows) {
		t.Errorf("Windows = %v, want %v", config.Windows, constants.DefaultWindows)
	}
	if config.LogFormat != "auto" {
		t.Errorf("LogFormat = %s, want auto", config.LogFormat)
	}
	if config.LogOutput != "stderr" {
		t.Errorf("LogOutput = %s, want stderr", config.LogOutput)
	}
	if config.NoLedger {
		t.Error("NoLedger should default to false")
	}
}

// TestLoadConfig_EnvironmentVariables verifies prefixed and plain variables.
func TestLoadConfig_EnvironmentVariables(t *testing.T) {
	isolate(t)
	t.Setenv("USAGESYNC_SYNC_DIR", "/data/sync")
	t.Setenv("OUTPUT_DIR", "/data/out")
	t.Setenv("USAGESYNC_WINDOWS", "1, 7")
	t.Setenv("USAGESYNC_NO_LEDGER", "true")
	t.Setenv("TIMEZONE", "UTC")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.SyncDir != "/data/sync" {
		t.Errorf("SyncDir = %s, want /data/sync", config.SyncDir)
	}
	if config.ResolvedOutputDir() != "/data/out" {
		t.Errorf("ResolvedOutputDir() = %s, want /data/out", config.ResolvedOutputDir())
	}
	if !reflect.DeepEqual(config.Windows, []int{1, 7}) {
		t.Errorf("Windows = %v, want [1 7]", config.Windows)
	}
	if !config.NoLedger {
		t.Error("USAGESYNC_NO_LEDGER not loaded")
	}
	if config.Timezone != "UTC" {
		t.Errorf("Timezone = %s, want UTC", config.Timezone)
	}
}

// TestLoadConfig_File verifies config file loading and home expansion.
func TestLoadConfig_File(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "sync_dir: ~/sync\ntimezone: America/Los_Angeles\nwindows: [3, 9]\nformat: yaml\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %s, want %s", config.ConfigFile, path)
	}
	if want := filepath.Join(home, "sync"); config.SyncDir != want {
		t.Errorf("SyncDir = %s, want %s", config.SyncDir, want)
	}
	if config.Timezone != "America/Los_Angeles" {
		t.Errorf("Timezone = %s, want America/Los_Angeles", config.Timezone)
	}
	if !reflect.DeepEqual(config.Windows, []int{3, 9}) {
		t.Errorf("Windows = %v, want [3 9]", config.Windows)
	}
	if config.Format != "yaml" {
		t.Errorf("Format = %s, want yaml", config.Format)
	}
}

// TestLoadConfig_HomeFile verifies ~/.usagesync.yaml is found without --config.
func TestLoadConfig_HomeFile(t *testing.T) {
	home := isolate(t)
	if err := os.WriteFile(filepath.Join(home, ".usagesync.yaml"), []byte("timezone: UTC\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.Timezone != "UTC" {
		t.Errorf("Timezone = %s, want UTC", config.Timezone)
	}
}

// TestLoadConfig_EnvOverridesFile verifies environment variables beat the config file.
func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timezone: UTC\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	t.Setenv("USAGESYNC_TIMEZONE", "Europe/Paris")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.Timezone != "Europe/Paris" {
		t.Errorf("Timezone = %s, want Europe/Paris", config.Timezone)
	}
}

// TestLoadConfig_DotEnv verifies .env.local takes precedence over .env.
func TestLoadConfig_DotEnv(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(".env", []byte("USAGESYNC_OUTPUT_DIR=/from/env\nUSAGESYNC_LOG_OUTPUT=discard\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if err := os.WriteFile(".env.local", []byte("USAGESYNC_OUTPUT_DIR=/from/local\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.OutputDir != "/from/local" {
		t.Errorf("OutputDir = %s, want /from/local", config.OutputDir)
	}
	if config.LogOutput != "discard" {
		t.Errorf("LogOutput = %s, want discard", config.LogOutput)
	}
}

// TestLoadConfig_Errors verifies invalid sources are reported.
func TestLoadConfig_Errors(t *testing.T) {
	isolate(t)

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() with a missing file should fail")
	}

	t.Setenv("USAGESYNC_WINDOWS", "7,soon")
	if _, err := LoadConfig(""); err == nil {
		t.Error("LoadConfig() with an invalid window should fail")
	}
}

// TestParseWindows verifies the accepted window encodings.
func TestParseWindows(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    []int
		wantErr bool
	}{
		{name: "nil", raw: nil, want: nil},
		{name: "blank string", raw: "  ", want: nil},
		{name: "comma string", raw: "7,30, 60", want: []int{7, 30, 60}},
		{name: "yaml list", raw: []any{uint64(7), 14}, want: []int{7, 14}},
		{name: "int slice", raw: []int{1}, want: []int{1}},
		{name: "string slice", raw: []string{"2", "4"}, want: []int{2, 4}},
		{name: "single int", raw: 90, want: []int{90}},
		{name: "zero", raw: "0", wantErr: true},
		{name: "negative", raw: []any{-1}, wantErr: true},
		{name: "text", raw: "week", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWindows(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseWindows(%v) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseWindows(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

// TestConfig_UpdateFromFlags verifies flags override loaded values.
func TestConfig_UpdateFromFlags(t *testing.T) {
	tests := []struct {
		name         string
		start        Config
		verbose      bool
		quiet        bool
		noColor      bool
		format       string
		logLevel     string
		wantLogLevel string
		wantFormat   string
		wantNoColor  bool
	}{
		{
			name:         "no flags keep config",
			start:        Config{LogLevel: "error", Format: "yaml", NoColor: true},
			wantLogLevel: "error",
			wantFormat:   "yaml",
			wantNoColor:  true,
		},
		{
			name:         "verbose clears inherited level",
			start:        Config{LogLevel: "error"},
			verbose:      true,
			wantLogLevel: "",
		},
		{
			name:         "explicit level wins over quiet",
			start:        Config{LogLevel: "error"},
			quiet:        true,
			logLevel:     "trace",
			wantLogLevel: "trace",
		},
		{
			name:        "format and no-color flags",
			start:       Config{Format: "table"},
			noColor:     true,
			format:      "json",
			wantFormat:  "json",
			wantNoColor: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := tt.start
			config.UpdateFromFlags(tt.verbose, tt.quiet, tt.noColor, tt.format, tt.logLevel)

			if config.LogLevel != tt.wantLogLevel {
				t.Errorf("LogLevel = %q, want %q", config.LogLevel, tt.wantLogLevel)
			}
			if config.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", config.Format, tt.wantFormat)
			}
			if config.NoColor != tt.wantNoColor {
				t.Errorf("NoColor = %v, want %v", config.NoColor, tt.wantNoColor)
			}
			if config.Verbose != tt.verbose || config.Quiet != tt.quiet {
				t.Errorf("Verbose/Quiet = %v/%v, want %v/%v", config.Verbose, config.Quiet, tt.verbose, tt.quiet)
			}
		})
	}
}
