package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/ledger"
	"github.com/agentstation/usagesync/pkg/syncdir"
)

// envPrefix prefixes every environment variable the CLI reads. Unprefixed
// names are accepted as well.
const envPrefix = "USAGESYNC"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Sync configuration
	SyncDir    string
	OutputDir  string
	LedgerPath string
	NoLedger   bool
	Timezone   string
	Windows    []int

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// configKeys are read from the config file and the environment.
var configKeys = []string{
	"sync_dir",
	"output_dir",
	"ledger_path",
	"no_ledger",
	"timezone",
	"windows",
	"format",
	"no_color",
	"log_level",
	"log_format",
	"log_output",
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags)
// 2. Environment variables (USAGESYNC_SYNC_DIR, then SYNC_DIR)
// 3. .env files
// 4. Config file (configFile, or ~/.usagesync.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range configKeys {
		upper := strings.ToUpper(key)
		if err := v.BindEnv(key, envPrefix+"_"+upper, upper); err != nil {
			return nil, &errors.ConfigError{Component: key, Message: "cannot bind environment", Err: err}
		}
	}

	if configFile == "" {
		configFile = os.Getenv(envPrefix + "_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, &errors.ConfigError{Component: "config", Message: "cannot read " + configFile, Err: err}
		}
	} else {
		// Search for config in standard locations
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".usagesync")

		// Read config file (ignore error if not found)
		_ = v.ReadInConfig()
	}

	windows, err := parseWindows(v.Get("windows"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		SyncDir:    expandHome(v.GetString("sync_dir")),
		OutputDir:  expandHome(v.GetString("output_dir")),
		LedgerPath: expandHome(v.GetString("ledger_path")),
		NoLedger:   v.GetBool("no_ledger"),
		Timezone:   v.GetString("timezone"),
		Windows:    windows,

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	if err := config.setDefaults(); err != nil {
		return nil, err
	}
	return config, nil
}

// setDefaults fills every value no source provided.
func (c *Config) setDefaults() error {
	if c.SyncDir == "" {
		dir, err := syncdir.Default()
		if err != nil {
			return err
		}
		c.SyncDir = dir
	}
	if c.LedgerPath == "" {
		path, err := ledger.DefaultPath()
		if err != nil {
			return err
		}
		c.LedgerPath = path
	}
	if c.Timezone == "" {
		c.Timezone = constants.DefaultTimezone
	}
	if len(c.Windows) == 0 {
		c.Windows = append([]int{}, constants.DefaultWindows...)
	}
	if c.LogFormat == "" {
		c.LogFormat = "auto"
	}
	if c.LogOutput == "" {
		c.LogOutput = "stderr"
	}
	return nil
}

// ResolvedOutputDir returns the output directory, defaulting to the sync
// directory.
func (c *Config) ResolvedOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return c.SyncDir
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	if noColor {
		c.NoColor = true
	}
	if format != "" {
		c.Format = format
	}
	switch {
	case logLevel != "":
		c.LogLevel = logLevel
	case verbose || quiet:
		// The shortcuts outrank a level from the environment or config file
		c.LogLevel = ""
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// parseWindows accepts a list from a config file or a comma separated
// string from the environment.
func parseWindows(raw any) ([]int, error) {
	var parts []string
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		parts = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
	case []int:
		parts = make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
	case []string:
		parts = v
	default:
		parts = []string{fmt.Sprint(v)}
	}

	windows := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil, &errors.ConfigError{
				Component: "windows",
				Message:   fmt.Sprintf("invalid window %q: must be a positive number of days", strings.TrimSpace(p)),
			}
		}
		windows = append(windows, n)
	}
	return windows, nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
