package contract

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/devscore/schema"
)

// Default values for configuration.
const (
	DefaultAPIURL           = "https://api.github.com/"
	DefaultCacheTTL         = time.Hour
	DefaultScanTimeout      = 2 * time.Minute
	DefaultModuleTimeout    = 45 * time.Second
	DefaultMinRateRemaining = 100
	DefaultTopRepos         = 6
	MaxTopRepos             = 100
	DefaultMaxAnalyzedRepos = 20
	DefaultPrecision        = 1
	DefaultListen           = ":8080"
	DefaultEventLimit       = 20
	DefaultS3Region         = "us-east-1"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	Username string
	Token    string // Please use env var as this is plaintext
	APIURL   string

	Fast  bool
	Fresh bool

	CacheTTL         time.Duration
	ScanTimeout      time.Duration
	ModuleTimeout    time.Duration
	MinRateRemaining int
	Workers          int
	TopRepos         int
	MaxAnalyzedRepos int
	DetectUpdates    bool

	SnapshotBackend   schema.DatabaseBackend
	SnapshotDBConnect string // Please use env var as this is plaintext

	EventBackend   schema.DatabaseBackend
	EventDBConnect string // Please use env var as this is plaintext

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	Listen    string
	ServerURL string
	Remote    bool

	EventLimit       int
	TargetVersion    int
	ExportS3Bucket   string
	ExportS3Prefix   string
	ExportS3Endpoint string
	ExportS3Region   string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	UsernameStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Token             string `mapstructure:"token"`
	APIURL            string `mapstructure:"api-url"`
	CacheTTL          string `mapstructure:"cache-ttl"`
	ScanTimeout       string `mapstructure:"scan-timeout"`
	ModuleTimeout     string `mapstructure:"module-timeout"`
	MinRateRemaining  int    `mapstructure:"min-rate-remaining"`
	Workers           int    `mapstructure:"workers"`
	TopRepos          int    `mapstructure:"top-repos"`
	MaxAnalyzedRepos  int    `mapstructure:"max-analyzed-repos"`
	DetectUpdates     bool   `mapstructure:"sync-detect-updates"`
	SnapshotBackend   string `mapstructure:"snapshot-backend"`
	SnapshotDBConnect string `mapstructure:"snapshot-db-connect"`
	EventBackend      string `mapstructure:"event-backend"`
	EventDBConnect    string `mapstructure:"event-db-connect"`
	Output            string `mapstructure:"output"`
	OutputFile        string `mapstructure:"output-file"`
	Precision         int    `mapstructure:"precision"`
	Width             int    `mapstructure:"width"`
	Color             string `mapstructure:"color"`

	// --- Fields from scanCmd.Flags() ---
	Fast  bool `mapstructure:"fast"`
	Fresh bool `mapstructure:"fresh"`

	// --- Fields from serveCmd and scoreCmd ---
	Listen    string `mapstructure:"listen"`
	ServerURL string `mapstructure:"server-url"`
	Remote    bool   `mapstructure:"remote"`

	// --- Fields from eventsCmd and snapshotMigrateCmd ---
	EventLimit       int    `mapstructure:"limit"`
	TargetVersion    int    `mapstructure:"target-version"`
	ExportS3Bucket   string `mapstructure:"export-s3-bucket"`
	ExportS3Prefix   string `mapstructure:"export-s3-prefix"`
	ExportS3Endpoint string `mapstructure:"export-s3-endpoint"`
	ExportS3Region   string `mapstructure:"export-s3-region"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// CloneForUser returns a copy of the Config bound to another username.
func (c *Config) CloneForUser(username string) *Config {
	clone := c.Clone()
	clone.Username = schema.NormalizeUser(username)
	return clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processDurations(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseBackend lower-cases and validates a backend name.
func ParseBackend(raw string) (schema.DatabaseBackend, error) {
	backend := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", raw)
	}
	return backend, nil
}

// validateBackendConfigs validates snapshot and event backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Snapshot Backend Validation ---
	backend, err := ParseBackend(input.SnapshotBackend)
	if err != nil {
		return fmt.Errorf("snapshot-backend: %w", err)
	}
	cfg.SnapshotBackend = backend
	cfg.SnapshotDBConnect = input.SnapshotDBConnect
	if err := ValidateDatabaseConnectionString(cfg.SnapshotBackend, cfg.SnapshotDBConnect); err != nil {
		return err
	}

	// --- Event Backend Validation ---
	backend, err = ParseBackend(input.EventBackend)
	if err != nil {
		return fmt.Errorf("event-backend: %w", err)
	}
	cfg.EventBackend = backend
	cfg.EventDBConnect = input.EventDBConnect
	if err := ValidateDatabaseConnectionString(cfg.EventBackend, cfg.EventDBConnect); err != nil {
		return err
	}

	// Both SQLite stores hold a single connection, so they must not share one file
	if cfg.SnapshotBackend == schema.SQLiteBackend && cfg.EventBackend == schema.SQLiteBackend {
		snapshotPath := cfg.SnapshotDBConnect
		if snapshotPath == "" {
			snapshotPath = GetSnapshotDBFilePath()
		}
		eventPath := cfg.EventDBConnect
		if eventPath == "" {
			eventPath = GetEventDBFilePath()
		}
		if snapshotPath == eventPath && snapshotPath != ":memory:" {
			return fmt.Errorf("snapshot and event storage must use different SQLite database files. Both resolve to %q", snapshotPath)
		}
	}

	return nil
}

// validateSimpleInputs processes and validates all scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.Username = schema.NormalizeUser(input.UsernameStr)
	cfg.Token = strings.TrimSpace(input.Token)
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Fast = input.Fast
	cfg.Fresh = input.Fresh
	cfg.DetectUpdates = input.DetectUpdates
	cfg.Listen = input.Listen
	cfg.Remote = input.Remote
	cfg.ServerURL = strings.TrimRight(input.ServerURL, "/")

	cfg.APIURL = input.APIURL
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if !strings.HasSuffix(cfg.APIURL, "/") {
		cfg.APIURL += "/"
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Budget Validation ---
	if input.MinRateRemaining < 0 {
		return fmt.Errorf("min-rate-remaining cannot be negative (received %d)", input.MinRateRemaining)
	}
	cfg.MinRateRemaining = input.MinRateRemaining

	if input.TopRepos <= 0 || input.TopRepos > MaxTopRepos {
		return fmt.Errorf("top-repos must be greater than 0 and cannot exceed %d (received %d)", MaxTopRepos, input.TopRepos)
	}
	cfg.TopRepos = input.TopRepos

	if input.MaxAnalyzedRepos <= 0 {
		return fmt.Errorf("max-analyzed-repos must be greater than 0 (received %d)", input.MaxAnalyzedRepos)
	}
	cfg.MaxAnalyzedRepos = input.MaxAnalyzedRepos

	// --- 3. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	if cfg.Remote && cfg.ServerURL == "" {
		return fmt.Errorf("--server-url is required with --remote")
	}

	// --- 4. Events and Export ---
	if input.EventLimit < 0 {
		return fmt.Errorf("limit cannot be negative (received %d)", input.EventLimit)
	}
	cfg.EventLimit = input.EventLimit
	cfg.TargetVersion = input.TargetVersion
	cfg.ExportS3Bucket = strings.TrimSpace(input.ExportS3Bucket)
	cfg.ExportS3Prefix = strings.Trim(input.ExportS3Prefix, "/")
	cfg.ExportS3Endpoint = input.ExportS3Endpoint
	cfg.ExportS3Region = input.ExportS3Region
	if cfg.ExportS3Region == "" {
		cfg.ExportS3Region = DefaultS3Region
	}

	return nil
}

// processDurations parses every duration setting.
func processDurations(cfg *Config, input *ConfigRawInput) error {
	var err error
	if cfg.CacheTTL, err = parseDurationOr(input.CacheTTL, DefaultCacheTTL); err != nil {
		return fmt.Errorf("invalid cache-ttl: %w", err)
	}
	if cfg.ScanTimeout, err = parseDurationOr(input.ScanTimeout, DefaultScanTimeout); err != nil {
		return fmt.Errorf("invalid scan-timeout: %w", err)
	}
	if cfg.ModuleTimeout, err = parseDurationOr(input.ModuleTimeout, DefaultModuleTimeout); err != nil {
		return fmt.Errorf("invalid module-timeout: %w", err)
	}
	if cfg.ModuleTimeout > cfg.ScanTimeout {
		return fmt.Errorf("module-timeout (%s) cannot exceed scan-timeout (%s)", cfg.ModuleTimeout, cfg.ScanTimeout)
	}
	return nil
}

// parseDurationOr parses a Go duration string, returning def for empty input.
func parseDurationOr(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive (received %s)", s)
	}
	return d, nil
}
