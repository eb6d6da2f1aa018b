// Package config loads the pipeline stage configuration from the environment.
//
// All options have defaults, so an empty environment yields a usable Config.
// The configuration is read once at cold start and never mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/athena-summary/pkg/s3store"
)

// Environment variable names.
const (
	EnvDatabase       = "ATHENA_DB_NAME"
	EnvTable          = "ATHENA_TABLE_NAME"
	EnvOutputLocation = "ATHENA_OUTPUT_LOCATION"
	EnvResultBucket   = "RESULT_BUCKET"
	EnvResultPrefix   = "RESULT_PREFIX"
	EnvMaxWait        = "MAX_ATHENA_WAIT_SECONDS"
	EnvPollInterval   = "POLL_INTERVAL_SECONDS"
	EnvResultParquet  = "RESULT_PARQUET"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
)

// Defaults.
const (
	DefaultDatabase       = "healthcare_facility_db"
	DefaultTable          = "facilities_raw"
	DefaultOutputLocation = "s3://medlaunch-data-pipeline-bucket/results/"
	DefaultResultBucket   = "medlaunch-data-pipeline-bucket"
	DefaultResultPrefix   = "lambda-query-results/"
	DefaultMaxWaitSeconds = 150
	DefaultPollSeconds    = 3
)

// Config holds every recognised option.
type Config struct {
	// Database is the Athena database the query runs in.
	Database string
	// Table is the source table queried for accredited facilities.
	Table string
	// OutputLocation is the S3 staging URI for Athena's own result files.
	OutputLocation string
	// ResultBucket receives summary documents.
	ResultBucket string
	// ResultPrefix is prepended verbatim to summary object keys.
	ResultPrefix string
	// MaxWait bounds how long a single query is waited on.
	MaxWait time.Duration
	// PollInterval is the fixed sleep between status checks.
	PollInterval time.Duration
	// ResultParquet also writes a Parquet copy of each summary.
	ResultParquet bool
	// Debug enables debug level logging.
	Debug bool
	// HumanLogs selects the console writer instead of JSON.
	HumanLogs bool
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Database:       DefaultDatabase,
		Table:          DefaultTable,
		OutputLocation: DefaultOutputLocation,
		ResultBucket:   DefaultResultBucket,
		ResultPrefix:   DefaultResultPrefix,
		MaxWait:        DefaultMaxWaitSeconds * time.Second,
		PollInterval:   DefaultPollSeconds * time.Second,
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv loads the configuration from the process environment.
func FromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load builds a Config from lookup, applying defaults for unset variables.
func Load(lookup LookupFunc) (Config, error) {
	cfg := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str(EnvDatabase, &cfg.Database)
	str(EnvTable, &cfg.Table)
	str(EnvOutputLocation, &cfg.OutputLocation)
	str(EnvResultBucket, &cfg.ResultBucket)
	str(EnvResultPrefix, &cfg.ResultPrefix)

	var err error
	if cfg.MaxWait, err = seconds(lookup, EnvMaxWait, cfg.MaxWait); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = seconds(lookup, EnvPollInterval, cfg.PollInterval); err != nil {
		return Config{}, err
	}

	if v, ok := lookup(EnvResultParquet); ok && v != "" {
		cfg.ResultParquet, err = strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s=%q: %w", EnvResultParquet, v, err)
		}
	}

	if v, ok := lookup(EnvLogLevel); ok {
		switch strings.ToLower(v) {
		case "debug":
			cfg.Debug = true
		case "", "info":
		default:
			return Config{}, fmt.Errorf("unsupported %s=%q (supported: debug, info)", EnvLogLevel, v)
		}
	}
	if v, ok := lookup(EnvLogFormat); ok {
		switch strings.ToLower(v) {
		case "console", "human":
			cfg.HumanLogs = true
		case "", "json":
		default:
			return Config{}, fmt.Errorf("unsupported %s=%q (supported: json, console)", EnvLogFormat, v)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// seconds parses an integer second count. Unset keeps def.
func seconds(lookup LookupFunc, key string, def time.Duration) (time.Duration, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return time.Duration(n) * time.Second, nil
}

// Validate reports the first invalid option.
func (c Config) Validate() error {
	if c.Database == "" {
		return errors.New("database must not be empty")
	}
	if !isIdentifier(c.Table) {
		return fmt.Errorf("table %q is not a valid identifier", c.Table)
	}
	if _, _, err := s3store.ParseS3URI(c.OutputLocation); err != nil {
		return fmt.Errorf("output location %q: %w", c.OutputLocation, err)
	}
	if c.ResultBucket == "" {
		return errors.New("result bucket must not be empty")
	}
	if c.MaxWait <= 0 {
		return fmt.Errorf("max wait must be positive, got %s", c.MaxWait)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	return nil
}

// isIdentifier accepts optionally schema-qualified names made of letters,
// digits and underscores. The table name is interpolated into SQL.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			ok := r == '_' ||
				(r >= 'a' && r <= 'z') ||
				(r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9')
			if !ok {
				return false
			}
		}
	}
	return true
}
