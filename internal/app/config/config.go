// Package config loads the settings shared by the retrieve CLI and the server.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/platform/db"
	"stock_retriever/internal/platform/externalapi/chart"
)

// EnvPrefix is prepended to every environment variable, e.g. RETRIEVER_WORKERS.
const EnvPrefix = "RETRIEVER"

const dateLayout = "2006-01-02"

// Keys.
const (
	KeyCSV              = "csv"
	KeyColumn           = "col"
	KeyDelim            = "delim"
	KeyPrefix           = "prefix"
	KeyBucket           = "bucket"
	KeyDate             = "date"
	KeyWorkers          = "workers"
	KeyTimeout          = "timeout"
	KeyURLTemplate      = "url-template"
	KeyLegacyDateOffset = "legacy-date-offset"
	KeyUserAgent        = "user-agent"
	KeyDBDriver         = "db-driver"
	KeyDatabaseURL      = "database-url"
	KeyDBConnectTimeout = "db-connect-timeout"
	KeyRedisAddr        = "redis-addr"
	KeyRedisPassword    = "redis-password"
	KeyHTTPAddr         = "http-addr"
	KeyJWTSecret        = "jwt-secret"
	KeyLogLevel         = "log-level"
)

type option struct {
	key   string
	def   any
	usage string
}

var options = []option{
	{KeyCSV, "", "path of the delimited symbol table (required)"},
	{KeyColumn, "", "header of the column holding the symbols (required)"},
	{KeyDelim, "|", "single-character field delimiter"},
	{KeyPrefix, "", "output path prefix; files are named <prefix>_<M>.<D>.<YYYY>_<SYMBOL> (required)"},
	{KeyBucket, "", "bucket URL to write to instead of the local filesystem (mem://, file:///dir, s3://name, gs://name)"},
	{KeyDate, "", "reference date YYYY-MM-DD (default today)"},
	{KeyWorkers, 100, "maximum number of concurrent downloads"},
	{KeyTimeout, 30 * time.Second, "per-request HTTP timeout"},
	{KeyURLTemplate, chart.DefaultURLTemplate, "source URL with {symbol}, {month}, {day} and {year} placeholders"},
	{KeyLegacyDateOffset, true, "subtract one from month and day when filling the URL template"},
	{KeyUserAgent, "stock_retriever/1.0", "User-Agent header for requests"},
	{KeyDBDriver, "", "run history database driver: postgres or sqlite"},
	{KeyDatabaseURL, "", "run history database DSN"},
	{KeyDBConnectTimeout, 60 * time.Second, "how long to keep retrying the run history database at startup"},
	{KeyRedisAddr, "", "Redis host:port for run history"},
	{KeyRedisPassword, "", "Redis password"},
	{KeyHTTPAddr, ":8080", "server listen address"},
	{KeyJWTSecret, "", "HMAC secret for API tokens"},
	{KeyLogLevel, "info", "log level: debug, info, warn or error"},
}

// Config holds the resolved settings.
type Config struct {
	CSV    string
	Column string
	Delim  string
	Prefix string
	Bucket string
	Date   string

	Workers          int
	Timeout          time.Duration
	URLTemplate      string
	LegacyDateOffset bool
	UserAgent        string

	DBDriver         string
	DatabaseURL      string
	DBConnectTimeout time.Duration
	RedisAddr        string
	RedisPassword    string

	HTTPAddr  string
	JWTSecret string
	LogLevel  string
}

// New returns a viper instance with every default set and environment lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	for _, o := range options {
		v.SetDefault(o.key, o.def)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Shared deployments already export JWT_SECRET.
	_ = v.BindEnv(KeyJWTSecret, EnvPrefix+"_JWT_SECRET", "JWT_SECRET")
	return v
}

// AddFlags registers a flag for each key on fs and binds it to v.
func AddFlags(v *viper.Viper, fs *pflag.FlagSet, keys ...string) error {
	for _, key := range keys {
		o, ok := lookup(key)
		if !ok {
			return fmt.Errorf("unknown config key %q", key)
		}
		switch def := o.def.(type) {
		case string:
			fs.String(o.key, def, o.usage)
		case int:
			fs.Int(o.key, def, o.usage)
		case bool:
			fs.Bool(o.key, def, o.usage)
		case time.Duration:
			fs.Duration(o.key, def, o.usage)
		default:
			return fmt.Errorf("unsupported default type %T for %q", def, key)
		}
		if err := v.BindPFlag(o.key, fs.Lookup(o.key)); err != nil {
			return err
		}
	}
	return nil
}

func lookup(key string) (option, bool) {
	for _, o := range options {
		if o.key == key {
			return o, true
		}
	}
	return option{}, false
}

// Load reads every key from v and validates the numeric settings.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		CSV:              v.GetString(KeyCSV),
		Column:           v.GetString(KeyColumn),
		Delim:            v.GetString(KeyDelim),
		Prefix:           v.GetString(KeyPrefix),
		Bucket:           v.GetString(KeyBucket),
		Date:             v.GetString(KeyDate),
		Workers:          v.GetInt(KeyWorkers),
		Timeout:          v.GetDuration(KeyTimeout),
		URLTemplate:      v.GetString(KeyURLTemplate),
		LegacyDateOffset: v.GetBool(KeyLegacyDateOffset),
		UserAgent:        v.GetString(KeyUserAgent),
		DBDriver:         v.GetString(KeyDBDriver),
		DatabaseURL:      v.GetString(KeyDatabaseURL),
		DBConnectTimeout: v.GetDuration(KeyDBConnectTimeout),
		RedisAddr:        v.GetString(KeyRedisAddr),
		RedisPassword:    v.GetString(KeyRedisPassword),
		HTTPAddr:         v.GetString(KeyHTTPAddr),
		JWTSecret:        v.GetString(KeyJWTSecret),
		LogLevel:         v.GetString(KeyLogLevel),
	}

	if cfg.Workers <= 0 {
		return cfg, &domain.ConfigurationError{Field: KeyWorkers, Err: fmt.Errorf("must be positive, got %d", cfg.Workers)}
	}
	if cfg.Timeout <= 0 {
		return cfg, &domain.ConfigurationError{Field: KeyTimeout, Err: fmt.Errorf("must be positive, got %s", cfg.Timeout)}
	}
	if cfg.URLTemplate == "" {
		return cfg, &domain.ConfigurationError{Field: KeyURLTemplate, Err: fmt.Errorf("must not be empty")}
	}
	if cfg.DBConnectTimeout <= 0 {
		return cfg, &domain.ConfigurationError{Field: KeyDBConnectTimeout, Err: fmt.Errorf("must be positive, got %s", cfg.DBConnectTimeout)}
	}
	return cfg, nil
}

// RequireBatchInputs checks the keys a CLI batch cannot run without.
// The server takes them per request instead.
func (c Config) RequireBatchInputs() error {
	switch {
	case c.CSV == "":
		return &domain.ConfigurationError{Field: KeyCSV, Err: errors.New("path is required")}
	case c.Column == "":
		return &domain.ConfigurationError{Field: KeyColumn, Err: errors.New("column name is required")}
	case c.Prefix == "":
		return &domain.ConfigurationError{Field: KeyPrefix, Err: errors.New("output prefix is required")}
	}
	return nil
}

// ReferenceDate parses Date. An empty value yields the zero time, meaning today.
func (c Config) ReferenceDate() (time.Time, error) {
	if c.Date == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, c.Date, time.Local)
	if err != nil {
		return time.Time{}, &domain.ConfigurationError{Field: KeyDate, Err: err}
	}
	return t, nil
}

// Chart returns the chart client settings.
func (c Config) Chart() chart.Config {
	return chart.Config{
		URLTemplate:      c.URLTemplate,
		LegacyDateOffset: c.LegacyDateOffset,
		Timeout:          c.Timeout,
		UserAgent:        c.UserAgent,
	}
}

// DB returns the run history database settings.
func (c Config) DB() db.Config {
	return db.Config{Driver: c.DBDriver, DSN: c.DatabaseURL, ConnectTimeout: c.DBConnectTimeout}
}

// NewLogger returns a text logger on w at the configured level.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, &domain.ConfigurationError{Field: KeyLogLevel, Err: err}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
