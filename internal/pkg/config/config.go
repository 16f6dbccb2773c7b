package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
)

// Input sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Output    OutputConfig    `mapstructure:"output"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type InputConfig struct {
	TripsPath     string `mapstructure:"trips_path"`
	StationsPath  string `mapstructure:"stations_path"`
	Delimiter     string `mapstructure:"delimiter"`
	TripSource    string `mapstructure:"trip_source"`
	StationSource string `mapstructure:"station_source"`
}

// DelimiterRune returns the field delimiter as a rune.
func (i InputConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(i.Delimiter)
	return r
}

type AnalysisConfig struct {
	TargetStation string  `mapstructure:"target_station"`
	EarthRadius   float64 `mapstructure:"earth_radius"`
	HistogramBins int     `mapstructure:"histogram_bins"`
}

type OutputConfig struct {
	Dir            string `mapstructure:"dir"`
	Charts         bool   `mapstructure:"charts"`
	DistancesChart string `mapstructure:"distances_chart"`
	SpeedsChart    string `mapstructure:"speeds_chart"`
	EnrichedCSV    string `mapstructure:"enriched_csv"` // empty disables the export
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	RateLimit    int `mapstructure:"rate_limit"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// NATSConfig configures event publishing. An empty URL disables it.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Durable string `mapstructure:"durable"`
}

// ValkeyConfig configures the report cache. An empty Addr disables it.
type ValkeyConfig struct {
	Addr      string `mapstructure:"addr"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// UsesDatabase reports whether any input is read from Postgres.
func (c *Config) UsesDatabase() bool {
	return c.Input.TripSource == SourcePostgres || c.Input.StationSource == SourcePostgres
}

// Load reads configuration from defaults, an optional config.yaml and
// BLUEBIKES_* environment variables, in increasing priority.
func Load(service string) (*Config, error) {
	v := viper.New()

	v.SetDefault("input.trips_path", "trips.csv")
	v.SetDefault("input.stations_path", "stations.csv")
	v.SetDefault("input.delimiter", ",")
	v.SetDefault("input.trip_source", SourceCSV)
	v.SetDefault("input.station_source", SourceCSV)
	v.SetDefault("analysis.target_station", "Forsyth St at Huntington Ave")
	v.SetDefault("analysis.earth_radius", 3959.0)
	v.SetDefault("analysis.histogram_bins", 100)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.charts", true)
	v.SetDefault("output.distances_chart", "distances.pdf")
	v.SetDefault("output.speeds_chart", "speeds.pdf")
	v.SetDefault("output.enriched_csv", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bluebikes")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "bluebikes")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.durable", "")
	v.SetDefault("valkey.addr", "")
	v.SetDefault("valkey.key_prefix", "bluebikes:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// BLUEBIKES_ANALYSIS_TARGET_STATION → analysis.target_station
	v.SetEnvPrefix("BLUEBIKES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
// Every problem is reported in one error.
func (c *Config) Validate() error {
	var errs []string

	if utf8.RuneCountInString(c.Input.Delimiter) != 1 {
		errs = append(errs, fmt.Sprintf("input.delimiter must be a single character, got %q", c.Input.Delimiter))
	}
	for key, src := range map[string]string{"input.trip_source": c.Input.TripSource, "input.station_source": c.Input.StationSource} {
		if src != SourceCSV && src != SourcePostgres {
			errs = append(errs, fmt.Sprintf("%s must be csv or postgres, got %q", key, src))
		}
	}
	if c.Input.TripSource == SourceCSV && c.Input.TripsPath == "" {
		errs = append(errs, "input.trips_path is required")
	}
	if c.Input.StationSource == SourceCSV && c.Input.StationsPath == "" {
		errs = append(errs, "input.stations_path is required")
	}
	if c.Analysis.TargetStation == "" {
		errs = append(errs, "analysis.target_station is required")
	}
	if c.Analysis.EarthRadius <= 0 {
		errs = append(errs, "analysis.earth_radius must be positive")
	}
	if c.Analysis.HistogramBins <= 0 {
		errs = append(errs, "analysis.histogram_bins must be positive")
	}
	if c.Output.Charts && (c.Output.DistancesChart == "" || c.Output.SpeedsChart == "") {
		errs = append(errs, "output.distances_chart and output.speeds_chart are required when charts are enabled")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.UsesDatabase() {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
