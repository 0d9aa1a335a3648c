package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for pgadapt. Values come from defaults,
// then the YAML file, then PGADAPT_* environment variables.
type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Adapt    AdaptConfig    `yaml:"adapt"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PostgresConfig describes the server the CLI connects to.
type PostgresConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Database        string `yaml:"database"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"sslmode"`
	ConnectTimeout  int    `yaml:"connect_timeout"` // seconds
	ApplicationName string `yaml:"application_name"`
}

// AdaptConfig tunes the adapter registry.
type AdaptConfig struct {
	// FloatSpecial is "reject" or "allow": whether NaN and ±Inf are
	// written as quoted casts or refused.
	FloatSpecial string `yaml:"float_special"`

	// MaxDepth bounds nesting of sequences and indirections.
	MaxDepth int `yaml:"max_depth"`
}

// CatalogConfig controls the local pg_type cache.
type CatalogConfig struct {
	Path           string `yaml:"path"`
	WALMode        bool   `yaml:"wal_mode"`
	BusyTimeout    int    `yaml:"busy_timeout"`
	RefreshOnStart bool   `yaml:"refresh_on_start"`
}

// InfluxDBConfig contains InfluxDB connection settings for probe metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// MQTTConfig contains broker settings for publishing probe results.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains reconnection delays in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds the configuration. An empty path skips the file and uses
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "postgres",
			User:            "postgres",
			SSLMode:         "prefer",
			ConnectTimeout:  10,
			ApplicationName: "pgadapt",
		},
		Adapt: AdaptConfig{
			FloatSpecial: "reject",
			MaxDepth:     64,
		},
		Catalog: CatalogConfig{
			Path:           "./data/pgadapt.db",
			WALMode:        true,
			BusyTimeout:    5,
			RefreshOnStart: true,
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "pgadapt",
			BatchSize:     100,
			FlushInterval: 10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pgadapt",
			},
			QoS:         1,
			TopicPrefix: "pgadapt",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides reads PGADAPT_SECTION_KEY variables. The standard
// libpq PGPASSWORD is honoured when PGADAPT_POSTGRES_PASSWORD is unset.
func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"PGADAPT_POSTGRES_HOST":     &cfg.Postgres.Host,
		"PGADAPT_POSTGRES_DATABASE": &cfg.Postgres.Database,
		"PGADAPT_POSTGRES_USER":     &cfg.Postgres.User,
		"PGADAPT_POSTGRES_SSLMODE":  &cfg.Postgres.SSLMode,
		"PGADAPT_ADAPT_FLOAT":       &cfg.Adapt.FloatSpecial,
		"PGADAPT_CATALOG_PATH":      &cfg.Catalog.Path,
		"PGADAPT_INFLUXDB_URL":      &cfg.InfluxDB.URL,
		"PGADAPT_INFLUXDB_TOKEN":    &cfg.InfluxDB.Token,
		"PGADAPT_MQTT_HOST":         &cfg.MQTT.Broker.Host,
		"PGADAPT_MQTT_USERNAME":     &cfg.MQTT.Auth.Username,
		"PGADAPT_MQTT_PASSWORD":     &cfg.MQTT.Auth.Password,
		"PGADAPT_LOG_LEVEL":         &cfg.Logging.Level,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("PGADAPT_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	} else if v := os.Getenv("PGPASSWORD"); v != "" && cfg.Postgres.Password == "" {
		cfg.Postgres.Password = v
	}

	ints := map[string]*int{
		"PGADAPT_POSTGRES_PORT":  &cfg.Postgres.Port,
		"PGADAPT_ADAPT_MAXDEPTH": &cfg.Adapt.MaxDepth,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

var validSSLModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []string

	if c.Postgres.Host == "" {
		errs = append(errs, "postgres.host is required")
	}
	if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
		errs = append(errs, "postgres.port must be between 1 and 65535")
	}
	if c.Postgres.User == "" {
		errs = append(errs, "postgres.user is required")
	}
	if !validSSLModes[c.Postgres.SSLMode] {
		errs = append(errs, fmt.Sprintf("postgres.sslmode %q is not a libpq sslmode", c.Postgres.SSLMode))
	}
	if c.Postgres.ConnectTimeout < 0 {
		errs = append(errs, "postgres.connect_timeout must not be negative")
	}

	switch c.Adapt.FloatSpecial {
	case "reject", "allow":
	default:
		errs = append(errs, `adapt.float_special must be "reject" or "allow"`)
	}
	if c.Adapt.MaxDepth < 1 {
		errs = append(errs, "adapt.max_depth must be at least 1")
	}

	if c.Catalog.Path == "" {
		errs = append(errs, "catalog.path is required")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.TopicPrefix == "" || strings.ContainsAny(c.MQTT.TopicPrefix, "+#") {
			errs = append(errs, "mqtt.topic_prefix must be non-empty and free of wildcards")
		}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// URL returns the connection string in postgres:// URL form.
func (p PostgresConfig) URL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Database,
	}
	if p.Password != "" {
		u.User = url.UserPassword(p.User, p.Password)
	} else if p.User != "" {
		u.User = url.User(p.User)
	}

	q := url.Values{}
	if p.SSLMode != "" {
		q.Set("sslmode", p.SSLMode)
	}
	if p.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(p.ConnectTimeout))
	}
	if p.ApplicationName != "" {
		q.Set("application_name", p.ApplicationName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ServerKey names the server in the catalog cache: host:port/database.
func (p PostgresConfig) ServerKey() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port)) + "/" + p.Database
}

// Timeout returns the connect timeout as a Duration.
func (p PostgresConfig) Timeout() time.Duration {
	return time.Duration(p.ConnectTimeout) * time.Second
}
