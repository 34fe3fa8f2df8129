package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/joho/godotenv/autoload"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort                 = 8080
	defaultAlgorithm            = "HS256"
	defaultMaxConcurrentQueries = 16
	defaultMaxConns             = 25
	defaultStartupTimeout       = 30
)

// TableConfig is one configured table: the stored name, the alias it is
// exposed under and an optional id field. The id field is informational only;
// the reflected primary key always wins.
type TableConfig struct {
	Name    string `yaml:"name" json:"name"`
	Alias   string `yaml:"alias" json:"alias"`
	IDField string `yaml:"id_field" json:"id_field"`
}

type DBConfig struct {
	Type         string `yaml:"type" json:"type"`
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	DatabaseName string `yaml:"database_name" json:"database_name"`
	DSN          string `yaml:"dsn" json:"dsn"` // optional explicit DSN
	Schema       string `yaml:"schema" json:"schema"`
	MaxConns     int    `yaml:"max_conns" json:"max_conns"`
}

type ServerConfig struct {
	Port                 int      `yaml:"port" json:"port"`
	CORSOrigins          []string `yaml:"cors_origins" json:"cors_origins"`
	MaxConcurrentQueries int      `yaml:"max_concurrent_queries" json:"max_concurrent_queries"`
	StartupTimeout       int      `yaml:"startup_timeout" json:"startup_timeout"` // seconds
	Debug                bool     `yaml:"debug" json:"debug"`
}

type AuthConfig struct {
	VerifyToken bool   `yaml:"verify_token" json:"verify_token"`
	SecretKey   string `yaml:"secret_key" json:"secret_key"`
	Algorithm   string `yaml:"algorithm" json:"algorithm"`
	RedisAddr   string `yaml:"redis_addr" json:"redis_addr"`
}

type AppConfig struct {
	Database DBConfig      `yaml:"database" json:"database"`
	Server   ServerConfig  `yaml:"server" json:"server"`
	Auth     AuthConfig    `yaml:"auth" json:"auth"`
	Tables   []TableConfig `yaml:"tables" json:"tables"`
}

// LoadFile loads YAML config from path.
func LoadFile(path string) (AppConfig, error) {
	var cfg AppConfig
	f, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load builds the application config. Values from the optional YAML file at
// path are overridden by environment variables, then defaults are applied.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg = fileCfg
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	setString(&cfg.Database.Type, "DB_TYPE")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Username, "DB_USERNAME")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DatabaseName, "DB_DATABASE")
	setString(&cfg.Database.Schema, "SCHEMA")
	setString(&cfg.Auth.SecretKey, "SECRET_KEY")
	setString(&cfg.Auth.Algorithm, "ALGORITHM")
	setString(&cfg.Auth.RedisAddr, "REDIS_ADDR")

	ints := []struct {
		dst *int
		key string
	}{
		{&cfg.Database.Port, "DB_PORT"},
		{&cfg.Database.MaxConns, "DB_MAX_CONNS"},
		{&cfg.Server.Port, "PORT"},
		{&cfg.Server.MaxConcurrentQueries, "MAX_CONCURRENT_QUERIES"},
		{&cfg.Server.StartupTimeout, "STARTUP_TIMEOUT"},
	}
	for _, i := range ints {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}

	if err := setBool(&cfg.Auth.VerifyToken, "VERIFY_TOKEN"); err != nil {
		return err
	}
	if err := setBool(&cfg.Server.Debug, "DEBUG"); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok && v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("TABLES"); ok && v != "" {
		cfg.Tables = ParseTables(v)
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	cfg.Database.Type = NormalizeDriver(cfg.Database.Type)
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = defaultMaxConns
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.MaxConcurrentQueries <= 0 {
		cfg.Server.MaxConcurrentQueries = defaultMaxConcurrentQueries
	}
	if cfg.Server.StartupTimeout <= 0 {
		cfg.Server.StartupTimeout = defaultStartupTimeout
	}
	if cfg.Auth.Algorithm == "" {
		cfg.Auth.Algorithm = defaultAlgorithm
	}
	for i := range cfg.Tables {
		if cfg.Tables[i].Alias == "" {
			cfg.Tables[i].Alias = cfg.Tables[i].Name
		}
	}
}

// Validate reports configuration that cannot produce a working gateway.
func (c AppConfig) Validate() error {
	switch c.Database.Type {
	case "postgres", "mysql", "sqlserver", "sqlite":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.Type == "sqlite" && c.Database.DSN == "" && c.Database.DatabaseName == "" {
		return fmt.Errorf("sqlite needs a file path in DB_DATABASE or DATABASE_URL")
	}
	if c.Auth.VerifyToken && c.Auth.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required when VERIFY_TOKEN is enabled")
	}
	for i, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("table entry %d has no name", i+1)
		}
	}
	return nil
}

// ParseTables parses the TABLES list. Entries are comma separated and each one
// is "table", "table:alias" or "table:alias:id_field".
func ParseTables(s string) []TableConfig {
	var tables []TableConfig
	for _, entry := range splitList(s) {
		parts := strings.Split(entry, ":")
		t := TableConfig{Name: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			t.Alias = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			t.IDField = strings.TrimSpace(parts[2])
		}
		if t.Alias == "" {
			t.Alias = t.Name
		}
		tables = append(tables, t)
	}
	return tables
}

// NormalizeDriver maps common aliases to canonical keys.
func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "postgresql", "pg", "postgres", "pgx":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "mssql", "sqlserver":
		return "sqlserver"
	default:
		return strings.ToLower(strings.TrimSpace(d))
	}
}

// BuildDSN produces the connection string for the configured database type.
// An explicit DSN always wins.
func BuildDSN(db DBConfig) (string, error) {
	if db.DSN != "" {
		return db.DSN, nil
	}

	switch NormalizeDriver(db.Type) {
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
			Path:     "/" + db.DatabaseName,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = db.Username
		mc.Passwd = db.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", db.Host, db.Port)
		mc.DBName = db.DatabaseName
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	case "sqlserver":
		q := url.Values{}
		q.Set("database", db.DatabaseName)
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	case "sqlite":
		if db.DatabaseName == "" {
			return "", fmt.Errorf("sqlite needs a file path in database_name")
		}
		return db.DatabaseName, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", db.Type)
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
