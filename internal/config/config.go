// Package config loads server settings from defaults, an optional TOML file,
// a .env file and the environment, in increasing order of priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	HTTPAddr string `toml:"http_addr" validate:"required"`

	StoreDriver   string   `toml:"store_driver" validate:"oneof=mongo oxidb sqlite postgres memory"`
	StoreTimeout  Duration `toml:"store_timeout" validate:"gt=0"`
	MongoURL      string   `toml:"mongodb_url" validate:"required_if=StoreDriver mongo"`
	DatabaseName  string   `toml:"database_name" validate:"required_if=StoreDriver mongo"`
	OxiDBHost     string   `toml:"oxidb_host" validate:"required_if=StoreDriver oxidb"`
	OxiDBPort     int      `toml:"oxidb_port" validate:"min=1,max=65535"`
	OxiDBPoolSize int      `toml:"oxidb_pool_size" validate:"min=1"`
	SQLitePath    string   `toml:"sqlite_path" validate:"required_if=StoreDriver sqlite"`
	PostgresURL   string   `toml:"postgres_url" validate:"required_if=StoreDriver postgres"`

	CORSOrigins []string `toml:"cors_origins"`

	LogMode  string `toml:"log_mode" validate:"oneof=prod dev"`
	LogLevel string `toml:"log_level" validate:"oneof=debug info warn error"`
	GelfAddr string `toml:"gelf_addr"`
}

// Duration is a time.Duration read from TOML strings such as "5s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func Default() *Config {
	return &Config{
		HTTPAddr:      ":8000",
		StoreDriver:   "mongo",
		StoreTimeout:  Duration(5 * time.Second),
		MongoURL:      "mongodb://localhost:27017",
		DatabaseName:  "survey_generator",
		OxiDBHost:     "127.0.0.1",
		OxiDBPort:     4444,
		OxiDBPoolSize: 3,
		SQLitePath:    "surveys.db",
		CORSOrigins:   []string{"http://localhost:3000"},
		LogMode:       "prod",
		LogLevel:      "info",
	}
}

// Load builds the configuration. args are the command line arguments
// without the program name.
func Load(args []string) (*Config, error) {
	flags := flag.NewFlagSet("oxisurvey", flag.ContinueOnError)
	configPath := flags.String("config", os.Getenv("SURVEY_CONFIG"), "TOML config file")
	envFile := flags.String("env-file", ".env", "dotenv file loaded into the environment")
	addr := flags.String("addr", "", "HTTP listen address")
	driver := flags.String("store", "", "store driver: mongo, oxidb, sqlite, postgres, memory")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", *configPath, err)
		}
	}

	// Variables already set in the environment win over the file.
	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", *envFile, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *driver != "" {
		cfg.StoreDriver = *driver
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("config: %s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}

	str("HTTP_ADDR", &c.HTTPAddr)
	str("STORE_DRIVER", &c.StoreDriver)
	str("MONGODB_URL", &c.MongoURL)
	str("DATABASE_NAME", &c.DatabaseName)
	str("OXIDB_HOST", &c.OxiDBHost)
	str("SQLITE_PATH", &c.SQLitePath)
	str("POSTGRES_URL", &c.PostgresURL)
	str("LOG_MODE", &c.LogMode)
	str("LOG_LEVEL", &c.LogLevel)
	str("GELF_ADDR", &c.GelfAddr)

	if err := num("OXIDB_PORT", &c.OxiDBPort); err != nil {
		return err
	}
	if err := num("OXIDB_POOL_SIZE", &c.OxiDBPoolSize); err != nil {
		return err
	}
	if v, ok := lookup("STORE_TIMEOUT"); ok && v != "" {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return fmt.Errorf("config: STORE_TIMEOUT: %q is not a duration", v)
		}
		c.StoreTimeout = Duration(d)
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = splitList(v)
	}
	return nil
}

// Validate checks field ranges and that the selected driver has its
// connection settings.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var fes validator.ValidationErrors
		if errors.As(err, &fes) && len(fes) > 0 {
			fe := fes[0]
			return fmt.Errorf("config: invalid %s (%s %s): %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
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
