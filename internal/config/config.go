// Package config loads the core's runtime configuration: a YAML file
// read through viper with sensitive fields overridable via COINCENTER_*
// environment variables, and an optional .env bootstrap via godotenv.
// Grounded on 0xtitan6-polymarket-mm/internal/config/config.go's
// viper+mapstructure pattern, replacing the teacher's hand-rolled
// env.go getEnv*/loadBotEnv helpers with the ecosystem library.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the top-level configuration, loaded from a YAML file.
type Config struct {
	DryRun       bool                    `mapstructure:"dry_run"`
	Exchanges    map[string]ExchangeConfig `mapstructure:"exchanges"`
	Orchestrator OrchestratorConfig      `mapstructure:"orchestrator"`
	Fees         FeeConfig               `mapstructure:"fees"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	HTTP         HTTPConfig              `mapstructure:"http"`
}

// ExchangeConfig is one entry of the "exchanges" map: how to reach one
// exchange's bridge/REST/WS endpoints and (if private endpoints are
// used) its signing key.
type ExchangeConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	WSURL         string        `mapstructure:"ws_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	KeyName       string        `mapstructure:"key_name"`
	PrivateKeyPEM string        `mapstructure:"private_key_pem"`
}

// OrchestratorConfig sizes the cross-exchange script runner (spec §4.6).
type OrchestratorConfig struct {
	Workers             int           `mapstructure:"workers"`
	Repeats             int           `mapstructure:"repeats"`
	MinInterCyclePeriod time.Duration `mapstructure:"min_inter_cycle_period"`
}

// FeeConfig is a maker/taker fee schedule, in basis points. Validate
// checks it; no trade engine in this module is built from it.
type FeeConfig struct {
	MakerBps int64 `mapstructure:"maker_bps"`
	TakerBps int64 `mapstructure:"taker_bps"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	LogFile string `mapstructure:"log_file"`
}

// HTTPConfig controls the operational HTTP surface (/healthz, /metrics).
type HTTPConfig struct {
	ListenAddr     string   `mapstructure:"listen_addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// envPrefix namespaces the environment-variable overrides this core
// reads, mirroring 0xtitan6-polymarket-mm's "POLY" prefix convention.
const envPrefix = "COINCENTER"

// Load reads config from a YAML file at path, applying COINCENTER_*
// environment overrides (sensitive per-exchange keys especially).
// Before reading the file, it loads a local .env (if present) into the
// process environment via godotenv, replacing the teacher's dependency-
// free loadBotEnv in env.go.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional: missing .env is not an error

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("orchestrator.workers", 4)
	v.SetDefault("orchestrator.repeats", -1)
	v.SetDefault("orchestrator.min_inter_cycle_period", 30*time.Second)
	v.SetDefault("fees.maker_bps", 10)
	v.SetDefault("fees.taker_bps", 20)
	v.SetDefault("logging.level", "info")
	v.SetDefault("http.listen_addr", ":8080")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// Per-exchange private key overrides: COINCENTER_EXCHANGES_<NAME>_PRIVATE_KEY_PEM.
	for name, ex := range cfg.Exchanges {
		key := fmt.Sprintf("%s_EXCHANGES_%s_PRIVATE_KEY_PEM", envPrefix, strings.ToUpper(name))
		if pem := os.Getenv(key); pem != "" {
			ex.PrivateKeyPEM = pem
			cfg.Exchanges[name] = ex
		}
	}
	if os.Getenv(envPrefix+"_DRY_RUN") == "true" || os.Getenv(envPrefix+"_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("config: at least one exchange must be configured")
	}
	for name, ex := range c.Exchanges {
		if ex.BaseURL == "" {
			return fmt.Errorf("config: exchanges.%s.base_url is required", name)
		}
	}
	if c.Orchestrator.Workers <= 0 {
		return fmt.Errorf("config: orchestrator.workers must be > 0")
	}
	if c.Fees.MakerBps < 0 || c.Fees.TakerBps < 0 {
		return fmt.Errorf("config: fees.maker_bps/taker_bps must be >= 0")
	}
	return nil
}
