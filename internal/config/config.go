package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Service  *svcConfig
	Database *dbConfig
	Events   *eventsConfig
	Executor *ExecutorConfig
}

type svcConfig struct {
	Address  string `envconfig:"MARKETPLACE_ADDRESS" default:":8000"`
	LogLevel string `envconfig:"MARKETPLACE_LOG_LEVEL" default:"info"`
}

type dbConfig struct {
	Type string `envconfig:"MARKETPLACE_DB_TYPE" default:"sqlite"`
	DSN  string `envconfig:"MARKETPLACE_DB_DSN" default:"marketplace.sqlite"`
}

type eventsConfig struct {
	NATSURL      string        `envconfig:"MARKETPLACE_NATS_URL" default:""`
	Timeout      time.Duration `envconfig:"MARKETPLACE_NATS_TIMEOUT" default:"5s"`
	MaxReconnect int           `envconfig:"MARKETPLACE_NATS_MAX_RECONNECT" default:"10"`
}

// ExecutorConfig holds the settings of the execution worker process.
type ExecutorConfig struct {
	ServerURL    string        `envconfig:"EXECUTOR_SERVER_URL" default:"http://localhost:8000"`
	PollInterval time.Duration `envconfig:"EXECUTOR_POLL_INTERVAL" default:"10s"`
	WorkDir      string        `envconfig:"EXECUTOR_WORK_DIR" default:"/tmp"`
	RunTimeout   time.Duration `envconfig:"EXECUTOR_RUN_TIMEOUT" default:"60s"`
	Compiler     string        `envconfig:"EXECUTOR_COMPILER" default:"gcc"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		cfg := new(Config)
		if err := envconfig.Process("", cfg); err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// Load reads the configuration from the environment without caching it.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
