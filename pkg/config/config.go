package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Engine   EngineConfig    `mapstructure:"engine"`
	Database DatabaseConfig  `mapstructure:"database"`
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Triggers []TriggerConfig `mapstructure:"triggers"`
}

// EngineConfig holds the recalculation engine policy knobs. Tolerance and the
// milestone set encode operational judgment calls, so they are configuration
// rather than constants.
type EngineConfig struct {
	MaxAutoThreads       int           `mapstructure:"max_auto_threads"`
	CompletionTolerance  int           `mapstructure:"completion_tolerance"`
	FinalizeSettleDelay  time.Duration `mapstructure:"finalize_settle_delay"`
	ProgressMilestones   []int         `mapstructure:"progress_milestones"`
	FailureRetention     time.Duration `mapstructure:"failure_retention"`
	FailureSweepInterval time.Duration `mapstructure:"failure_sweep_interval"`
}

type DatabaseConfig struct {
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	Database              string        `mapstructure:"database"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnections        int           `mapstructure:"max_connections"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TriggerConfig describes one scheduled recalculation launch.
type TriggerConfig struct {
	Schedule string            `mapstructure:"schedule"`
	Job      string            `mapstructure:"job"`
	Params   map[string]string `mapstructure:"params"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("engine.max_auto_threads", 8)
	viper.SetDefault("engine.completion_tolerance", 2)
	viper.SetDefault("engine.finalize_settle_delay", "100ms")
	viper.SetDefault("engine.progress_milestones", []int{5, 10, 25, 50, 75, 90, 95, 99, 100})
	viper.SetDefault("engine.failure_retention", "24h")
	viper.SetDefault("engine.failure_sweep_interval", "1h")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.max_connections", 20)
	viper.SetDefault("database.max_idle_connections", 10)
	viper.SetDefault("database.connection_max_lifetime", "1h")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.max_header_bytes", 1048576)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "stdout")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
