package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration. Values come from defaults, an
// optional YAML file, and FLASHSTOCK_* environment variables, in that order
// of increasing precedence.
type Config struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	GRPCAddr    string `mapstructure:"grpc_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	MySQLDSN      string `mapstructure:"mysql_dsn"`
	MigrationsDir string `mapstructure:"migrations_dir"`

	RedisNodes    []string `mapstructure:"redis_nodes"`
	RedisPoolSize int      `mapstructure:"redis_pool_size"`

	// UseQuorum selects the multi-node quorum lock. With a single node the
	// simple lock is both cheaper and equivalent.
	UseQuorum    bool          `mapstructure:"use_quorum"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	NodeTimeout  time.Duration `mapstructure:"node_timeout"`
	DriftFactor  float64       `mapstructure:"drift_factor"`
	DriftFloor   time.Duration `mapstructure:"drift_floor"`
	SafetyMargin time.Duration `mapstructure:"safety_margin"`

	LockMaxRetries int           `mapstructure:"lock_max_retries"`
	LockBaseDelay  time.Duration `mapstructure:"lock_base_delay"`
	LockMaxDelay   time.Duration `mapstructure:"lock_max_delay"`

	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	LogLevel string `mapstructure:"log_level"`
}

func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":50051")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("mysql_dsn", "root:root@tcp(localhost:3306)/flashstock?parseTime=true")
	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("redis_nodes", []string{"localhost:6379"})
	v.SetDefault("redis_pool_size", 100)
	v.SetDefault("use_quorum", false)
	v.SetDefault("lock_ttl", 10*time.Second)
	v.SetDefault("node_timeout", 50*time.Millisecond)
	v.SetDefault("drift_factor", 0.01)
	v.SetDefault("drift_floor", 2*time.Millisecond)
	v.SetDefault("safety_margin", 100*time.Millisecond)
	v.SetDefault("lock_max_retries", 3)
	v.SetDefault("lock_base_delay", 100*time.Millisecond)
	v.SetDefault("lock_max_delay", time.Second)
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_topic", "flashstock.reconcile")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("FLASHSTOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.RedisNodes) == 0 {
		return fmt.Errorf("config: at least one redis node is required")
	}
	if c.UseQuorum && len(c.RedisNodes)%2 == 0 {
		return fmt.Errorf("config: quorum mode needs an odd node count, got %d", len(c.RedisNodes))
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("config: lock_ttl must be positive")
	}
	// A node attempt that can eat the whole TTL defeats the validity math.
	if c.NodeTimeout > c.LockTTL/10 {
		return fmt.Errorf("config: node_timeout %s must not exceed a tenth of lock_ttl %s", c.NodeTimeout, c.LockTTL)
	}
	if c.DriftFactor < 0 || c.DriftFactor >= 1 {
		return fmt.Errorf("config: drift_factor must be in [0, 1), got %g", c.DriftFactor)
	}
	if c.SafetyMargin < 0 || c.SafetyMargin >= c.LockTTL {
		return fmt.Errorf("config: safety_margin must be shorter than lock_ttl")
	}
	return nil
}
