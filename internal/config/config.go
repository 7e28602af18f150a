package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// TLSConfig holds optional TLS settings
type TLSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	MinVersion string `mapstructure:"min_version"`
}

// DataConfig holds persistence locations
type DataConfig struct {
	Dir    string `mapstructure:"dir"`
	DBPath string `mapstructure:"db_path"`
}

// CacheConfig holds slide cache settings
type CacheConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// StatsConfig holds stats flushing settings
type StatsConfig struct {
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// Config is the full server configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	TLS    TLSConfig    `mapstructure:"tls"`
	Data   DataConfig   `mapstructure:"data"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Stats  StatsConfig  `mapstructure:"stats"`
}

// LoadConfig reads configuration from slidecast.yaml (optional) with
// SLIDECAST_* environment variables taking precedence over file values
func LoadConfig() *Config {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "9090")
	v.SetDefault("tls.enabled", false)
	v.SetDefault("tls.min_version", "1.2")
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.db_path", "./data/slidecast.db")
	v.SetDefault("cache.max_size", 100)
	v.SetDefault("stats.flush_interval", 30*time.Second)

	v.SetConfigName("slidecast")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("SLIDECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			log.Printf("Warning: failed to read config file, using defaults: %v", err)
		}
	} else {
		log.Printf("Loaded config from %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("Warning: failed to unmarshal config, using defaults: %v", err)
		cfg = Config{}
		cfg.Server.Host = "0.0.0.0"
		cfg.Server.Port = "9090"
		cfg.TLS.MinVersion = "1.2"
		cfg.Data.Dir = "./data"
		cfg.Data.DBPath = "./data/slidecast.db"
		cfg.Cache.MaxSize = 100
		cfg.Stats.FlushInterval = 30 * time.Second
	}

	return &cfg
}
