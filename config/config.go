// Package config 加载应用配置
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Model   ModelConfig   `mapstructure:"model"`
	Cache   CacheConfig   `mapstructure:"cache"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Timeout        time.Duration `mapstructure:"timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// StoreConfig 怪物数据源
type StoreConfig struct {
	Type            string `mapstructure:"type"`
	MongoURL        string `mapstructure:"mongo_url"`
	Database        string `mapstructure:"database"`
	Collection      string `mapstructure:"collection"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MySQLDSN        string `mapstructure:"mysql_dsn"`
	ConnectAttempts uint   `mapstructure:"connect_attempts"`
}

type ModelConfig struct {
	Path     string `mapstructure:"path"`
	Trees    int    `mapstructure:"trees"`
	MaxDepth int    `mapstructure:"max_depth"`
	Seed     int64  `mapstructure:"seed"`
	Watch    bool   `mapstructure:"watch"`
	// RetrainInterval 定时重训间隔，0表示关闭
	RetrainInterval time.Duration `mapstructure:"retrain_interval"`
}

type CacheConfig struct {
	Type      string        `mapstructure:"type"`
	Size      int           `mapstructure:"size"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// HistoryConfig 训练日志与预测记录(SQLite)
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

const EnvPrefix = "MONSTERLAB"

// Load 读取配置文件、默认值与环境变量。path为空时在默认目录中查找config.yaml。
func Load(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.monsterlab")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v)
}

// NewViper 带默认值和环境变量绑定的viper实例
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容旧部署的MONGO_URL
	_ = v.BindEnv("store.mongo_url", EnvPrefix+"_STORE_MONGO_URL", "MONGO_URL")
	return v
}

// FromViper 解码并校验
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("store.type", "mongo")
	v.SetDefault("store.mongo_url", "")
	v.SetDefault("store.database", "bandersnatch")
	v.SetDefault("store.collection", "monsters")
	v.SetDefault("store.sqlite_path", "data/monsters.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/monsterlab?parseTime=true")
	v.SetDefault("store.connect_attempts", 3)

	v.SetDefault("model.path", "data/model.gob")
	v.SetDefault("model.trees", 100)
	v.SetDefault("model.max_depth", 0)
	v.SetDefault("model.seed", 0)
	v.SetDefault("model.watch", true)
	v.SetDefault("model.retrain_interval", "0s")

	v.SetDefault("cache.type", "lru")
	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("history.path", "data/history.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Validate 校验配置组合
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Store.Type {
	case "mongo":
		if c.Store.MongoURL == "" {
			return errors.New("MONGO_URL is not set: configure store.mongo_url or the MONGO_URL environment variable")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite store")
		}
	case "mysql":
		if c.Store.MySQLDSN == "" {
			return errors.New("store.mysql_dsn is required for the mysql store")
		}
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}
	switch c.Cache.Type {
	case "lru", "redis", "none":
	default:
		return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.Model.RetrainInterval < 0 {
		return fmt.Errorf("invalid retrain interval: %s", c.Model.RetrainInterval)
	}
	if c.Model.Trees < 0 {
		return fmt.Errorf("invalid tree count: %d", c.Model.Trees)
	}
	return nil
}
