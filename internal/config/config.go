package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Moderation ModerationConfig `mapstructure:"moderation"`
}

// Telegram bot configuration
type BotConfig struct {
	Token     string        `mapstructure:"token"`
	ChatID    int64         `mapstructure:"chat_id"`
	LogChatID int64         `mapstructure:"log_chat_id"`
	Webhook   WebhookConfig `mapstructure:"webhook"`
}

// webhook server configuration
type WebhookConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	ListenPort string `mapstructure:"listen_port"`
	DebugPath  string `mapstructure:"debug_path"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
	Level     string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
	Path     string `mapstructure:"path"`
	LogLevel string `mapstructure:"log_level"`
}

// RedisConfig enables the redis backed id counter and audit journal.
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ModerationConfig tunes reconciliation and audit correlation.
type ModerationConfig struct {
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	ReversalTimeout   time.Duration `mapstructure:"reversal_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	AuditRetries      int           `mapstructure:"audit_retries"`
	AuditRetryDelay   time.Duration `mapstructure:"audit_retry_delay"`
	AuditWindow       time.Duration `mapstructure:"audit_window"`
	ExpiredReason     string        `mapstructure:"expired_reason"`
	RejoinReason      string        `mapstructure:"rejoin_reason"`
	IDCounter         string        `mapstructure:"id_counter"`
}

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// the webhook secret is derived from the token's last six characters
const minTokenLength = 6

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports the first missing or out of range setting.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot.token is required")
	}
	if len(c.Bot.Token) < minTokenLength {
		return fmt.Errorf("bot.token is too short")
	}
	if c.Bot.ChatID == 0 {
		return fmt.Errorf("bot.chat_id is required")
	}

	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.Host == "" || c.Database.DBName == "" {
			return fmt.Errorf("database.host and database.dbname are required for mysql")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}

	m := c.Moderation
	if m.ReconcileInterval <= 0 {
		return fmt.Errorf("moderation.reconcile_interval must be positive")
	}
	if m.ReversalTimeout <= 0 {
		return fmt.Errorf("moderation.reversal_timeout must be positive")
	}
	if m.AuditRetries < 1 {
		return fmt.Errorf("moderation.audit_retries must be at least 1")
	}
	if m.AuditRetryDelay < 0 {
		return fmt.Errorf("moderation.audit_retry_delay must not be negative")
	}
	if m.IDCounter == "" {
		return fmt.Errorf("moderation.id_counter is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.log_chat_id", 0)
	v.SetDefault("bot.webhook.listen_port", "8443")
	v.SetDefault("bot.webhook.debug_path", "/debug")
	v.SetDefault("bot.webhook.cert_file", "")
	v.SetDefault("bot.webhook.key_file", "")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("database.driver", DriverMySQL)
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.path", "data/sanctions.db")
	v.SetDefault("database.log_level", "WARNING")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "sanctions:")

	v.SetDefault("moderation.reconcile_interval", 15*time.Second)
	v.SetDefault("moderation.reversal_timeout", 30*time.Second)
	v.SetDefault("moderation.shutdown_timeout", 30*time.Second)
	v.SetDefault("moderation.audit_retries", 3)
	v.SetDefault("moderation.audit_retry_delay", time.Second)
	v.SetDefault("moderation.audit_window", 2*time.Minute)
	v.SetDefault("moderation.expired_reason", "Punishment duration expired")
	v.SetDefault("moderation.rejoin_reason", "User rejoined guild")
	v.SetDefault("moderation.id_counter", "action")
}
