package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Email      EmailConfig      `yaml:"email" mapstructure:"email"`
	Ringover   RingoverConfig   `yaml:"ringover" mapstructure:"ringover"`
	WhatsApp   WhatsAppConfig   `yaml:"whatsapp" mapstructure:"whatsapp"`
	WebForm    WebFormConfig    `yaml:"webform" mapstructure:"webform"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Mistral    MistralConfig    `yaml:"mistral" mapstructure:"mistral"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Dedup      DedupConfig      `yaml:"dedup" mapstructure:"dedup"`
	SMTP       SMTPConfig       `yaml:"smtp" mapstructure:"smtp"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq" mapstructure:"rabbitmq"`
}

type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	AdminToken  string   `yaml:"admin_token" mapstructure:"admin_token"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

type StoreConfig struct {
	DatabaseURL  string        `yaml:"database_url" mapstructure:"database_url"`
	MaxConns     int32         `yaml:"max_conns" mapstructure:"max_conns"`
	QueryTimeout time.Duration `yaml:"query_timeout" mapstructure:"query_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type EmailConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Username     string        `yaml:"username" mapstructure:"username"`
	Password     string        `yaml:"password" mapstructure:"password"`
	Mailbox      string        `yaml:"mailbox" mapstructure:"mailbox"`
	Interval     time.Duration `yaml:"interval" mapstructure:"interval"`
	StartupDelay time.Duration `yaml:"startup_delay" mapstructure:"startup_delay"`
	Lookback     time.Duration `yaml:"lookback" mapstructure:"lookback"`
}

type RingoverConfig struct {
	APIKey           string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL          string        `yaml:"base_url" mapstructure:"base_url"`
	Interval         time.Duration `yaml:"interval" mapstructure:"interval"`
	Lookback         time.Duration `yaml:"lookback" mapstructure:"lookback"`
	StartupDelay     time.Duration `yaml:"startup_delay" mapstructure:"startup_delay"`
	InternalPrefixes []string      `yaml:"internal_prefixes" mapstructure:"internal_prefixes"`
}

type WhatsAppConfig struct {
	VerifyToken string `yaml:"verify_token" mapstructure:"verify_token"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	PhoneID     string `yaml:"phone_id" mapstructure:"phone_id"`
	AppSecret   string `yaml:"app_secret" mapstructure:"app_secret"`
	AckMessage  string `yaml:"ack_message" mapstructure:"ack_message"`
}

type WebFormConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Secret    string `yaml:"secret" mapstructure:"secret"`
	RateLimit int    `yaml:"rate_limit" mapstructure:"rate_limit"`
}

type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

type MistralConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

type ExtractionConfig struct {
	Timeout             time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ConfidenceThreshold int           `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	BreakerFailures     int           `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerReset        time.Duration `yaml:"breaker_reset" mapstructure:"breaker_reset"`
}

type DedupConfig struct {
	Window time.Duration `yaml:"window" mapstructure:"window"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

type RabbitMQConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADCAPTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// setDefaults registers every key, empty ones included, so AutomaticEnv
// can bind them during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.query_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 993)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.mailbox", "INBOX")
	v.SetDefault("email.interval", 5*time.Minute)
	v.SetDefault("email.startup_delay", 30*time.Second)
	v.SetDefault("email.lookback", 24*time.Hour)

	v.SetDefault("ringover.api_key", "")
	v.SetDefault("ringover.base_url", "https://public-api.ringover.com/v2")
	v.SetDefault("ringover.interval", 15*time.Minute)
	v.SetDefault("ringover.lookback", 16*time.Minute)
	v.SetDefault("ringover.startup_delay", 90*time.Second)
	v.SetDefault("ringover.internal_prefixes", []string{})

	v.SetDefault("whatsapp.verify_token", "")
	v.SetDefault("whatsapp.access_token", "")
	v.SetDefault("whatsapp.phone_id", "")
	v.SetDefault("whatsapp.app_secret", "")
	v.SetDefault("whatsapp.ack_message", "Merci pour votre message ! Nous revenons vers vous très rapidement.")

	v.SetDefault("webform.enabled", true)
	v.SetDefault("webform.secret", "")
	v.SetDefault("webform.rate_limit", 10)

	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("mistral.key", "")
	v.SetDefault("mistral.model", "mistral-small-latest")
	v.SetDefault("mistral.base_url", "https://api.mistral.ai/v1")

	v.SetDefault("extraction.timeout", 30*time.Second)
	v.SetDefault("extraction.confidence_threshold", 60)
	v.SetDefault("extraction.breaker_failures", 3)
	v.SetDefault("extraction.breaker_reset", 2*time.Minute)
	v.SetDefault("dedup.window", 30*time.Minute)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")

	v.SetDefault("rabbitmq.url", "")
}

// Validate checks the settings the HTTP service cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url")
	}
	if c.Server.Port <= 0 {
		missing = append(missing, "server.port")
	}
	if c.Extraction.ConfidenceThreshold < 0 || c.Extraction.ConfidenceThreshold > 100 {
		return eris.Errorf("config: extraction.confidence_threshold must be within 0-100, got %d", c.Extraction.ConfidenceThreshold)
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
