package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Twilio    TwilioConfig    `yaml:"twilio" mapstructure:"twilio"`
	PCM       PCMConfig       `yaml:"pcm" mapstructure:"pcm"`
	Thumbtack ThumbtackConfig `yaml:"thumbtack" mapstructure:"thumbtack"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Business  BusinessConfig  `yaml:"business" mapstructure:"business"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port          int      `yaml:"port" mapstructure:"port"`
	Environment   string   `yaml:"environment" mapstructure:"environment"`
	WebhookSecret string   `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	PublicURL     string   `yaml:"public_url" mapstructure:"public_url"`
	CORSOrigins   []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// TwilioConfig holds Twilio credentials and the numbers SMS alerts use.
type TwilioConfig struct {
	AccountSID   string  `yaml:"account_sid" mapstructure:"account_sid"`
	AuthToken    string  `yaml:"auth_token" mapstructure:"auth_token"`
	FromNumber   string  `yaml:"from_number" mapstructure:"from_number"`
	NotifyNumber string  `yaml:"notify_number" mapstructure:"notify_number"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// Enabled reports whether SMS can be sent: both credentials and the sending
// number are present. Anything less leaves SMS disabled.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

// Partial reports whether some, but not all, of the Twilio settings needed
// for sending are present.
func (t TwilioConfig) Partial() bool {
	return !t.Enabled() && (t.AccountSID != "" || t.AuthToken != "" || t.FromNumber != "")
}

// PCMConfig holds PCM Integrations CRM settings.
type PCMConfig struct {
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	APIKey           string `yaml:"api_key" mapstructure:"api_key"`
	BreakerFailures  int    `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// BreakerCooldown is how long CRM submissions are refused once the breaker
// opens.
func (p PCMConfig) BreakerCooldown() time.Duration {
	return time.Duration(p.BreakerResetSecs) * time.Second
}

// Enabled reports whether leads should be forwarded to the CRM.
func (p PCMConfig) Enabled() bool {
	return p.APIKey != ""
}

// ThumbtackConfig holds the Thumbtack OAuth application.
type ThumbtackConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	RedirectURL  string `yaml:"redirect_url" mapstructure:"redirect_url"`
	AuthURL      string `yaml:"auth_url" mapstructure:"auth_url"`
	TokenURL     string `yaml:"token_url" mapstructure:"token_url"`
}

// Enabled reports whether an OAuth client is configured.
func (t ThumbtackConfig) Enabled() bool {
	return t.ClientID != "" && t.RedirectURL != ""
}

// HTTPConfig configures outbound HTTP calls.
type HTTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the outbound request timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSecs) * time.Second
}

// BusinessConfig brands outbound messages.
type BusinessConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	ServiceType string `yaml:"service_type" mapstructure:"service_type"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the bare environment names used by
// existing deployments. The LEADHOOK_ prefixed form also works.
var legacyEnv = map[string]string{
	"server.port":             "PORT",
	"server.environment":      "NODE_ENV",
	"server.webhook_secret":   "WEBHOOK_SECRET",
	"twilio.account_sid":      "TWILIO_ACCOUNT_SID",
	"twilio.auth_token":       "TWILIO_AUTH_TOKEN",
	"twilio.from_number":      "TWILIO_PHONE_NUMBER",
	"twilio.notify_number":    "YOUR_PHONE_NUMBER",
	"pcm.base_url":            "PCM_API_BASE_URL",
	"pcm.api_key":             "PCM_API_KEY",
	"thumbtack.client_id":     "THUMBTACK_CLIENT_ID",
	"thumbtack.client_secret": "THUMBTACK_CLIENT_SECRET",
	"thumbtack.redirect_url":  "THUMBTACK_REDIRECT_URL",
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADHOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := "LEADHOOK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("config: bind env %s", env))
		}
	}

	// Defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("twilio.base_url", "https://api.twilio.com")
	v.SetDefault("twilio.rate_per_sec", 1.0)
	v.SetDefault("pcm.base_url", "https://api.pcmintegrations.com")
	v.SetDefault("pcm.breaker_failures", 5)
	v.SetDefault("pcm.breaker_reset_secs", 30)
	v.SetDefault("thumbtack.auth_url", "https://auth.thumbtack.com/oauth2/auth")
	v.SetDefault("thumbtack.token_url", "https://auth.thumbtack.com/oauth2/token")
	v.SetDefault("http.timeout_secs", 10)
	v.SetDefault("business.name", "Tile And Carpet Solutions")
	v.SetDefault("business.service_type", "Cleaning Service")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
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

// Validate checks the settings a command needs before it starts.
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.HTTP.TimeoutSecs <= 0 {
			errs = append(errs, "http.timeout_secs must be > 0")
		}
		if c.PCM.BreakerFailures <= 0 || c.PCM.BreakerResetSecs <= 0 {
			errs = append(errs, "pcm.breaker_failures and pcm.breaker_reset_secs must be > 0")
		}
	case "offline":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
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
