package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type WebServerConfig struct {
	Port            string `mapstructure:"port"`
	IP              string `mapstructure:"ip"`
	Scheme          string `mapstructure:"scheme"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	AllowedOrigin   string `mapstructure:"allowed_origin"`
}

type RedisConfig struct {
	Address          string `mapstructure:"address"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	PoolSize         int    `mapstructure:"pool_size"`
	MinIdleConns     int    `mapstructure:"min_idle_conns"`
	OperationTimeout int    `mapstructure:"operation_timeout"`
}

type CacheConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSizeMB   int  `mapstructure:"max_size_mb"`
	TTLSeconds  int  `mapstructure:"ttl_seconds"`
	CounterSize int  `mapstructure:"counter_size"`
}

// UpstreamConfig describes the third-party form endpoint submissions are
// forwarded to, plus the retry policy applied to that call.
type UpstreamConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RetryAttempts  int    `mapstructure:"retry_attempts"`
	RetryBaseMs    int    `mapstructure:"retry_base_ms"`
}

// WindowLimitConfig is one fixed-window rate limit: MaxAttempts per WindowMinutes.
type WindowLimitConfig struct {
	MaxAttempts   int `mapstructure:"max_attempts"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type RateLimitConfig struct {
	Submission   WindowLimitConfig `mapstructure:"submission"`
	Verification WindowLimitConfig `mapstructure:"verification"`
	Resend       WindowLimitConfig `mapstructure:"resend"`

	// Transport-level per-IP limiter, independent of the domain windows above.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`

	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
}

type VerificationConfig struct {
	CodeTTLSeconds        int `mapstructure:"code_ttl_seconds"`
	ResendCooldownSeconds int `mapstructure:"resend_cooldown_seconds"`
	TokenTTLSeconds       int `mapstructure:"token_ttl_seconds"`
}

type NotificationConfig struct {
	DisplayDurationMs int `mapstructure:"display_duration_ms"`
}

type SMTPConfig struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
	// OwnerEmail, when set, receives a copy of every accepted submission.
	OwnerEmail string `mapstructure:"owner_email"`
	Enabled    bool   `mapstructure:"enabled"`
}

type SecurityConfig struct {
	BotDetectionEnabled     bool `mapstructure:"bot_detection_enabled"`
	BotMaxRequestsPerMinute int  `mapstructure:"bot_max_requests_per_minute"`
}

type PreferencesConfig struct {
	DefaultTheme  string `mapstructure:"default_theme"`
	DefaultLocale string `mapstructure:"default_locale"`
}

type Config struct {
	WebServer    WebServerConfig    `mapstructure:"webserver"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Upstream     UpstreamConfig     `mapstructure:"upstream"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	Verification VerificationConfig `mapstructure:"verification"`
	Notification NotificationConfig `mapstructure:"notification"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Security     SecurityConfig     `mapstructure:"security"`
	Preferences  PreferencesConfig  `mapstructure:"preferences"`
}

// CodeTTL returns the verification code lifetime as a duration.
func (c VerificationConfig) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLSeconds) * time.Second
}

// ResendCooldown returns the minimum delay between resends.
func (c VerificationConfig) ResendCooldown() time.Duration {
	return time.Duration(c.ResendCooldownSeconds) * time.Second
}

// TokenTTL returns the lifetime of a minted verification token.
func (c VerificationConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

// Window returns the limit window as a duration.
func (c WindowLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// RetryBase returns the initial backoff delay for upstream retries.
func (c UpstreamConfig) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseMs) * time.Millisecond
}

// DisplayDuration returns how long a notification stays visible.
func (c NotificationConfig) DisplayDuration() time.Duration {
	return time.Duration(c.DisplayDurationMs) * time.Millisecond
}

func LoadConfig() (Config, error) {
	var config Config

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Enable environment variable overrides
	viper.SetEnvPrefix("CONTACTGW")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Error reading config file: %v", err)
			return config, err
		}
		// Missing config file is fine; defaults plus env cover everything.
	}

	if err := viper.Unmarshal(&config); err != nil {
		log.Printf("Unable to decode into struct: %v", err)
		return config, err
	}

	return config, nil
}

func MustLoadConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return config
}

func setDefaults() {
	// WebServer defaults
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.ip", "127.0.0.1")
	viper.SetDefault("webserver.scheme", "http")
	viper.SetDefault("webserver.read_timeout", 15)
	viper.SetDefault("webserver.write_timeout", 15)
	viper.SetDefault("webserver.shutdown_timeout", 30)
	viper.SetDefault("webserver.allowed_origin", "*")

	// Redis defaults
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 5)
	viper.SetDefault("redis.operation_timeout", 5)

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size_mb", 16)
	viper.SetDefault("cache.ttl_seconds", 300)
	viper.SetDefault("cache.counter_size", 100000)

	// Upstream defaults
	viper.SetDefault("upstream.endpoint", "")
	viper.SetDefault("upstream.timeout_seconds", 10)
	viper.SetDefault("upstream.retry_attempts", 3)
	viper.SetDefault("upstream.retry_base_ms", 1000)

	// RateLimit defaults: 3 submissions / 15m, 5 code checks / 5m, 3 resends / 10m
	viper.SetDefault("ratelimit.submission.max_attempts", 3)
	viper.SetDefault("ratelimit.submission.window_minutes", 15)
	viper.SetDefault("ratelimit.verification.max_attempts", 5)
	viper.SetDefault("ratelimit.verification.window_minutes", 5)
	viper.SetDefault("ratelimit.resend.max_attempts", 3)
	viper.SetDefault("ratelimit.resend.window_minutes", 10)
	viper.SetDefault("ratelimit.requests_per_second", 10.0)
	viper.SetDefault("ratelimit.burst", 20)
	viper.SetDefault("ratelimit.sweep_interval_minutes", 5)

	// Verification defaults
	viper.SetDefault("verification.code_ttl_seconds", 300)
	viper.SetDefault("verification.resend_cooldown_seconds", 60)
	viper.SetDefault("verification.token_ttl_seconds", 600)

	// Notification defaults
	viper.SetDefault("notification.display_duration_ms", 5000)

	// SMTP defaults (disabled: codes are logged instead of sent)
	viper.SetDefault("smtp.host", "")
	viper.SetDefault("smtp.port", "587")
	viper.SetDefault("smtp.username", "")
	viper.SetDefault("smtp.password", "")
	viper.SetDefault("smtp.from_email", "noreply@example.com")
	viper.SetDefault("smtp.from_name", "Contact Gateway")
	viper.SetDefault("smtp.owner_email", "")
	viper.SetDefault("smtp.enabled", false)

	// Security defaults
	viper.SetDefault("security.bot_detection_enabled", true)
	viper.SetDefault("security.bot_max_requests_per_minute", 60)

	// Preferences defaults
	viper.SetDefault("preferences.default_theme", "system")
	viper.SetDefault("preferences.default_locale", "en")
}
