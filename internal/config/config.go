// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
// Durations are kept as strings (e.g. "30s") and read through the accessor methods.
type Config struct {
	// AuthAPIURL is the base URL of the Authentication Service used by the sign-in flow client.
	AuthAPIURL string `mapstructure:"AUTH_API_URL"`
	// AuthHTTPTimeout is the per-request timeout of the auth client.
	AuthHTTPTimeout string `mapstructure:"AUTH_HTTP_TIMEOUT"`
	// OTPResendWindow is the cooldown between OTP dispatches.
	OTPResendWindow string `mapstructure:"OTP_RESEND_WINDOW"`
	// OTPTickInterval is the period of one resend countdown tick.
	OTPTickInterval string `mapstructure:"OTP_TICK_INTERVAL"`

	// DevAuthHTTPAddr is the listen address of the reference auth service HTTP API.
	DevAuthHTTPAddr string `mapstructure:"DEVAUTH_HTTP_ADDR"`
	// DevAuthGRPCAddr is the listen address of the gRPC health endpoint. Empty disables it.
	DevAuthGRPCAddr string `mapstructure:"DEVAUTH_GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN; empty keeps users and audit logs in memory.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// OTPTTL is how long an issued OTP can be verified.
	OTPTTL string `mapstructure:"OTP_TTL"`
	// OTPMaxAttempts is the number of wrong codes accepted before the challenge is burned.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// OTPVerifiedTTL is how long a verified mobile number may log in without a new OTP.
	OTPVerifiedTTL string `mapstructure:"OTP_VERIFIED_TTL"`
	// OTPHashCost is the bcrypt cost used to hash stored OTPs (4–31).
	OTPHashCost int `mapstructure:"OTP_HASH_COST"`
	// ResendRateCapacity is the number of OTP dispatches allowed per mobile per ResendRateInterval.
	ResendRateCapacity int `mapstructure:"RESEND_RATE_CAPACITY"`
	// ResendRateInterval is the refill period of the resend rate limiter.
	ResendRateInterval string `mapstructure:"RESEND_RATE_INTERVAL"`

	// SMSLocalAPIKey is the API key for SMS Local. Required unless OTPReturnToClient is set.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for SMS Local.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS Local API base URL.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`
	// OTPReturnToClient when true enables dev OTP mode: no SMS, OTP stored for GET /dev/otp/{mobile}.
	// Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Empty generates
	// an ephemeral key at startup outside production.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim of issued access tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim of issued access tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables the Kafka sink.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// FlowKafkaTopic is the topic for flow telemetry events.
	FlowKafkaTopic string `mapstructure:"FLOW_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the telemetry worker pushes events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC collector; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]any{
	"AUTH_API_URL":                "http://localhost:8081",
	"AUTH_HTTP_TIMEOUT":           "15s",
	"OTP_RESEND_WINDOW":           "30s",
	"OTP_TICK_INTERVAL":           "1s",
	"DEVAUTH_HTTP_ADDR":           ":8081",
	"DEVAUTH_GRPC_ADDR":           ":9091",
	"DATABASE_URL":                "",
	"OTP_TTL":                     "5m",
	"OTP_MAX_ATTEMPTS":            3,
	"OTP_VERIFIED_TTL":            "10m",
	"OTP_HASH_COST":               10,
	"RESEND_RATE_CAPACITY":        3,
	"RESEND_RATE_INTERVAL":        "10m",
	"SMS_LOCAL_API_KEY":           "",
	"SMS_LOCAL_SENDER":            "",
	"SMS_LOCAL_BASE_URL":          "https://app.smslocal.in/api/smsapi",
	"OTP_RETURN_TO_CLIENT":        false,
	"APP_ENV":                     "",
	"JWT_PRIVATE_KEY":             "",
	"JWT_PUBLIC_KEY":              "",
	"JWT_ISSUER":                  "biopay-auth",
	"JWT_AUDIENCE":                "biopay-app",
	"JWT_ACCESS_TTL":              "15m",
	"KAFKA_BROKERS":               "",
	"FLOW_KAFKA_TOPIC":            "biopay-flow-events",
	"KAFKA_GROUP_ID":              "biopay-flow-worker",
	"LOKI_URL":                    "",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"OTEL_EXPORTER_OTLP_INSECURE": false,
	"OTEL_SERVICE_NAME":           "biopay",
	"LOG_LEVEL":                   "info",
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AuthAPIURL == "" {
		return errors.New("config: AUTH_API_URL must be set")
	}
	for key, val := range map[string]string{
		"AUTH_HTTP_TIMEOUT":    c.AuthHTTPTimeout,
		"OTP_RESEND_WINDOW":    c.OTPResendWindow,
		"OTP_TICK_INTERVAL":    c.OTPTickInterval,
		"OTP_TTL":              c.OTPTTL,
		"OTP_VERIFIED_TTL":     c.OTPVerifiedTTL,
		"RESEND_RATE_INTERVAL": c.ResendRateInterval,
		"JWT_ACCESS_TTL":       c.JWTAccessTTL,
	} {
		d, err := time.ParseDuration(val)
		if err != nil || d <= 0 {
			return fmt.Errorf("config: %s must be a positive duration, got %q", key, val)
		}
	}
	if w, _ := time.ParseDuration(c.OTPResendWindow); w < time.Second {
		return errors.New("config: OTP_RESEND_WINDOW must be at least 1s")
	}
	if c.OTPMaxAttempts < 1 {
		return errors.New("config: OTP_MAX_ATTEMPTS must be at least 1")
	}
	if c.ResendRateCapacity < 1 {
		return errors.New("config: RESEND_RATE_CAPACITY must be at least 1")
	}
	if c.OTPHashCost < 4 || c.OTPHashCost > 31 {
		return errors.New("config: OTP_HASH_COST must be between 4 and 31")
	}
	if c.OTPReturnToClient && c.IsProduction() {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// duration parses s, falling back to def when s is unset or invalid.
func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// HTTPTimeout returns AuthHTTPTimeout; 15s if unset or invalid.
func (c *Config) HTTPTimeout() time.Duration { return duration(c.AuthHTTPTimeout, 15*time.Second) }

// ResendWindow returns OTPResendWindow; 30s if unset or invalid.
func (c *Config) ResendWindow() time.Duration { return duration(c.OTPResendWindow, 30*time.Second) }

// TickInterval returns OTPTickInterval; 1s if unset or invalid.
func (c *Config) TickInterval() time.Duration { return duration(c.OTPTickInterval, time.Second) }

// OTPValidity returns OTPTTL; 5m if unset or invalid.
func (c *Config) OTPValidity() time.Duration { return duration(c.OTPTTL, 5*time.Minute) }

// VerifiedValidity returns OTPVerifiedTTL; 10m if unset or invalid.
func (c *Config) VerifiedValidity() time.Duration { return duration(c.OTPVerifiedTTL, 10*time.Minute) }

// ResendRefill returns ResendRateInterval; 10m if unset or invalid.
func (c *Config) ResendRefill() time.Duration { return duration(c.ResendRateInterval, 10*time.Minute) }

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration { return duration(c.JWTAccessTTL, 15*time.Minute) }

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the Kafka sink.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
