package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App      AppSettings      `mapstructure:"app"`
	Cookie   CookieSettings   `mapstructure:"cookie"`
	Postgres PostgresSettings `mapstructure:"postgres"`
	Redis    RedisSettings    `mapstructure:"redis"`
	Kafka    KafkaSettings    `mapstructure:"kafka"`
	JWT      JWTSettings      `mapstructure:"jwt"`
	Codes    CodeSettings     `mapstructure:"codes"`
	Mail     MailSettings     `mapstructure:"mail"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// PublicBaseURL is prepended to emailed verification links.
	PublicBaseURL string `mapstructure:"public_base_url"`
	// VerificationRedirectURL is where the browser lands after following a
	// verification link, regardless of outcome.
	VerificationRedirectURL string `mapstructure:"verification_redirect_url"`
}

// CookieSettings shape the browser session cookie. Its expiry times the user
// out of a browser session independently of refresh token validity.
type CookieSettings struct {
	Name string        `mapstructure:"name"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection backing the code registry.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the security event producer. An empty broker list
// falls back to the logging stub publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// JWTSettings hold the two signing secrets. There are deliberately no
// defaults: Load fails when either secret is missing or when both match.
type JWTSettings struct {
	AccessSecret   string        `mapstructure:"access_secret"`
	RefreshSecret  string        `mapstructure:"refresh_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// CodeSettings govern confirmation code shape and lifetime per purpose.
type CodeSettings struct {
	Length        int           `mapstructure:"length"`
	ActivationTTL time.Duration `mapstructure:"activation_ttl"`
	ResetTTL      time.Duration `mapstructure:"reset_ttl"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
}

type MailSettings struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromName    string `mapstructure:"from_name"`
	FromAddress string `mapstructure:"from_address"`
	TLS         bool   `mapstructure:"tls"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("DWENGO")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.public_base_url",
		"app.verification_redirect_url",
		"cookie.name",
		"cookie.ttl",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.access_secret",
		"jwt.refresh_secret",
		"jwt.access_token_ttl",
		"codes.length",
		"codes.activation_ttl",
		"codes.reset_ttl",
		"codes.key_prefix",
		"mail.host",
		"mail.port",
		"mail.username",
		"mail.password",
		"mail.from_name",
		"mail.from_address",
		"mail.tls",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *AppConfig) error {
	if strings.TrimSpace(cfg.JWT.AccessSecret) == "" {
		return fmt.Errorf("config: jwt.access_secret is required")
	}
	if strings.TrimSpace(cfg.JWT.RefreshSecret) == "" {
		return fmt.Errorf("config: jwt.refresh_secret is required")
	}
	if cfg.JWT.AccessSecret == cfg.JWT.RefreshSecret {
		return fmt.Errorf("config: access and refresh secrets must differ")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dwengo-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.public_base_url", "http://localhost:8080/")
	v.SetDefault("app.verification_redirect_url", "http://localhost:8080/")

	v.SetDefault("cookie.name", "dwengo")
	v.SetDefault("cookie.ttl", "3h")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "dwengo")
	v.SetDefault("postgres.password", "dwengo_password")
	v.SetDefault("postgres.database", "dwengo")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "dwengo")

	// No defaults for the signing secrets; see validate.
	v.SetDefault("jwt.access_token_ttl", "5m")

	v.SetDefault("codes.length", 10)
	v.SetDefault("codes.activation_ttl", "24h")
	v.SetDefault("codes.reset_ttl", "10m")
	v.SetDefault("codes.key_prefix", "confirmation_code")

	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from_name", "Dwenguino")
	v.SetDefault("mail.from_address", "no-reply@dwengo.org")
	v.SetDefault("mail.tls", false)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "DWENGO_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
