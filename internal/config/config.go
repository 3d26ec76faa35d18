package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port           int      `yaml:"port"`
	GinMode        string   `yaml:"gin_mode"`
	Env            string   `yaml:"env"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	AccessTTL  string `yaml:"access_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
}

type OTPConfig struct {
	TTL          string `yaml:"ttl"`
	Length       int    `yaml:"length"`
	MaxAttempts  int    `yaml:"max_attempts"`
	ResendWindow string `yaml:"resend_window"`
	HashSecret   string `yaml:"hash_secret"`
	AppName      string `yaml:"app_name"`
}

type LockoutConfig struct {
	Threshold    int    `yaml:"threshold"`
	Window       string `yaml:"window"`
	LockDuration string `yaml:"lock_duration"`
}

type RefreshConfig struct {
	SessionTTL string `yaml:"session_ttl"`
	ReuseGrace string `yaml:"reuse_grace"`
	LockWait   string `yaml:"lock_wait"`
	LockTTL    string `yaml:"lock_ttl"`
}

type PasswordConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type SentryConfig struct {
	DSN string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ConfigFile struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	OTP      OTPConfig      `yaml:"otp"`
	Lockout  LockoutConfig  `yaml:"lockout"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Password PasswordConfig `yaml:"password"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Google   GoogleConfig   `yaml:"google"`
	Sentry   SentryConfig   `yaml:"sentry"`
	Log      LogConfig      `yaml:"log"`
}

// Config is the resolved runtime configuration
type Config struct {
	Port           string
	GinMode        string
	Env            string
	AllowedOrigins []string

	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	OTPTTL          time.Duration
	OTPLength       int
	OTPMaxAttempts  int
	OTPResendWindow time.Duration
	OTPHashSecret   string
	AppName         string

	LockoutThreshold int
	LockoutWindow    time.Duration
	LockoutDuration  time.Duration

	SessionTTL time.Duration
	ReuseGrace time.Duration
	LockWait   time.Duration
	LockTTL    time.Duration

	BcryptCost int

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	GoogleClientID     string
	GoogleClientSecret string

	SentryDSN string
	LogLevel  string
}

// Production reports whether the service runs with production safeguards
func (c *Config) Production() bool {
	return c.Env == "production"
}

// MinBcryptCost is the lowest accepted cost for the current environment
func (c *Config) MinBcryptCost() int {
	if c.Production() {
		return 12
	}
	return 10
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads the YAML file at path, applies environment overrides and validates the result.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg, err := resolve(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

// durations parses named duration strings, falling back to def when a value is empty
type durations struct {
	err error
}

func (d *durations) parse(name, value string, def time.Duration) time.Duration {
	if d.err != nil {
		return 0
	}
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		d.err = fmt.Errorf("invalid %s: %w", name, err)
		return 0
	}
	return parsed
}

func resolve(f *ConfigFile) (*Config, error) {
	var d durations
	cfg := &Config{
		Port:           strconv.Itoa(f.App.Port),
		GinMode:        f.App.GinMode,
		Env:            env("APP_ENV", f.App.Env),
		AllowedOrigins: f.App.AllowedOrigins,

		DSN:             env("DATABASE_DSN", f.Database.DSN),
		MaxOpenConns:    f.Database.MaxOpenConns,
		MaxIdleConns:    f.Database.MaxIdleConns,
		ConnMaxLifetime: d.parse("database conn max lifetime", f.Database.ConnMaxLifetime, time.Hour),

		RedisAddr:     env("REDIS_ADDR", f.Redis.Addr),
		RedisPassword: env("REDIS_PASSWORD", f.Redis.Password),
		RedisDB:       f.Redis.DB,

		JWTSecret:  env("JWT_SECRET", f.JWT.Secret),
		JWTIssuer:  f.JWT.Issuer,
		AccessTTL:  d.parse("JWT access TTL", f.JWT.AccessTTL, 15*time.Minute),
		RefreshTTL: d.parse("JWT refresh TTL", f.JWT.RefreshTTL, 7*24*time.Hour),

		OTPTTL:          d.parse("OTP TTL", f.OTP.TTL, 10*time.Minute),
		OTPLength:       f.OTP.Length,
		OTPMaxAttempts:  f.OTP.MaxAttempts,
		OTPResendWindow: d.parse("OTP resend window", f.OTP.ResendWindow, time.Minute),
		OTPHashSecret:   env("OTP_HASH_SECRET", f.OTP.HashSecret),
		AppName:         f.OTP.AppName,

		LockoutThreshold: f.Lockout.Threshold,
		LockoutWindow:    d.parse("lockout window", f.Lockout.Window, 15*time.Minute),
		LockoutDuration:  d.parse("lockout duration", f.Lockout.LockDuration, 15*time.Minute),

		SessionTTL: d.parse("session TTL", f.Refresh.SessionTTL, 30*24*time.Hour),
		ReuseGrace: d.parse("refresh reuse grace", f.Refresh.ReuseGrace, 30*time.Second),
		LockWait:   d.parse("refresh lock wait", f.Refresh.LockWait, 5*time.Second),
		LockTTL:    d.parse("refresh lock TTL", f.Refresh.LockTTL, 10*time.Second),

		BcryptCost: f.Password.BcryptCost,

		TwilioSID:   env("TWILIO_ACCOUNT_SID", f.Twilio.AccountSID),
		TwilioToken: env("TWILIO_AUTH_TOKEN", f.Twilio.AuthToken),
		TwilioFrom:  f.Twilio.FromNumber,

		SMTPHost:     f.SMTP.Host,
		SMTPPort:     f.SMTP.Port,
		SMTPUsername: f.SMTP.Username,
		SMTPPassword: env("SMTP_PASSWORD", f.SMTP.Password),
		SMTPFrom:     f.SMTP.From,

		GoogleClientID:     env("GOOGLE_CLIENT_ID", f.Google.ClientID),
		GoogleClientSecret: env("GOOGLE_CLIENT_SECRET", f.Google.ClientSecret),

		SentryDSN: env("SENTRY_DSN", f.Sentry.DSN),
		LogLevel:  f.Log.Level,
	}
	if d.err != nil {
		return nil, d.err
	}

	if cfg.Port == "0" {
		cfg.Port = "8080"
	}
	if cfg.OTPLength == 0 {
		cfg.OTPLength = 6
	}
	if cfg.OTPMaxAttempts == 0 {
		cfg.OTPMaxAttempts = 5
	}
	if cfg.AppName == "" {
		cfg.AppName = "Trainer"
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = cfg.MinBcryptCost()
	}
	if cfg.OTPHashSecret == "" {
		cfg.OTPHashSecret = cfg.JWTSecret
	}
	return cfg, nil
}

// Validate rejects configurations the service must not start with
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.RedisAddr == "" {
		errs = append(errs, errors.New("redis addr is required"))
	}
	if c.BcryptCost < c.MinBcryptCost() {
		errs = append(errs, fmt.Errorf("bcrypt cost %d below minimum %d", c.BcryptCost, c.MinBcryptCost()))
	}
	if c.LockoutThreshold <= 0 {
		errs = append(errs, errors.New("lockout threshold must be positive"))
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		errs = append(errs, fmt.Errorf("otp length %d out of range", c.OTPLength))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.LockTTL <= 0 || c.LockWait <= 0 {
		errs = append(errs, errors.New("refresh lock timings must be positive"))
	}
	return errors.Join(errs...)
}
