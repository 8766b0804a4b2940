package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server    Server         `mapstructure:"server"`
	Database  Database       `mapstructure:"database"`
	Redis     Redis          `mapstructure:"redis"`
	Email     Email          `mapstructure:"email"`
	Push      Push           `mapstructure:"push"`
	SMS       SMS            `mapstructure:"sms"`
	Engine    Engine         `mapstructure:"engine"`
	Retention Retention      `mapstructure:"retention"`
	Retry     retry.Strategy `mapstructure:"retry"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Database holds database master and slave configuration.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Redis holds Redis connection parameters for the status cache.
type Redis struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Email holds SMTP configuration for the email channel.
type Email struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort string `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Push holds FCM configuration for the push channel.
type Push struct {
	Endpoint  string `mapstructure:"endpoint"` // empty selects the FCM production endpoint
	ServerKey string `mapstructure:"server_key"`
}

// SMS holds gateway configuration for the SMS channel.
type SMS struct {
	GatewayURL string `mapstructure:"gateway_url"`
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

// Engine tunes the delivery engine: dispatcher cadence, claim batch size,
// per-send bounds and the retry/backoff policy on records.
type Engine struct {
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"` // dispatcher cadence, default 5m
	JobTimeout       time.Duration `mapstructure:"job_timeout"`       // whole-pass bound, default 300s
	BatchSize        int           `mapstructure:"batch_size"`        // records claimed per pass, default 100
	Workers          int           `mapstructure:"workers"`           // concurrent sends per pass
	SendTimeout      time.Duration `mapstructure:"send_timeout"`      // per-send bound, default 30s
	AttemptLimit     int           `mapstructure:"attempt_limit"`     // delivery attempts per record, default 3
	BackoffBase      time.Duration `mapstructure:"backoff_base"`      // retry backoff base, default 5m
	LeadDays         int           `mapstructure:"lead_days"`         // default reminder lead, default 7
}

// Retention tunes the terminal-record sweep.
type Retention struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // sweeper cadence, default 24h
	JobTimeout    time.Duration `mapstructure:"job_timeout"`    // whole-sweep bound, default 300s
	Window        time.Duration `mapstructure:"window"`         // terminal-record retention, default 720h
	BatchSize     int           `mapstructure:"batch_size"`     // rows deleted per statement, default 500
	MaxPasses     int           `mapstructure:"max_passes"`     // single-run safety cap, default 20
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",

		"redis.address":  "REDIS_ADDRESS",
		"redis.password": "REDIS_PASSWORD",
		"redis.database": "REDIS_DATABASE",

		"email.smtp_host": "SMTP_HOST",
		"email.smtp_port": "SMTP_PORT",
		"email.username":  "SMTP_USER",
		"email.password":  "SMTP_PASS",
		"email.from":      "SMTP_FROM",

		"push.server_key": "FCM_SERVER_KEY",

		"sms.gateway_url": "SMS_GATEWAY_URL",
		"sms.account_sid": "SMS_ACCOUNT_SID",
		"sms.auth_token":  "SMS_AUTH_TOKEN",
		"sms.from":        "SMS_FROM",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// Must loads and validates the configuration from file and environment variables.
//
// It panics if configuration cannot be read or unmarshalled.
func Must() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
