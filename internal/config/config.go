package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the application.
type Config struct {
	Env            string         `yaml:"env"`             // Env is the current environment: local, development, production.
	Database       PostgresConfig `yaml:"postgres"`        // Database holds the postgres database configuration
	Token          string         `yaml:"token"`           // Token is an unique telegram bot token
	PollerTimeout  time.Duration  `yaml:"poller_timeout"`  // PollerTimeout is the long polling timeout of the telegram bot
	CRM            CRMConfig      `yaml:"crm"`             // CRM holds the CRM API connection settings
	Location       *time.Location `yaml:"timezone"`        // Location is used to decide what "today" means
	MonitoringPort int            `yaml:"monitoring_port"` // MonitoringPort serves /healthz and /metrics
	RedisAddr      string         `yaml:"redis_addr"`      // RedisAddr is the redis server address.
	Reminder       ReminderConfig `yaml:"reminder"`        // Reminder configures the reminder job
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`     // Host is the database server address.
	Port     string `yaml:"port"`     // Port is the database server port.
	User     string `yaml:"user"`     // User is the database user.
	Password string `yaml:"password"` // Password is the database user's password.
	Name     string `yaml:"db_name"`  // Name is the name of the database.
}

// CRMConfig holds the CRM API base URL and credentials.
type CRMConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// ReminderConfig holds the cron schedule and the lookback window of the reminder job.
type ReminderConfig struct {
	Schedule string        `yaml:"schedule"`
	Lookback time.Duration `yaml:"lookback"`
}

// keys maps config file keys to the env variables that override them.
var keys = map[string]string{
	"env":               "LEADDESK_ENV",
	"telegram.token":    "LEADDESK_TELEGRAM_TOKEN",
	"telegram.timeout":  "LEADDESK_TELEGRAM_TIMEOUT",
	"timezone":          "LEADDESK_TIMEZONE",
	"crm.url":           "CRM_API_URL",
	"crm.token":         "CRM_API_TOKEN",
	"crm.timeout":       "CRM_API_TIMEOUT",
	"postgres.host":     "DB_HOST",
	"postgres.port":     "DB_PORT",
	"postgres.user":     "DB_USERNAME",
	"postgres.password": "DB_PASSWORD",
	"postgres.db_name":  "DB_NAME",
	"monitoring_port":   "MONITORING_PORT",
	"redis_addr":        "REDIS_ADDR",
	"reminder.schedule": "REMINDER_SCHEDULE",
	"reminder.lookback": "REMINDER_LOOKBACK",
}

// MustLoad loads the configuration and panics on invalid values.
// Environment variables (and .env) take precedence over the optional YAML
// file named by CONFIG_PATH, which takes precedence over defaults.
func MustLoad() *Config {
	_ = godotenv.Load()

	vpr := viper.New()
	setDefaults(vpr)

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			panic("config file does not exist: " + configPath)
		}
		vpr.SetConfigFile(configPath)
		if err := vpr.ReadInConfig(); err != nil {
			panic("config error: " + err.Error())
		}
	}

	for key, env := range keys {
		_ = vpr.BindEnv(key, env)
	}

	pollerTimeout := mustDuration(vpr, "telegram.timeout")
	crmTimeout := mustDuration(vpr, "crm.timeout")
	lookback := mustDuration(vpr, "reminder.lookback")

	loc, err := time.LoadLocation(vpr.GetString("timezone"))
	if err != nil {
		panic("failed to load timezone: " + err.Error())
	}

	port := vpr.GetInt("monitoring_port")
	if port <= 0 {
		panic("failed to parse monitoring port from configuration")
	}

	return &Config{
		Env:           vpr.GetString("env"),
		Token:         vpr.GetString("telegram.token"),
		PollerTimeout: pollerTimeout,
		Database: PostgresConfig{
			Host:     vpr.GetString("postgres.host"),
			Port:     vpr.GetString("postgres.port"),
			User:     vpr.GetString("postgres.user"),
			Password: vpr.GetString("postgres.password"),
			Name:     vpr.GetString("postgres.db_name"),
		},
		CRM: CRMConfig{
			URL:     vpr.GetString("crm.url"),
			Token:   vpr.GetString("crm.token"),
			Timeout: crmTimeout,
		},
		Location:       loc,
		MonitoringPort: port,
		RedisAddr:      vpr.GetString("redis_addr"),
		Reminder: ReminderConfig{
			Schedule: vpr.GetString("reminder.schedule"),
			Lookback: lookback,
		},
	}
}

func setDefaults(vpr *viper.Viper) {
	vpr.SetDefault("env", "production")
	vpr.SetDefault("telegram.timeout", "10s")
	vpr.SetDefault("timezone", "Local")
	vpr.SetDefault("crm.timeout", "30s")
	vpr.SetDefault("postgres.port", "5432")
	vpr.SetDefault("monitoring_port", "8080")
	vpr.SetDefault("redis_addr", "localhost:6379")
	vpr.SetDefault("reminder.schedule", "*/5 * * * *")
	vpr.SetDefault("reminder.lookback", "1h")
}

func mustDuration(vpr *viper.Viper, key string) time.Duration {
	value, err := time.ParseDuration(vpr.GetString(key))
	if err != nil {
		panic("failed to parse " + key + " from configuration")
	}
	return value
}
