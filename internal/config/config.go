package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/example/musclecards/pkg/validator"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string         `mapstructure:"env" validate:"oneof=development production"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	DB       DBConfig       `mapstructure:"db"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Share    ShareConfig    `mapstructure:"share"`
}

type CatalogConfig struct {
	Path  string `mapstructure:"path"` // empty means the bundled catalog
	Sheet string `mapstructure:"sheet"`
}

type DBConfig struct {
	Type string `mapstructure:"type" validate:"oneof=sqlite postgres"`
	DSN  string `mapstructure:"dsn"`
}

type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	OwnerChatID int64  `mapstructure:"owner_chat_id"`
	Timeout     int    `mapstructure:"timeout" validate:"min=1,max=600"`
	Debug       bool   `mapstructure:"debug"`
}

type ReminderConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval" validate:"min=1m"`
	StartHour int           `mapstructure:"start_hour" validate:"min=0,max=23"`
	EndHour   int           `mapstructure:"end_hour" validate:"min=0,max=23"`
	MaxCards  int           `mapstructure:"max_cards" validate:"min=1"`
}

type ShareConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

var envBindings = map[string]string{
	"env":                    "ENV",
	"catalog.path":           "CATALOG_PATH",
	"db.type":                "DB_TYPE",
	"db.dsn":                 "DB_DSN",
	"telegram.token":         "TELEGRAM_BOT_TOKEN",
	"telegram.owner_chat_id": "OWNER_CHAT_ID",
	"reminder.start_hour":    "NOTIFICATION_START_HOUR",
	"reminder.end_hour":      "NOTIFICATION_END_HOUR",
	"share.base_url":         "SHARE_BASE_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("catalog.sheet", "Sheet1")
	v.SetDefault("db.type", "sqlite")
	v.SetDefault("db.dsn", "data/musclecards.db")
	v.SetDefault("telegram.timeout", 60)
	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.interval", time.Hour)
	v.SetDefault("reminder.start_hour", 8)
	v.SetDefault("reminder.end_hour", 22)
	v.SetDefault("reminder.max_cards", 20)
	v.SetDefault("share.base_url", "https://musclecards.app/")
}

// Init loads .env, then the config file, then environment overrides, and validates the result.
// An empty path looks for configs/<CONFIG_NAME|default>.yaml and falls back to defaults if it is missing.
func Init(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		configName := os.Getenv("CONFIG_NAME")
		if configName == "" {
			configName = "default"
		}
		v.AddConfigPath("configs")
		v.SetConfigName(configName)
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.ValidateStruct(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
