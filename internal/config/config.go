package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const sessionSuffix = ".session"

type AppConfig struct {
	BotToken string `yaml:"bot_token" env:"BOT_TOKEN" validate:"required"`
	ApiID    int32  `yaml:"api_id" env:"TELETHON_API_ID" validate:"required,gt=0"`
	ApiHash  string `yaml:"api_hash" env:"TELETHON_API_HASH" validate:"required"`
	Session  string `yaml:"session" env:"TELETHON_SESSION" env-default:"dateregbot"`
	AuthMode bool   `yaml:"auth_mode" env:"AUTH_MODE"`

	Env      string `yaml:"env" env:"ENV" env-default:"prod" validate:"oneof=dev prod"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"INFO"`
	BaseDir  string `yaml:"base_dir" env:"BASE_DIR" env-default:"./sessions" validate:"required"`

	AnchorsFile    string `yaml:"anchors_file" env:"ANCHORS_FILE" env-default:"anchors.json"`
	AnchorsRefresh string `yaml:"anchors_refresh" env:"ANCHORS_REFRESH" env-default:"0 * * * *"`

	Redis RedisConfig `yaml:"redis"`

	CacheTTL      time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"6h"`
	UserCooldown  time.Duration `yaml:"user_cooldown" env:"USER_COOLDOWN" env-default:"10s"`
	LookupTimeout time.Duration `yaml:"lookup_timeout" env:"LOOKUP_TIMEOUT" env-default:"60s" validate:"gt=0"`

	HistoryScanLimit  int           `yaml:"history_scan_limit" env:"HISTORY_SCAN_LIMIT" env-default:"500" validate:"gte=0"`
	ProfilePhotoLimit int           `yaml:"profile_photo_limit" env:"PROFILE_PHOTO_LIMIT" env-default:"20" validate:"gte=0,lte=100"`
	ScrapePages       int           `yaml:"scrape_pages" env:"SCRAPE_PAGES" env-default:"5" validate:"gte=0"`
	ScrapeTimeout     time.Duration `yaml:"scrape_timeout" env:"SCRAPE_TIMEOUT" env-default:"8s" validate:"gt=0"`

	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0" validate:"gte=0"`
}

// SessionName имя сессии без суффикса ".session" (каталог TDLib в BaseDir)
func (c *AppConfig) SessionName() string {
	name := strings.TrimSuffix(strings.TrimSpace(c.Session), sessionSuffix)
	if name == "" {
		return "dateregbot"
	}
	return name
}

// Load читает настройки из файла (если задан) и переменных окружения
func Load() (*AppConfig, error) {
	return LoadPath(fetchConfigPath())
}

// LoadPath как Load, но путь к файлу передаётся явно. Пустой путь - только env.
func LoadPath(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("ошибка загрузки конфига %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения env: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("BOT_TOKEN, TELETHON_API_ID, TELETHON_API_HASH должны быть заданы: %w", err)
	}

	return &cfg, nil
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	if f := flag.Lookup("config"); f != nil {
		res = f.Value.String()
	} else {
		flag.StringVar(&res, "config", "", "path to config file")
		flag.Parse()
	}

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
