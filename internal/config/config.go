// README: Config loader with env defaults for transports, storage, maps and ordering policy.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rating subjects; see OrderConfig.RatingSubject.
const (
	RatingSubjectDriver = "driver"
	RatingSubjectRider  = "rider"
)

type OrderConfig struct {
	Timezone      string
	RouteTimeout  time.Duration
	RatingSubject string
	DriverID      string
}

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr       string
		SessionTTL time.Duration
	}
	Maps struct {
		APIKey string
	}
	Telegram struct {
		Token string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
	}
	Log struct {
		Level string
		Dev   bool
	}
	Order OrderConfig
}

var ErrInvalidConfig = errors.New("invalid config")

// Load reads the environment, after merging a .env file from the working
// directory when one exists.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("FLYTAXI_HTTP_ADDR", ":8080")
	cfg.DB.DSN = os.Getenv("FLYTAXI_DB_DSN")
	cfg.Redis.Addr = os.Getenv("FLYTAXI_REDIS_ADDR")
	cfg.Redis.SessionTTL = time.Duration(envOrDefaultInt("FLYTAXI_SESSION_TTL_MIN", 60)) * time.Minute
	cfg.Maps.APIKey = os.Getenv("FLYTAXI_MAPS_API_KEY")
	cfg.Telegram.Token = os.Getenv("FLYTAXI_TELEGRAM_TOKEN")
	cfg.Firebase.ProjectID = os.Getenv("FLYTAXI_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("FLYTAXI_FIREBASE_CREDENTIALS_FILE")
	cfg.Log.Level = envOrDefault("FLYTAXI_LOG_LEVEL", "info")
	cfg.Log.Dev = envOrDefaultBool("FLYTAXI_LOG_DEV", false)

	cfg.Order.Timezone = envOrDefault("FLYTAXI_TIMEZONE", "Europe/Kyiv")
	cfg.Order.RouteTimeout = time.Duration(envOrDefaultInt("FLYTAXI_ROUTE_TIMEOUT_SEC", 10)) * time.Second
	cfg.Order.RatingSubject = strings.ToLower(envOrDefault("FLYTAXI_RATING_SUBJECT", RatingSubjectDriver))
	cfg.Order.DriverID = envOrDefault("FLYTAXI_DRIVER_ID", "flytaxi-demo-driver")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Order.RatingSubject != RatingSubjectDriver && c.Order.RatingSubject != RatingSubjectRider:
		return errors.Join(ErrInvalidConfig, errors.New("FLYTAXI_RATING_SUBJECT must be driver or rider"))
	case c.Order.RouteTimeout <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("FLYTAXI_ROUTE_TIMEOUT_SEC must be positive"))
	case c.Order.DriverID == "":
		return errors.Join(ErrInvalidConfig, errors.New("FLYTAXI_DRIVER_ID is required"))
	case c.HTTP.Addr == "" && c.Telegram.Token == "":
		return errors.Join(ErrInvalidConfig, errors.New("no transport configured: set FLYTAXI_HTTP_ADDR or FLYTAXI_TELEGRAM_TOKEN"))
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
