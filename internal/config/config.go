package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all runtime configuration, read from the environment.
type AppConfig struct {
	Port        string
	AppVersion  string
	DatabaseURL string

	// NWSUserAgent identifies this service to api.weather.gov. The NWS
	// provider refuses to construct without it; an empty value simply
	// disables the secondary weather source.
	NWSUserAgent string

	// GoogleGeocoderAPIKey enables address geocoding on property creation.
	GoogleGeocoderAPIKey string

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration

	// WeatherCacheTTL bounds how long hourly forecast rows are reused.
	WeatherCacheTTL time.Duration

	// FetchInterval controls how often the scheduler pre-warms forecasts
	// for saved properties.
	FetchInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		Port:                 getenvDefault("PORT", "8080"),
		AppVersion:           getenvDefault("APP_VERSION", "0.1.0"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		NWSUserAgent:         os.Getenv("NWS_USER_AGENT"),
		GoogleGeocoderAPIKey: os.Getenv("GOOGLE_GEOCODER_API_KEY"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.WeatherCacheTTL, err = getenvDuration("WEATHER_CACHE_TTL", 1*time.Hour); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
