package config

import (
	"sync/atomic"
)

var configValue atomic.Value

func GetConfig() *Config {
	cfg, _ := configValue.Load().(*Config)
	if cfg == nil {
		return NewDefaultConfig()
	}
	return cfg
}

func SetConfig(cfg *Config) {
	configValue.Store(cfg)
}

type Config struct {
	Version     string          `mapstructure:"version"`
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Weather     WeatherConfig   `mapstructure:"weather"`
	Widget      WidgetConfig    `mapstructure:"widget"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// WeatherConfig describes the OpenWeatherMap endpoint. Timeout and CacheTTL are seconds.
type WeatherConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	APIKey       string  `mapstructure:"api_key"`
	IconBaseURL  string  `mapstructure:"icon_base_url"`
	Timeout      int     `mapstructure:"timeout"`
	CacheTTL     int     `mapstructure:"cache_ttl"`
	RateLimit    float64 `mapstructure:"rate_limit"`
	RateBurst    int     `mapstructure:"rate_burst"`
	ForecastDays int     `mapstructure:"forecast_days"`
}

type WidgetConfig struct {
	MaxRecentSearches int `mapstructure:"max_recent_searches"`
}

// StorageConfig selects the durable key-value store: sqlite, file or memory.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Version:     "1.0.0",
		Environment: "development",
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		Weather: WeatherConfig{
			BaseURL:      "https://api.openweathermap.org/data/2.5",
			APIKey:       "",
			IconBaseURL:  "https://openweathermap.org/img/wn",
			Timeout:      10,
			CacheTTL:     300,
			RateLimit:    1,
			RateBurst:    5,
			ForecastDays: 5,
		},
		Widget: WidgetConfig{
			MaxRecentSearches: 5,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "weather.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "tempo:4317",
		},
	}
}
