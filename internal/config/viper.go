package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "WEATHER"

// Load reads config.yaml (or configPath) on top of NewDefaultConfig and applies
// WEATHER_* environment overrides. A missing config.yaml is fine when no
// explicit path is given; a missing explicit path is an error.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := NewDefaultConfig()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	SetDefaultsFromStructRecursive(reflect.ValueOf(cfg), "", v)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the widget cannot run with.
func (c *Config) Validate() error {
	if c.Widget.MaxRecentSearches < 1 {
		return fmt.Errorf("widget.max_recent_searches must be positive, got %d", c.Widget.MaxRecentSearches)
	}
	if c.Weather.ForecastDays < 1 {
		return fmt.Errorf("weather.forecast_days must be positive, got %d", c.Weather.ForecastDays)
	}
	switch c.Storage.Driver {
	case "sqlite", "file", "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

func SetDefaultsFromStructRecursive(v reflect.Value, prefix string, viper *viper.Viper) {
	// Handle pointer to struct
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !fieldValue.CanInterface() {
			continue
		}

		key := field.Tag.Get("mapstructure")
		if key == "" {
			key = strings.ToLower(field.Name)
		}

		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if fieldValue.Kind() == reflect.Struct {
			SetDefaultsFromStructRecursive(fieldValue, fullKey, viper)
		} else {
			viper.SetDefault(fullKey, fieldValue.Interface())
		}
	}
}
