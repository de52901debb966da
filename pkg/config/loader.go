package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".typimports"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for typimports settings.
const envPrefix = "TYPIMPORTS"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := New()

	readErr := ReadFile(viperCfg, configPath)
	if readErr != nil {
		return nil, readErr
	}

	return Decode(viperCfg)
}

// ReadFile merges the config file into viperCfg, following the lookup rules
// of [LoadConfig].
func ReadFile(viperCfg *viper.Viper, configPath string) error {
	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return fmt.Errorf("read config: %w", readErr)
		}
	}

	return nil
}

// New returns a viper instance with defaults and environment binding but no
// config file. Commands bind their flags to it before calling [Decode].
func New() *viper.Viper {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	return viperCfg
}

// Decode unmarshals and validates the settings held by viperCfg.
func Decode(viperCfg *viper.Viper) (*Config, error) {
	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("check.sentinel_name", DefaultSentinelName)
	viperCfg.SetDefault("check.sentinel_modules", []string{DefaultSentinelModule})
	viperCfg.SetDefault("check.exclude", []string{})
	viperCfg.SetDefault("check.include_hidden", DefaultIncludeHidden)
	viperCfg.SetDefault("check.max_file_size", DefaultMaxFileSize)
	viperCfg.SetDefault("check.workers", DefaultWorkers)
	viperCfg.SetDefault("check.noqa", DefaultNoQA)

	viperCfg.SetDefault("output.format", DefaultFormat)
	viperCfg.SetDefault("output.color", DefaultColor)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.metrics_addr", DefaultMetricsAddr)
}
