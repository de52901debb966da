package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/typimports/pkg/config"
	"github.com/Sumatoshi-tech/typimports/pkg/observability"
	"github.com/Sumatoshi-tech/typimports/pkg/typeonly"
	"github.com/Sumatoshi-tech/typimports/pkg/version"
)

// Standard OTel exporter environment variables.
const (
	envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPHeaders  = "OTEL_EXPORTER_OTLP_HEADERS"
	envOTLPInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
)

// flagBinding maps a command flag to a config key.
type flagBinding struct {
	key  string
	flag string
}

// loadSettings layers defaults, the config file, TYPIMPORTS_* environment and
// the explicitly set flags of cmd.
func loadSettings(cmd *cobra.Command, bindings []flagBinding) (*config.Config, error) {
	viperCfg := config.New()

	readErr := config.ReadFile(viperCfg, stringFlag(cmd, flagConfig))
	if readErr != nil {
		return nil, readErr //nolint:wrapcheck // already wrapped by config.
	}

	bindErr := bindFlags(viperCfg, cmd.Flags(), bindings)
	if bindErr != nil {
		return nil, bindErr
	}

	if boolFlag(cmd, flagLogJSON) {
		viperCfg.Set("logging.json", true)
	}

	return config.Decode(viperCfg) //nolint:wrapcheck // already wrapped by config.
}

func bindFlags(viperCfg *viper.Viper, flags *pflag.FlagSet, bindings []flagBinding) error {
	errs := make([]error, 0, len(bindings))

	for _, binding := range bindings {
		flag := flags.Lookup(binding.flag)
		if flag == nil {
			continue
		}

		errs = append(errs, viperCfg.BindPFlag(binding.key, flag))
	}

	err := errors.Join(errs...)
	if err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	return nil
}

// checkerOptions converts config to analysis options.
func checkerOptions(cfg *config.Config) typeonly.Options {
	return typeonly.Options{
		SentinelName:    cfg.Check.SentinelName,
		SentinelModules: cfg.Check.SentinelModules,
	}
}

// initObservability starts telemetry for mode. Logs always go to stderr since
// stdout carries reports or a protocol stream.
func initObservability(cmd *cobra.Command, cfg *config.Config, mode observability.AppMode) (observability.Providers, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogWriter = cmd.ErrOrStderr()

	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	if obsCfg.OTLPEndpoint == "" {
		obsCfg.OTLPEndpoint = os.Getenv(envOTLPEndpoint)
	}

	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv(envOTLPHeaders))
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure || os.Getenv(envOTLPInsecure) == "true"
	obsCfg.Prometheus = cfg.Telemetry.MetricsAddr != "" && mode != observability.ModeCLI

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Providers{}, err //nolint:wrapcheck // carries the sentinel.
	}

	switch {
	case boolFlag(cmd, flagVerbose):
		level = slog.LevelDebug
		obsCfg.DebugTrace = true
	case boolFlag(cmd, flagQuiet):
		level = slog.LevelError
	}

	obsCfg.LogLevel = level

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

// shutdown flushes telemetry, logging rather than returning failures.
func shutdown(providers observability.Providers) {
	shutdownErr := providers.Shutdown(context.Background())
	if shutdownErr != nil {
		providers.Logger.Warn("observability shutdown failed", slog.Any("error", shutdownErr))
	}
}
