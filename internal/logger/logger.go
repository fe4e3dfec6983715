package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/commercekit/paygate/internal/config"
)

// New builds the plugin's structured logger. The level comes from
// LOG_LEVEL (info, warn, debug, error) and every entry carries the
// configured environment so sandbox and production logs stay apart.
func New(appCfg config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := appCfg.LogLevel
	if level == "" {
		level = "info"
	}
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log, err := zapCfg.Build(zap.Fields(zap.String("env", appCfg.Environment)))
	if err != nil {
		return nil, err
	}
	log = log.Named("paygate")

	zap.ReplaceGlobals(log)
	return log, nil
}
