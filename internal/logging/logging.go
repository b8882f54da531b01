// Package logging builds the zap logger shared by the server.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger in "prod" mode and a colored console logger in
// "dev" mode. Every extra sink receives the JSON encoding of each entry.
func New(mode, level string, extra ...zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	var (
		encoder zapcore.Encoder
		opts    []zap.Option
	)
	switch strings.ToLower(mode) {
	case "prod", "production", "":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		opts = append(opts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	case "dev", "development":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(ec)
		opts = append(opts, zap.AddCaller(), zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	default:
		return nil, fmt.Errorf("logging: unknown mode %q", mode)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), lvl)}
	for _, ws := range extra {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.Lock(ws), lvl))
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}
