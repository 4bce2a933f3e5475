package cli

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds a console logger on w. Debug and info use the
// development encoder, quieter levels the production one.
func newLogger(level string, w io.Writer) *zap.Logger {
	lvl := zapcore.WarnLevel

	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info":
		lvl = zapcore.InfoLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	if lvl <= zapcore.InfoLevel {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}

	encCfg.TimeKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(w)), lvl)

	return zap.New(core)
}
