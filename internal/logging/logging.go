package logging

import (
	"fmt"
	"os"

	"pos_umkm/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func OpenLogFile(logFile string) (*os.File, error) {
	if logFile == "" {
		return nil, nil
	}

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return file, nil
}

// AttachFileLogger tees every entry into file as JSON. Entries written to
// the file carry the terminal identity so logs from several tills can be
// merged later.
func AttachFileLogger(base *zap.Logger, file *os.File, cfg config.Config) *zap.Logger {
	if file == nil {
		return base
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.InfoLevel
	if cfg.Debug {
		level = zap.DebugLevel
	}

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level).
		With(terminalFields(cfg))
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}

func terminalFields(cfg config.Config) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if cfg.StoreID != "" {
		fields = append(fields, zap.String("store_id", cfg.StoreID))
	}
	if cfg.CashierID != "" {
		fields = append(fields, zap.String("cashier_id", cfg.CashierID))
	}
	return fields
}
