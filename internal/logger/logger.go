package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Log = zap.NewNop()

// Init sets up the package-level logger with a console sink and, when
// logFile is non-empty, a rotating file sink (one backup kept).
func Init(debug bool, logFile string, maxSizeMB int) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		),
	}

	if logFile != "" {
		if maxSizeMB <= 0 {
			maxSizeMB = 10
		}
		fileSink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxSizeMB,
			MaxBackups: 1,
		})
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			fileSink,
			level,
		))
	}

	Log = zap.New(zapcore.NewTee(cores...))
}

func Sync() {
	_ = Log.Sync()
}
