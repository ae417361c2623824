// Package logger 进程级的 zap 日志
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 在 Init 之前是 no-op，测试中可直接使用
var Log = zap.NewNop()

// Init 替换 Log。level 取 debug/info/warn/error，dev 为 true 时使用控制台格式
func Init(level string, dev bool) error {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl := zapcore.InfoLevel
	if dev {
		lvl = zapcore.DebugLevel
	}
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return err
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// Sync 刷新缓冲，忽略 stderr 的 sync 错误
func Sync() {
	_ = Log.Sync()
}
