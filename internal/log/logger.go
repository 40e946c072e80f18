package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"coinbase-trader/internal/config"
)

// NewLogger 根据配置创建 zap.Logger。
// 启用文件日志时，每次运行写入一个带时间戳的新文件，同时保留控制台输出。
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		return nil, fmt.Errorf("解析日志级别失败: %w", err)
	}

	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stdout"}
	}
	if len(cfg.ErrorOutputPaths) == 0 {
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	encoderConfig := newEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}

	options := []zap.Option{zap.AddCaller()}

	var logFile string
	if cfg.File.Enabled {
		writer, path, err := newRunFileWriter(cfg.File, time.Now())
		if err != nil {
			return nil, err
		}
		logFile = path

		fileEncoder := newEncoderConfig()
		fileEncoder.EncodeLevel = zapcore.CapitalLevelEncoder
		fileCore := zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoder), writer, level)

		options = append(options, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	logger, err := zapCfg.Build(options...)
	if err != nil {
		return nil, fmt.Errorf("创建日志实例失败: %w", err)
	}

	if logFile != "" {
		logger.Info("日志写入文件", zap.String("file", logFile))
	}

	return logger, nil
}

func newEncoderConfig() zapcore.EncoderConfig {
	base := zap.NewProductionEncoderConfig()
	return zapcore.EncoderConfig{
		MessageKey:     base.MessageKey,
		LevelKey:       base.LevelKey,
		TimeKey:        "ts",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		StacktraceKey:  base.StacktraceKey,
		LineEnding:     base.LineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func newRunFileWriter(cfg config.LogFileConfig, now time.Time) (zapcore.WriteSyncer, string, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("创建日志目录 %q 失败: %w", cfg.Dir, err)
	}

	path := RunLogFileName(cfg.Dir, now)
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	return zapcore.AddSync(writer), path, nil
}

// RunLogFileName 返回形如 logs/trader_20240102_150405.log 的文件路径。
func RunLogFileName(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("trader_%s.log", now.Format("20060102_150405")))
}
