package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"tg-sanctions/internal/config"
)

var current atomic.Pointer[zap.SugaredLogger]

func init() {
	l, err := zap.NewDevelopment(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	current.Store(l.Sugar())
}

func get() *zap.SugaredLogger {
	return current.Load()
}

// createLogFilePath generates a log file path with the current date
func createLogFilePath(logDir, prefix string) string {
	currentDate := time.Now().Format("2006-01-02")
	return filepath.Join(logDir, fmt.Sprintf("%s-%s.log", prefix, currentDate))
}

// createRotatingLogger creates a lumberjack rotating logger
func createRotatingLogger(logFilePath string, cfg *config.Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    cfg.Logger.Rotation.MaxSize,
		MaxBackups: cfg.Logger.Rotation.MaxBackups,
		MaxAge:     cfg.Logger.Rotation.MaxAge,
		Compress:   cfg.Logger.Rotation.Compress,
	}
}

// createMultiWriter creates a writer that outputs to both stdout and log file
func createMultiWriter(rotatingLogger io.Writer) io.Writer {
	return io.MultiWriter(os.Stdout, rotatingLogger)
}

// ParseLevel maps the configured level name onto a zap level.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func newCore(w io.Writer, level zapcore.Level) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
}

// Setup configures logging to output to both stdout and a rotating log file
func Setup(cfg *config.Config) error {
	logDir := cfg.Logger.Directory

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilePath := createLogFilePath(logDir, "tg-sanctions")
	rotatingLogger := createRotatingLogger(logFilePath, cfg)
	multiWriter := createMultiWriter(rotatingLogger)

	l := zap.New(newCore(multiWriter, ParseLevel(cfg.Logger.Level)), zap.AddCaller(), zap.AddCallerSkip(1))
	current.Store(l.Sugar())

	// Route the standard logger (config loading, net/http) through the same sink
	zap.RedirectStdLog(l)

	Infof("Logging initialized: writing to %s", logFilePath)
	return nil
}

// SetOutput replaces the active logger with one writing to w. Used by tools and tests.
func SetOutput(w io.Writer, level string) {
	l := zap.New(newCore(w, ParseLevel(level)), zap.AddCaller(), zap.AddCallerSkip(1))
	current.Store(l.Sugar())
}

// GetRotatingLogWriter returns a rotating log writer for custom loggers
func GetRotatingLogWriter(cfg *config.Config, prefix string) io.Writer {
	logFilePath := createLogFilePath(cfg.Logger.Directory, prefix)
	rotatingLogger := createRotatingLogger(logFilePath, cfg)
	return createMultiWriter(rotatingLogger)
}

// Sync flushes buffered entries.
func Sync() error {
	return get().Sync()
}

func Debugf(format string, args ...interface{}) { get().Debugf(format, args...) }

func Info(args ...interface{}) { get().Info(args...) }

func Infof(format string, args ...interface{}) { get().Infof(format, args...) }

func Warning(args ...interface{}) { get().Warn(args...) }

func Warningf(format string, args ...interface{}) { get().Warnf(format, args...) }

func Error(args ...interface{}) { get().Error(args...) }

func Errorf(format string, args ...interface{}) { get().Errorf(format, args...) }

func Fatalf(format string, args ...interface{}) { get().Fatalf(format, args...) }
