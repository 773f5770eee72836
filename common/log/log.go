package log

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var logger atomic.Pointer[log.Logger]

func init() {
	// InitLog 之前使用默认 logger，避免库代码和测试里出现空指针
	l := log.New(os.Stdout)
	l.SetReportTimestamp(true)
	l.SetTimeFormat(time.DateTime)
	l.SetLevel(log.InfoLevel)
	logger.Store(l)
}

func InitLog(appName string, logLevel string) {
	// 使用 os.Stdout 而不是 os.Stderr，控制台不会把所有日志显示为红色
	l := log.New(os.Stdout)
	l.SetPrefix(appName)
	l.SetReportTimestamp(true)
	l.SetTimeFormat(time.DateTime)

	// 显示文件名和行号
	l.SetReportCaller(true)
	l.SetCallerOffset(1)
	l.SetLevel(parseLevel(logLevel))
	logger.Store(l)
}

// SetLevel 运行时调整日志级别，配置热更新时调用
func SetLevel(logLevel string) {
	logger.Load().SetLevel(parseLevel(logLevel))
}

func parseLevel(logLevel string) log.Level {
	// 默认为 info 级别
	switch strings.ToLower(logLevel) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func Fatal(format string, args ...any) {
	if len(args) == 0 {
		logger.Load().Fatal(format)
	} else {
		logger.Load().Fatalf(format, args...)
	}
}

func Info(format string, args ...any) {
	if len(args) == 0 {
		logger.Load().Info(format)
	} else {
		logger.Load().Infof(format, args...)
	}
}

func Warn(format string, args ...any) {
	if len(args) == 0 {
		logger.Load().Warn(format)
	} else {
		logger.Load().Warnf(format, args...)
	}
}

func Error(format string, args ...any) {
	if len(args) == 0 {
		logger.Load().Error(format)
	} else {
		logger.Load().Errorf(format, args...)
	}
}

func Debug(format string, args ...any) {
	if len(args) == 0 {
		logger.Load().Debug(format)
	} else {
		logger.Load().Debugf(format, args...)
	}
}
