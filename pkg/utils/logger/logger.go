// Package logger 提供基于zap的全局日志，支持按时间或按大小切割日志文件
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level = zapcore.Level

type Field = zap.Field

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

// 常用字段构造函数
var (
	String   = zap.String
	Int      = zap.Int
	Uint16   = zap.Uint16
	Uint8    = zap.Uint8
	Binary   = zap.Binary
	Stringer = zap.Stringer
)

// Logger 封装zap.Logger及其可动态调整的级别
type Logger struct {
	l     *zap.Logger
	s     *zap.SugaredLogger
	level zap.AtomicLevel
}

var (
	std = New(os.Stderr, InfoLevel)
	mu  sync.RWMutex
)

// New 创建写入out的日志器
func New(out io.Writer, level Level) *Logger {
	if out == nil {
		out = os.Stderr
	}
	al := zap.NewAtomicLevelAt(level)
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(out), al)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{l: l, s: l.Sugar(), level: al}
}

// NewProductionRotateByTime 按天切割日志文件，保留7天
func NewProductionRotateByTime(path string) io.Writer {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create log dir failed: %v\n", err)
		return os.Stderr
	}
	w, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create rotate log failed: %v\n", err)
		return os.Stderr
	}
	return w
}

// NewProductionRotateBySize 按大小切割日志文件
func NewProductionRotateBySize(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64, // MB
		MaxBackups: 5,
		MaxAge:     7,
		Compress:   true,
	}
}

// ReplaceDefault 替换全局日志器
func ReplaceDefault(l *Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	std = l
	mu.Unlock()
}

// Default 返回当前全局日志器
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// SetLevel 动态调整全局日志级别
func SetLevel(level Level) { Default().level.SetLevel(level) }

// GetLevel 返回全局日志级别
func GetLevel() Level { return Default().level.Level() }

func Sync() error { return Default().l.Sync() }

// GetError 将错误转为日志字段
func GetError(err error) Field { return zap.Error(err) }

func (l *Logger) Debug(msg string, fields ...Field) { l.l.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.l.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.l.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.l.Error(msg, fields...) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.s.Fatalf(format, args...) }

// 包级快捷函数，调用方式与标准库log保持一致
func Debug(msg string, fields ...Field) { Default().l.Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { Default().l.Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { Default().l.Warn(msg, fields...) }
func Error(msg string, fields ...Field) { Default().l.Error(msg, fields...) }

func Debugf(format string, args ...interface{}) { Default().s.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { Default().s.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Default().s.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Default().s.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { Default().s.Fatalf(format, args...) }
