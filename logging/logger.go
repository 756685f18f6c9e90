package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

// Logger 日志接口
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithCategory(category string) Logger
}

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	MinimumLevel     LogLevel
	Output           io.Writer
}

// consoleLogger 控制台日志记录器
type consoleLogger struct {
	options  ConsoleLoggerOptions
	category string
	fields   []Field
	mu       *sync.Mutex // 保护 Output 的并发写入
}

// NewConsoleLogger 创建控制台日志记录器
func NewConsoleLogger(options ConsoleLoggerOptions) Logger {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	if options.TimestampFormat == "" {
		options.TimestampFormat = "2006-01-02 15:04:05"
	}
	return &consoleLogger{
		options: options,
		mu:      &sync.Mutex{},
	}
}

func (l *consoleLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *consoleLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *consoleLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *consoleLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *consoleLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.options.MinimumLevel {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.options.IncludeTimestamp {
		fmt.Fprint(l.options.Output, time.Now().Format(l.options.TimestampFormat), " ")
	}
	fmt.Fprint(l.options.Output, level.String())
	if l.category != "" {
		fmt.Fprintf(l.options.Output, " [%s]", l.category)
	}
	fmt.Fprint(l.options.Output, " ", msg)

	// 合并字段（WithFields 附加的在前）
	for _, f := range l.fields {
		fmt.Fprintf(l.options.Output, " %s=%v", f.Key, f.Value)
	}
	for _, f := range fields {
		fmt.Fprintf(l.options.Output, " %s=%v", f.Key, f.Value)
	}
	fmt.Fprintln(l.options.Output)
}

func (l *consoleLogger) WithFields(fields ...Field) Logger {
	clone := *l
	clone.fields = append(append([]Field{}, l.fields...), fields...)
	return &clone
}

func (l *consoleLogger) WithCategory(category string) Logger {
	clone := *l
	clone.category = category
	return &clone
}
