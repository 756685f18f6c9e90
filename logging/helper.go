package logging

import "io"

// NewLogger 创建一个默认的控制台 Logger（便于测试使用）
func NewLogger() Logger {
	return NewConsoleLogger(ConsoleLoggerOptions{
		IncludeTimestamp: true,
		MinimumLevel:     LogLevelInfo,
	})
}

// NewNopLogger 创建一个丢弃所有输出的 Logger
func NewNopLogger() Logger {
	return NewConsoleLogger(ConsoleLoggerOptions{
		Output:       io.Discard,
		MinimumLevel: LogLevelError + 1,
	})
}
