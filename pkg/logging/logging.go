// Package logging 提供 zerolog 的统一构建入口。
// 各组件持有自己的 zerolog.Logger（带 component 字段），不依赖包级全局状态。
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New 按级别字符串（debug/info/warn/error，默认 info）创建根 Logger。
func New(level string) zerolog.Logger {
	return NewWriter(os.Stderr, level)
}

// NewWriter 在指定 Writer 上创建根 Logger，测试时可注入 io.Discard。
func NewWriter(w io.Writer, level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Nop 返回丢弃一切输出的 Logger，用于可选依赖的默认值。
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
