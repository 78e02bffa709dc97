package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New 创建结构化 logger。
//
// - console=true：人类可读的单行输出（交互终端）
// - console=false：JSON lines（被重定向/被其他程序消费时）
func New(w io.Writer, console bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339

	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).With().Timestamp().Str("service", "respimg").Logger()
}

// Nop 返回丢弃一切输出的 logger（测试/库调用方不关心日志时使用）。
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
