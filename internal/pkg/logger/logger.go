package logger

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var (
	base zerolog.Logger
	once sync.Once
)

func init() {
	// 未显式 Init 时也能工作，使用进程默认配置
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 初始化全局日志器，service 字段会出现在每一条日志中。
func Init(service string) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		base = zerolog.New(os.Stdout).With().
			Timestamp().
			Str("service", service).
			Logger()
	})
}

// Ctx 返回一个绑定了追踪上下文的日志器。
// 如果 ctx 中存在有效的 Span，日志会自动携带 trace_id / span_id，
// 便于在日志系统中与 Jaeger 链路互相跳转。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := base
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = base.With().
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String()).
			Logger()
	}
	return &l
}
