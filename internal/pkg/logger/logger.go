// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var base zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 设置服务名等全局字段，并根据配置调整日志级别。
func Init(serviceName, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	base = zerolog.New(os.Stdout).Level(lvl).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Logger 返回全局日志实例。
func Logger() *zerolog.Logger {
	return &base
}

// Ctx 返回一个带有追踪信息的日志实例。
// 如果 ctx 中存在有效的 Span，则自动附加 trace_id/span_id 字段，
// 便于在日志系统中与 Jaeger 的调用链相互关联。
func Ctx(ctx context.Context) *zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return &base
	}
	l := base.With().
		Str("trace_id", span.SpanContext().TraceID().String()).
		Str("span_id", span.SpanContext().SpanID().String()).
		Logger()
	return &l
}
