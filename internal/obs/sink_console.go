package obs

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleSink выводит событие через zap — тот же структурированный формат,
// что и у остального логирования процесса. Всегда включен.
type ConsoleSink struct {
	logger *zap.Logger
}

func NewConsoleSink(logger *zap.Logger) *ConsoleSink {
	return &ConsoleSink{logger: logger.Named("events")}
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Write(_ context.Context, e Event) error {
	fields := []zap.Field{
		zap.Time("ts", e.Timestamp),
		zap.String("category", e.Category),
		zap.String("request_id", e.RequestID),
		zap.String("source", e.Source),
	}
	if e.StatusCode != 0 {
		fields = append(fields,
			zap.Int("status", e.StatusCode),
			zap.Int64("duration_ms", e.DurationMS),
			zap.String("client_ip", e.ClientIP),
		)
	}
	if e.UserID != "" {
		fields = append(fields, zap.String("user_id", e.UserID))
	}
	if e.SecurityKind != "" {
		fields = append(fields, zap.String("security_kind", e.SecurityKind))
	}

	switch e.Level {
	case LevelDebug:
		s.logger.Debug(e.Message, fields...)
	case LevelWarn:
		s.logger.Warn(e.Message, fields...)
	case LevelError, LevelCritical:
		s.logger.Error(e.Message, fields...)
	default:
		s.logger.Info(e.Message, fields...)
	}
	return nil
}
