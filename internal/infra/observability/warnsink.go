package observability

import (
	"context"

	"go.uber.org/zap"
)

// ZapWarningSink reports non-fatal conditions through the structured logger.
// It keeps the core free of direct console I/O: services emit warnings
// through the port and tests swap in a recording sink.
type ZapWarningSink struct {
	logger *zap.Logger
}

// NewZapWarningSink wraps a zap logger as a warning sink.
func NewZapWarningSink(logger *zap.Logger) *ZapWarningSink {
	return &ZapWarningSink{logger: logger}
}

// Warn logs the condition with its code and structured fields.
func (s *ZapWarningSink) Warn(_ context.Context, code string, fields map[string]any) {
	zf := make([]zap.Field, 0, len(fields)+1)
	zf = append(zf, zap.String("code", code))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	s.logger.Warn("core warning", zf...)
}
