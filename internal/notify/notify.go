package notify

import (
	"context"
	"log/slog"
)

// Alerter forwards operational warnings to whoever runs the service.
// Delivery is best effort; failures are logged, never returned.
type Alerter interface {
	Alert(ctx context.Context, text string)
}

// LogAlerter only logs. Used when no alert channel is configured.
type LogAlerter struct {
	logger *slog.Logger
}

func NewLogAlerter(logger *slog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

func (a *LogAlerter) Alert(ctx context.Context, text string) {
	a.logger.WarnContext(ctx, "alert", "text", text)
}
