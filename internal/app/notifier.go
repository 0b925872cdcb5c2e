package app

import (
	"context"
	"time"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
)

// Level is the severity of a notice.
type Level string

// Notice levels.
const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a user-facing message about one chart.
type Notice struct {
	Time     time.Time       `json:"time"`
	Chart    query.ChartKind `json:"chart,omitempty"`
	Level    Level           `json:"level"`
	Category Category        `json:"category,omitempty"`
	Message  string          `json:"message"`
}

// Notifier shows notices to the user. It is called from the event loop and
// must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

type logNotifier struct {
	logger logger.Logger
}

func (l logNotifier) Notify(ctx context.Context, n Notice) {
	fields := []logger.Field{
		logger.String("chart", string(n.Chart)),
		logger.String("category", string(n.Category)),
		logger.String("message", n.Message),
	}
	if n.Level == LevelError {
		l.logger.Warn(ctx, "notice", fields...)
		return
	}
	l.logger.Info(ctx, "notice", fields...)
}
