package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nathangtg/coffee-single-tenant-sub000/common/logger"
	"github.com/nathangtg/coffee-single-tenant-sub000/events"
)

// Metrics is satisfied by *aws.MetricsClient.
type Metrics interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
}

// notifier runs post-commit side effects. Failures are logged and never
// reach the caller.
type notifier struct {
	publisher events.Publisher
	metrics   Metrics
	logger    *zap.Logger
}

func (n notifier) publish(ctx context.Context, evt events.Event) {
	if n.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := n.publisher.Publish(pubCtx, evt); err != nil {
		logger.For(ctx, n.logger).Warn("event publish failed",
			zap.String("event_type", evt.Type),
			zap.String("key", evt.Key),
			zap.Error(err),
		)
	}
}

func (n notifier) count(ctx context.Context, name string, dims map[string]string) {
	if n.metrics == nil {
		return
	}
	if err := n.metrics.RecordCount(context.WithoutCancel(ctx), name, dims); err != nil {
		n.logger.Debug("metric failed", zap.String("metric", name), zap.Error(err))
	}
}

func (n notifier) value(ctx context.Context, name string, v float64, dims map[string]string) {
	if n.metrics == nil {
		return
	}
	if err := n.metrics.RecordValue(context.WithoutCancel(ctx), name, v, dims); err != nil {
		n.logger.Debug("metric failed", zap.String("metric", name), zap.Error(err))
	}
}
