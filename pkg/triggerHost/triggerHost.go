// Package triggerHost defines what a watcher needs from whatever runs it:
// somewhere to deliver notifications and a signal telling it to stop.
package triggerHost

import (
	"context"
	"sync"

	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/chainwatch/pkg/metrics"
	"github.com/Layr-Labs/chainwatch/pkg/metrics/metricsTypes"
	"go.uber.org/zap"
)

type Host interface {
	// Emit delivers a notification payload.
	Emit(ctx context.Context, payload any) error
	// WaitForStop is closed when the watcher should stop.
	WaitForStop() <-chan struct{}
}

type NotificationKind string

const (
	NotificationKind_Event       NotificationKind = "event"
	NotificationKind_Transaction NotificationKind = "transaction"
)

type EventBusHostConfig struct {
	Trigger string
	ChainId uint64
	Kind    NotificationKind
}

// EventBusHost publishes every payload on the event bus as an
// Event_NotificationEmitted.
type EventBusHost struct {
	config      *EventBusHostConfig
	eventBus    eventBusTypes.IEventBus
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewEventBusHost(
	cfg *EventBusHostConfig,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *EventBusHost {
	return &EventBusHost{
		config:      cfg,
		eventBus:    eb,
		metricsSink: ms,
		logger:      l,
		stopCh:      make(chan struct{}),
	}
}

func (h *EventBusHost) Emit(ctx context.Context, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.eventBus.Publish(&eventBusTypes.Event{
		Name: eventBusTypes.Event_NotificationEmitted,
		Data: &eventBusTypes.NotificationData{
			Trigger: h.config.Trigger,
			ChainId: h.config.ChainId,
			Kind:    string(h.config.Kind),
			Payload: payload,
		},
	})
	if h.metricsSink != nil {
		_ = h.metricsSink.Incr(metricsTypes.Metric_Incr_NotificationEmitted, []metricsTypes.MetricsLabel{
			{Name: "trigger", Value: h.config.Trigger},
		}, 1)
	}
	h.logger.Sugar().Debugw("Emitted notification",
		zap.String("trigger", h.config.Trigger),
		zap.String("kind", string(h.config.Kind)),
	)
	return nil
}

// Stop may be called any number of times.
func (h *EventBusHost) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
}

func (h *EventBusHost) WaitForStop() <-chan struct{} {
	return h.stopCh
}
