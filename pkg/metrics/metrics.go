package metrics

import (
	"time"

	"github.com/Layr-Labs/chainwatch/internal/config"
	"github.com/Layr-Labs/chainwatch/pkg/metrics/dogstatsd"
	"github.com/Layr-Labs/chainwatch/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/chainwatch/pkg/metrics/prometheus"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type MetricsSinkConfig struct {
	// DefaultLabels are appended to every metric sent through the sink
	DefaultLabels []metricsTypes.MetricsLabel
}

// MetricsSink fans every metric out to all configured clients.
type MetricsSink struct {
	config  *MetricsSinkConfig
	clients []metricsTypes.IMetricsClient
}

func NewMetricsSink(cfg *MetricsSinkConfig, clients []metricsTypes.IMetricsClient) (*MetricsSink, error) {
	if cfg == nil {
		cfg = &MetricsSinkConfig{}
	}
	return &MetricsSink{
		config:  cfg,
		clients: clients,
	}, nil
}

// NewNoopMetricsSink returns a sink with no clients.
func NewNoopMetricsSink() *MetricsSink {
	sink, _ := NewMetricsSink(nil, nil)
	return sink
}

func (ms *MetricsSink) withDefaults(labels []metricsTypes.MetricsLabel) []metricsTypes.MetricsLabel {
	if len(ms.config.DefaultLabels) == 0 {
		return labels
	}
	out := make([]metricsTypes.MetricsLabel, 0, len(labels)+len(ms.config.DefaultLabels))
	out = append(out, labels...)
	return append(out, ms.config.DefaultLabels...)
}

func (ms *MetricsSink) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	var err error
	for _, client := range ms.clients {
		if e := client.Incr(name, ms.withDefaults(labels), value); e != nil {
			err = e
		}
	}
	return err
}

func (ms *MetricsSink) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	var err error
	for _, client := range ms.clients {
		if e := client.Gauge(name, value, ms.withDefaults(labels)); e != nil {
			err = e
		}
	}
	return err
}

func (ms *MetricsSink) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	var err error
	for _, client := range ms.clients {
		if e := client.Timing(name, value, ms.withDefaults(labels)); e != nil {
			err = e
		}
	}
	return err
}

func (ms *MetricsSink) Flush() {
	for _, client := range ms.clients {
		client.Flush()
	}
}

// InitMetricsSinksFromConfig builds a client for every enabled metrics backend.
func InitMetricsSinksFromConfig(cfg *config.Config, l *zap.Logger) ([]metricsTypes.IMetricsClient, error) {
	clients := make([]metricsTypes.IMetricsClient, 0)

	if cfg.DataDogConfig.StatsdConfig.Enabled {
		dd, err := dogstatsd.NewDogStatsdMetricsClient(&dogstatsd.DogStatsdMetricsConfig{
			Url:        cfg.DataDogConfig.StatsdConfig.Url,
			SampleRate: cfg.DataDogConfig.StatsdConfig.SampleRate,
		}, l)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create dogstatsd client")
		}
		clients = append(clients, dd)
	}

	if cfg.PrometheusConfig.Enabled {
		pc, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics: metricsTypes.MetricTypes,
		}, l)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create prometheus client")
		}
		clients = append(clients, pc)
	}

	return clients, nil
}
