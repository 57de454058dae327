package dogstatsd

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/Layr-Labs/chainwatch/pkg/metrics/metricsTypes"
	"go.uber.org/zap"
)

type DogStatsdMetricsConfig struct {
	Url        string
	SampleRate float64
	Namespace  string
}

type DogStatsdMetricsClient struct {
	config *DogStatsdMetricsConfig
	client statsd.ClientInterface
	logger *zap.Logger
}

func NewDogStatsdMetricsClient(cfg *DogStatsdMetricsConfig, l *zap.Logger) (*DogStatsdMetricsClient, error) {
	if cfg.SampleRate <= 0 || cfg.SampleRate > 1 {
		cfg.SampleRate = 1
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "chainwatch."
	}
	client, err := statsd.New(cfg.Url, statsd.WithNamespace(namespace))
	if err != nil {
		l.Sugar().Errorw("Failed to create statsd client", zap.Error(err))
		return nil, err
	}
	return newWithClient(cfg, client, l), nil
}

func newWithClient(cfg *DogStatsdMetricsConfig, client statsd.ClientInterface, l *zap.Logger) *DogStatsdMetricsClient {
	return &DogStatsdMetricsClient{
		config: cfg,
		client: client,
		logger: l,
	}
}

func formatTags(labels []metricsTypes.MetricsLabel) []string {
	tags := make([]string, 0, len(labels))
	for _, label := range labels {
		tags = append(tags, fmt.Sprintf("%s:%s", label.Name, label.Value))
	}
	return tags
}

func (d *DogStatsdMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	return d.client.Count(name, int64(value), formatTags(labels), d.config.SampleRate)
}

func (d *DogStatsdMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	return d.client.Gauge(name, value, formatTags(labels), d.config.SampleRate)
}

func (d *DogStatsdMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return d.client.Timing(name, value, formatTags(labels), d.config.SampleRate)
}

func (d *DogStatsdMetricsClient) Flush() {
	if err := d.client.Flush(); err != nil {
		d.logger.Sugar().Warnw("Failed to flush statsd client", zap.Error(err))
	}
}
