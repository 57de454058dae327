package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_NotificationEmitted = "notifications.emitted"
	Metric_Incr_BlockProcessed      = "blocks.processed"
	Metric_Incr_BlockSkipped        = "blocks.skipped"
	Metric_Incr_LogReceived         = "logs.received"
	Metric_Incr_LogReorged          = "logs.reorged"
	Metric_Incr_LogFiltered         = "logs.filtered"
	Metric_Incr_Submission          = "submissions"
	Metric_Incr_HttpRequest         = "rpc.http.request"

	Metric_Gauge_LastProcessedBlock = "watcher.lastProcessedBlock"
	Metric_Gauge_LogBufferSize      = "logBuffer.size"

	Metric_Timing_SubmissionDuration = "submission.duration"
	Metric_Timing_HttpDuration       = "rpc.http.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name: Metric_Incr_NotificationEmitted,
			Labels: []string{
				"trigger",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_BlockProcessed,
			Labels: []string{
				"chain_id",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_BlockSkipped,
			Labels: []string{
				"chain_id",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_LogReceived,
			Labels: []string{
				"chain_id",
				"event",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_LogReorged,
			Labels: []string{
				"chain_id",
				"event",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_LogFiltered,
			Labels: []string{
				"chain_id",
				"event",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_Submission,
			Labels: []string{
				"chain_id",
				"function",
				"kind",
				"hasError",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_HttpRequest,
			Labels: []string{
				"method",
				"path",
				"status_code",
			},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name: Metric_Gauge_LastProcessedBlock,
			Labels: []string{
				"chain_id",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Gauge_LogBufferSize,
			Labels: []string{
				"chain_id",
				"event",
			},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name: Metric_Timing_SubmissionDuration,
			Labels: []string{
				"chain_id",
				"function",
				"kind",
				"hasError",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_HttpDuration,
			Labels: []string{
				"method",
				"path",
				"status_code",
			},
		},
	},
}
