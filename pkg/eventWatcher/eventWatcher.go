// Package eventWatcher subscribes to a contract event, holds each log until
// it is ConfirmationLag blocks deep and emits the confirmed logs whose
// decoded fields match the configured filters.
package eventWatcher

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/Layr-Labs/chainwatch/pkg/abiEncoder"
	"github.com/Layr-Labs/chainwatch/pkg/clients/ethereum"
	"github.com/Layr-Labs/chainwatch/pkg/logBuffer"
	"github.com/Layr-Labs/chainwatch/pkg/metrics"
	"github.com/Layr-Labs/chainwatch/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/chainwatch/pkg/parser"
	"github.com/Layr-Labs/chainwatch/pkg/transactionLogParser"
	"github.com/Layr-Labs/chainwatch/pkg/triggerHost"
	"github.com/Layr-Labs/chainwatch/pkg/utils"
	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

// EventNotification is the payload emitted for a confirmed, matching log.
type EventNotification = parser.DecodedLog

type EventWatcherConfig struct {
	ChainId  uint64
	Contract common.Address
	// Filters maps a parameter name to its expected value
	Filters map[string]any
	// Fields are the parameter names copied into the notification. Empty
	// means every parameter.
	Fields []string
	// Lag defaults to logBuffer.ConfirmationLag
	Lag uint64
}

type EventWatcher struct {
	config      *EventWatcherConfig
	descriptor  *abiDeclaration.AbiDescriptor
	decoder     *transactionLogParser.LogDecoder
	topics      [][]common.Hash
	fields      []string
	provider    ethereum.ClientProvider
	host        triggerHost.Host
	buffer      *logBuffer.LogBuffer
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

func NewEventWatcher(
	cfg *EventWatcherConfig,
	descriptor *abiDeclaration.AbiDescriptor,
	provider ethereum.ClientProvider,
	host triggerHost.Host,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) (*EventWatcher, error) {
	decoder, err := transactionLogParser.NewLogDecoder(descriptor)
	if err != nil {
		return nil, err
	}
	if err := validateFilters(descriptor, cfg.Filters); err != nil {
		return nil, err
	}
	topics, err := BuildTopics(descriptor, cfg.Filters)
	if err != nil {
		return nil, err
	}
	fields, err := requestedFields(descriptor, cfg.Fields)
	if err != nil {
		return nil, err
	}
	if cfg.Lag == 0 {
		cfg.Lag = logBuffer.ConfirmationLag
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}

	return &EventWatcher{
		config:      cfg,
		descriptor:  descriptor,
		decoder:     decoder,
		topics:      topics,
		fields:      fields,
		provider:    provider,
		host:        host,
		buffer:      logBuffer.NewLogBuffer(cfg.Lag),
		metricsSink: ms,
		logger:      l,
	}, nil
}

// BuildTopics returns the topic filter for a subscription: the event id
// followed by one entry per indexed input. Inputs without a filter value get
// a nil wildcard.
func BuildTopics(descriptor *abiDeclaration.AbiDescriptor, filters map[string]any) ([][]common.Hash, error) {
	event, err := descriptor.AbiEvent()
	if err != nil {
		return nil, err
	}
	indexed := descriptor.IndexedInputs()
	topics := make([][]common.Hash, 0, 1+len(indexed))
	topics = append(topics, []common.Hash{event.ID})

	for _, input := range indexed {
		expected, ok := filters[input.Name]
		if !ok {
			topics = append(topics, nil)
			continue
		}
		t, err := input.AbiType()
		if err != nil {
			return nil, err
		}
		topic, err := abiEncoder.EncodeTopic(t, expected)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid filter for '%s'", input.Name)
		}
		topics = append(topics, []common.Hash{topic})
	}
	return topics, nil
}

func validateFilters(descriptor *abiDeclaration.AbiDescriptor, filters map[string]any) error {
	for name, expected := range filters {
		input, ok := descriptor.Input(name)
		if !ok {
			return errors.Errorf("event '%s' has no parameter '%s'", descriptor.Name, name)
		}
		if input.Indexed {
			continue
		}
		t, err := input.AbiType()
		if err != nil {
			return err
		}
		if _, err := abiEncoder.Encode(t, expected); err != nil {
			return errors.Wrapf(err, "invalid filter for '%s'", name)
		}
	}
	return nil
}

func requestedFields(descriptor *abiDeclaration.AbiDescriptor, fields []string) ([]string, error) {
	if len(fields) == 0 {
		return utils.Map(descriptor.Inputs, func(input abiDeclaration.AbiParameter, i uint64) string {
			return input.Name
		}), nil
	}
	for _, name := range fields {
		if _, ok := descriptor.Input(name); !ok {
			return nil, errors.Errorf("event '%s' has no parameter '%s'", descriptor.Name, name)
		}
	}
	return fields, nil
}

func (ew *EventWatcher) Topics() [][]common.Hash {
	return ew.topics
}

func (ew *EventWatcher) Buffer() *logBuffer.LogBuffer {
	return ew.buffer
}

func (ew *EventWatcher) labels() []metricsTypes.MetricsLabel {
	return []metricsTypes.MetricsLabel{
		{Name: "chain_id", Value: fmt.Sprintf("%d", ew.config.ChainId)},
		{Name: "event", Value: ew.descriptor.Name},
	}
}

// Start connects, subscribes to logs and heads and processes both until ctx
// is cancelled, the host asks to stop or a subscription dies. Both
// subscriptions are released before the connection is closed.
func (ew *EventWatcher) Start(ctx context.Context) error {
	client, err := ew.provider.Connect(ctx, ew.config.ChainId)
	if err != nil {
		return errors.Wrap(err, "failed to connect")
	}

	logs := make(chan types.Log)
	logSub, err := client.SubscribeFilterLogs(ctx, geth.FilterQuery{
		Addresses: []common.Address{ew.config.Contract},
		Topics:    ew.topics,
	}, logs)
	if err != nil {
		client.Close()
		return errors.Wrap(err, "failed to subscribe to logs")
	}

	heads := make(chan *types.Header)
	headSub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		logSub.Unsubscribe()
		client.Close()
		return errors.Wrap(err, "failed to subscribe to new heads")
	}
	defer ew.stop(logSub, headSub, client)

	ew.logger.Sugar().Infow("Event watcher started",
		zap.Uint64("chainId", ew.config.ChainId),
		zap.String("contract", ew.config.Contract.Hex()),
		zap.String("event", ew.descriptor.Signature()),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ew.host.WaitForStop():
			return nil
		case err, ok := <-logSub.Err():
			if !ok || err == nil {
				return nil
			}
			ew.logger.Sugar().Errorw("Log subscription failed", zap.Error(err))
			return errors.Wrap(err, "log subscription failed")
		case err, ok := <-headSub.Err():
			if !ok || err == nil {
				return nil
			}
			ew.logger.Sugar().Errorw("Header subscription failed", zap.Error(err))
			return errors.Wrap(err, "header subscription failed")
		case lg := <-logs:
			ew.HandleLog(lg)
		case header := <-heads:
			ew.HandleHeader(ctx, header)
		}
	}
}

func (ew *EventWatcher) stop(logSub geth.Subscription, headSub geth.Subscription, client ethereum.ChainClient) {
	logSub.Unsubscribe()
	headSub.Unsubscribe()
	client.Close()
	ew.logger.Sugar().Infow("Event watcher stopped",
		zap.Uint64("chainId", ew.config.ChainId),
		zap.Int("pending", ew.buffer.Len()),
	)
}

// HandleLog buffers a new log or, for a log removed by a reorg, drops every
// buffered entry from its block.
func (ew *EventWatcher) HandleLog(lg types.Log) {
	if lg.Removed {
		purged := ew.buffer.PurgeBlock(lg.BlockHash)
		_ = ew.metricsSink.Incr(metricsTypes.Metric_Incr_LogReorged, ew.labels(), float64(purged))
		ew.logger.Sugar().Infow("Purged reorged block",
			zap.String("blockHash", lg.BlockHash.Hex()),
			zap.Uint64("blockNumber", lg.BlockNumber),
			zap.Int("purged", purged),
		)
	} else {
		ew.buffer.Append(logBuffer.NewPendingLogEntry(lg, ew.config.Filters))
		_ = ew.metricsSink.Incr(metricsTypes.Metric_Incr_LogReceived, ew.labels(), 1)
	}
	_ = ew.metricsSink.Gauge(metricsTypes.Metric_Gauge_LogBufferSize, float64(ew.buffer.Len()), ew.labels())
}

// HandleHeader confirms every buffered entry that is now deep enough and
// emits the ones that match.
func (ew *EventWatcher) HandleHeader(ctx context.Context, header *types.Header) {
	if header == nil || header.Number == nil {
		return
	}
	head := header.Number.Uint64()
	ew.buffer.Confirm(head, func(entry *logBuffer.PendingLogEntry) {
		notification, _ := ew.evaluate(entry)
		if notification == nil {
			return
		}
		if err := ew.host.Emit(ctx, notification); err != nil {
			ew.logger.Sugar().Errorw("Failed to emit event notification",
				zap.String("txHash", entry.Log.TxHash.Hex()),
				zap.Error(err),
			)
		}
	})
	_ = ew.metricsSink.Gauge(metricsTypes.Metric_Gauge_LogBufferSize, float64(ew.buffer.Len()), ew.labels())
}

// evaluate walks the inputs in declaration order and stops at the first
// filtered input that does not match. It returns nil when the entry is
// dropped, along with the session so callers can see what was decoded.
func (ew *EventWatcher) evaluate(entry *logBuffer.PendingLogEntry) (*EventNotification, *transactionLogParser.LogSession) {
	session := ew.decoder.NewSession(entry.Log)

	for _, input := range ew.descriptor.Inputs {
		expected, ok := entry.ContributingFilters[input.Name]
		if !ok {
			continue
		}
		matched, err := ew.matches(session, input, expected)
		if err != nil {
			ew.logger.Sugar().Warnw("Failed to decode log field",
				zap.String("field", input.Name),
				zap.String("txHash", entry.Log.TxHash.Hex()),
				zap.Error(err),
			)
			return nil, session
		}
		if !matched {
			_ = ew.metricsSink.Incr(metricsTypes.Metric_Incr_LogFiltered, ew.labels(), 1)
			return nil, session
		}
	}

	fields := orderedmap.New[string, any]()
	for _, name := range ew.fields {
		v, err := session.Field(name)
		if err != nil {
			ew.logger.Sugar().Warnw("Failed to decode log field",
				zap.String("field", name),
				zap.String("txHash", entry.Log.TxHash.Hex()),
				zap.Error(err),
			)
			return nil, session
		}
		fields.Set(name, v)
	}

	return &EventNotification{
		EventName:       ew.descriptor.Name,
		Address:         entry.Log.Address,
		BlockNumber:     entry.BlockNumber,
		BlockHash:       entry.BlockHash,
		TransactionHash: entry.Log.TxHash,
		LogIndex:        entry.Log.Index,
		Fields:          fields,
		Log:             entry.Log,
	}, session
}

func (ew *EventWatcher) matches(session *transactionLogParser.LogSession, input abiDeclaration.AbiParameter, expected any) (bool, error) {
	t, err := input.AbiType()
	if err != nil {
		return false, err
	}
	if input.Indexed && abiEncoder.IsTopicHashed(t) {
		topic, err := session.Topic(input.Name)
		if err != nil {
			return false, err
		}
		want, err := abiEncoder.EncodeTopic(t, expected)
		if err != nil {
			return false, err
		}
		return topic == want, nil
	}
	decoded, err := session.Field(input.Name)
	if err != nil {
		return false, err
	}
	return abiEncoder.Equal(t, decoded, expected), nil
}
