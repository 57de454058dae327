// Package blockWatcher walks new blocks a fixed number of blocks behind the
// chain head and emits every transaction that passes the configured sender
// and recipient filters.
package blockWatcher

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/Layr-Labs/chainwatch/pkg/clients/ethereum"
	"github.com/Layr-Labs/chainwatch/pkg/logBuffer"
	"github.com/Layr-Labs/chainwatch/pkg/metrics"
	"github.com/Layr-Labs/chainwatch/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/chainwatch/pkg/triggerHost"
	"github.com/Layr-Labs/chainwatch/pkg/utils"
	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type State string

const (
	State_Unanchored State = "unanchored"
	State_Tracking   State = "tracking"
	State_Stopped    State = "stopped"
)

type BlockWatcherConfig struct {
	ChainId uint64
	// From and To are optional. 0x prefixed values compare case-insensitively.
	From string
	To   string
	// Lag defaults to logBuffer.ConfirmationLag
	Lag uint64
}

// TransactionNotification is the payload emitted for every matching
// transaction.
type TransactionNotification struct {
	ChainId     uint64             `json:"chainId"`
	BlockNumber uint64             `json:"blockNumber"`
	BlockHash   common.Hash        `json:"blockHash"`
	From        common.Address     `json:"from"`
	Transaction *types.Transaction `json:"transaction"`
}

type BlockWatcher struct {
	config      *BlockWatcherConfig
	provider    ethereum.ClientProvider
	host        triggerHost.Host
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
	signer      types.Signer

	mu            sync.Mutex
	state         State
	lastProcessed uint64
	client        ethereum.ChainClient
}

func NewBlockWatcher(
	cfg *BlockWatcherConfig,
	provider ethereum.ClientProvider,
	host triggerHost.Host,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *BlockWatcher {
	if cfg.Lag == 0 {
		cfg.Lag = logBuffer.ConfirmationLag
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &BlockWatcher{
		config:      cfg,
		provider:    provider,
		host:        host,
		metricsSink: ms,
		logger:      l,
		signer:      types.LatestSignerForChainID(new(big.Int).SetUint64(cfg.ChainId)),
		state:       State_Unanchored,
	}
}

func (bw *BlockWatcher) State() State {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.state
}

// LastProcessed is only meaningful once the watcher is tracking.
func (bw *BlockWatcher) LastProcessed() uint64 {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.lastProcessed
}

// Start connects, subscribes to new heads and processes them until ctx is
// cancelled, the host asks to stop or the subscription dies. The header
// subscription is always released before the connection is closed.
func (bw *BlockWatcher) Start(ctx context.Context) error {
	client, err := bw.provider.Connect(ctx, bw.config.ChainId)
	if err != nil {
		return errors.Wrap(err, "failed to connect")
	}
	bw.mu.Lock()
	bw.client = client
	bw.mu.Unlock()

	heads := make(chan *types.Header)
	sub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		client.Close()
		bw.setState(State_Stopped)
		return errors.Wrap(err, "failed to subscribe to new heads")
	}
	bw.logger.Sugar().Infow("Block watcher started",
		zap.Uint64("chainId", bw.config.ChainId),
		zap.String("from", bw.config.From),
		zap.String("to", bw.config.To),
	)
	defer bw.stop(sub, client)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-bw.host.WaitForStop():
			return nil
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				return nil
			}
			bw.logger.Sugar().Errorw("Header subscription failed", zap.Error(err))
			return errors.Wrap(err, "header subscription failed")
		case header := <-heads:
			bw.HandleHeader(ctx, header)
		}
	}
}

func (bw *BlockWatcher) stop(sub geth.Subscription, client ethereum.ChainClient) {
	sub.Unsubscribe()
	client.Close()
	bw.setState(State_Stopped)
	bw.logger.Sugar().Infow("Block watcher stopped",
		zap.Uint64("chainId", bw.config.ChainId),
		zap.Uint64("lastProcessed", bw.LastProcessed()),
	)
}

func (bw *BlockWatcher) setState(s State) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	bw.state = s
}

// HandleHeader anchors on the first header and otherwise processes every
// block that has fallen more than Lag blocks behind the head. Catch-up ends
// early when ctx is cancelled or the host asks to stop.
func (bw *BlockWatcher) HandleHeader(ctx context.Context, header *types.Header) {
	if header == nil || header.Number == nil {
		return
	}
	head := header.Number.Uint64()

	bw.mu.Lock()
	defer bw.mu.Unlock()

	switch bw.state {
	case State_Stopped:
		return
	case State_Unanchored:
		bw.lastProcessed = head
		bw.state = State_Tracking
		bw.logger.Sugar().Infow("Anchored block watcher", zap.Uint64("blockNumber", head))
		return
	}

	for head > bw.lastProcessed && head-bw.lastProcessed > bw.config.Lag {
		if bw.stopRequested(ctx) {
			bw.logger.Sugar().Warnw("Stopping mid catch-up",
				zap.Uint64("lastProcessed", bw.lastProcessed),
				zap.Uint64("head", head),
			)
			return
		}
		bw.lastProcessed++
		if !bw.processBlock(ctx, bw.lastProcessed) {
			return
		}
	}
}

func (bw *BlockWatcher) stopRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-bw.host.WaitForStop():
		return true
	default:
		return false
	}
}

// processBlock reports whether the catch-up cycle may continue. A block that
// fails to fetch is lost: the cycle ends and the next header moves on.
func (bw *BlockWatcher) processBlock(ctx context.Context, number uint64) bool {
	chainLabel := []metricsTypes.MetricsLabel{{Name: "chain_id", Value: fmt.Sprintf("%d", bw.config.ChainId)}}

	block, err := bw.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		bw.logger.Sugar().Errorw("Failed to fetch block, skipping it and abandoning cycle",
			zap.Uint64("blockNumber", number),
			zap.Error(err),
		)
		return false
	}
	if block == nil || block.Transactions() == nil {
		_ = bw.metricsSink.Incr(metricsTypes.Metric_Incr_BlockSkipped, chainLabel, 1)
		bw.logger.Sugar().Warnw("Block has no transaction list, skipping",
			zap.Uint64("blockNumber", number),
		)
		return false
	}

	for _, tx := range block.Transactions() {
		from, err := types.Sender(bw.signer, tx)
		if err != nil {
			bw.logger.Sugar().Warnw("Failed to recover sender",
				zap.String("txHash", tx.Hash().String()),
				zap.Error(err),
			)
		}
		to := ""
		if tx.To() != nil {
			to = tx.To().Hex()
		}
		if !MatchesAddress(bw.config.From, from.Hex()) || !MatchesAddress(bw.config.To, to) {
			continue
		}
		notification := &TransactionNotification{
			ChainId:     bw.config.ChainId,
			BlockNumber: number,
			BlockHash:   block.Hash(),
			From:        from,
			Transaction: tx,
		}
		if err := bw.host.Emit(ctx, notification); err != nil {
			bw.logger.Sugar().Errorw("Failed to emit transaction notification",
				zap.String("txHash", tx.Hash().String()),
				zap.Error(err),
			)
		}
	}

	_ = bw.metricsSink.Incr(metricsTypes.Metric_Incr_BlockProcessed, chainLabel, 1)
	_ = bw.metricsSink.Gauge(metricsTypes.Metric_Gauge_LastProcessedBlock, float64(number), chainLabel)
	bw.logger.Sugar().Debugw("Processed block",
		zap.Uint64("blockNumber", number),
		zap.Int("transactions", len(block.Transactions())),
	)
	return true
}

// MatchesAddress applies an optional address filter. An empty filter matches
// everything.
func MatchesAddress(filter string, actual string) bool {
	if filter == "" {
		return true
	}
	if utils.HasHexPrefix(filter) {
		return utils.AreAddressesEqual(filter, actual)
	}
	return filter == actual
}
