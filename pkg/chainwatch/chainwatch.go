// Package chainwatch runs every trigger of a definitions file as its own
// watcher and stops them together.
package chainwatch

import (
	"context"
	"sync"

	"github.com/Layr-Labs/chainwatch/internal/config"
	"github.com/Layr-Labs/chainwatch/pkg/blockWatcher"
	"github.com/Layr-Labs/chainwatch/pkg/clients/ethereum"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/chainwatch/pkg/eventWatcher"
	"github.com/Layr-Labs/chainwatch/pkg/metrics"
	"github.com/Layr-Labs/chainwatch/pkg/triggerDefinitions"
	"github.com/Layr-Labs/chainwatch/pkg/triggerHost"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Watcher runs until its host stops it, its context ends or its
// subscription dies.
type Watcher interface {
	Start(ctx context.Context) error
}

type runningTrigger struct {
	name    string
	watcher Watcher
	host    *triggerHost.EventBusHost
}

type Chainwatch struct {
	Logger       *zap.Logger
	GlobalConfig *config.Config

	triggers []*runningTrigger
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewChainwatch builds one watcher per trigger. Any invalid trigger fails
// the whole set so a process never runs a partial configuration.
func NewChainwatch(
	gCfg *config.Config,
	defs *triggerDefinitions.TriggerDefinitions,
	provider ethereum.ClientProvider,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) (*Chainwatch, error) {
	cw := &Chainwatch{
		Logger:       l,
		GlobalConfig: gCfg,
		triggers:     make([]*runningTrigger, 0, len(defs.Events)+len(defs.Transactions)),
		done:         make(chan struct{}),
	}

	for _, et := range defs.Events {
		host := triggerHost.NewEventBusHost(&triggerHost.EventBusHostConfig{
			Trigger: et.Name,
			ChainId: et.ChainId,
			Kind:    triggerHost.NotificationKind_Event,
		}, eb, ms, l)
		ew, err := eventWatcher.NewEventWatcher(&eventWatcher.EventWatcherConfig{
			ChainId:  et.ChainId,
			Contract: et.ContractAddress(),
			Filters:  et.Filters,
			Fields:   et.Fields,
		}, et.Descriptor(), provider, host, ms, l)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid event trigger '%s'", et.Name)
		}
		cw.triggers = append(cw.triggers, &runningTrigger{name: et.Name, watcher: ew, host: host})
	}

	for _, tt := range defs.Transactions {
		host := triggerHost.NewEventBusHost(&triggerHost.EventBusHostConfig{
			Trigger: tt.Name,
			ChainId: tt.ChainId,
			Kind:    triggerHost.NotificationKind_Transaction,
		}, eb, ms, l)
		bw := blockWatcher.NewBlockWatcher(&blockWatcher.BlockWatcherConfig{
			ChainId: tt.ChainId,
			From:    tt.From,
			To:      tt.To,
		}, provider, host, ms, l)
		cw.triggers = append(cw.triggers, &runningTrigger{name: tt.Name, watcher: bw, host: host})
	}
	return cw, nil
}

func (cw *Chainwatch) TriggerNames() []string {
	names := make([]string, 0, len(cw.triggers))
	for _, t := range cw.triggers {
		names = append(names, t.name)
	}
	return names
}

// Start launches every watcher in its own goroutine. A watcher that ends
// with an error is logged and does not affect the others.
func (cw *Chainwatch) Start(ctx context.Context) {
	for _, t := range cw.triggers {
		cw.wg.Add(1)
		go func(t *runningTrigger) {
			defer cw.wg.Done()
			cw.Logger.Sugar().Infow("Starting trigger", zap.String("trigger", t.name))
			if err := t.watcher.Start(ctx); err != nil {
				cw.Logger.Sugar().Errorw("Trigger stopped with error",
					zap.String("trigger", t.name),
					zap.Error(err),
				)
				return
			}
			cw.Logger.Sugar().Infow("Trigger stopped", zap.String("trigger", t.name))
		}(t)
	}
	go func() {
		cw.wg.Wait()
		close(cw.done)
	}()
}

// Stop asks every watcher to stop and waits for all of them to return.
func (cw *Chainwatch) Stop() {
	cw.stopOnce.Do(func() {
		for _, t := range cw.triggers {
			t.host.Stop()
		}
	})
	cw.wg.Wait()
}

// Done is closed once every started watcher has returned.
func (cw *Chainwatch) Done() <-chan struct{} {
	return cw.done
}
