package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/Layr-Labs/chainwatch/internal/config"
	"github.com/Layr-Labs/chainwatch/internal/tracer"
	"github.com/Layr-Labs/chainwatch/pkg/clients/ethereum"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/chainwatch/pkg/logger"
	"github.com/Layr-Labs/chainwatch/pkg/metrics"
	"github.com/Layr-Labs/chainwatch/pkg/metrics/prometheus"
	"github.com/Layr-Labs/chainwatch/pkg/shutdown"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// cmdRuntime holds the shared pieces every command builds from the config.
type cmdRuntime struct {
	cfg        *config.Config
	logger     *zap.Logger
	sink       *metrics.MetricsSink
	eventBus   *eventBus.EventBus
	provider   *ethereum.Client
	stopTracer func()
	promServer *prometheus.PrometheusServer
}

func newRuntime(cmd *cobra.Command) *cmdRuntime {
	config.BindCommandFlags(cmd)
	cfg := config.NewConfig()

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	stopTracer := tracer.StartTracer(cfg.DataDogConfig.EnableTracing, cfg.Chain)

	metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
	if err != nil {
		l.Sugar().Fatalw("Failed to setup metrics sink", zap.Error(err))
	}
	sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
	if err != nil {
		l.Sugar().Fatalw("Failed to setup metrics sink", zap.Error(err))
	}

	rt := &cmdRuntime{
		cfg:        cfg,
		logger:     l,
		sink:       sink,
		eventBus:   eventBus.NewEventBus(l),
		provider:   ethereum.NewClient(ethereum.ConvertGlobalConfigToEthereumConfig(&cfg.EthereumRpcConfig), l),
		stopTracer: stopTracer,
	}

	if cfg.PrometheusConfig.Enabled {
		rt.promServer = prometheus.NewPrometheusServer(&prometheus.PrometheusServerConfig{
			Port: cfg.PrometheusConfig.Port,
		}, l)
		rt.promServer.Start(nil)
	}
	return rt
}

func (rt *cmdRuntime) close() {
	if rt.promServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := rt.promServer.Shutdown(ctx); err != nil {
			rt.logger.Sugar().Errorw("Failed to shut down prometheus server", zap.Error(err))
		}
	}
	rt.sink.Flush()
	rt.stopTracer()
	_ = rt.logger.Sync()
}

// chainIdFlag falls back to the id of the configured chain.
func (rt *cmdRuntime) chainIdFlag(cmd *cobra.Command) uint64 {
	chainId, _ := cmd.Flags().GetUint64("chain-id")
	if chainId == 0 {
		return rt.cfg.DefaultChainId()
	}
	return chainId
}

// printNotifications writes every notification published on eb to w as one
// JSON document per line until ctx is done.
func printNotifications(ctx context.Context, eb *eventBus.EventBus, w io.Writer, l *zap.Logger) {
	consumer := &eventBusTypes.Consumer{
		Id:      eventBusTypes.ConsumerId(uuid.NewString()),
		Context: ctx,
		Channel: make(chan *eventBusTypes.Event, 100),
	}
	eb.Subscribe(consumer)
	defer eb.Unsubscribe(consumer)

	encoder := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-consumer.Channel:
			data, ok := event.Data.(*eventBusTypes.NotificationData)
			if !ok {
				continue
			}
			if err := encoder.Encode(data.Payload); err != nil {
				l.Sugar().Errorw("Failed to print notification", zap.Error(err))
			}
		}
	}
}

// runUntilSignal calls stop on SIGINT or SIGTERM, or returns early once
// finished is closed.
func runUntilSignal(finished <-chan struct{}, stop func(), l *zap.Logger) {
	sig := shutdown.CreateGracefulShutdownChannel()
	go func() {
		<-finished
		sig <- os.Interrupt
	}()
	done := make(chan bool)
	shutdown.ListenForShutdown(sig, done, stop, shutdownTimeout, l)
}

func requireFlag(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		fmt.Fprintf(os.Stderr, "--%s is required\n", name)
		os.Exit(1)
	}
	return v
}
