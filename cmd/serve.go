package cmd

import (
	"context"

	"github.com/Layr-Labs/chainwatch/internal/version"
	"github.com/Layr-Labs/chainwatch/pkg/chainwatch"
	"github.com/Layr-Labs/chainwatch/pkg/notificationStore"
	"github.com/Layr-Labs/chainwatch/pkg/notificationStore/postgresNotificationStore"
	"github.com/Layr-Labs/chainwatch/pkg/postgres"
	"github.com/Layr-Labs/chainwatch/pkg/rpcServer"
	"github.com/Layr-Labs/chainwatch/pkg/runtime"
	"github.com/Layr-Labs/chainwatch/pkg/transactionBuilder"
	"github.com/Layr-Labs/chainwatch/pkg/triggerDefinitions"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run every trigger of the definitions file and the http api",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime(cmd)
		defer rt.close()
		cfg := rt.cfg
		l := rt.logger

		l.Sugar().Infow("chainwatch serve",
			zap.String("chain", cfg.Chain.String()),
			zap.String("triggers", cfg.TriggersConfig.File),
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
		)

		defs := &triggerDefinitions.TriggerDefinitions{}
		if cfg.TriggersConfig.File != "" {
			loaded, err := triggerDefinitions.LoadFile(cfg.TriggersConfig.File)
			if err != nil {
				l.Sugar().Fatalw("Failed to load trigger definitions", zap.Error(err))
			}
			defs = loaded
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var store notificationStore.NotificationStore
		if cfg.DatabaseConfig.Enabled {
			_, grm, err := postgres.OpenAndMigrate(cfg, l)
			if err != nil {
				l.Sugar().Fatalw("Failed to setup postgres", zap.Error(err))
			}
			if err := runtime.NewChainwatchRuntime(grm, cfg, l).ValidateAndUpdateVersion(version.GetVersion()); err != nil {
				l.Sugar().Fatalw("Refusing to start against this database", zap.Error(err))
			}
			store = postgresNotificationStore.NewPostgresNotificationStore(grm, l, cfg)
			go notificationStore.NewRecorder(store, l).ListenToEventBus(ctx, rt.eventBus)
		}

		var submitter rpcServer.Submitter = disabledSubmitter{}
		if cfg.SignerConfig.PrivateKey != "" {
			signer, err := transactionBuilder.NewPrivateKeySigner(cfg.SignerConfig.PrivateKey)
			if err != nil {
				l.Sugar().Fatalw("Failed to load signer", zap.Error(err))
			}
			submitter = transactionBuilder.NewTransactionBuilder(rt.provider, signer, nil, rt.eventBus, rt.sink, l)
		} else {
			l.Sugar().Warnw("No signer configured, submissions are disabled")
		}

		cw, err := chainwatch.NewChainwatch(cfg, defs, rt.provider, rt.eventBus, rt.sink, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to create watchers", zap.Error(err))
		}

		rpc := rpcServer.NewRpcServer(&rpcServer.RpcServerConfig{
			HttpPort: cfg.RpcConfig.HttpPort,
		}, submitter, store, rt.sink, l)
		rpc.Start(ctx, nil)

		cw.Start(ctx)
		l.Sugar().Infow("Started chainwatch", zap.Strings("triggers", cw.TriggerNames()))

		// serve keeps the api up after every watcher has ended
		runUntilSignal(make(chan struct{}), func() {
			l.Sugar().Infow("Shutting down...")
			cw.Stop()
			cancel()
		}, l)
	},
}

// disabledSubmitter answers every submission when no signer is configured.
type disabledSubmitter struct{}

func (disabledSubmitter) Submit(ctx context.Context, req *transactionBuilder.SubmissionRequest) (*transactionBuilder.SubmissionResult, error) {
	return nil, errors.New("no signer configured")
}
