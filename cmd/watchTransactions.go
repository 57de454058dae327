package cmd

import (
	"context"
	"os"

	"github.com/Layr-Labs/chainwatch/pkg/blockWatcher"
	"github.com/Layr-Labs/chainwatch/pkg/triggerHost"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchTransactionsCmd = &cobra.Command{
	Use:   "watch-transactions",
	Short: "Print transactions of confirmed blocks as JSON lines",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime(cmd)
		defer rt.close()
		l := rt.logger

		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		chainId := rt.chainIdFlag(cmd)

		host := triggerHost.NewEventBusHost(&triggerHost.EventBusHostConfig{
			Trigger: "transactions",
			ChainId: chainId,
			Kind:    triggerHost.NotificationKind_Transaction,
		}, rt.eventBus, rt.sink, l)

		bw := blockWatcher.NewBlockWatcher(&blockWatcher.BlockWatcherConfig{
			ChainId: chainId,
			From:    from,
			To:      to,
		}, rt.provider, host, rt.sink, l)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go printNotifications(ctx, rt.eventBus, os.Stdout, l)

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if err := bw.Start(ctx); err != nil {
				l.Sugar().Errorw("Block watcher stopped", zap.Error(err))
			}
		}()

		runUntilSignal(finished, host.Stop, l)
	},
}

func init() {
	watchTransactionsCmd.Flags().Uint64("chain-id", 0, "Chain id to watch (defaults to the id of --chain)")
	watchTransactionsCmd.Flags().String("from", "", "Only emit transactions sent by this address")
	watchTransactionsCmd.Flags().String("to", "", "Only emit transactions sent to this address")
}
