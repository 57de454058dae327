package cmd

import (
	"context"
	"os"

	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/Layr-Labs/chainwatch/pkg/eventWatcher"
	"github.com/Layr-Labs/chainwatch/pkg/triggerHost"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchEventsCmd = &cobra.Command{
	Use:   "watch-events",
	Short: "Print confirmed logs of one event as JSON lines",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime(cmd)
		defer rt.close()
		l := rt.logger

		address := requireFlag(cmd, "address")
		if !common.IsHexAddress(address) {
			l.Sugar().Fatalw("Invalid contract address", zap.String("address", address))
		}
		descriptor, err := abiDeclaration.ParseEvent(requireFlag(cmd, "declaration"))
		if err != nil {
			l.Sugar().Fatalw("Failed to parse event declaration", zap.Error(err))
		}
		rawFilters, _ := cmd.Flags().GetStringToString("filter")
		fields, _ := cmd.Flags().GetStringSlice("field")

		filters := make(map[string]any, len(rawFilters))
		for name, value := range rawFilters {
			filters[name] = value
		}

		chainId := rt.chainIdFlag(cmd)
		host := triggerHost.NewEventBusHost(&triggerHost.EventBusHostConfig{
			Trigger: descriptor.Name,
			ChainId: chainId,
			Kind:    triggerHost.NotificationKind_Event,
		}, rt.eventBus, rt.sink, l)

		ew, err := eventWatcher.NewEventWatcher(&eventWatcher.EventWatcherConfig{
			ChainId:  chainId,
			Contract: common.HexToAddress(address),
			Filters:  filters,
			Fields:   fields,
		}, descriptor, rt.provider, host, rt.sink, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to create event watcher", zap.Error(err))
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go printNotifications(ctx, rt.eventBus, os.Stdout, l)

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if err := ew.Start(ctx); err != nil {
				l.Sugar().Errorw("Event watcher stopped", zap.Error(err))
			}
		}()

		runUntilSignal(finished, host.Stop, l)
	},
}

func init() {
	watchEventsCmd.Flags().Uint64("chain-id", 0, "Chain id to watch (defaults to the id of --chain)")
	watchEventsCmd.Flags().String("address", "", "Contract address emitting the event")
	watchEventsCmd.Flags().String("declaration", "", `Event declaration, e.g. "Transfer(address indexed from, address indexed to, uint256 value)"`)
	watchEventsCmd.Flags().StringToString("filter", map[string]string{}, "Parameter filters as name=value pairs")
	watchEventsCmd.Flags().StringSlice("field", []string{}, "Parameters to include in each notification (default all)")
}
