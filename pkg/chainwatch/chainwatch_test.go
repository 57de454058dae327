package chainwatch

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Layr-Labs/chainwatch/internal/tests"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/chainwatch/pkg/parser"
	"github.com/Layr-Labs/chainwatch/pkg/triggerDefinitions"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const definitions = `
events:
  - name: transfers-to-bob
    chainId: 1
    address: "0x00000000000000000000000000000000000000f0"
    declaration: "Transfer(address indexed from, address indexed to, uint256 value)"
    filters:
      to: "0xabcdef0123456789abcdef0123456789abcdef01"
    fields: [value]
`

var (
	token = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	bob   = common.HexToAddress("0xabcdef0123456789abcdef0123456789abcdef01")
)

func loadDefinitions(t *testing.T, yaml string) *triggerDefinitions.TriggerDefinitions {
	defs, err := triggerDefinitions.NewTriggerDefinitionsFromYamlBytes([]byte(yaml))
	require.Nil(t, err)
	return defs
}

func Test_Chainwatch(t *testing.T) {
	l := zaptest.NewLogger(t)

	t.Run("Should publish confirmed notifications and stop every watcher", func(t *testing.T) {
		defs := loadDefinitions(t, definitions)
		client := tests.NewFakeChainClient()
		eb := eventBus.NewEventBus(l)

		consumer := &eventBusTypes.Consumer{
			Id:      "test",
			Context: context.Background(),
			Channel: make(chan *eventBusTypes.Event, 10),
		}
		eb.Subscribe(consumer)

		cw, err := NewChainwatch(nil, defs, &tests.FakeClientProvider{Client: client}, eb, nil, l)
		require.Nil(t, err)
		assert.Equal(t, []string{"transfers-to-bob"}, cw.TriggerNames())

		cw.Start(context.Background())
		<-client.Subscribe
		<-client.Subscribe

		event := defs.Events[0].Descriptor()
		abiEvent, err := event.AbiEvent()
		require.Nil(t, err)
		client.LogsCh <- types.Log{
			Address:     token,
			Topics:      []common.Hash{abiEvent.ID, common.BytesToHash(common.HexToAddress("0x01").Bytes()), common.BytesToHash(bob.Bytes())},
			Data:        common.LeftPadBytes(big.NewInt(5).Bytes(), 32),
			BlockNumber: 10,
			BlockHash:   common.HexToHash("0x0a"),
		}
		client.HeadsCh <- &types.Header{Number: big.NewInt(12)}

		select {
		case e := <-consumer.Channel:
			require.Equal(t, eventBusTypes.Event_NotificationEmitted, e.Name)
			data := e.Data.(*eventBusTypes.NotificationData)
			assert.Equal(t, "transfers-to-bob", data.Trigger)
			decoded := data.Payload.(*parser.DecodedLog)
			value, ok := decoded.Field("value")
			require.True(t, ok)
			assert.Equal(t, big.NewInt(5), value)
		case <-time.After(5 * time.Second):
			t.Fatal("no notification published")
		}

		cw.Stop()
		select {
		case <-cw.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("watchers did not stop")
		}
		assert.Contains(t, client.CallLog(), "close")
	})
	t.Run("Should build a block watcher per transaction trigger", func(t *testing.T) {
		defs := loadDefinitions(t, `
transactions:
  - name: payments
    chainId: 1
    to: "0x00000000000000000000000000000000000000f0"
`)
		client := tests.NewFakeChainClient()
		cw, err := NewChainwatch(nil, defs, &tests.FakeClientProvider{Client: client}, eventBus.NewEventBus(l), nil, l)
		require.Nil(t, err)

		cw.Start(context.Background())
		<-client.Subscribe
		cw.Stop()
		<-cw.Done()
		assert.Equal(t, []string{"subscribe:heads", "unsubscribe:heads", "close"}, client.CallLog())
	})
	t.Run("Should reject a trigger filtering on an unknown parameter", func(t *testing.T) {
		defs := loadDefinitions(t, `
events:
  - name: bad
    chainId: 1
    address: "0x00000000000000000000000000000000000000f0"
    declaration: "Transfer(address indexed from, address indexed to, uint256 value)"
    filters:
      amount: 1
`)
		_, err := NewChainwatch(nil, defs, &tests.FakeClientProvider{}, eventBus.NewEventBus(l), nil, l)
		assert.NotNil(t, err)
	})
	t.Run("Should end a watcher whose context is cancelled", func(t *testing.T) {
		defs := loadDefinitions(t, definitions)
		client := tests.NewFakeChainClient()
		cw, err := NewChainwatch(nil, defs, &tests.FakeClientProvider{Client: client}, eventBus.NewEventBus(l), nil, l)
		require.Nil(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cw.Start(ctx)
		<-client.Subscribe
		<-client.Subscribe
		cancel()

		select {
		case <-cw.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("watchers did not stop")
		}
	})
}
