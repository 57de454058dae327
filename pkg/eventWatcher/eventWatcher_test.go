package eventWatcher

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Layr-Labs/chainwatch/internal/tests"
	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/Layr-Labs/chainwatch/pkg/logBuffer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const transferDeclaration = "Transfer(address indexed from, address indexed to, uint256 value)"

var (
	token   = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	alice   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob     = common.HexToAddress("0xabcdef0123456789abcdef0123456789abcdef01")
	charlie = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func transferLog(t *testing.T, number uint64, blockHash string, index uint, from, to common.Address, value int64) types.Log {
	d, err := abiDeclaration.ParseEvent(transferDeclaration)
	require.Nil(t, err)
	event, err := d.AbiEvent()
	require.Nil(t, err)
	return types.Log{
		Address:     token,
		Topics:      []common.Hash{event.ID, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:        common.LeftPadBytes(big.NewInt(value).Bytes(), 32),
		BlockNumber: number,
		BlockHash:   common.HexToHash(blockHash),
		Index:       index,
	}
}

func header(number uint64) *types.Header {
	return &types.Header{Number: new(big.Int).SetUint64(number)}
}

func newWatcher(t *testing.T, declaration string, cfg *EventWatcherConfig) (*EventWatcher, *tests.RecordingHost, *tests.FakeChainClient) {
	d, err := abiDeclaration.ParseEvent(declaration)
	require.Nil(t, err)
	client := tests.NewFakeChainClient()
	host := tests.NewRecordingHost()
	ew, err := NewEventWatcher(cfg, d, &tests.FakeClientProvider{Client: client}, host, nil, zaptest.NewLogger(t))
	require.Nil(t, err)
	return ew, host, client
}

func Test_BuildTopics(t *testing.T) {
	d, err := abiDeclaration.ParseEvent(transferDeclaration)
	require.Nil(t, err)

	t.Run("Should build one topic per indexed input with wildcards", func(t *testing.T) {
		topics, err := BuildTopics(d, map[string]any{"to": bob.Hex()})
		require.Nil(t, err)
		assert.Len(t, topics, 3)
		assert.Equal(t, crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")), topics[0][0])
		assert.Nil(t, topics[1])
		assert.Equal(t, []common.Hash{common.BytesToHash(bob.Bytes())}, topics[2])
	})
	t.Run("Should only hold the event id without indexed inputs", func(t *testing.T) {
		plain, err := abiDeclaration.ParseEvent("Ping(uint256 n)")
		require.Nil(t, err)
		topics, err := BuildTopics(plain, nil)
		require.Nil(t, err)
		assert.Len(t, topics, 1)
	})
	t.Run("Should reject a filter value of the wrong type", func(t *testing.T) {
		_, err := BuildTopics(d, map[string]any{"to": "not an address"})
		assert.NotNil(t, err)
	})
}

func Test_NewEventWatcher(t *testing.T) {
	d, err := abiDeclaration.ParseEvent(transferDeclaration)
	require.Nil(t, err)
	l := zaptest.NewLogger(t)

	_, err = NewEventWatcher(&EventWatcherConfig{Filters: map[string]any{"amount": "1"}}, d, nil, nil, nil, l)
	assert.NotNil(t, err)
	_, err = NewEventWatcher(&EventWatcherConfig{Filters: map[string]any{"value": "abc"}}, d, nil, nil, nil, l)
	assert.NotNil(t, err)
	_, err = NewEventWatcher(&EventWatcherConfig{Fields: []string{"amount"}}, d, nil, nil, nil, l)
	assert.NotNil(t, err)

	fn, err := abiDeclaration.ParseFunction("transfer(address to, uint256 amount)")
	require.Nil(t, err)
	_, err = NewEventWatcher(&EventWatcherConfig{}, fn, nil, nil, nil, l)
	assert.NotNil(t, err)
}

func Test_EventWatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("Should emit a matching Transfer once it is two blocks deep", func(t *testing.T) {
		ew, host, _ := newWatcher(t, transferDeclaration, &EventWatcherConfig{
			ChainId:  1,
			Contract: token,
			Filters:  map[string]any{"to": "0xABCDEF0123456789ABCDEF0123456789ABCDEF01"},
			Fields:   []string{"from", "value"},
		})
		ew.HandleLog(transferLog(t, 10, "0x0a", 0, alice, bob, 1000))
		ew.HandleLog(transferLog(t, 10, "0x0a", 1, alice, charlie, 5))

		ew.HandleHeader(ctx, header(11))
		assert.Empty(t, host.Payloads())
		assert.Equal(t, 2, ew.Buffer().Len())

		ew.HandleHeader(ctx, header(12))
		payloads := host.Payloads()
		require.Len(t, payloads, 1)
		assert.Equal(t, 0, ew.Buffer().Len())

		n := payloads[0].(*EventNotification)
		assert.Equal(t, "Transfer", n.EventName)
		assert.Equal(t, []string{"from", "value"}, keys(n))
		from, _ := n.Field("from")
		assert.Equal(t, alice, from)
		value, _ := n.Field("value")
		assert.Equal(t, 0, big.NewInt(1000).Cmp(value.(*big.Int)))
		_, hasTo := n.Field("to")
		assert.False(t, hasTo)
		assert.Equal(t, uint64(10), n.Log.BlockNumber)
	})
	t.Run("Should never emit a log whose block was reorged out", func(t *testing.T) {
		ew, host, _ := newWatcher(t, transferDeclaration, &EventWatcherConfig{ChainId: 1, Contract: token})
		lg := transferLog(t, 10, "0x0a", 0, alice, bob, 1)
		ew.HandleLog(lg)
		ew.HandleLog(transferLog(t, 10, "0x0a", 1, alice, bob, 2))
		ew.HandleLog(transferLog(t, 10, "0x0b", 0, alice, bob, 3))

		removed := lg
		removed.Removed = true
		ew.HandleLog(removed)
		assert.Equal(t, 1, ew.Buffer().Len())

		ew.HandleHeader(ctx, header(20))
		payloads := host.Payloads()
		require.Len(t, payloads, 1)
		assert.Equal(t, common.HexToHash("0x0b"), payloads[0].(*EventNotification).BlockHash)
	})
	t.Run("Should treat decimal and hex filters alike", func(t *testing.T) {
		for _, filter := range []any{"10", "0xa", "0x0A", 10, big.NewInt(10)} {
			ew, host, _ := newWatcher(t, transferDeclaration, &EventWatcherConfig{
				ChainId: 1,
				Filters: map[string]any{"value": filter},
			})
			ew.HandleLog(transferLog(t, 5, "0x05", 0, alice, bob, 10))
			ew.HandleLog(transferLog(t, 5, "0x05", 1, alice, bob, 11))
			ew.HandleHeader(ctx, header(7))
			assert.Len(t, host.Payloads(), 1, "filter %v", filter)
		}
	})
	t.Run("Should stop decoding at the first mismatching filter", func(t *testing.T) {
		ew, host, _ := newWatcher(t, transferDeclaration, &EventWatcherConfig{
			ChainId: 1,
			Filters: map[string]any{"to": charlie.Hex(), "value": "1"},
		})
		entry := logBuffer.NewPendingLogEntry(transferLog(t, 5, "0x05", 0, alice, bob, 1), ew.config.Filters)

		notification, session := ew.evaluate(entry)
		assert.Nil(t, notification)
		assert.Equal(t, []string{"to"}, session.DecodedFields())
		assert.Empty(t, host.Payloads())
	})
	t.Run("Should match filters on indexed strings by hash", func(t *testing.T) {
		declaration := "Registered(string indexed name, address owner)"
		ew, host, _ := newWatcher(t, declaration, &EventWatcherConfig{
			ChainId: 1,
			Filters: map[string]any{"name": "alice"},
		})
		d, _ := abiDeclaration.ParseEvent(declaration)
		event, _ := d.AbiEvent()
		for i, name := range []string{"alice", "bob"} {
			ew.HandleLog(types.Log{
				Topics:      []common.Hash{event.ID, crypto.Keccak256Hash([]byte(name))},
				Data:        common.LeftPadBytes(alice.Bytes(), 32),
				BlockNumber: 1,
				BlockHash:   common.HexToHash("0x01"),
				Index:       uint(i),
			})
		}
		ew.HandleHeader(ctx, header(3))
		require.Len(t, host.Payloads(), 1)
		name, _ := host.Payloads()[0].(*EventNotification).Field("name")
		assert.Equal(t, crypto.Keccak256Hash([]byte("alice")), name)
	})
}

func keys(n *EventNotification) []string {
	out := make([]string, 0)
	for pair := n.Fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func Test_EventWatcherLifecycle(t *testing.T) {
	t.Run("Should subscribe with the built topics and clean up in order", func(t *testing.T) {
		ew, host, client := newWatcher(t, transferDeclaration, &EventWatcherConfig{
			ChainId:  1,
			Contract: token,
			Filters:  map[string]any{"to": bob.Hex()},
		})

		done := make(chan error, 1)
		go func() { done <- ew.Start(context.Background()) }()
		<-client.Subscribe
		<-client.Subscribe

		client.LogsCh <- transferLog(t, 10, "0x0a", 0, alice, bob, 1)
		client.HeadsCh <- header(12)
		host.Stop()

		select {
		case err := <-done:
			assert.Nil(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop")
		}

		assert.Len(t, host.Payloads(), 1)
		require.Len(t, client.Queries, 1)
		assert.Equal(t, []common.Address{token}, client.Queries[0].Addresses)
		assert.Len(t, client.Queries[0].Topics, 3)
		assert.Equal(t, []string{
			"subscribe:logs", "subscribe:heads",
			"unsubscribe:logs", "unsubscribe:heads", "close",
		}, client.CallLog())
	})
	t.Run("Should return a dead log subscription as an error", func(t *testing.T) {
		ew, _, client := newWatcher(t, transferDeclaration, &EventWatcherConfig{ChainId: 1, Contract: token})

		done := make(chan error, 1)
		go func() { done <- ew.Start(context.Background()) }()
		<-client.Subscribe
		<-client.Subscribe
		client.LogSub.Fail(errors.New("websocket closed"))

		assert.NotNil(t, <-done)
		assert.Equal(t, []string{
			"subscribe:logs", "subscribe:heads",
			"unsubscribe:logs", "unsubscribe:heads", "close",
		}, client.CallLog())
	})
}
