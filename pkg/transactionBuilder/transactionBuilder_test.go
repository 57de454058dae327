package transactionBuilder

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/Layr-Labs/chainwatch/internal/tests"
	"github.com/Layr-Labs/chainwatch/internal/types/numbers"
	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var contract = common.HexToAddress("0x00000000000000000000000000000000000000c0")

func setup(t *testing.T) (*TransactionBuilder, *tests.FakeChainClient, *tests.FakeClientProvider, *PrivateKeySigner) {
	key, err := crypto.GenerateKey()
	require.Nil(t, err)
	signer := NewPrivateKeySignerFromKey(key)

	client := tests.NewFakeChainClient()
	client.Nonce = 7
	client.GasEstimate = 50000
	client.PendingHeader = &types.Header{Number: big.NewInt(100), BaseFee: numbers.GweiToWei(100)}
	provider := &tests.FakeClientProvider{Client: client}

	tb := NewTransactionBuilder(provider, signer, nil, nil, nil, zaptest.NewLogger(t))
	return tb, client, provider, signer
}

func parseFunction(t *testing.T, declaration string) *abiDeclaration.AbiDescriptor {
	d, err := abiDeclaration.ParseFunction(declaration)
	require.Nil(t, err)
	return d
}

func Test_BuildCallData(t *testing.T) {
	d := parseFunction(t, "transfer(address to, uint256 amount)")

	t.Run("Should pack arguments in declaration order", func(t *testing.T) {
		data, err := BuildCallData(d, map[string]any{
			"amount": "1000",
			"to":     "0x000000000000000000000000000000000000dEaD",
		})
		require.Nil(t, err)
		assert.Equal(t,
			"a9059cbb"+
				"000000000000000000000000000000000000000000000000000000000000dead"+
				"00000000000000000000000000000000000000000000000000000000000003e8",
			hex.EncodeToString(data))
	})
	t.Run("Should name the first missing parameter", func(t *testing.T) {
		_, err := BuildCallData(d, map[string]any{})
		var missing *MissingParameterError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "to", missing.Name)
	})
}

func Test_TransactionBuilder(t *testing.T) {
	ctx := context.Background()

	t.Run("Should fail before connecting when a parameter is missing", func(t *testing.T) {
		tb, _, provider, _ := setup(t)
		_, err := tb.Submit(ctx, &SubmissionRequest{
			Function:   parseFunction(t, "transfer(address to, uint256 amount)"),
			Parameters: map[string]any{"to": contract.Hex()},
		})
		var missing *MissingParameterError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "amount", missing.Name)
		assert.Equal(t, 0, provider.Connects)
	})
	t.Run("Should sign and broadcast a state changing call", func(t *testing.T) {
		tb, client, _, signer := setup(t)
		res, err := tb.Submit(ctx, &SubmissionRequest{
			Key:        "k1",
			SessionId:  "s1",
			ChainId:    1,
			Contract:   contract,
			Function:   parseFunction(t, "transfer(address to, uint256 amount)"),
			Parameters: map[string]any{"to": contract.Hex(), "amount": 5},
		})
		require.Nil(t, err)
		assert.Equal(t, "k1", res.Key)
		assert.Equal(t, "s1", res.SessionId)

		handle := res.Payload.(*BroadcastHandle)
		require.Len(t, client.Sent, 1)
		tx := client.Sent[0]
		assert.Equal(t, handle.TransactionHash, tx.Hash())
		assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
		assert.Equal(t, uint64(7), tx.Nonce())
		assert.Equal(t, uint64(56000), tx.Gas())
		assert.Equal(t, numbers.GweiToWei(175).String(), tx.GasFeeCap().String())
		assert.Equal(t, new(big.Int).Sub(numbers.GweiToWei(75), big.NewInt(1)).String(), tx.GasTipCap().String())

		sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), tx)
		require.Nil(t, err)
		assert.Equal(t, signer.Address(), sender)

		assert.Equal(t, []string{"nonce", "estimateGas", "header", "send", "close"}, client.CallLog())
	})
	t.Run("Should simulate view functions and never send", func(t *testing.T) {
		tb, client, _, _ := setup(t)
		client.CallResult = common.LeftPadBytes(big.NewInt(42).Bytes(), 32)

		res, err := tb.Submit(ctx, &SubmissionRequest{
			ChainId:    1,
			Contract:   contract,
			Function:   parseFunction(t, "balanceOf(address owner) external view returns (uint256)"),
			Parameters: map[string]any{"owner": contract.Hex()},
		})
		require.Nil(t, err)
		assert.NotEmpty(t, res.SessionId)

		payload := res.Payload.(*CallPayload)
		assert.Equal(t, client.CallResult, []byte(payload.ReturnValue))
		assert.Equal(t, uint64(56000), payload.EstimatedGas)
		assert.Equal(t, numbers.GweiToWei(130).String(), payload.MinFee.String())
		assert.Empty(t, client.Sent)
		assert.Equal(t, []string{"nonce", "estimateGas", "header", "call", "close"}, client.CallLog())
	})
	t.Run("Should simulate a dry run of a state changing call", func(t *testing.T) {
		tb, client, _, _ := setup(t)
		_, err := tb.Submit(ctx, &SubmissionRequest{
			ChainId:    1,
			Contract:   contract,
			Function:   parseFunction(t, "transfer(address to, uint256 amount)"),
			Parameters: map[string]any{"to": contract.Hex(), "amount": 1},
			DryRun:     true,
		})
		require.Nil(t, err)
		assert.Empty(t, client.Sent)
		assert.Contains(t, client.CallLog(), "call")
	})
	t.Run("Should read fee strings as ether and report insufficient budgets", func(t *testing.T) {
		tb, client, _, _ := setup(t)
		_, err := tb.Submit(ctx, &SubmissionRequest{
			ChainId:    1,
			Contract:   contract,
			Function:   parseFunction(t, "transfer(address to, uint256 amount)"),
			Parameters: map[string]any{"to": contract.Hex(), "amount": 1},
			// 0.0001 ether over 56000 gas is far below 130 gwei per gas
			GasLimit: "0.0001",
		})
		var feeErr *InsufficientFeeError
		require.True(t, errors.As(err, &feeErr))
		assert.Equal(t, "0.00000013", feeErr.MinFeePerGas)
		assert.Empty(t, client.Sent)
		assert.Equal(t, "close", client.CallLog()[len(client.CallLog())-1])
	})
	t.Run("Should keep the budget cap when a max fee is supplied", func(t *testing.T) {
		tb, client, _, _ := setup(t)
		_, err := tb.Submit(ctx, &SubmissionRequest{
			ChainId:      1,
			Contract:     contract,
			Function:     parseFunction(t, "transfer(address to, uint256 amount)"),
			Parameters:   map[string]any{"to": contract.Hex(), "amount": 1},
			GasLimit:     "0.0001",
			MaxFeePerGas: "1",
		})
		var feeErr *InsufficientFeeError
		require.True(t, errors.As(err, &feeErr))
		assert.Empty(t, client.Sent)
	})
	t.Run("Should derive the cap from the tip when a max fee is supplied without a budget", func(t *testing.T) {
		tb, client, _, _ := setup(t)
		_, err := tb.Submit(ctx, &SubmissionRequest{
			ChainId:      1,
			Contract:     contract,
			Function:     parseFunction(t, "transfer(address to, uint256 amount)"),
			Parameters:   map[string]any{"to": contract.Hex(), "amount": 1},
			MaxFeePerGas: "1",
		})
		require.Nil(t, err)
		require.Len(t, client.Sent, 1)
		assert.Equal(t, numbers.GweiToWei(175).String(), client.Sent[0].GasFeeCap().String())
	})
	t.Run("Should close the connection when sending fails", func(t *testing.T) {
		tb, client, _, _ := setup(t)
		client.SendErr = errors.New("nonce too low")
		_, err := tb.Submit(ctx, &SubmissionRequest{
			ChainId:    1,
			Contract:   contract,
			Function:   parseFunction(t, "transfer(address to, uint256 amount)"),
			Parameters: map[string]any{"to": contract.Hex(), "amount": 1},
		})
		assert.NotNil(t, err)
		assert.Equal(t, "close", client.CallLog()[len(client.CallLog())-1])
	})
	t.Run("Should refuse value for a non payable function", func(t *testing.T) {
		tb, _, _, _ := setup(t)
		_, err := tb.Submit(ctx, &SubmissionRequest{
			ChainId:    1,
			Contract:   contract,
			Function:   parseFunction(t, "transfer(address to, uint256 amount)"),
			Parameters: map[string]any{"to": contract.Hex(), "amount": 1},
			Value:      "1",
		})
		assert.NotNil(t, err)
	})
	t.Run("Should attach value to payable functions", func(t *testing.T) {
		tb, client, _, _ := setup(t)
		_, err := tb.Submit(ctx, &SubmissionRequest{
			ChainId:    1,
			Contract:   contract,
			Function:   parseFunction(t, "deposit() payable"),
			Parameters: map[string]any{},
			Value:      "0.5",
		})
		require.Nil(t, err)
		require.Len(t, client.Sent, 1)
		assert.Equal(t, "500000000000000000", client.Sent[0].Value().String())
	})
	t.Run("Should publish completed submissions", func(t *testing.T) {
		_, client, provider, signer := setup(t)
		eb := eventBus.NewEventBus(zaptest.NewLogger(t))
		consumer := &eventBusTypes.Consumer{Id: "test", Channel: make(chan *eventBusTypes.Event, 1)}
		eb.Subscribe(consumer)
		tb := NewTransactionBuilder(provider, signer, nil, eb, nil, zaptest.NewLogger(t))
		client.CallResult = []byte{1}

		_, err := tb.Submit(ctx, &SubmissionRequest{
			Key:        "k",
			ChainId:    1,
			Contract:   contract,
			Function:   parseFunction(t, "totalSupply() view"),
			Parameters: map[string]any{},
		})
		require.Nil(t, err)
		event := <-consumer.Channel
		assert.Equal(t, eventBusTypes.Event_SubmissionCompleted, event.Name)
		assert.Equal(t, "k", event.Data.(*eventBusTypes.SubmissionData).Key)
	})
}

func Test_PrivateKeySigner(t *testing.T) {
	s, err := NewPrivateKeySigner("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.Nil(t, err)
	assert.Equal(t, common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"), s.Address())

	_, err = NewPrivateKeySigner("nope")
	assert.NotNil(t, err)
}
