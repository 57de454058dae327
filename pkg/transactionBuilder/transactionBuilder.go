// Package transactionBuilder turns a function declaration and a bag of named
// parameters into either a simulated call or a signed EIP-1559 transaction.
package transactionBuilder

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Layr-Labs/chainwatch/internal/tracer"
	"github.com/Layr-Labs/chainwatch/internal/types/numbers"
	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/Layr-Labs/chainwatch/pkg/abiEncoder"
	"github.com/Layr-Labs/chainwatch/pkg/clients/ethereum"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/chainwatch/pkg/metrics"
	"github.com/Layr-Labs/chainwatch/pkg/metrics/metricsTypes"
	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type SubmissionRequest struct {
	Key       string
	SessionId string
	ChainId   uint64
	Contract  common.Address
	Function  *abiDeclaration.AbiDescriptor
	// Parameters maps input names to raw values
	Parameters map[string]any

	// MaxFeePerGas, MaxPriorityFeePerGas, GasLimit and Value are optional.
	// Strings are decimal ether amounts, numbers are wei. GasLimit is a total
	// fee budget rather than a gas unit count. MaxFeePerGas is normalised but
	// never raises the fee cap.
	MaxFeePerGas         any
	MaxPriorityFeePerGas any
	GasLimit             any
	Value                any

	DryRun bool
}

type SubmissionResult struct {
	Key       string `json:"key"`
	SessionId string `json:"sessionId"`
	Payload   any    `json:"payload"`
}

// CallPayload is returned for read-only functions and dry runs.
type CallPayload struct {
	ReturnValue  hexutil.Bytes `json:"returnValue"`
	EstimatedGas uint64        `json:"estimatedGas"`
	// MinFee is the lowest acceptable fee per gas, in wei
	MinFee *big.Int `json:"minFee"`
}

// BroadcastHandle identifies a transaction handed to the node.
type BroadcastHandle struct {
	TransactionHash      common.Hash        `json:"transactionHash"`
	Nonce                uint64             `json:"nonce"`
	Gas                  uint64             `json:"gas"`
	MaxFeePerGas         *big.Int           `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int           `json:"maxPriorityFeePerGas"`
	Transaction          *types.Transaction `json:"transaction"`
}

// TransactionConfig is the draft built fresh for every submission.
type TransactionConfig struct {
	From                 common.Address
	To                   common.Address
	Data                 []byte
	Nonce                uint64
	Gas                  uint64
	Value                *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

type TransactionBuilder struct {
	provider    ethereum.ClientProvider
	signer      Signer
	feePolicy   *FeePolicy
	eventBus    eventBusTypes.IEventBus
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

func NewTransactionBuilder(
	provider ethereum.ClientProvider,
	signer Signer,
	feePolicy *FeePolicy,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *TransactionBuilder {
	if feePolicy == nil {
		feePolicy = DefaultFeePolicy()
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &TransactionBuilder{
		provider:    provider,
		signer:      signer,
		feePolicy:   feePolicy,
		eventBus:    eb,
		metricsSink: ms,
		logger:      l,
	}
}

// BuildArguments orders the parameter bag by the function inputs. The first
// missing input yields a *MissingParameterError.
func BuildArguments(function *abiDeclaration.AbiDescriptor, parameters map[string]any) ([]any, error) {
	args := make([]any, 0, len(function.Inputs))
	for _, input := range function.Inputs {
		v, ok := parameters[input.Name]
		if !ok {
			return nil, NewMissingParameterError(function.Name, input.Name)
		}
		args = append(args, v)
	}
	return args, nil
}

// BuildCallData returns the selector followed by the packed arguments.
func BuildCallData(function *abiDeclaration.AbiDescriptor, parameters map[string]any) ([]byte, error) {
	args, err := BuildArguments(function, parameters)
	if err != nil {
		return nil, err
	}
	abiArgs, err := function.Arguments()
	if err != nil {
		return nil, err
	}
	packed, err := abiEncoder.PackArguments(abiArgs, args)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode arguments for '%s'", function.Name)
	}
	return append(function.Selector(), packed...), nil
}

func (tb *TransactionBuilder) isCall(req *SubmissionRequest) bool {
	return req.DryRun || req.Function.IsReadOnly()
}

// Submit runs a request to completion. The chain connection is closed on
// every path.
func (tb *TransactionBuilder) Submit(ctx context.Context, req *SubmissionRequest) (res *SubmissionResult, err error) {
	if req.Function == nil || req.Function.Kind != abiDeclaration.Kind_Function {
		return nil, errors.New("submission requires a function declaration")
	}
	span, ctx := tracer.StartSpan(ctx, "transactionBuilder.submit", req.Function.Signature())
	defer func() {
		tracer.FinishSpan(span, err)
	}()

	start := time.Now()
	kind := "transaction"
	if tb.isCall(req) {
		kind = "call"
	}
	defer func() {
		tb.recordSubmission(req, kind, start, res, err)
	}()

	data, err := BuildCallData(req.Function, req.Parameters)
	if err != nil {
		return nil, err
	}

	client, err := tb.provider.Connect(ctx, req.ChainId)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to chain %d", req.ChainId)
	}
	defer client.Close()

	draft, err := tb.draft(ctx, client, req, data)
	if err != nil {
		return nil, err
	}

	tip, err := numbers.NormalizeAmount(req.MaxPriorityFeePerGas)
	if err != nil {
		return nil, errors.Wrap(err, "invalid max priority fee per gas")
	}
	// the cap always comes from the budget or the tip, MaxFeePerGas is only validated
	if _, err := numbers.NormalizeAmount(req.MaxFeePerGas); err != nil {
		return nil, errors.Wrap(err, "invalid max fee per gas")
	}
	budget, err := numbers.NormalizeAmount(req.GasLimit)
	if err != nil {
		return nil, errors.Wrap(err, "invalid gas limit")
	}

	estimate, err := client.EstimateGas(ctx, geth.CallMsg{
		From:  draft.From,
		To:    &draft.To,
		Value: draft.Value,
		Data:  draft.Data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to estimate gas")
	}
	draft.Gas = GasWithBuffer(estimate)

	pending, err := client.HeaderByNumber(ctx, big.NewInt(int64(rpc.PendingBlockNumber)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pending block")
	}
	fees, err := tb.feePolicy.ComputeFees(&FeeInputs{
		BaseFee: pending.BaseFee,
		Gas:     draft.Gas,
		Tip:     tip,
		Budget:  budget,
	})
	if err != nil {
		return nil, err
	}
	draft.MaxFeePerGas = fees.MaxFeePerGas
	draft.MaxPriorityFeePerGas = fees.MaxPriorityFeePerGas

	var payload any
	if tb.isCall(req) {
		payload, err = tb.call(ctx, client, draft, fees)
	} else {
		payload, err = tb.broadcast(ctx, client, req.ChainId, draft)
	}
	if err != nil {
		return nil, err
	}

	sessionId := req.SessionId
	if sessionId == "" {
		sessionId = uuid.NewString()
	}
	return &SubmissionResult{
		Key:       req.Key,
		SessionId: sessionId,
		Payload:   payload,
	}, nil
}

func (tb *TransactionBuilder) draft(ctx context.Context, client ethereum.ChainClient, req *SubmissionRequest, data []byte) (*TransactionConfig, error) {
	value, err := numbers.NormalizeAmount(req.Value)
	if err != nil {
		return nil, errors.Wrap(err, "invalid value")
	}
	if value == nil {
		value = big.NewInt(0)
	}
	if value.Sign() > 0 && !req.Function.Payable {
		return nil, errors.Errorf("'%s' is not payable", req.Function.Name)
	}

	from := tb.signer.Address()
	// no local nonce reservation, concurrent submissions from one signer can collide
	nonce, err := client.NonceAt(ctx, from, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get nonce")
	}
	return &TransactionConfig{
		From:  from,
		To:    req.Contract,
		Data:  data,
		Nonce: nonce,
		Value: value,
	}, nil
}

func (tb *TransactionBuilder) call(ctx context.Context, client ethereum.ChainClient, draft *TransactionConfig, fees *Fees) (*CallPayload, error) {
	ret, err := client.CallContract(ctx, geth.CallMsg{
		From:  draft.From,
		To:    &draft.To,
		Gas:   draft.Gas,
		Value: draft.Value,
		Data:  draft.Data,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "call failed")
	}
	return &CallPayload{
		ReturnValue:  ret,
		EstimatedGas: draft.Gas,
		MinFee:       fees.MinFeePerGas,
	}, nil
}

func (tb *TransactionBuilder) broadcast(ctx context.Context, client ethereum.ChainClient, chainId uint64, draft *TransactionConfig) (*BroadcastHandle, error) {
	to := draft.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(chainId),
		Nonce:     draft.Nonce,
		GasTipCap: draft.MaxPriorityFeePerGas,
		GasFeeCap: draft.MaxFeePerGas,
		Gas:       draft.Gas,
		To:        &to,
		Value:     draft.Value,
		Data:      draft.Data,
	})
	signed, err := tb.signer.SignTransaction(tx, new(big.Int).SetUint64(chainId))
	if err != nil {
		return nil, err
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return nil, errors.Wrap(err, "failed to send transaction")
	}
	tb.logger.Sugar().Infow("Broadcast transaction",
		zap.String("txHash", signed.Hash().Hex()),
		zap.Uint64("nonce", draft.Nonce),
		zap.Uint64("gas", draft.Gas),
		zap.String("maxFeePerGas", draft.MaxFeePerGas.String()),
		zap.String("maxPriorityFeePerGas", draft.MaxPriorityFeePerGas.String()),
	)
	return &BroadcastHandle{
		TransactionHash:      signed.Hash(),
		Nonce:                draft.Nonce,
		Gas:                  draft.Gas,
		MaxFeePerGas:         draft.MaxFeePerGas,
		MaxPriorityFeePerGas: draft.MaxPriorityFeePerGas,
		Transaction:          signed,
	}, nil
}

func (tb *TransactionBuilder) recordSubmission(req *SubmissionRequest, kind string, start time.Time, res *SubmissionResult, err error) {
	labels := []metricsTypes.MetricsLabel{
		{Name: "chain_id", Value: fmt.Sprintf("%d", req.ChainId)},
		{Name: "function", Value: req.Function.Name},
		{Name: "kind", Value: kind},
		{Name: "hasError", Value: fmt.Sprintf("%v", err != nil)},
	}
	_ = tb.metricsSink.Incr(metricsTypes.Metric_Incr_Submission, labels, 1)
	_ = tb.metricsSink.Timing(metricsTypes.Metric_Timing_SubmissionDuration, time.Since(start), labels)

	if err != nil {
		tb.logger.Sugar().Errorw("Submission failed",
			zap.String("key", req.Key),
			zap.String("function", req.Function.Signature()),
			zap.Error(err),
		)
	}

	if tb.eventBus == nil {
		return
	}
	data := &eventBusTypes.SubmissionData{
		Key:      req.Key,
		ChainId:  req.ChainId,
		Function: req.Function.Signature(),
		Error:    err,
	}
	if res != nil {
		data.SessionId = res.SessionId
		data.Payload = res.Payload
	}
	tb.eventBus.Publish(&eventBusTypes.Event{
		Name: eventBusTypes.Event_SubmissionCompleted,
		Data: data,
	})
}
