package transactionBuilder

import (
	"math/big"

	"github.com/Layr-Labs/chainwatch/internal/types/numbers"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const GasBufferUnits uint64 = 1000

var gasBufferFactor = decimal.RequireFromString("1.1")

// GasWithBuffer returns ceil(estimate * 1.1) + 1000.
func GasWithBuffer(estimate uint64) uint64 {
	return numbers.MulCeil(estimate, gasBufferFactor) + GasBufferUnits
}

type FeePolicy struct {
	// FloorTip is added to the base fee to get the lowest acceptable fee cap
	FloorTip *big.Int
	// DefaultTip is used when the caller supplies no priority fee
	DefaultTip *big.Int
}

func DefaultFeePolicy() *FeePolicy {
	return &FeePolicy{
		FloorTip:   numbers.GweiToWei(30),
		DefaultTip: numbers.GweiToWei(75),
	}
}

type FeeInputs struct {
	BaseFee *big.Int
	Gas     uint64
	// Tip and Budget are optional, in wei
	Tip    *big.Int
	Budget *big.Int
}

type Fees struct {
	BaseFee              *big.Int
	MinFeePerGas         *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// ComputeFees bounds the EIP-1559 fee fields. The cap is budget / gas if a
// budget is given, else base fee + tip. The priority fee never lifts the
// effective price above the cap and is never negative.
func (p *FeePolicy) ComputeFees(in *FeeInputs) (*Fees, error) {
	if in.BaseFee == nil {
		return nil, errors.New("pending block has no base fee")
	}
	minFee := new(big.Int).Add(in.BaseFee, p.FloorTip)

	tip := p.DefaultTip
	if in.Tip != nil {
		tip = in.Tip
	}

	var maxFee *big.Int
	switch {
	case in.Budget != nil:
		if in.Gas == 0 {
			return nil, errors.New("cannot split a fee budget over zero gas")
		}
		maxFee = new(big.Int).Div(in.Budget, new(big.Int).SetUint64(in.Gas))
	default:
		maxFee = new(big.Int).Add(in.BaseFee, tip)
	}

	if maxFee.Cmp(minFee) < 0 {
		return nil, NewInsufficientFeeError(numbers.WeiToEther(maxFee), numbers.WeiToEther(minFee))
	}

	headroom := new(big.Int).Sub(maxFee, in.BaseFee)
	headroom.Sub(headroom, big.NewInt(1))
	priority := new(big.Int).Set(tip)
	if headroom.Cmp(priority) < 0 {
		priority = headroom
	}
	if priority.Sign() < 0 {
		priority = new(big.Int)
	}

	return &Fees{
		BaseFee:              new(big.Int).Set(in.BaseFee),
		MinFeePerGas:         minFee,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: priority,
	}, nil
}
