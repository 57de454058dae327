// Package numbers converts between ether denominated decimals and wei.
package numbers

import (
	"encoding/json"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/params"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// EtherToWei converts a decimal ether amount such as "0.25" to wei. Digits
// below one wei are truncated.
func EtherToWei(ether string) (*big.Int, error) {
	d, err := decimal.NewFromString(ether)
	if err != nil {
		return nil, errors.Wrapf(err, "'%s' is not a decimal amount", ether)
	}
	if d.IsNegative() {
		return nil, errors.Errorf("'%s' is negative", ether)
	}
	return d.Shift(etherDecimals).BigInt(), nil
}

// WeiToEther renders a wei amount as a decimal ether string.
func WeiToEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -etherDecimals).String()
}

func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(params.GWei))
}

// NormalizeAmount turns a fee or value field into wei. Strings are decimal
// ether amounts; numbers, including json.Number, are taken as wei already. A nil raw yields nil.
func NormalizeAmount(raw any) (*big.Int, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return EtherToWei(v)
	case *big.Int:
		if v == nil {
			return nil, nil
		}
		if v.Sign() < 0 {
			return nil, errors.Errorf("%s is negative", v.String())
		}
		return new(big.Int).Set(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, errors.Wrapf(err, "'%s' is not a number", v.String())
		}
		return wholeDecimal(d)
	case float64:
		return wholeFloat(v)
	case float32:
		return wholeFloat(float64(v))
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return nil, errors.Errorf("%d is negative", rv.Int())
		}
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, errors.Errorf("cannot use %T as an amount", raw)
}

func wholeFloat(f float64) (*big.Int, error) {
	return wholeDecimal(decimal.NewFromFloat(f))
}

func wholeDecimal(d decimal.Decimal) (*big.Int, error) {
	if !d.Equal(d.Truncate(0)) || d.IsNegative() {
		return nil, errors.Errorf("%s is not a whole wei amount", d.String())
	}
	return d.BigInt(), nil
}

// MulCeil returns ceil(n * factor).
func MulCeil(n uint64, factor decimal.Decimal) uint64 {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0).Mul(factor).Ceil().BigInt().Uint64()
}
