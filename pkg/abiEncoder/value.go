// Package abiEncoder produces canonical ABI encodings of loosely typed values.
//
// Values arrive from configuration files, CLI flags, JSON bodies or decoded
// logs, so the same number may be a decimal string, a hex string, an int or a
// *big.Int. Every input is first normalised into a tagged Value and then packed
// with go-ethereum's ABI packer, which makes two textual representations of the
// same value encode to identical bytes.
package abiEncoder

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// float64 holds every integer up to 2^53 exactly
const maxExactFloatInteger = 1 << 53

// Kind is the ABI primitive family of a Value.
type Kind int

const (
	Kind_Int Kind = iota
	Kind_Uint
	Kind_Address
	Kind_Bool
	Kind_Bytes
	Kind_FixedBytes
	Kind_String
	Kind_Array
)

// Value is a normalised ABI value. Only the field matching Kind is set.
type Value struct {
	Kind     Kind
	Int      *big.Int
	Address  common.Address
	Bool     bool
	Bytes    []byte
	Text     string
	Elements []*Value
}

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// ParseValue normalises raw into a Value of the given ABI type.
func ParseValue(t abi.Type, raw any) (*Value, error) {
	if raw == nil {
		return nil, errors.Errorf("nil value for type '%s'", t.String())
	}
	switch t.T {
	case abi.IntTy, abi.UintTy:
		n, err := parseInteger(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", t.String())
		}
		kind := Kind_Uint
		if t.T == abi.IntTy {
			kind = Kind_Int
		}
		return &Value{Kind: kind, Int: n}, nil
	case abi.AddressTy:
		addr, err := parseAddress(raw)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: Kind_Address, Address: addr}, nil
	case abi.BoolTy:
		b, err := parseBool(raw)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: Kind_Bool, Bool: b}, nil
	case abi.StringTy:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.Errorf("expected string, got %T", raw)
		}
		return &Value{Kind: Kind_String, Text: s}, nil
	case abi.BytesTy:
		b, err := parseBytes(raw)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: Kind_Bytes, Bytes: b}, nil
	case abi.FixedBytesTy:
		b, err := parseBytes(raw)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, errors.Errorf("%d bytes do not fit in %s", len(b), t.String())
		}
		return &Value{Kind: Kind_FixedBytes, Bytes: common.RightPadBytes(b, t.Size)}, nil
	case abi.SliceTy, abi.ArrayTy:
		items, err := parseList(raw)
		if err != nil {
			return nil, err
		}
		if t.T == abi.ArrayTy && len(items) != t.Size {
			return nil, errors.Errorf("expected %d elements for %s, got %d", t.Size, t.String(), len(items))
		}
		elements := make([]*Value, len(items))
		for i, item := range items {
			v, err := ParseValue(*t.Elem, item)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			elements[i] = v
		}
		return &Value{Kind: Kind_Array, Elements: elements}, nil
	default:
		return nil, errors.Errorf("unsupported abi type '%s'", t.String())
	}
}

// GoValue converts the Value into the exact Go type the ABI packer expects
// for t, e.g. uint8 for uint8 and *big.Int for uint256.
func (v *Value) GoValue(t abi.Type) (any, error) {
	target := t.GetType()
	switch t.T {
	case abi.IntTy, abi.UintTy:
		if v.Int == nil {
			return nil, errors.New("missing integer")
		}
		if target == bigIntType {
			return new(big.Int).Set(v.Int), nil
		}
		out := reflect.New(target).Elem()
		switch target.Kind() {
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if !v.Int.IsInt64() || out.OverflowInt(v.Int.Int64()) {
				return nil, errors.Errorf("%s overflows %s", v.Int.String(), t.String())
			}
			out.SetInt(v.Int.Int64())
		default:
			if v.Int.Sign() < 0 || !v.Int.IsUint64() || out.OverflowUint(v.Int.Uint64()) {
				return nil, errors.Errorf("%s overflows %s", v.Int.String(), t.String())
			}
			out.SetUint(v.Int.Uint64())
		}
		return out.Interface(), nil
	case abi.AddressTy:
		return v.Address, nil
	case abi.BoolTy:
		return v.Bool, nil
	case abi.StringTy:
		return v.Text, nil
	case abi.BytesTy:
		return v.Bytes, nil
	case abi.FixedBytesTy:
		out := reflect.New(target).Elem()
		reflect.Copy(out, reflect.ValueOf(v.Bytes))
		return out.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		var out reflect.Value
		if t.T == abi.SliceTy {
			out = reflect.MakeSlice(target, len(v.Elements), len(v.Elements))
		} else {
			out = reflect.New(target).Elem()
		}
		for i, el := range v.Elements {
			gv, err := el.GoValue(*t.Elem)
			if err != nil {
				return nil, err
			}
			out.Index(i).Set(reflect.ValueOf(gv))
		}
		return out.Interface(), nil
	default:
		return nil, errors.Errorf("unsupported abi type '%s'", t.String())
	}
}

func parseInteger(raw any) (*big.Int, error) {
	switch v := raw.(type) {
	case *big.Int:
		if v == nil {
			return nil, errors.New("nil integer")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case string:
		return parseIntegerString(v)
	case json.Number:
		return parseIntegerString(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Errorf("%v is not an integer", v)
		}
		if math.Abs(v) > maxExactFloatInteger {
			return nil, errors.Errorf("%v is too large to be an exact integer, pass it as a string", v)
		}
		f := new(big.Float).SetFloat64(v)
		if !f.IsInt() {
			return nil, errors.Errorf("%v is not an integer", v)
		}
		n, _ := f.Int(nil)
		return n, nil
	case float32:
		return parseInteger(float64(v))
	case common.Hash:
		return new(big.Int).SetBytes(v.Bytes()), nil
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, errors.Errorf("cannot use %T as an integer", raw)
}

func parseIntegerString(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	n := new(big.Int)
	var ok bool
	if has0xPrefix(s) {
		digits := s[2:]
		if digits == "" {
			digits = "0"
		}
		_, ok = n.SetString(digits, 16)
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok {
		return nil, errors.Errorf("'%s' is not a decimal or hex integer", s)
	}
	if negative {
		n.Neg(n)
	}
	return n, nil
}

func parseAddress(raw any) (common.Address, error) {
	switch v := raw.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		if v == nil {
			return common.Address{}, errors.New("nil address")
		}
		return *v, nil
	case string:
		s := strings.TrimSpace(v)
		if !common.IsHexAddress(s) {
			return common.Address{}, errors.Errorf("'%s' is not a hex address", v)
		}
		return common.HexToAddress(s), nil
	case common.Hash:
		return common.BytesToAddress(v.Bytes()), nil
	case []byte:
		if len(v) != common.AddressLength {
			return common.Address{}, errors.Errorf("expected %d address bytes, got %d", common.AddressLength, len(v))
		}
		return common.BytesToAddress(v), nil
	}
	return common.Address{}, errors.Errorf("cannot use %T as an address", raw)
}

func parseBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "0x1":
			return true, nil
		case "false", "0", "0x0":
			return false, nil
		}
		return false, errors.Errorf("'%s' is not a boolean", v)
	}
	return false, errors.Errorf("cannot use %T as a boolean", raw)
}

func parseBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return common.CopyBytes(v), nil
	case string:
		s := strings.TrimSpace(v)
		if !has0xPrefix(s) {
			s = "0x" + s
		}
		if len(s)%2 == 1 {
			s = "0x0" + s[2:]
		}
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, errors.Wrapf(err, "'%s' is not hex bytes", v)
		}
		return b, nil
	case common.Hash:
		return v.Bytes(), nil
	}

	// fixed size byte arrays such as [32]byte from decoded logs
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(out), rv)
		return out, nil
	}
	return nil, errors.Errorf("cannot use %T as bytes", raw)
}

func parseList(raw any) ([]any, error) {
	if s, ok := raw.(string); ok {
		var items []any
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		if err := dec.Decode(&items); err != nil {
			return nil, errors.Wrapf(err, "'%s' is not a JSON list", s)
		}
		return items, nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.Errorf("cannot use %T as a list", raw)
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, errors.Errorf("cannot use %T as a list", raw)
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// String renders the value for logs and payloads.
func (v *Value) String() string {
	switch v.Kind {
	case Kind_Int, Kind_Uint:
		return v.Int.String()
	case Kind_Address:
		return v.Address.Hex()
	case Kind_Bool:
		return fmt.Sprintf("%t", v.Bool)
	case Kind_Bytes, Kind_FixedBytes:
		return hexutil.Encode(v.Bytes)
	case Kind_String:
		return v.Text
	case Kind_Array:
		parts := make([]string, len(v.Elements))
		for i, el := range v.Elements {
			parts[i] = el.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return ""
}
