package abiEncoder

import (
	"bytes"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Encode returns the ABI encoding of raw as a single argument of type t.
func Encode(t abi.Type, raw any) ([]byte, error) {
	v, err := ParseValue(t, raw)
	if err != nil {
		return nil, err
	}
	return EncodeValue(t, v)
}

// EncodeValue packs an already normalised Value.
func EncodeValue(t abi.Type, v *Value) ([]byte, error) {
	gv, err := v.GoValue(t)
	if err != nil {
		return nil, err
	}
	packed, err := abi.Arguments{{Type: t}}.Pack(gv)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s", t.String())
	}
	return packed, nil
}

// Equal reports whether a and b have the same canonical encoding for type t.
// Values that cannot be encoded are never equal.
func Equal(t abi.Type, a any, b any) bool {
	encodedA, err := Encode(t, a)
	if err != nil {
		return false
	}
	encodedB, err := Encode(t, b)
	if err != nil {
		return false
	}
	return bytes.Equal(encodedA, encodedB)
}

// IsTopicHashed reports whether an indexed value of type t is stored as the
// keccak hash of its contents rather than the value itself.
func IsTopicHashed(t abi.Type) bool {
	switch t.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		return true
	}
	return false
}

// EncodeTopic returns the log topic an indexed parameter of type t holds
// when its value is raw.
func EncodeTopic(t abi.Type, raw any) (common.Hash, error) {
	if t.T == abi.SliceTy || t.T == abi.ArrayTy || t.T == abi.TupleTy {
		return common.Hash{}, errors.Errorf("filtering on indexed %s is not supported", t.String())
	}
	v, err := ParseValue(t, raw)
	if err != nil {
		return common.Hash{}, err
	}
	gv, err := v.GoValue(t)
	if err != nil {
		return common.Hash{}, err
	}
	topics, err := abi.MakeTopics([]interface{}{gv})
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "failed to make topic for %s", t.String())
	}
	return topics[0][0], nil
}

// PackArguments normalises every positional value against args and packs them.
func PackArguments(args abi.Arguments, values []any) ([]byte, error) {
	if len(args) != len(values) {
		return nil, errors.Errorf("expected %d arguments, got %d", len(args), len(values))
	}
	goValues := make([]interface{}, len(values))
	for i, arg := range args {
		v, err := ParseValue(arg.Type, values[i])
		if err != nil {
			return nil, errors.Wrapf(err, "argument '%s'", arg.Name)
		}
		gv, err := v.GoValue(arg.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "argument '%s'", arg.Name)
		}
		goValues[i] = gv
	}
	packed, err := args.Pack(goValues...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack arguments")
	}
	return packed, nil
}
