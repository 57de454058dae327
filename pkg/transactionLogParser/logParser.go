// Package transactionLogParser decodes event logs against a parsed event
// declaration one field at a time.
package transactionLogParser

import (
	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

type fieldLocation struct {
	argument abi.Argument
	// position is the topic index for indexed fields and the index among
	// non-indexed fields otherwise
	position int
}

// LogDecoder is built once per event declaration and shared between logs.
type LogDecoder struct {
	descriptor *abiDeclaration.AbiDescriptor
	event      *abi.Event
	nonIndexed abi.Arguments
	fields     map[string]fieldLocation
}

func NewLogDecoder(descriptor *abiDeclaration.AbiDescriptor) (*LogDecoder, error) {
	if descriptor.Kind != abiDeclaration.Kind_Event {
		return nil, errors.Errorf("'%s' is not an event", descriptor.Name)
	}
	event, err := descriptor.AbiEvent()
	if err != nil {
		return nil, err
	}

	fields := make(map[string]fieldLocation, len(event.Inputs))
	topic, data := 1, 0
	for _, arg := range event.Inputs {
		if arg.Indexed {
			fields[arg.Name] = fieldLocation{argument: arg, position: topic}
			topic++
			continue
		}
		fields[arg.Name] = fieldLocation{argument: arg, position: data}
		data++
	}

	return &LogDecoder{
		descriptor: descriptor,
		event:      event,
		nonIndexed: event.Inputs.NonIndexed(),
		fields:     fields,
	}, nil
}

func (ld *LogDecoder) Event() *abi.Event {
	return ld.event
}

func (ld *LogDecoder) Descriptor() *abiDeclaration.AbiDescriptor {
	return ld.descriptor
}

// NewSession starts decoding a single log. Nothing is decoded until a field
// is asked for.
func (ld *LogDecoder) NewSession(lg types.Log) *LogSession {
	return &LogSession{
		decoder: ld,
		log:     lg,
		values:  make(map[string]any),
		decoded: make([]string, 0),
	}
}

// LogSession caches the fields of one log as they are decoded.
type LogSession struct {
	decoder *LogDecoder
	log     types.Log
	values  map[string]any
	// decoded lists field names in the order they were materialised
	decoded []string
}

func (s *LogSession) DecodedFields() []string {
	out := make([]string, len(s.decoded))
	copy(out, s.decoded)
	return out
}

// Topic returns the raw topic of an indexed field.
func (s *LogSession) Topic(name string) (common.Hash, error) {
	loc, ok := s.decoder.fields[name]
	if !ok {
		return common.Hash{}, errors.Errorf("event '%s' has no field '%s'", s.decoder.event.RawName, name)
	}
	if !loc.argument.Indexed {
		return common.Hash{}, errors.Errorf("field '%s' is not indexed", name)
	}
	if loc.position >= len(s.log.Topics) {
		return common.Hash{}, errors.Errorf("log has %d topics, field '%s' needs topic %d", len(s.log.Topics), name, loc.position)
	}
	return s.log.Topics[loc.position], nil
}

// Field decodes a single field. Indexed dynamic types decode to the
// keccak hash held in their topic.
func (s *LogSession) Field(name string) (any, error) {
	if v, ok := s.values[name]; ok {
		return v, nil
	}
	loc, ok := s.decoder.fields[name]
	if !ok {
		return nil, errors.Errorf("event '%s' has no field '%s'", s.decoder.event.RawName, name)
	}
	if loc.argument.Indexed {
		return s.decodeTopic(name, loc)
	}
	return s.decodeData(name, loc)
}

func (s *LogSession) decodeTopic(name string, loc fieldLocation) (any, error) {
	topic, err := s.Topic(name)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, 1)
	if err := abi.ParseTopicsIntoMap(out, abi.Arguments{loc.argument}, []common.Hash{topic}); err != nil {
		return nil, errors.Wrapf(err, "failed to decode topic for '%s'", name)
	}
	s.store(name, out[name])
	return out[name], nil
}

// decodeData unpacks the non-indexed fields up to and including the
// requested one. Fields after it stay encoded.
func (s *LogSession) decodeData(name string, loc fieldLocation) (any, error) {
	prefix := s.decoder.nonIndexed[:loc.position+1]
	values, err := prefix.UnpackValues(s.log.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack data for '%s'", name)
	}
	for i, arg := range prefix {
		if _, ok := s.values[arg.Name]; !ok {
			s.store(arg.Name, values[i])
		}
	}
	return s.values[name], nil
}

func (s *LogSession) store(name string, value any) {
	s.values[name] = value
	s.decoded = append(s.decoded, name)
}
