// Package triggerDefinitions loads the event and transaction triggers a
// chainwatch process runs from a YAML file.
package triggerDefinitions

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"strings"

	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type EventTrigger struct {
	Name        string   `json:"name" yaml:"name"`
	ChainId     uint64   `json:"chainId" yaml:"chainId"`
	Address     string   `json:"address" yaml:"address"`
	Declaration string   `json:"declaration" yaml:"declaration"`
	Filters     Filters  `json:"filters,omitempty" yaml:"filters,omitempty"`
	Fields      []string `json:"fields,omitempty" yaml:"fields,omitempty"`

	descriptor *abiDeclaration.AbiDescriptor
}

// Descriptor is available once the definitions have been validated.
func (e *EventTrigger) Descriptor() *abiDeclaration.AbiDescriptor {
	return e.descriptor
}

func (e *EventTrigger) ContractAddress() common.Address {
	return common.HexToAddress(e.Address)
}

// Filters maps event parameter names to the value they must equal.
type Filters map[string]any

// UnmarshalYAML keeps numeric scalars exact. yaml.v3 turns integers wider
// than 64 bits into float64, so they are read from the source text instead.
func (f *Filters) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: filters must be a mapping", node.Line)
	}
	out := make(Filters, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		value, err := decodeFilterNode(node.Content[i+1])
		if err != nil {
			return errors.Wrapf(err, "filter '%s'", name)
		}
		out[name] = value
	}
	*f = out
	return nil
}

func decodeFilterNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		tag := node.ShortTag()
		if tag == "!!int" || tag == "!!float" {
			if n, ok := new(big.Int).SetString(strings.ReplaceAll(node.Value, "_", ""), 0); ok {
				return n, nil
			}
			// non-integral numbers stay text so the encoder can reject them
			return node.Value, nil
		}
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, el := range node.Content {
			v, err := decodeFilterNode(el)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

type TransactionTrigger struct {
	Name    string `json:"name" yaml:"name"`
	ChainId uint64 `json:"chainId" yaml:"chainId"`
	From    string `json:"from,omitempty" yaml:"from,omitempty"`
	To      string `json:"to,omitempty" yaml:"to,omitempty"`
}

type TriggerDefinitions struct {
	Events       []*EventTrigger       `json:"events" yaml:"events"`
	Transactions []*TransactionTrigger `json:"transactions" yaml:"transactions"`
}

func NewTriggerDefinitionsFromYamlBytes(data []byte) (*TriggerDefinitions, error) {
	var td *TriggerDefinitions
	if err := yaml.Unmarshal(data, &td); err != nil {
		return nil, errors.Wrap(err, "failed to parse trigger definitions")
	}
	if td == nil {
		td = &TriggerDefinitions{}
	}
	if err := td.Validate(); err != nil {
		return nil, err
	}
	return td, nil
}

func NewTriggerDefinitionsFromJsonBytes(data []byte) (*TriggerDefinitions, error) {
	var td *TriggerDefinitions
	decoder := json.NewDecoder(bytes.NewReader(data))
	// numbers stay json.Number so wide integers are not rounded
	decoder.UseNumber()
	if err := decoder.Decode(&td); err != nil {
		return nil, errors.Wrap(err, "failed to parse trigger definitions")
	}
	if td == nil {
		td = &TriggerDefinitions{}
	}
	if err := td.Validate(); err != nil {
		return nil, err
	}
	return td, nil
}

func LoadFile(path string) (*TriggerDefinitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read trigger file '%s'", path)
	}
	return NewTriggerDefinitionsFromYamlBytes(data)
}

// Validate parses every event declaration and checks that trigger names are
// unique across both kinds.
func (td *TriggerDefinitions) Validate() error {
	names := make(map[string]bool)
	checkName := func(name string) error {
		if name == "" {
			return errors.New("trigger name is required")
		}
		if names[name] {
			return errors.Errorf("duplicate trigger name '%s'", name)
		}
		names[name] = true
		return nil
	}

	for _, e := range td.Events {
		if err := checkName(e.Name); err != nil {
			return err
		}
		if e.ChainId == 0 {
			return errors.Errorf("trigger '%s': chainId is required", e.Name)
		}
		if !common.IsHexAddress(e.Address) {
			return errors.Errorf("trigger '%s': '%s' is not a contract address", e.Name, e.Address)
		}
		descriptor, err := abiDeclaration.ParseEvent(e.Declaration)
		if err != nil {
			return errors.Wrapf(err, "trigger '%s'", e.Name)
		}
		e.descriptor = descriptor
	}
	for _, tx := range td.Transactions {
		if err := checkName(tx.Name); err != nil {
			return err
		}
		if tx.ChainId == 0 {
			return errors.Errorf("trigger '%s': chainId is required", tx.Name)
		}
	}
	return nil
}
