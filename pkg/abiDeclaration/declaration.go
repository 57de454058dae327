// Package abiDeclaration turns compact, human-written event and function
// declarations into ABI descriptors.
//
// Two grammars are accepted:
//
//	["event"] NAME "(" TYPE ["indexed"] NAME {"," ...} ")" [";"]
//	["function"] NAME "(" TYPE+ NAME {"," ...} ")" MODIFIERS
//
// Descriptors are plain values; parsing the same text twice yields equal
// descriptors and never touches the network.
package abiDeclaration

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Layr-Labs/chainwatch/pkg/utils"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Kind identifies what a descriptor was parsed from.
type Kind string

const (
	Kind_Event    Kind = "event"
	Kind_Function Kind = "function"
)

// Mutability mirrors the solidity state mutability of a function.
type Mutability string

const (
	Mutability_Pure       Mutability = "pure"
	Mutability_View       Mutability = "view"
	Mutability_Payable    Mutability = "payable"
	Mutability_Nonpayable Mutability = "nonpayable"
)

// AbiParameter is a single declared input.
type AbiParameter struct {
	// Type is the type as written, e.g. "uint256" or "address payable"
	Type    string
	Name    string
	Indexed bool
}

// AbiDescriptor is the structured form of a declaration.
type AbiDescriptor struct {
	Name       string
	Kind       Kind
	Inputs     []AbiParameter
	Constant   bool
	Payable    bool
	Mutability Mutability
}

var (
	eventPattern    = regexp.MustCompile(`(?s)^\s*(?:event\s+)?([A-Za-z0-9_]+)\s*\((.*)\)\s*;?\s*$`)
	functionPattern = regexp.MustCompile(`(?s)^\s*(?:function\s+)?([A-Za-z0-9_]+)\s*\(([^)]*)\)(.*)$`)
)

// ParseEvent parses an event declaration such as
// "event Transfer(address indexed from, address indexed to, uint256 value);".
func ParseEvent(declaration string) (*AbiDescriptor, error) {
	matches := eventPattern.FindStringSubmatch(declaration)
	if matches == nil {
		return nil, NewSyntaxError(declaration, "expected NAME(params)")
	}

	descriptor := &AbiDescriptor{
		Name:       matches[1],
		Kind:       Kind_Event,
		Inputs:     make([]AbiParameter, 0),
		Mutability: Mutability_Nonpayable,
	}

	for _, param := range splitParameters(matches[2]) {
		tokens := strings.Fields(param)
		switch len(tokens) {
		case 2:
			descriptor.Inputs = append(descriptor.Inputs, AbiParameter{Type: tokens[0], Name: tokens[1]})
		case 3:
			if tokens[1] != "indexed" {
				return nil, NewSyntaxError(declaration, fmt.Sprintf("expected 'indexed' in parameter '%s'", param))
			}
			descriptor.Inputs = append(descriptor.Inputs, AbiParameter{Type: tokens[0], Name: tokens[2], Indexed: true})
		default:
			return nil, NewSyntaxError(declaration, fmt.Sprintf("malformed parameter '%s'", param))
		}
	}
	return descriptor, nil
}

// ParseFunction parses a function declaration such as
// "function balanceOf(address owner) external view returns (uint256)".
func ParseFunction(declaration string) (*AbiDescriptor, error) {
	matches := functionPattern.FindStringSubmatch(declaration)
	if matches == nil {
		return nil, NewSyntaxError(declaration, "expected NAME(params) modifiers")
	}

	descriptor := &AbiDescriptor{
		Name:   matches[1],
		Kind:   Kind_Function,
		Inputs: make([]AbiParameter, 0),
	}

	for _, param := range splitParameters(matches[2]) {
		tokens := strings.Fields(param)
		if len(tokens) < 2 {
			return nil, NewSyntaxError(declaration, fmt.Sprintf("malformed parameter '%s'", param))
		}
		descriptor.Inputs = append(descriptor.Inputs, AbiParameter{
			Type: strings.Join(tokens[:len(tokens)-1], " "),
			Name: tokens[len(tokens)-1],
		})
	}

	var isPure, isView, isPayable bool
	for _, modifier := range strings.Fields(matches[3]) {
		switch modifier {
		case "pure":
			isPure = true
		case "view":
			isView = true
		case "payable":
			isPayable = true
		}
	}

	descriptor.Constant = isView
	descriptor.Payable = isPayable

	switch {
	case isPure:
		descriptor.Mutability = Mutability_Pure
	case isView:
		descriptor.Mutability = Mutability_View
	case isPayable:
		descriptor.Mutability = Mutability_Payable
	default:
		descriptor.Mutability = Mutability_Nonpayable
	}
	return descriptor, nil
}

// splitParameters splits the text between the parentheses. An empty list
// yields no parameters while an empty entry inside a list is kept so that it
// fails token counting.
func splitParameters(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	params := strings.Split(list, ",")
	for i, p := range params {
		params[i] = strings.TrimSpace(p)
	}
	return params
}

// IsReadOnly reports whether calling the function cannot change state.
func (d *AbiDescriptor) IsReadOnly() bool {
	return d.Constant || d.Mutability == Mutability_Pure
}

// IndexedInputs returns the indexed inputs in declaration order.
func (d *AbiDescriptor) IndexedInputs() []AbiParameter {
	return utils.Filter(d.Inputs, func(input AbiParameter) bool {
		return input.Indexed
	})
}

// Input finds an input by name.
func (d *AbiDescriptor) Input(name string) (AbiParameter, bool) {
	found := utils.Find(d.Inputs, func(input AbiParameter) bool {
		return input.Name == name
	})
	if found == nil {
		return AbiParameter{}, false
	}
	return *found, true
}

// Signature returns the canonical signature, e.g. "Transfer(address,address,uint256)".
func (d *AbiDescriptor) Signature() string {
	types := make([]string, len(d.Inputs))
	for i, input := range d.Inputs {
		types[i] = input.CanonicalType()
	}
	return fmt.Sprintf("%s(%s)", d.Name, strings.Join(types, ","))
}

// Selector returns the first four bytes of the signature hash.
func (d *AbiDescriptor) Selector() []byte {
	return crypto.Keccak256([]byte(d.Signature()))[:4]
}

// Arguments converts the inputs into go-ethereum arguments.
func (d *AbiDescriptor) Arguments() (abi.Arguments, error) {
	args := make(abi.Arguments, len(d.Inputs))
	for i, input := range d.Inputs {
		t, err := input.AbiType()
		if err != nil {
			return nil, errors.Wrapf(err, "input '%s' of '%s'", input.Name, d.Name)
		}
		args[i] = abi.Argument{
			Name:    input.Name,
			Type:    t,
			Indexed: input.Indexed,
		}
	}
	return args, nil
}

// AbiEvent builds the go-ethereum event for an event descriptor.
func (d *AbiDescriptor) AbiEvent() (*abi.Event, error) {
	if d.Kind != Kind_Event {
		return nil, errors.Errorf("'%s' is not an event", d.Name)
	}
	args, err := d.Arguments()
	if err != nil {
		return nil, err
	}
	event := abi.NewEvent(d.Name, d.Name, false, args)
	return &event, nil
}

// AbiMethod builds the go-ethereum method for a function descriptor.
func (d *AbiDescriptor) AbiMethod() (*abi.Method, error) {
	if d.Kind != Kind_Function {
		return nil, errors.Errorf("'%s' is not a function", d.Name)
	}
	args, err := d.Arguments()
	if err != nil {
		return nil, err
	}
	method := abi.NewMethod(d.Name, d.Name, abi.Function, string(d.Mutability), d.Constant, d.Payable, args, nil)
	return &method, nil
}

var (
	dataLocations = []string{"memory", "calldata", "storage"}
	sizelessIntRe = regexp.MustCompile(`^(u?int)((?:\[[0-9]*\])*)$`)
)

// CanonicalType reduces the written type to its ABI form: data locations and
// "payable" are dropped and sizeless integers become 256 bit.
func (p AbiParameter) CanonicalType() string {
	tokens := strings.Fields(p.Type)
	base := ""
	for _, token := range tokens {
		isLocation := false
		for _, loc := range dataLocations {
			if token == loc {
				isLocation = true
				break
			}
		}
		if isLocation || token == "payable" {
			continue
		}
		base = token
		break
	}
	if m := sizelessIntRe.FindStringSubmatch(base); m != nil {
		return m[1] + "256" + m[2]
	}
	return base
}

// AbiType parses the canonical type into a go-ethereum type.
func (p AbiParameter) AbiType() (abi.Type, error) {
	return abi.NewType(p.CanonicalType(), "", nil)
}
