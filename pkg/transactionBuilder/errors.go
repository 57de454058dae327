package transactionBuilder

import "fmt"

// MissingParameterError names the first function input absent from a
// submission's parameters.
type MissingParameterError struct {
	Function string
	Name     string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("MissingParameterError: parameter '%s' is required by '%s'", e.Name, e.Function)
}

func NewMissingParameterError(function string, name string) *MissingParameterError {
	return &MissingParameterError{
		Function: function,
		Name:     name,
	}
}

// InsufficientFeeError is returned when the fee cap per gas is below the
// minimum the chain will accept. Both values are decimal ether strings.
type InsufficientFeeError struct {
	MaxFeePerGas string
	MinFeePerGas string
}

func (e *InsufficientFeeError) Error() string {
	return fmt.Sprintf("InsufficientFeeError: max fee per gas %s is below the minimum %s", e.MaxFeePerGas, e.MinFeePerGas)
}

func NewInsufficientFeeError(maxFee string, minFee string) *InsufficientFeeError {
	return &InsufficientFeeError{
		MaxFeePerGas: maxFee,
		MinFeePerGas: minFee,
	}
}
