package abiDeclaration

import "fmt"

// SyntaxError is returned when a declaration does not match its grammar.
type SyntaxError struct {
	Declaration string
	Reason      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %s in declaration '%s'", e.Reason, e.Declaration)
}

func NewSyntaxError(declaration string, reason string) *SyntaxError {
	return &SyntaxError{
		Declaration: declaration,
		Reason:      reason,
	}
}
