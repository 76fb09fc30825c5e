package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeUnsupportedType ErrorType = "unsupported_type"
	ErrorTypeDecode          ErrorType = "decode"
	ErrorTypeDocumentOpen    ErrorType = "document_open"
	ErrorTypeMissingPrompt   ErrorType = "missing_prompt"
	ErrorTypeGeneration      ErrorType = "generation"
	ErrorTypeConfig          ErrorType = "config"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeIO              ErrorType = "io"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether any error in err's chain is a DomainError of type t.
func IsType(err error, t ErrorType) bool {
	for err != nil {
		var de *DomainError
		if !errors.As(err, &de) {
			return false
		}
		if de.Type == t {
			return true
		}
		err = de.Err
	}
	return false
}

// Common error constructors
func UnsupportedTypeError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnsupportedType, message, err)
}

func DecodeError(message string, err error) *DomainError {
	return NewError(ErrorTypeDecode, message, err)
}

func DocumentOpenError(message string, err error) *DomainError {
	return NewError(ErrorTypeDocumentOpen, message, err)
}

func MissingPromptError(message string, err error) *DomainError {
	return NewError(ErrorTypeMissingPrompt, message, err)
}

func GenerationError(message string, err error) *DomainError {
	return NewError(ErrorTypeGeneration, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}
