package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeVendor represents errors embedded in a vendor API payload
	ErrorTypeVendor ErrorType = "vendor"
	// ErrorTypeParsing represents HTML/JSON parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeStorage represents event store errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents source configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CollectError represents an error raised while collecting one source
type CollectError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CollectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *CollectError) Unwrap() error {
	return e.Err
}

// New creates a new CollectError
func New(errType ErrorType, source, message string, err error) *CollectError {
	return &CollectError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *CollectError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewVendor creates a new vendor payload error
func NewVendor(source, code, message string) *CollectError {
	return New(ErrorTypeVendor, source, fmt.Sprintf("%s: %s", code, message), nil)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *CollectError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewStorage creates a new storage error
func NewStorage(source, message string, err error) *CollectError {
	return New(ErrorTypeStorage, source, message, err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *CollectError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(source, message string, err error) *CollectError {
	return New(ErrorTypeConfiguration, source, message, err)
}
