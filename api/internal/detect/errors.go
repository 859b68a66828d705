package detect

import (
	"errors"
	"fmt"
)

// TransportError is a failure reaching the vision model (network, auth, quota, deadline).
type TransportError struct {
	Engine string
	Err    error
}

func NewTransportError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Engine: engine, Err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Engine, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError means the model reply does not match the declared shape.
// Raw keeps the reply exactly as received.
type ParseError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse model reply: %s: %v", e.Reason, e.Err)
	}
	return "parse model reply: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValueError is an invalid geometry or request input.
type ValueError struct {
	Field string
	Msg   string
}

func (e *ValueError) Error() string {
	if e.Field == "" {
		return "invalid value: " + e.Msg
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func IsValue(err error) bool {
	var ve *ValueError
	return errors.As(err, &ve)
}
