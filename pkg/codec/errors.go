package codec

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a protocol error.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	// KindInsufficientData means the buffer ends before the data it should hold.
	KindInsufficientData
	// KindMalformedOffset means an offset or length prefix points outside the variable block.
	KindMalformedOffset
	// KindLengthLimitExceeded means a string, array or map declares more than its maximum.
	KindLengthLimitExceeded
	// KindUndefinedEnumValue means an integer has no matching enum constant or union variant.
	KindUndefinedEnumValue
	// KindConstraintViolation means an in-memory value cannot be serialized under its schema.
	KindConstraintViolation
)

var kindNames = [...]string{
	KindNone:                "none",
	KindInsufficientData:    "insufficient data",
	KindMalformedOffset:     "malformed offset",
	KindLengthLimitExceeded: "length limit exceeded",
	KindUndefinedEnumValue:  "undefined enum value",
	KindConstraintViolation: "serialization constraint violation",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Sentinels for errors.Is matching. Only the Kind is compared.
var (
	ErrInsufficientData    = &ProtocolError{Kind: KindInsufficientData}
	ErrMalformedOffset     = &ProtocolError{Kind: KindMalformedOffset}
	ErrLengthLimitExceeded = &ProtocolError{Kind: KindLengthLimitExceeded}
	ErrUndefinedEnumValue  = &ProtocolError{Kind: KindUndefinedEnumValue}
	ErrConstraintViolation = &ProtocolError{Kind: KindConstraintViolation}
)

// ProtocolError is returned by every decode and encode path in this package.
// It is fatal for the call that produced it and carries no retry semantics.
type ProtocolError struct {
	Kind  ErrorKind
	Type  string // schema name, innermost first
	Field string
	Msg   string
	Err   error // underlying cause, if any
}

func (e *ProtocolError) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	switch {
	case e.Type != "" && e.Field != "":
		return fmt.Sprintf("codec: %s.%s: %s", e.Type, e.Field, msg)
	case e.Type != "":
		return fmt.Sprintf("codec: %s: %s", e.Type, msg)
	}
	return "codec: " + msg
}

// Is reports whether target is a ProtocolError of the same kind.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Kind == e.Kind
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// limitViolation is the write-side error for a length bound. It is a
// constraint violation that also matches ErrLengthLimitExceeded.
func limitViolation(format string, args ...interface{}) *ProtocolError {
	e := newError(KindConstraintViolation, format, args...)
	e.Err = ErrLengthLimitExceeded
	return e
}

// annotate fills in the type and field of a ProtocolError that does not
// carry them yet, so the innermost location wins.
func annotate(err error, typeName, field string) error {
	var pe *ProtocolError
	if errors.As(err, &pe) && pe.Type == "" {
		pe.Type = typeName
		pe.Field = field
	}
	return err
}

// KindOf returns the kind of a ProtocolError anywhere in err's chain.
func KindOf(err error) ErrorKind {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindNone
}

// ValidationResult is the non-throwing outcome of a structural pre-check.
type ValidationResult struct {
	OK     bool      `json:"ok"`
	Kind   ErrorKind `json:"kind,omitempty"`
	Reason string    `json:"reason,omitempty"`
	err    error
}

// Valid returns a passing result.
func Valid() ValidationResult {
	return ValidationResult{OK: true}
}

// Invalid converts err into a failing result.
func Invalid(err error) ValidationResult {
	return ValidationResult{Kind: KindOf(err), Reason: err.Error(), err: err}
}

// Err returns nil for a passing result and a ProtocolError otherwise.
func (r ValidationResult) Err() error {
	if r.OK {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return &ProtocolError{Kind: r.Kind, Msg: r.Reason}
}

// MarshalText lets the kind appear by name in JSON output.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
