package fixup

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for the tracking and fixup operations.
var (
	// ErrInvalidState is returned when an operation is not allowed for the
	// current attachment state of an entity.
	ErrInvalidState = errors.New("fixup: invalid entity state")

	// ErrConflictingLinkage is returned when two sources of relationship
	// information imply different principals for one dependent.
	ErrConflictingLinkage = errors.New("fixup: conflicting linkage")

	// ErrConfig is returned when the relationship metadata does not describe
	// an entity kind, property or foreign key that was referenced.
	ErrConfig = errors.New("fixup: configuration error")

	// ErrIdentityConflict is returned when two distinct objects of one kind
	// with the same key are attached to a single tracker.
	ErrIdentityConflict = errors.New("fixup: identity conflict")
)

// InvalidStateError is returned when attaching or mutating an entity whose
// state does not allow it, e.g. re-attaching a deleted entity.
type InvalidStateError struct {
	Entity string      // Entity kind name
	From   EntityState // Current state
	To     EntityState // Requested state (equal to From for mutations)
	Op     string      // Operation (e.g., "attach", "set-state", "write")
}

// Error returns the error string.
func (e *InvalidStateError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("fixup: cannot %s %s in state %s", e.Op, e.Entity, e.From)
	}
	return fmt.Sprintf("fixup: cannot %s %s from state %s to %s", e.Op, e.Entity, e.From, e.To)
}

// Is reports whether the target error matches InvalidStateError.
// This allows errors.Is(err, ErrInvalidState) to return true.
func (e *InvalidStateError) Is(err error) bool {
	return err == ErrInvalidState
}

// NewInvalidStateError returns a new InvalidStateError.
func NewInvalidStateError(entity, op string, from, to EntityState) *InvalidStateError {
	return &InvalidStateError{Entity: entity, Op: op, From: from, To: to}
}

// IsInvalidState returns true if the error is an InvalidStateError.
func IsInvalidState(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidStateError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidState)
}

// ConflictingLinkageError is returned when the navigations of a dependent
// and of one or more principals disagree about which principal the
// dependent belongs to. It is fatal to the call that detected it.
type ConflictingLinkageError struct {
	Relationship string
	Dependent    any // Key of the dependent
	Principals   []any
}

// Error returns the error string.
func (e *ConflictingLinkageError) Error() string {
	parts := make([]string, len(e.Principals))
	for i, p := range e.Principals {
		parts[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("fixup: relationship %s: dependent %v is linked to conflicting principals [%s]",
		e.Relationship, e.Dependent, strings.Join(parts, ", "))
}

// Is reports whether the target error matches ConflictingLinkageError.
func (e *ConflictingLinkageError) Is(err error) bool {
	return err == ErrConflictingLinkage
}

// NewConflictingLinkageError returns a new ConflictingLinkageError.
func NewConflictingLinkageError(rel string, dependent any, principals ...any) *ConflictingLinkageError {
	return &ConflictingLinkageError{Relationship: rel, Dependent: dependent, Principals: principals}
}

// IsConflictingLinkage returns true if the error is a ConflictingLinkageError.
func IsConflictingLinkage(err error) bool {
	if err == nil {
		return false
	}
	var e *ConflictingLinkageError
	return errors.As(err, &e) || errors.Is(err, ErrConflictingLinkage)
}

// ConfigError reports missing or invalid relationship metadata.
type ConfigError struct {
	Entity string // Entity kind or Go type
	Name   string // Property, navigation or relationship name (optional)
	Msg    string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("fixup: %s.%s: %s", e.Entity, e.Name, e.Msg)
	}
	return fmt.Sprintf("fixup: %s: %s", e.Entity, e.Msg)
}

// Is reports whether the target error matches ConfigError.
func (e *ConfigError) Is(err error) bool {
	return err == ErrConfig
}

// NewConfigError returns a new ConfigError.
func NewConfigError(entity, name, format string, args ...any) *ConfigError {
	return &ConfigError{Entity: entity, Name: name, Msg: fmt.Sprintf(format, args...)}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e) || errors.Is(err, ErrConfig)
}

// IdentityConflictError is returned when an object is attached while
// another instance with the same key is already tracked.
type IdentityConflictError struct {
	Entity string
	Key    any
}

// Error returns the error string.
func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("fixup: another %s instance with key %v is already tracked", e.Entity, e.Key)
}

// Is reports whether the target error matches IdentityConflictError.
func (e *IdentityConflictError) Is(err error) bool {
	return err == ErrIdentityConflict
}

// NewIdentityConflictError returns a new IdentityConflictError.
func NewIdentityConflictError(entity string, key any) *IdentityConflictError {
	return &IdentityConflictError{Entity: entity, Key: key}
}

// IsIdentityConflict returns true if the error is an IdentityConflictError.
func IsIdentityConflict(err error) bool {
	if err == nil {
		return false
	}
	var e *IdentityConflictError
	return errors.As(err, &e) || errors.Is(err, ErrIdentityConflict)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "fixup: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("fixup: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors so errors.Is and errors.As inspect each of them.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
