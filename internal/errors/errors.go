// Package errors provides the closed set of tagged errors raised by
// the slot pool allocator.
package errors

import "fmt"

// Kind is one of the closed set of failure categories the pool allocator
// can raise. Every error the allocator returns carries exactly one Kind.
type Kind string

const (
	// OutOfMemory is raised when the system heap refuses a bulk page or
	// external-descriptor allocation.
	OutOfMemory Kind = "out-of-memory"
	// NoPages is raised by Acquire when the free list is empty and the
	// page cap has already been reached.
	NoPages Kind = "no-pages"
	// MultipleFree is raised by Release in debug mode when the argument
	// address is already present on the free list.
	MultipleFree Kind = "multiple-free"
	// BadBoundary is raised by Release in debug mode when the argument
	// falls outside every page, or is not aligned to a slot boundary
	// within its page.
	BadBoundary Kind = "bad-boundary"
	// CorruptedBlock is raised by Release in debug mode when the pad
	// bytes adjacent to the user region no longer match the pad
	// signature.
	CorruptedBlock Kind = "corrupted-block"
	// ConfigurationInvalid is raised at construction when page geometry
	// cannot be built from the supplied configuration.
	ConfigurationInvalid Kind = "configuration-invalid"
)

// PoolError is the concrete error type for every failure the allocator
// raises. It is a leaf error: it wraps nothing, it IS the error.
type PoolError struct {
	Kind    Kind
	Op      string
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *PoolError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}

	return fmt.Sprintf("%s: %s %v", e.Op, e.Kind, e.Context)
}

// Is reports whether target is a *PoolError of the same Kind, so callers
// can write errors.Is(err, errors.New(errors.MultipleFree, "", nil)) or,
// more idiomatically, compare against the Kind directly via AsKind.
func (e *PoolError) Is(target error) bool {
	other, ok := target.(*PoolError)
	if !ok {
		return false
	}

	return other.Kind == e.Kind
}

// New builds a *PoolError of the given kind, operation, and context.
func New(kind Kind, op string, context map[string]interface{}) *PoolError {
	return &PoolError{Kind: kind, Op: op, Context: context}
}

// Sentinel errors, one per Kind, for the errors.Is/errors.As idiom:
//
//	if errors.Is(err, errors.ErrNoPages) { ... }
//
//	var pe *errors.PoolError
//	if errors.As(err, &pe) { ... pe.Context ... }
//
// PoolError.Is compares Kind only, so any *PoolError of a given kind
// (regardless of Op/Context) matches its sentinel here.
var (
	ErrOutOfMemory          error = New(OutOfMemory, "", nil)
	ErrNoPages              error = New(NoPages, "", nil)
	ErrMultipleFree         error = New(MultipleFree, "", nil)
	ErrBadBoundary          error = New(BadBoundary, "", nil)
	ErrCorruptedBlock       error = New(CorruptedBlock, "", nil)
	ErrConfigurationInvalid error = New(ConfigurationInvalid, "", nil)
)

// AsKind reports the Kind of err if it is a *PoolError, and whether the
// assertion succeeded.
func AsKind(err error) (Kind, bool) {
	pe, ok := err.(*PoolError)
	if !ok {
		return "", false
	}

	return pe.Kind, true
}

// Common constructors, one per kind, mirroring the spec's closed table.

func OutOfMemoryErr(op string, context map[string]interface{}) *PoolError {
	return New(OutOfMemory, op, context)
}

func NoPagesErr(op string, context map[string]interface{}) *PoolError {
	return New(NoPages, op, context)
}

func MultipleFreeErr(op string, context map[string]interface{}) *PoolError {
	return New(MultipleFree, op, context)
}

func BadBoundaryErr(op string, context map[string]interface{}) *PoolError {
	return New(BadBoundary, op, context)
}

func CorruptedBlockErr(op string, context map[string]interface{}) *PoolError {
	return New(CorruptedBlock, op, context)
}

func ConfigurationInvalidErr(op string, context map[string]interface{}) *PoolError {
	return New(ConfigurationInvalid, op, context)
}
