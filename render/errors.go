package render

import (
	"errors"
	"fmt"
)

// ErrConstruction means a shader program could not be built: its
// stages declare conflicting slots or the backend rejected the source.
var ErrConstruction = errors.New("render: construction failed")

// ErrTypeMismatch means a value's shape disagrees with the declared
// type of the slot it was meant for. The slot keeps its prior state.
var ErrTypeMismatch = errors.New("render: type mismatch")

// ErrValidation means a program is not ready to draw. Errors wrapping
// it are *ValidationError values naming the offending slot.
var ErrValidation = errors.New("render: validation failed")

// ErrUsage means the caller broke the API contract.
var ErrUsage = errors.New("render: usage error")

// ErrDevice means the backend reported an asynchronous error.
var ErrDevice = errors.New("render: device error")

// Usage refinements. All of them satisfy errors.Is(err, ErrUsage).
var (
	ErrInvalidDimension  = fmt.Errorf("%w: invalid dimension", ErrUsage)
	ErrUnknownAttachment = fmt.Errorf("%w: unknown attachment", ErrUsage)
	ErrUnknownSlot       = fmt.Errorf("%w: unknown slot", ErrUsage)
	ErrNotAllocated      = fmt.Errorf("%w: buffer not allocated", ErrUsage)
	ErrOutOfBounds       = fmt.Errorf("%w: out of bounds", ErrUsage)
	ErrNotInitialized    = fmt.Errorf("%w: engine not initialized", ErrUsage)
	ErrReleased          = fmt.Errorf("%w: resource already released", ErrUsage)
)

// ValidationError reports why a program cannot draw.
type ValidationError struct {
	// Slot is the uniform, attribute or texture at fault.
	Slot string
	// Other is the second attribute of a length mismatch.
	Other  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Other != "" {
		return fmt.Sprintf("render: validation failed: %s: %q and %q", e.Reason, e.Slot, e.Other)
	}
	return fmt.Sprintf("render: validation failed: %s: %q", e.Reason, e.Slot)
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
