package native

import (
	"errors"
	"fmt"
)

// Sentinel errors for the hardware layer.
//
// Every public operation that crosses into the native runtime surfaces one of
// these on failure. Check with errors.Is():
//
//	if errors.Is(err, native.ErrNotAttached) {
//	    // channel has no hardware behind it right now
//	}
var (
	// ErrUnsupported is returned when a property or operation is not
	// supported by the device class.
	ErrUnsupported = errors.New("hw: unsupported")

	// ErrInvalidArgument is returned when a filter, property or value is
	// malformed or of the wrong type.
	ErrInvalidArgument = errors.New("hw: invalid argument")

	// ErrNotAttached is returned when an operation requires attached
	// hardware and none is present. Distinct from ErrTimeout: the hardware
	// arrived and left, or was never opened.
	ErrNotAttached = errors.New("hw: not attached")

	// ErrTimeout is returned when an operation did not complete in time,
	// in particular when hardware never attached within the wait window.
	ErrTimeout = errors.New("hw: timed out")

	// ErrPermissionDenied is returned when the runtime refuses access,
	// typically missing USB access rights.
	ErrPermissionDenied = errors.New("hw: permission denied")

	// ErrResourceExhausted is returned when the runtime cannot allocate a
	// handle or internal resource.
	ErrResourceExhausted = errors.New("hw: resource exhausted")

	// ErrAlreadyOpen is returned when opening an already-open channel or
	// starting an already-started manager.
	ErrAlreadyOpen = errors.New("hw: already open")

	// ErrInternal wraps runtime status codes with no more specific mapping.
	ErrInternal = errors.New("hw: internal runtime error")

	// ErrNoRuntime is returned by Default when no vendor adapter has
	// registered a Runtime for this process.
	ErrNoRuntime = errors.New("hw: no native runtime registered")
)

// Translate maps a native status code to one of the sentinel errors above.
// CodeOK translates to nil. Unknown codes wrap ErrInternal and retain the
// numeric value in the message.
func Translate(code Code) error {
	switch code {
	case CodeOK:
		return nil
	case CodeUnsupported:
		return ErrUnsupported
	case CodeInvalidArgument:
		return ErrInvalidArgument
	case CodeNotAttached:
		return ErrNotAttached
	case CodeTimeout:
		return ErrTimeout
	case CodePermission:
		return ErrPermissionDenied
	case CodeNoResources:
		return ErrResourceExhausted
	case CodeBusy, CodeDuplicate:
		return ErrAlreadyOpen
	default:
		return fmt.Errorf("%w: code %d", ErrInternal, int(code))
	}
}
