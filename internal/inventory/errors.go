package inventory

import "errors"

// Sentinel errors for inventory operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDisabled indicates the inventory store is disabled in config.
	ErrDisabled = errors.New("inventory: disabled in configuration")

	// ErrClosed indicates an operation on a closed store.
	ErrClosed = errors.New("inventory: store closed")
)
