// Package native defines the call surface of the vendor hardware-control
// runtime consumed by Gray Logic HW.
//
// The runtime itself (device discovery, USB/network transport, firmware
// protocol, calibration) lives outside this repository and is reached only
// through the Runtime interface. A vendor adapter registers a concrete
// implementation via Register; tests inject one directly.
//
// # Handles
//
// Every hardware channel is addressed through an opaque Handle issued by
// Acquire and returned to the runtime by Release. Conforming runtimes never
// reuse a released handle value; a fresh Acquire always yields a new token.
// Zero is never a valid handle.
//
// # Status codes and errors
//
// Every runtime call returns a Code. Translate maps codes onto a small set of
// sentinel errors (ErrNotAttached, ErrTimeout, ...) that callers branch on
// with errors.Is. Codes outside the well-known set wrap ErrInternal and carry
// the raw value for diagnostics.
//
// # Callback contract
//
// The runtime invokes registered handlers on its own internal threads,
// asynchronously with respect to any call the host program makes. Passing a
// nil handler deregisters the slot; a conforming runtime returns from the
// deregistration call only once it guarantees no new invocation of that
// handler will begin. Rapid successive change events may be coalesced by the
// runtime; this layer documents that behaviour and does not work around it.
package native
