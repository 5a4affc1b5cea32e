// Package channel implements the safe lifecycle layer over one native
// hardware channel.
//
// A Channel owns at most one native handle at a time and drives it through a
// fixed state machine:
//
//	Unopened → Opening → Attached ⇄ Detached → Closed
//
// Open acquires the handle, registers callback adapters with the runtime and
// asks it to begin matching hardware; attachment is asynchronous and may
// never happen. Callers either block on WaitForAttachment or register an
// attach handler and proceed. Close deregisters all handlers, waits out any
// in-flight callback (rundown) and only then releases the handle, so no
// handler ever observes a freed handle. Close is idempotent and a closed
// Channel may be reopened.
//
// # Event bridge
//
// The native runtime invokes callbacks on its own delivery threads. The
// bridge translates them into the Channel's events and invokes the
// user-registered handler synchronously on that thread, guarded by an
// in-flight counter. Handlers must return promptly: a blocking handler stalls
// the runtime's delivery thread for every channel sharing it. Per-channel
// event order matches native delivery order; nothing is queued or reordered
// here. The runtime itself may coalesce rapid change events.
//
// # Typed properties
//
// Get and Set are generic over the small set of property value types. The
// per-class property tables in the native package reject foreign properties
// and wrong-kinded values before the runtime is touched; the devices package
// layers compile-time-typed wrappers on top.
//
// All methods are safe for concurrent use. The only blocking points are
// WaitForAttachment (bounded by its timeout) and Close (bounded by handler
// runtime during rundown).
package channel
