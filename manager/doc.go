// Package manager observes the set of devices currently attached to the
// native runtime, process-wide.
//
// A Manager registers attach/detach observers with the runtime's discovery
// mechanism on Start, maintains a snapshot of attached devices, and forwards
// notifications to the caller's handlers. Stop deregisters the observers and
// follows the same rundown discipline as a channel close: no notification may
// begin after Stop starts, and Stop does not return while one is executing.
//
// The snapshot is mutated only by the runtime's delivery threads under the
// manager's lock and may be read concurrently via Snapshot.
package manager
