// Package inventory persists hardware attachment history in SQLite.
//
// Every attach and detach observed by the hardware layer is appended to a
// local database, giving installers an answer to "when was this sensor last
// seen" that survives restarts. The store is append-only; rows are never
// updated or deleted by the hardware layer.
//
// # Schema
//
//	attach_events(id, event, serial_number, class, hub_port,
//	              channel_index, label, created_at)
//
// # Storage
//
// The database uses WAL mode for concurrent reads during writes and a busy
// timeout to ride out short lock contention. The file is created with 0600
// permissions.
//
// Usage:
//
//	store, err := inventory.Open(cfg.Inventory)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	store.RecordAttach(ctx, info)
package inventory
