package inventory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-hw/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hw/native"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.InventoryConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "inventory.db"),
		WALMode:     true,
		BusyTimeout: 1,
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func testInfo(serial int64) native.AttachInfo {
	return native.AttachInfo{
		Class:        native.ClassVoltageInput,
		SerialNumber: serial,
		HubPort:      2,
		ChannelIndex: 0,
		Label:        "greenhouse",
	}
}

func TestOpen_Disabled(t *testing.T) {
	_, err := Open(config.InventoryConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Open() error = %v, want ErrDisabled", err)
	}
}

func TestRecordAndHistory(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	info := testInfo(12345)

	if err := store.RecordAttach(ctx, info); err != nil {
		t.Fatalf("RecordAttach() error = %v", err)
	}
	if err := store.RecordDetach(ctx, info); err != nil {
		t.Fatalf("RecordDetach() error = %v", err)
	}

	events, err := store.History(ctx, 12345, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("History() returned %d events, want 2", len(events))
	}

	// Newest first.
	if events[0].Event != "detach" {
		t.Errorf("events[0].Event = %q, want detach", events[0].Event)
	}
	if events[1].Event != "attach" {
		t.Errorf("events[1].Event = %q, want attach", events[1].Event)
	}

	got := events[0]
	if got.SerialNumber != 12345 {
		t.Errorf("SerialNumber = %d, want 12345", got.SerialNumber)
	}
	if got.Class != "voltage_input" {
		t.Errorf("Class = %q, want voltage_input", got.Class)
	}
	if got.HubPort != 2 {
		t.Errorf("HubPort = %d, want 2", got.HubPort)
	}
	if got.Label != "greenhouse" {
		t.Errorf("Label = %q, want greenhouse", got.Label)
	}
}

func TestHistory_FiltersBySerial(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.RecordAttach(ctx, testInfo(111)); err != nil {
		t.Fatalf("RecordAttach() error = %v", err)
	}
	if err := store.RecordAttach(ctx, testInfo(222)); err != nil {
		t.Fatalf("RecordAttach() error = %v", err)
	}

	events, err := store.History(ctx, 111, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("History() returned %d events, want 1", len(events))
	}
	if events[0].SerialNumber != 111 {
		t.Errorf("SerialNumber = %d, want 111", events[0].SerialNumber)
	}
}

func TestHistory_LimitClamped(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	info := testInfo(333)

	for i := 0; i < 5; i++ {
		if err := store.RecordAttach(ctx, info); err != nil {
			t.Fatalf("RecordAttach() error = %v", err)
		}
	}

	events, err := store.History(ctx, 333, 3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 3 {
		t.Errorf("History() returned %d events, want 3", len(events))
	}
}

func TestClosedStore(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := store.RecordAttach(ctx, testInfo(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("RecordAttach() after close error = %v, want ErrClosed", err)
	}
	if _, err := store.History(ctx, 1, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("History() after close error = %v, want ErrClosed", err)
	}

	// Second Close is a no-op.
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
