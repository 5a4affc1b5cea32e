package channel

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hw/native"
	"github.com/nerrad567/gray-logic-hw/native/nativetest"
)

// openAttached returns a channel opened and attached to device serial 12345.
func openAttached(t *testing.T, rt *nativetest.Runtime) *Channel {
	t.Helper()
	rt.Plug(voltageDevice(12345))
	c := newVoltageChannel(t, rt)
	if err := c.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := c.WaitForAttachment(time.Second); err != nil {
		t.Fatalf("WaitForAttachment() error = %v", err)
	}
	return c
}

// =============================================================================
// Registration
// =============================================================================

func TestRegisterRequiresOpenChannel(t *testing.T) {
	rt := nativetest.New()
	c := newVoltageChannel(t, rt)

	if err := c.OnChange(func(native.Property, native.Value) {}); !errors.Is(err, native.ErrNotAttached) {
		t.Errorf("OnChange() on unopened channel = %v, want ErrNotAttached", err)
	}

	if err := c.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := c.OnChange(func(native.Property, native.Value) {}); err != nil {
		t.Errorf("OnChange() on open channel = %v, want nil", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.OnAttach(func(native.AttachInfo) {}); !errors.Is(err, native.ErrNotAttached) {
		t.Errorf("OnAttach() on closed channel = %v, want ErrNotAttached", err)
	}
}

func TestLastRegistrationWins(t *testing.T) {
	rt := nativetest.New()
	c := openAttached(t, rt)
	defer c.Close()

	var first, second int
	if err := c.OnChange(func(native.Property, native.Value) { first++ }); err != nil {
		t.Fatalf("OnChange() error = %v", err)
	}
	if err := c.OnChange(func(native.Property, native.Value) { second++ }); err != nil {
		t.Fatalf("OnChange() error = %v", err)
	}

	rt.DeliverChange(12345, native.PropVoltage, native.FloatValue(1.0))
	if first != 0 || second != 1 {
		t.Errorf("handler invocations = (%d, %d), want (0, 1)", first, second)
	}
}

// =============================================================================
// Delivery
// =============================================================================

func TestChangeEventsDeliveredInOrder(t *testing.T) {
	rt := nativetest.New()
	c := openAttached(t, rt)
	defer c.Close()

	const n = 100
	var mu sync.Mutex
	var seen []float64
	if err := c.OnChange(func(_ native.Property, v native.Value) {
		mu.Lock()
		seen = append(seen, v.Float)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("OnChange() error = %v", err)
	}

	for i := 0; i < n; i++ {
		rt.DeliverChange(12345, native.PropVoltage, native.FloatValue(float64(i)))
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != n {
		t.Fatalf("handler observed %d events, want %d", len(seen), n)
	}
	for i, v := range seen {
		if v != float64(i) {
			t.Fatalf("event %d carried %v, want %v (reordered or dropped)", i, v, float64(i))
		}
	}
}

func TestAttachAndDetachHandlers(t *testing.T) {
	rt := nativetest.New()
	c := newVoltageChannel(t, rt)
	if err := c.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	var attaches []native.AttachInfo
	detaches := 0
	if err := c.OnAttach(func(info native.AttachInfo) { attaches = append(attaches, info) }); err != nil {
		t.Fatalf("OnAttach() error = %v", err)
	}
	if err := c.OnDetach(func() { detaches++ }); err != nil {
		t.Fatalf("OnDetach() error = %v", err)
	}

	rt.Plug(voltageDevice(12345))
	rt.Unplug(12345)
	rt.Plug(voltageDevice(12345))

	if len(attaches) != 2 || detaches != 1 {
		t.Fatalf("attaches = %d, detaches = %d, want 2 and 1", len(attaches), detaches)
	}
	if attaches[0].SerialNumber != 12345 {
		t.Errorf("attach info serial = %d, want 12345", attaches[0].SerialNumber)
	}
}

func TestErrorEventTranslated(t *testing.T) {
	rt := nativetest.New()
	c := openAttached(t, rt)
	defer c.Close()

	var got error
	if err := c.OnError(func(err error) { got = err }); err != nil {
		t.Fatalf("OnError() error = %v", err)
	}

	rt.DeliverError(12345, native.CodeUnexpected, "bus fault")
	if !errors.Is(got, native.ErrInternal) {
		t.Errorf("error handler received %v, want ErrInternal", got)
	}
}

func TestCachedValueTracksChanges(t *testing.T) {
	rt := nativetest.New()
	c := openAttached(t, rt)
	defer c.Close()

	if _, ok := c.CachedValue(native.PropVoltage); ok {
		t.Error("CachedValue() reported a value before any change event")
	}

	rt.DeliverChange(12345, native.PropVoltage, native.FloatValue(2.5))
	v, ok := c.CachedValue(native.PropVoltage)
	if !ok || v.Float != 2.5 {
		t.Errorf("CachedValue() = (%+v, %v), want 2.5", v, ok)
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	rt := nativetest.New()
	c := openAttached(t, rt)

	if err := c.OnChange(func(native.Property, native.Value) { panic("faulty handler") }); err != nil {
		t.Fatalf("OnChange() error = %v", err)
	}

	// Must not propagate, and the in-flight counter must still drain so
	// Close does not hang.
	rt.DeliverChange(12345, native.PropVoltage, native.FloatValue(1.0))

	done := make(chan error, 1)
	go func() { done <- c.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close() after handler panic = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close() hung after handler panic: in-flight counter leaked")
	}
}

// =============================================================================
// Rundown
// =============================================================================

func TestCloseWaitsForInFlightHandler(t *testing.T) {
	rt := nativetest.New()
	c := openAttached(t, rt)

	handlerStarted := make(chan struct{})
	var handlerDone time.Time
	if err := c.OnChange(func(native.Property, native.Value) {
		close(handlerStarted)
		time.Sleep(50 * time.Millisecond)
		handlerDone = time.Now()
	}); err != nil {
		t.Fatalf("OnChange() error = %v", err)
	}

	// Deliver on a separate goroutine, standing in for the runtime's
	// delivery thread.
	go rt.DeliverChange(12345, native.PropVoltage, native.FloatValue(1.0))
	<-handlerStarted

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	closeReturned := time.Now()

	releasedAt, ok := rt.ReleasedAt(1)
	if !ok {
		t.Fatal("native handle was never released")
	}
	if handlerDone.IsZero() {
		t.Fatal("Close() returned before the in-flight handler completed")
	}
	if releasedAt.Before(handlerDone) {
		t.Errorf("handle released at %v, before handler completed at %v", releasedAt, handlerDone)
	}
	if closeReturned.Before(handlerDone) {
		t.Errorf("Close() returned at %v, before handler completed at %v", closeReturned, handlerDone)
	}
}

func TestCloseConcurrentWithDelivery(t *testing.T) {
	// Hammer close against a stream of deliveries; the race detector and
	// the fake's double-release check do the judging.
	for i := 0; i < 20; i++ {
		rt := nativetest.New()
		c := openAttached(t, rt)

		if err := c.OnChange(func(native.Property, native.Value) {
			time.Sleep(time.Millisecond)
		}); err != nil {
			t.Fatalf("OnChange() error = %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				rt.DeliverChange(12345, native.PropVoltage, native.FloatValue(float64(j)))
			}
		}()

		time.Sleep(time.Duration(i%5) * time.Millisecond)
		if err := c.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		wg.Wait()

		if !rt.Released(native.Handle(1)) {
			t.Fatal("handle not released")
		}
	}
}

func TestNoDeliveryAfterClose(t *testing.T) {
	rt := nativetest.New()
	c := openAttached(t, rt)

	invocations := 0
	if err := c.OnChange(func(native.Property, native.Value) { invocations++ }); err != nil {
		t.Fatalf("OnChange() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Even an event reaching a stale adapter directly must be dropped.
	c.dispatchChange(1, native.PropVoltage, native.FloatValue(9.9))
	if invocations != 0 {
		t.Errorf("handler invoked %d times after Close(), want 0", invocations)
	}
}
