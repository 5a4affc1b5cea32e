package channel

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hw/native"
)

// State is the lifecycle state of a Channel within one open/close cycle.
type State int

// Channel lifecycle states. Transitions are monotonic within a cycle except
// for Attached ⇄ Detached, which follows physical plug events.
const (
	StateUnopened State = iota
	StateOpening
	StateAttached
	StateDetached
	StateClosed
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpening:
		return "opening"
	case StateAttached:
		return "attached"
	case StateDetached:
		return "detached"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// WaitForever makes WaitForAttachment block until hardware attaches.
const WaitForever time.Duration = -1

// handlerSet holds the four user handler slots, at most one per event kind.
type handlerSet struct {
	attach func(native.AttachInfo)
	detach func()
	err    func(error)
	change func(native.Property, native.Value)
}

// Channel is the exclusive owner of one native handle and the single place
// where caller goroutines and the runtime's delivery threads meet. All shared
// mutable state (state machine, handler slots, in-flight counter, value
// cache) lives behind one mutex; the mutex is never held across a call into
// the native runtime.
type Channel struct {
	rt    native.Runtime
	class native.DeviceClass
	props map[native.Property]native.ValueKind
	log   Logger

	mu     sync.Mutex
	filter native.OpenFilter
	state  State
	gen    uint64
	handle native.Handle
	info   native.AttachInfo

	// opening is true while Open is between its native calls, when the
	// state is already Opening but the handle may not be stored yet. A
	// concurrent Close waits for it to clear before tearing down.
	opening bool

	// inflight counts callback invocations currently executing. Close
	// waits for it to drain before releasing the handle.
	inflight int

	// broadcast is closed and replaced on every state or inflight
	// transition, waking WaitForAttachment and rundown waiters.
	broadcast chan struct{}

	handlers handlerSet
	cache    map[native.Property]native.Value
}

// New creates an unopened Channel for the given device class. No native
// resource is touched until Open.
//
// Returns native.ErrInvalidArgument for an unknown class or an inconsistent
// filter, and native.ErrNoRuntime when no runtime is injected or registered.
func New(class native.DeviceClass, opts ...Option) (*Channel, error) {
	props := native.Properties(class)
	if props == nil {
		return nil, fmt.Errorf("%w: unknown device class %d", native.ErrInvalidArgument, int(class))
	}

	c := &Channel{
		class:     class,
		props:     props,
		log:       noopLogger{},
		filter:    native.AnyFilter(class),
		state:     StateUnopened,
		broadcast: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := validateFilter(c.filter); err != nil {
		return nil, err
	}

	if c.rt == nil {
		rt, err := native.Default()
		if err != nil {
			return nil, err
		}
		c.rt = rt
	}
	return c, nil
}

// validateFilter checks that the serial / hub-port / channel-index criteria
// are mutually consistent before any native resource is acquired.
func validateFilter(f native.OpenFilter) error {
	if f.IsHubPortDevice && f.HubPort < 0 {
		return fmt.Errorf("%w: hub port device requires a hub port", native.ErrInvalidArgument)
	}
	if f.IsHubPortDevice && f.ChannelIndex >= 0 {
		return fmt.Errorf("%w: hub port device cannot filter by channel index", native.ErrInvalidArgument)
	}
	return nil
}

// Class returns the device class the Channel was created for.
func (c *Channel) Class() native.DeviceClass { return c.class }

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attached reports whether hardware currently backs the Channel.
func (c *Channel) Attached() bool { return c.State() == StateAttached }

// AttachedInfo returns the resolved identity discovered at attach time. The
// second result is false unless the Channel is currently attached.
func (c *Channel) AttachedInfo() (native.AttachInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info, c.state == StateAttached
}

// Open acquires a native handle, registers the callback adapters and asks the
// runtime to begin matching hardware. It returns before attachment; use
// WaitForAttachment or OnAttach to learn when hardware arrives.
//
// Fails with native.ErrAlreadyOpen if the Channel is already open.
func (c *Channel) Open() error {
	c.mu.Lock()
	switch c.state {
	case StateUnopened, StateClosed:
	default:
		c.mu.Unlock()
		return fmt.Errorf("open %s channel: %w", c.class, native.ErrAlreadyOpen)
	}
	prev := c.state
	c.state = StateOpening
	c.opening = true
	c.gen++
	gen := c.gen
	c.cache = make(map[native.Property]native.Value)
	filter := c.filter
	c.bumpLocked()
	c.mu.Unlock()

	fail := func(h native.Handle, code native.Code) error {
		if h != 0 {
			c.rt.Release(h)
		}
		c.mu.Lock()
		c.state = prev
		c.opening = false
		c.bumpLocked()
		c.mu.Unlock()
		return fmt.Errorf("open %s channel: %w", c.class, native.Translate(code))
	}

	h, code := c.rt.Acquire(c.class)
	if code != native.CodeOK {
		return fail(0, code)
	}

	// Adapters are bound to this open cycle's generation so callbacks
	// racing from a previous cycle are dropped at dispatch.
	if code := c.rt.SetOnAttachHandler(h, func(info native.AttachInfo) {
		c.dispatchAttach(gen, info)
	}); code != native.CodeOK {
		return fail(h, code)
	}
	if code := c.rt.SetOnDetachHandler(h, func() {
		c.dispatchDetach(gen)
	}); code != native.CodeOK {
		return fail(h, code)
	}
	if code := c.rt.SetOnErrorHandler(h, func(ec native.Code, msg string) {
		c.dispatchError(gen, ec, msg)
	}); code != native.CodeOK {
		return fail(h, code)
	}
	if code := c.rt.SetOnChangeHandler(h, func(p native.Property, v native.Value) {
		c.dispatchChange(gen, p, v)
	}); code != native.CodeOK {
		return fail(h, code)
	}

	// The handle must be visible before matching begins: the runtime may
	// deliver the attach callback synchronously from Open.
	c.mu.Lock()
	c.handle = h
	c.mu.Unlock()

	if code := c.rt.Open(h, filter); code != native.CodeOK {
		c.mu.Lock()
		c.handle = 0
		c.mu.Unlock()
		return fail(h, code)
	}

	c.mu.Lock()
	c.opening = false
	c.bumpLocked()
	c.mu.Unlock()

	c.log.Debug("channel opened", "class", c.class.String(), "handle", uint64(h))
	return nil
}

// Close releases the native handle. Any state transitions to Closed.
//
// Order matters and is the safety core of this layer: the Channel is marked
// closed first (new operations fail fast, new callback dispatches are
// dropped), the four native handler slots are deregistered, then Close blocks
// until every in-flight callback has returned before the handle is released.
// A Close racing an in-progress Open waits for Open to finish its native
// calls, then tears down whatever Open acquired; the handle is never leaked
// and never released twice. Idempotent: closing a closed or unopened Channel
// is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	// An Open still running owns its native calls; wait for it to either
	// store the handle or roll back before tearing down.
	for c.opening {
		wait := c.broadcast
		c.mu.Unlock()
		<-wait
		c.mu.Lock()
	}
	if c.state == StateUnopened || c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	h := c.handle
	if h == 0 {
		panic("channel: open state with no native handle")
	}
	c.state = StateClosed
	c.handlers = handlerSet{}
	c.bumpLocked()
	c.mu.Unlock()

	// Deregister outside the lock: a delivery thread reporting detach
	// needs the same lock and must not deadlock against us.
	c.rt.Close(h)
	c.rt.SetOnAttachHandler(h, nil)
	c.rt.SetOnDetachHandler(h, nil)
	c.rt.SetOnErrorHandler(h, nil)
	c.rt.SetOnChangeHandler(h, nil)

	// Rundown: no handle release while a handler invocation is in
	// progress.
	c.mu.Lock()
	for c.inflight > 0 {
		wait := c.broadcast
		c.mu.Unlock()
		<-wait
		c.mu.Lock()
	}
	if c.handle == 0 {
		panic("channel: double release of native handle")
	}
	c.handle = 0
	c.cache = nil
	c.mu.Unlock()

	if code := c.rt.Release(h); code != native.CodeOK {
		return fmt.Errorf("close %s channel: %w", c.class, native.Translate(code))
	}
	c.log.Debug("channel closed", "class", c.class.String(), "handle", uint64(h))
	return nil
}

// WaitForAttachment blocks until the Channel reaches Attached or the timeout
// elapses.
//
// A timeout of zero polls: it returns immediately, with native.ErrTimeout if
// the hardware is not currently attached. WaitForever waits indefinitely.
// Returns native.ErrNotAttached if the Channel is unopened or closed, also
// when it closes while waiting. Attachment is hardware-driven; there is no
// retry here.
func (c *Channel) WaitForAttachment(timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	c.mu.Lock()
	for {
		switch c.state {
		case StateAttached:
			c.mu.Unlock()
			return nil
		case StateUnopened, StateClosed:
			c.mu.Unlock()
			return fmt.Errorf("wait for attachment: %w", native.ErrNotAttached)
		}

		if timeout == 0 {
			c.mu.Unlock()
			return fmt.Errorf("wait for attachment: %w", native.ErrTimeout)
		}

		// Snapshot the broadcast channel under the same lock that
		// records transitions; an attach landing between the state
		// check and the wait closes this exact channel.
		wait := c.broadcast
		c.mu.Unlock()

		if timeout < 0 {
			<-wait
		} else {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return fmt.Errorf("wait for attachment: %w", native.ErrTimeout)
			}
			timer := time.NewTimer(remaining)
			select {
			case <-wait:
				timer.Stop()
			case <-timer.C:
				return fmt.Errorf("wait for attachment: %w", native.ErrTimeout)
			}
		}
		c.mu.Lock()
	}
}

// OpenWaitForAttachment opens the Channel and waits for hardware. If the wait
// fails the Channel is closed again before returning, so the caller never
// holds a half-open channel.
func (c *Channel) OpenWaitForAttachment(timeout time.Duration) error {
	if err := c.Open(); err != nil {
		return err
	}
	if err := c.WaitForAttachment(timeout); err != nil {
		_ = c.Close()
		return err
	}
	return nil
}

// bumpLocked wakes every waiter observing state or in-flight transitions.
// Callers must hold c.mu.
func (c *Channel) bumpLocked() {
	close(c.broadcast)
	c.broadcast = make(chan struct{})
}
