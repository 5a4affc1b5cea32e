package channel

import (
	"fmt"

	"github.com/nerrad567/gray-logic-hw/native"
)

// Handler registration. One slot per event kind; the last registration wins
// and nil clears the slot. Registering is only legal while the Channel is
// open, between Open and Close.

// OnAttach registers the handler invoked when hardware attaches. The handler
// receives the resolved identity of the attached channel.
func (c *Channel) OnAttach(fn func(native.AttachInfo)) error {
	return c.setHandler(func(h *handlerSet) { h.attach = fn })
}

// OnDetach registers the handler invoked when hardware detaches. Detach is a
// normal event, not an error; the Channel may re-attach later.
func (c *Channel) OnDetach(fn func()) error {
	return c.setHandler(func(h *handlerSet) { h.detach = fn })
}

// OnError registers the handler invoked when the runtime reports an
// asynchronous error condition for this channel.
func (c *Channel) OnError(fn func(error)) error {
	return c.setHandler(func(h *handlerSet) { h.err = fn })
}

// OnChange registers the handler invoked on property value changes.
//
// Handlers run synchronously on the runtime's delivery thread and must not
// block: a stalled handler stalls delivery for every channel sharing the
// thread. Any state a handler shares with caller goroutines must be
// synchronised; the per-property cache read via CachedValue is maintained by
// the Channel itself and is always safe.
func (c *Channel) OnChange(fn func(native.Property, native.Value)) error {
	return c.setHandler(func(h *handlerSet) { h.change = fn })
}

func (c *Channel) setHandler(set func(*handlerSet)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUnopened || c.state == StateClosed {
		return fmt.Errorf("register handler: %w", native.ErrNotAttached)
	}
	set(&c.handlers)
	return nil
}

// =============================================================================
// Dispatch adapters: run on the native runtime's delivery threads
// =============================================================================

// enterDispatch gates a callback invocation. It returns false when the event
// must be dropped: a stale generation (previous open cycle) or a Channel
// already marked closed, which is how "no handler invocation begins after
// deregistration" is upheld even while the native deregistration calls are
// still underway.
func (c *Channel) enterDispatch(gen uint64) bool {
	if gen != c.gen {
		return false
	}
	switch c.state {
	case StateUnopened, StateClosed:
		return false
	}
	c.inflight++
	return true
}

// exitDispatch retires an invocation and wakes rundown waiters.
func (c *Channel) exitDispatch() {
	c.mu.Lock()
	c.inflight--
	if c.inflight < 0 {
		panic("channel: callback in-flight count went negative")
	}
	c.bumpLocked()
	c.mu.Unlock()
}

// invoke runs a user handler, recovering panics so the in-flight counter and
// the runtime's delivery thread both survive a faulty handler.
func (c *Channel) invoke(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("channel handler panic recovered",
				"class", c.class.String(),
				"event", kind,
				"panic", r,
			)
		}
	}()
	fn()
}

func (c *Channel) dispatchAttach(gen uint64, info native.AttachInfo) {
	c.mu.Lock()
	if gen != c.gen || (c.state != StateOpening && c.state != StateDetached) {
		c.mu.Unlock()
		return
	}
	// The guard re-verifies the resolved identity against the filter. A
	// mismatched attach must never transition the Channel: better to stay
	// in Opening forever than to silently operate the wrong device.
	if !c.filter.Matches(info) {
		c.mu.Unlock()
		c.log.Warn("attach event rejected by filter",
			"class", c.class.String(),
			"serial", info.SerialNumber,
			"hub_port", info.HubPort,
			"channel", info.ChannelIndex,
		)
		return
	}
	c.state = StateAttached
	c.info = info
	c.inflight++
	fn := c.handlers.attach
	c.bumpLocked()
	c.mu.Unlock()

	defer c.exitDispatch()
	if fn != nil {
		c.invoke("attach", func() { fn(info) })
	}
}

func (c *Channel) dispatchDetach(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateAttached {
		c.mu.Unlock()
		return
	}
	c.state = StateDetached
	fn := c.handlers.detach
	c.inflight++
	c.bumpLocked()
	c.mu.Unlock()

	defer c.exitDispatch()
	if fn != nil {
		c.invoke("detach", fn)
	}
}

func (c *Channel) dispatchError(gen uint64, code native.Code, msg string) {
	c.mu.Lock()
	if !c.enterDispatch(gen) {
		c.mu.Unlock()
		return
	}
	fn := c.handlers.err
	c.mu.Unlock()

	defer c.exitDispatch()
	if fn != nil {
		err := native.Translate(code)
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		c.invoke("error", func() { fn(err) })
	}
}

func (c *Channel) dispatchChange(gen uint64, p native.Property, v native.Value) {
	c.mu.Lock()
	if !c.enterDispatch(gen) {
		c.mu.Unlock()
		return
	}
	if c.cache != nil {
		c.cache[p] = v
	}
	fn := c.handlers.change
	c.mu.Unlock()

	defer c.exitDispatch()
	if fn != nil {
		c.invoke("change", func() { fn(p, v) })
	}
}
