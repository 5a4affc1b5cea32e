// Package nativetest provides an in-memory native.Runtime for tests.
//
// The fake issues monotonically increasing handles, matches open filters
// against plugged test devices, and delivers attach/detach/error/change
// callbacks synchronously on the calling goroutine, mimicking the vendor
// runtime's delivery-thread model. Release times are recorded so tests can
// assert rundown ordering.
package nativetest

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hw/native"
)

// Device is a simulated piece of hardware known to the fake runtime.
type Device struct {
	Info       native.AttachInfo
	Properties map[native.Property]native.Value
}

// channelState tracks one acquired handle.
type channelState struct {
	class    native.DeviceClass
	filter   native.OpenFilter
	open     bool
	attached *Device

	onAttach func(native.AttachInfo)
	onDetach func()
	onError  func(native.Code, string)
	onChange func(native.Property, native.Value)
}

// Runtime is a fake native.Runtime.
//
// All methods are safe for concurrent use. Callbacks are invoked without the
// fake's internal lock held, so handlers may call back into the runtime.
type Runtime struct {
	mu       sync.Mutex
	next     native.Handle
	channels map[native.Handle]*channelState
	devices  []*Device
	released map[native.Handle]time.Time

	mgrAttach func(native.AttachInfo)
	mgrDetach func(native.AttachInfo)

	// failNext maps method names to a status code returned by the next
	// call of that method, then cleared. See FailNext.
	failNext map[string]native.Code
}

// New creates an empty fake runtime.
func New() *Runtime {
	return &Runtime{
		channels: make(map[native.Handle]*channelState),
		released: make(map[native.Handle]time.Time),
		failNext: make(map[string]native.Code),
	}
}

// FailNext makes the next call of the named method ("Acquire", "Open",
// "GetProperty", ...) return the given status code.
func (r *Runtime) FailNext(method string, code native.Code) {
	r.mu.Lock()
	r.failNext[method] = code
	r.mu.Unlock()
}

func (r *Runtime) takeFailure(method string) (native.Code, bool) {
	code, ok := r.failNext[method]
	if ok {
		delete(r.failNext, method)
	}
	return code, ok
}

// =============================================================================
// native.Runtime implementation
// =============================================================================

// Acquire allocates a fresh handle. Handle values are never reused.
func (r *Runtime) Acquire(class native.DeviceClass) (native.Handle, native.Code) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code, ok := r.takeFailure("Acquire"); ok {
		return 0, code
	}
	r.next++
	h := r.next
	r.channels[h] = &channelState{class: class}
	return h, native.CodeOK
}

// Release frees a handle. Releasing an unknown or already-released handle
// fails with CodeInvalidArgument.
func (r *Runtime) Release(h native.Handle) native.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[h]; !ok {
		return native.CodeInvalidArgument
	}
	delete(r.channels, h)
	r.released[h] = time.Now()
	return native.CodeOK
}

// Open binds the filter and starts matching. If a plugged device already
// satisfies the filter, the attach callback fires synchronously before Open
// returns, exercising the signal-then-wait race in the caller.
func (r *Runtime) Open(h native.Handle, f native.OpenFilter) native.Code {
	r.mu.Lock()
	cs, ok := r.channels[h]
	if !ok {
		r.mu.Unlock()
		return native.CodeInvalidArgument
	}
	if code, ok := r.takeFailure("Open"); ok {
		r.mu.Unlock()
		return code
	}
	if cs.open {
		r.mu.Unlock()
		return native.CodeBusy
	}
	cs.filter = f
	cs.open = true

	var fire func()
	for _, d := range r.devices {
		if f.Matches(d.Info) {
			cs.attached = d
			if fn := cs.onAttach; fn != nil {
				info := d.Info
				fire = func() { fn(info) }
			}
			break
		}
	}
	r.mu.Unlock()

	if fire != nil {
		fire()
	}
	return native.CodeOK
}

// Close stops matching and silently drops any attachment. No detach event is
// delivered: closing is host-initiated, not a hardware unplug.
func (r *Runtime) Close(h native.Handle) native.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.channels[h]
	if !ok {
		return native.CodeInvalidArgument
	}
	cs.open = false
	cs.attached = nil
	return native.CodeOK
}

// SetOnAttachHandler registers or clears the attach handler.
func (r *Runtime) SetOnAttachHandler(h native.Handle, fn func(native.AttachInfo)) native.Code {
	return r.setHandler(h, func(cs *channelState) { cs.onAttach = fn })
}

// SetOnDetachHandler registers or clears the detach handler.
func (r *Runtime) SetOnDetachHandler(h native.Handle, fn func()) native.Code {
	return r.setHandler(h, func(cs *channelState) { cs.onDetach = fn })
}

// SetOnErrorHandler registers or clears the error handler.
func (r *Runtime) SetOnErrorHandler(h native.Handle, fn func(native.Code, string)) native.Code {
	return r.setHandler(h, func(cs *channelState) { cs.onError = fn })
}

// SetOnChangeHandler registers or clears the change handler.
func (r *Runtime) SetOnChangeHandler(h native.Handle, fn func(native.Property, native.Value)) native.Code {
	return r.setHandler(h, func(cs *channelState) { cs.onChange = fn })
}

func (r *Runtime) setHandler(h native.Handle, set func(*channelState)) native.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.channels[h]
	if !ok {
		return native.CodeInvalidArgument
	}
	set(cs)
	return native.CodeOK
}

// GetProperty reads a property from the attached device.
func (r *Runtime) GetProperty(h native.Handle, p native.Property) (native.Value, native.Code) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.channels[h]
	if !ok {
		return native.Value{}, native.CodeInvalidArgument
	}
	if code, ok := r.takeFailure("GetProperty"); ok {
		return native.Value{}, code
	}
	if cs.attached == nil {
		return native.Value{}, native.CodeNotAttached
	}
	v, ok := cs.attached.Properties[p]
	if !ok {
		return native.Value{}, native.CodeUnsupported
	}
	return v, native.CodeOK
}

// SetProperty writes a property on the attached device.
func (r *Runtime) SetProperty(h native.Handle, p native.Property, v native.Value) native.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.channels[h]
	if !ok {
		return native.CodeInvalidArgument
	}
	if code, ok := r.takeFailure("SetProperty"); ok {
		return code
	}
	if cs.attached == nil {
		return native.CodeNotAttached
	}
	if cs.attached.Properties == nil {
		cs.attached.Properties = make(map[native.Property]native.Value)
	}
	cs.attached.Properties[p] = v
	return native.CodeOK
}

// OpenManager registers process-wide observers. A second call without an
// intervening CloseManager fails with CodeBusy.
func (r *Runtime) OpenManager(onAttach, onDetach func(native.AttachInfo)) native.Code {
	r.mu.Lock()
	if r.mgrAttach != nil || r.mgrDetach != nil {
		r.mu.Unlock()
		return native.CodeBusy
	}
	r.mgrAttach = onAttach
	r.mgrDetach = onDetach
	devices := make([]native.AttachInfo, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d.Info)
	}
	r.mu.Unlock()

	// Already-present devices are reported immediately, as the vendor
	// discovery mechanism does.
	if onAttach != nil {
		for _, info := range devices {
			onAttach(info)
		}
	}
	return native.CodeOK
}

// CloseManager clears the process-wide observers.
func (r *Runtime) CloseManager() native.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mgrAttach = nil
	r.mgrDetach = nil
	return native.CodeOK
}

// =============================================================================
// Test controls
// =============================================================================

// Plug adds a device and delivers attach callbacks to the manager observers
// and to every open, unattached channel whose filter matches.
func (r *Runtime) Plug(d *Device) {
	if d.Properties == nil {
		d.Properties = make(map[native.Property]native.Value)
	}
	r.mu.Lock()
	r.devices = append(r.devices, d)
	var fires []func()
	if fn := r.mgrAttach; fn != nil {
		info := d.Info
		fires = append(fires, func() { fn(info) })
	}
	for _, cs := range r.channels {
		if cs.open && cs.attached == nil && cs.filter.Matches(d.Info) {
			cs.attached = d
			if fn := cs.onAttach; fn != nil {
				info := d.Info
				fires = append(fires, func() { fn(info) })
			}
		}
	}
	r.mu.Unlock()

	for _, fire := range fires {
		fire()
	}
}

// Unplug removes the device with the given serial number and delivers detach
// callbacks to the manager observers and to every channel attached to it.
func (r *Runtime) Unplug(serial int64) {
	r.mu.Lock()
	var removed *Device
	for i, d := range r.devices {
		if d.Info.SerialNumber == serial {
			removed = d
			r.devices = append(r.devices[:i], r.devices[i+1:]...)
			break
		}
	}
	if removed == nil {
		r.mu.Unlock()
		return
	}
	var fires []func()
	for _, cs := range r.channels {
		if cs.attached == removed {
			cs.attached = nil
			if fn := cs.onDetach; fn != nil {
				fires = append(fires, fn)
			}
		}
	}
	if fn := r.mgrDetach; fn != nil {
		info := removed.Info
		fires = append(fires, func() { fn(info) })
	}
	r.mu.Unlock()

	for _, fire := range fires {
		fire()
	}
}

// DeliverChange updates a property on the device with the given serial number
// and delivers a change callback to every channel attached to it.
func (r *Runtime) DeliverChange(serial int64, p native.Property, v native.Value) {
	r.mu.Lock()
	var fires []func()
	for _, cs := range r.channels {
		if cs.attached != nil && cs.attached.Info.SerialNumber == serial {
			cs.attached.Properties[p] = v
			if fn := cs.onChange; fn != nil {
				fires = append(fires, func() { fn(p, v) })
			}
		}
	}
	r.mu.Unlock()

	for _, fire := range fires {
		fire()
	}
}

// DeliverError delivers an error callback to every channel attached to the
// device with the given serial number.
func (r *Runtime) DeliverError(serial int64, code native.Code, msg string) {
	r.mu.Lock()
	var fires []func()
	for _, cs := range r.channels {
		if cs.attached != nil && cs.attached.Info.SerialNumber == serial {
			if fn := cs.onError; fn != nil {
				fires = append(fires, func() { fn(code, msg) })
			}
		}
	}
	r.mu.Unlock()

	for _, fire := range fires {
		fire()
	}
}

// Released reports whether the handle has been returned to the runtime.
func (r *Runtime) Released(h native.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.released[h]
	return ok
}

// ReleasedAt returns the time the handle was released.
func (r *Runtime) ReleasedAt(h native.Handle) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.released[h]
	return at, ok
}

// Handlers returns which handler slots are currently registered for a handle,
// for asserting deregistration. The order is attach, detach, error, change.
func (r *Runtime) Handlers(h native.Handle) ([4]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.channels[h]
	if !ok {
		return [4]bool{}, fmt.Errorf("nativetest: unknown handle %d", h)
	}
	return [4]bool{
		cs.onAttach != nil,
		cs.onDetach != nil,
		cs.onError != nil,
		cs.onChange != nil,
	}, nil
}
