package native

import "sync"

// Code is a status code returned by every native runtime call.
type Code int

// Well-known runtime status codes. Vendor runtimes may return codes outside
// this set; Translate maps those onto ErrInternal.
const (
	CodeOK              Code = 0
	CodeUnsupported     Code = 1
	CodeInvalidArgument Code = 2
	CodeNotAttached     Code = 3
	CodeTimeout         Code = 4
	CodePermission      Code = 5
	CodeNoResources     Code = 6
	CodeBusy            Code = 7
	CodeDuplicate       Code = 8
	CodeUnexpected      Code = 9
)

// Handle is an opaque resource token issued by the runtime. Zero is never a
// valid handle. Released handles are never reused.
type Handle uint64

// DeviceClass identifies the kind of hardware endpoint behind a channel.
type DeviceClass int

// Supported device classes.
const (
	ClassUnknown DeviceClass = iota
	ClassVoltageInput
	ClassDigitalInput
	ClassDigitalOutput
	ClassMotor
	ClassEncoder
	ClassTemperatureSensor
	ClassHub
)

// String returns the lower-case name of the device class.
func (c DeviceClass) String() string {
	switch c {
	case ClassVoltageInput:
		return "voltage_input"
	case ClassDigitalInput:
		return "digital_input"
	case ClassDigitalOutput:
		return "digital_output"
	case ClassMotor:
		return "motor"
	case ClassEncoder:
		return "encoder"
	case ClassTemperatureSensor:
		return "temperature_sensor"
	case ClassHub:
		return "hub"
	default:
		return "unknown"
	}
}

// Property identifies one typed value exposed by a device class, such as
// "voltage" or "target_velocity". The set of valid properties per class is
// given by Properties.
type Property string

// ValueKind is the wire type of a property value.
type ValueKind int

// Property value kinds.
const (
	KindFloat ValueKind = iota
	KindBool
	KindInt
	KindString
)

// Value is the tagged buffer used for property reads and writes across the
// runtime boundary. Exactly one field, selected by Kind, is meaningful.
type Value struct {
	Kind  ValueKind
	Float float64
	Bool  bool
	Int   int64
	Str   string
}

// FloatValue builds a float-kinded Value.
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// BoolValue builds a bool-kinded Value.
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// IntValue builds an int-kinded Value.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// StringValue builds a string-kinded Value.
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// OpenFilter selects which physical channel an open request may match.
// Negative numeric fields and an empty label mean "any".
type OpenFilter struct {
	Class           DeviceClass
	SerialNumber    int64
	HubPort         int
	ChannelIndex    int
	Label           string
	IsHubPortDevice bool
}

// AnyFilter returns an OpenFilter matching any device of the given class.
func AnyFilter(class DeviceClass) OpenFilter {
	return OpenFilter{
		Class:        class,
		SerialNumber: -1,
		HubPort:      -1,
		ChannelIndex: -1,
	}
}

// Matches reports whether the resolved identity of an attaching channel
// satisfies the filter. Class must always match; numeric criteria apply only
// when non-negative, the label only when non-empty.
func (f OpenFilter) Matches(info AttachInfo) bool {
	if f.Class != info.Class {
		return false
	}
	if f.SerialNumber >= 0 && f.SerialNumber != info.SerialNumber {
		return false
	}
	if f.HubPort >= 0 && f.HubPort != info.HubPort {
		return false
	}
	if f.ChannelIndex >= 0 && f.ChannelIndex != info.ChannelIndex {
		return false
	}
	if f.Label != "" && f.Label != info.Label {
		return false
	}
	return true
}

// AttachInfo is the resolved identity of a channel reported by the runtime
// when hardware attaches.
type AttachInfo struct {
	Class        DeviceClass
	SerialNumber int64
	HubPort      int
	ChannelIndex int
	Label        string
}

// Runtime is the handle-based call surface of the vendor hardware-control
// runtime. All methods follow the status-code return convention; none panic.
//
// Handler registration methods accept nil to deregister. A conforming
// runtime returns from a deregistration call only after it guarantees no new
// invocation of that handler will begin. In-flight invocations may still be
// executing when the call returns; the channel layer's rundown protocol
// accounts for those.
type Runtime interface {
	// Acquire allocates a fresh handle for a channel of the given class.
	// The handle is inert until Open is called.
	Acquire(class DeviceClass) (Handle, Code)

	// Release returns a handle to the runtime. The handle must not be used
	// afterwards. Callers must deregister handlers and wait out in-flight
	// callbacks before releasing.
	Release(h Handle) Code

	// Open binds the filter to the handle and asks the runtime to begin
	// matching physical hardware. Attachment is reported asynchronously
	// through the attach handler.
	Open(h Handle, f OpenFilter) Code

	// Close detaches the handle from any matched hardware and stops
	// matching. The handle remains valid until Release.
	Close(h Handle) Code

	SetOnAttachHandler(h Handle, fn func(AttachInfo)) Code
	SetOnDetachHandler(h Handle, fn func()) Code
	SetOnErrorHandler(h Handle, fn func(code Code, msg string)) Code
	SetOnChangeHandler(h Handle, fn func(p Property, v Value)) Code

	// GetProperty reads a property value. Fails with CodeNotAttached when
	// no hardware is attached, CodeUnsupported for foreign properties.
	GetProperty(h Handle, p Property) (Value, Code)

	// SetProperty writes a property value, same failure modes as
	// GetProperty plus CodeInvalidArgument for a wrong-kinded value.
	SetProperty(h Handle, p Property, v Value) Code

	// OpenManager registers process-wide attach/detach observers with the
	// runtime's discovery mechanism. At most one observer pair may be
	// active; a second call fails with CodeBusy.
	OpenManager(onAttach, onDetach func(AttachInfo)) Code

	// CloseManager deregisters the process-wide observers. Same
	// deregistration guarantee as the per-handle setters.
	CloseManager() Code
}

var (
	defaultMu sync.RWMutex
	defaultRT Runtime
)

// Register installs the process-wide Runtime, typically from a vendor
// adapter's init function. The last registration wins.
func Register(rt Runtime) {
	defaultMu.Lock()
	defaultRT = rt
	defaultMu.Unlock()
}

// Default returns the process-wide Runtime, or ErrNoRuntime if no vendor
// adapter has registered one.
func Default() (Runtime, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if defaultRT == nil {
		return nil, ErrNoRuntime
	}
	return defaultRT, nil
}
