package channel

import (
	"fmt"

	"github.com/nerrad567/gray-logic-hw/native"
)

// PropertyValue is the set of Go types a device property can carry. It
// mirrors native.ValueKind one-to-one.
type PropertyValue interface {
	float64 | bool | int64 | string
}

// Get reads a typed property from the attached hardware. The type parameter
// must match the property's declared kind for the Channel's device class;
// mismatches fail with native.ErrInvalidArgument, properties foreign to the
// class with native.ErrUnsupported, and any state other than Attached with
// native.ErrNotAttached.
//
// The native call is synchronous: Get returns only once the runtime has
// completed the read.
func Get[T PropertyValue](c *Channel, p native.Property) (T, error) {
	var zero T
	h, err := c.checkProperty(p, kindOf(zero))
	if err != nil {
		return zero, err
	}

	v, code := c.rt.GetProperty(h, p)
	if code != native.CodeOK {
		return zero, fmt.Errorf("get %s: %w", p, native.Translate(code))
	}
	return valueAs[T](p, v)
}

// Set writes a typed property to the attached hardware. Type and state rules
// match Get. There is no mid-flight cancellation; the call returns when the
// runtime completes the write.
func Set[T PropertyValue](c *Channel, p native.Property, value T) error {
	kind := kindOf(value)
	h, err := c.checkProperty(p, kind)
	if err != nil {
		return err
	}

	if code := c.rt.SetProperty(h, p, makeValue(kind, value)); code != native.CodeOK {
		return fmt.Errorf("set %s: %w", p, native.Translate(code))
	}
	return nil
}

// CachedValue returns the most recent value delivered by a change event for
// the property, maintained under the Channel's lock. The second result is
// false if no change event has arrived in this open cycle.
func (c *Channel) CachedValue(p native.Property) (native.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache[p]
	return v, ok
}

// checkProperty validates the property against the class table and the
// expected kind, and returns the live handle. The handle is snapshotted so
// the lock is not held across the native call; a concurrent Close simply
// leaves the runtime to reject the stale token.
func (c *Channel) checkProperty(p native.Property, kind native.ValueKind) (native.Handle, error) {
	declared, ok := c.props[p]
	if !ok {
		return 0, fmt.Errorf("property %s on %s: %w", p, c.class, native.ErrUnsupported)
	}
	if declared != kind {
		return 0, fmt.Errorf("property %s on %s: wrong value type: %w", p, c.class, native.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAttached {
		return 0, fmt.Errorf("property %s on %s: %w", p, c.class, native.ErrNotAttached)
	}
	return c.handle, nil
}

// kindOf maps a PropertyValue instantiation to its wire kind.
func kindOf(v any) native.ValueKind {
	switch v.(type) {
	case float64:
		return native.KindFloat
	case bool:
		return native.KindBool
	case int64:
		return native.KindInt
	default:
		return native.KindString
	}
}

// makeValue builds the tagged buffer for a write.
func makeValue[T PropertyValue](kind native.ValueKind, v T) native.Value {
	switch kind {
	case native.KindFloat:
		return native.FloatValue(any(v).(float64))
	case native.KindBool:
		return native.BoolValue(any(v).(bool))
	case native.KindInt:
		return native.IntValue(any(v).(int64))
	default:
		return native.StringValue(any(v).(string))
	}
}

// valueAs unpacks a tagged buffer returned by the runtime.
func valueAs[T PropertyValue](p native.Property, v native.Value) (T, error) {
	var out any
	switch v.Kind {
	case native.KindFloat:
		out = v.Float
	case native.KindBool:
		out = v.Bool
	case native.KindInt:
		out = v.Int
	default:
		out = v.Str
	}
	typed, ok := out.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("get %s: runtime returned mismatched kind %d: %w", p, int(v.Kind), native.ErrInternal)
	}
	return typed, nil
}
