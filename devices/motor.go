package devices

import (
	"github.com/nerrad567/gray-logic-hw/channel"
	"github.com/nerrad567/gray-logic-hw/native"
)

// Motor is a DC motor controller channel.
type Motor struct {
	*channel.Channel
}

// NewMotor creates an unopened motor controller channel.
func NewMotor(opts ...channel.Option) (*Motor, error) {
	c, err := channel.New(native.ClassMotor, opts...)
	if err != nil {
		return nil, err
	}
	return &Motor{Channel: c}, nil
}

// SetTargetVelocity sets the commanded velocity in [-1, 1].
func (m *Motor) SetTargetVelocity(v float64) error {
	return channel.Set(m.Channel, native.PropTargetVelocity, v)
}

// TargetVelocity reads back the commanded velocity.
func (m *Motor) TargetVelocity() (float64, error) {
	return channel.Get[float64](m.Channel, native.PropTargetVelocity)
}

// Velocity reads the current output velocity, which ramps toward the target
// at the configured acceleration.
func (m *Motor) Velocity() (float64, error) {
	return channel.Get[float64](m.Channel, native.PropVelocity)
}

// SetAcceleration sets the ramp rate applied to velocity changes.
func (m *Motor) SetAcceleration(a float64) error {
	return channel.Set(m.Channel, native.PropAcceleration, a)
}

// Acceleration reads back the configured ramp rate.
func (m *Motor) Acceleration() (float64, error) {
	return channel.Get[float64](m.Channel, native.PropAcceleration)
}

// OnVelocityChange registers a handler for output velocity change events.
func (m *Motor) OnVelocityChange(fn func(velocity float64)) error {
	if fn == nil {
		return m.OnChange(nil)
	}
	return m.OnChange(func(p native.Property, v native.Value) {
		if p == native.PropVelocity {
			fn(v.Float)
		}
	})
}
