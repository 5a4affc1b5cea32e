package devices

import (
	"github.com/nerrad567/gray-logic-hw/channel"
	"github.com/nerrad567/gray-logic-hw/native"
)

// DigitalInput is a binary input channel such as a switch or limit sensor.
type DigitalInput struct {
	*channel.Channel
}

// NewDigitalInput creates an unopened digital input channel.
func NewDigitalInput(opts ...channel.Option) (*DigitalInput, error) {
	c, err := channel.New(native.ClassDigitalInput, opts...)
	if err != nil {
		return nil, err
	}
	return &DigitalInput{Channel: c}, nil
}

// State reads the current input state.
func (d *DigitalInput) State() (bool, error) {
	return channel.Get[bool](d.Channel, native.PropState)
}

// OnStateChange registers a handler for input state change events.
func (d *DigitalInput) OnStateChange(fn func(state bool)) error {
	if fn == nil {
		return d.OnChange(nil)
	}
	return d.OnChange(func(p native.Property, v native.Value) {
		if p == native.PropState {
			fn(v.Bool)
		}
	})
}

// DigitalOutput is a binary output channel such as a relay or LED driver.
type DigitalOutput struct {
	*channel.Channel
}

// NewDigitalOutput creates an unopened digital output channel.
func NewDigitalOutput(opts ...channel.Option) (*DigitalOutput, error) {
	c, err := channel.New(native.ClassDigitalOutput, opts...)
	if err != nil {
		return nil, err
	}
	return &DigitalOutput{Channel: c}, nil
}

// SetState drives the output fully on or off.
func (d *DigitalOutput) SetState(on bool) error {
	return channel.Set(d.Channel, native.PropState, on)
}

// State reads back the driven output state.
func (d *DigitalOutput) State() (bool, error) {
	return channel.Get[bool](d.Channel, native.PropState)
}

// SetDutyCycle drives the output with a PWM duty cycle in [0, 1].
func (d *DigitalOutput) SetDutyCycle(ratio float64) error {
	return channel.Set(d.Channel, native.PropDutyCycle, ratio)
}

// DutyCycle reads back the current duty cycle.
func (d *DigitalOutput) DutyCycle() (float64, error) {
	return channel.Get[float64](d.Channel, native.PropDutyCycle)
}
