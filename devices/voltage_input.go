package devices

import (
	"github.com/nerrad567/gray-logic-hw/channel"
	"github.com/nerrad567/gray-logic-hw/native"
)

// VoltageInput is an analog voltage input channel.
type VoltageInput struct {
	*channel.Channel
}

// NewVoltageInput creates an unopened voltage input channel.
func NewVoltageInput(opts ...channel.Option) (*VoltageInput, error) {
	c, err := channel.New(native.ClassVoltageInput, opts...)
	if err != nil {
		return nil, err
	}
	return &VoltageInput{Channel: c}, nil
}

// Voltage reads the current voltage in volts.
func (v *VoltageInput) Voltage() (float64, error) {
	return channel.Get[float64](v.Channel, native.PropVoltage)
}

// VoltageRatio reads the voltage as a ratio of the supply voltage.
func (v *VoltageInput) VoltageRatio() (float64, error) {
	return channel.Get[float64](v.Channel, native.PropVoltageRatio)
}

// SetChangeTrigger sets the minimum voltage delta that produces a change
// event. Zero reports every sample.
func (v *VoltageInput) SetChangeTrigger(delta float64) error {
	return channel.Set(v.Channel, native.PropChangeTrigger, delta)
}

// OnVoltageChange registers a handler for voltage change events.
func (v *VoltageInput) OnVoltageChange(fn func(volts float64)) error {
	if fn == nil {
		return v.OnChange(nil)
	}
	return v.OnChange(func(p native.Property, val native.Value) {
		if p == native.PropVoltage {
			fn(val.Float)
		}
	})
}
