package devices

import (
	"github.com/nerrad567/gray-logic-hw/channel"
	"github.com/nerrad567/gray-logic-hw/native"
)

// TemperatureSensor is a temperature probe channel reporting degrees Celsius.
type TemperatureSensor struct {
	*channel.Channel
}

// NewTemperatureSensor creates an unopened temperature sensor channel.
func NewTemperatureSensor(opts ...channel.Option) (*TemperatureSensor, error) {
	c, err := channel.New(native.ClassTemperatureSensor, opts...)
	if err != nil {
		return nil, err
	}
	return &TemperatureSensor{Channel: c}, nil
}

// Temperature reads the current temperature in °C.
func (s *TemperatureSensor) Temperature() (float64, error) {
	return channel.Get[float64](s.Channel, native.PropTemperature)
}

// SetChangeTrigger sets the minimum temperature delta that produces a change
// event.
func (s *TemperatureSensor) SetChangeTrigger(delta float64) error {
	return channel.Set(s.Channel, native.PropChangeTrigger, delta)
}

// ChangeTrigger reads back the configured change trigger.
func (s *TemperatureSensor) ChangeTrigger() (float64, error) {
	return channel.Get[float64](s.Channel, native.PropChangeTrigger)
}

// OnTemperatureChange registers a handler for temperature change events.
func (s *TemperatureSensor) OnTemperatureChange(fn func(celsius float64)) error {
	if fn == nil {
		return s.OnChange(nil)
	}
	return s.OnChange(func(p native.Property, v native.Value) {
		if p == native.PropTemperature {
			fn(v.Float)
		}
	})
}

// Hub is a multi-port hub board. It is opened mostly for identification and
// for addressing hub-port devices; port firmware management is a vendor tool
// concern, not handled here.
type Hub struct {
	*channel.Channel
}

// NewHub creates an unopened hub channel.
func NewHub(opts ...channel.Option) (*Hub, error) {
	c, err := channel.New(native.ClassHub, opts...)
	if err != nil {
		return nil, err
	}
	return &Hub{Channel: c}, nil
}

// PortCount reads the number of ports on the hub.
func (h *Hub) PortCount() (int64, error) {
	return channel.Get[int64](h.Channel, native.PropPortCount)
}
