package devices

import (
	"github.com/nerrad567/gray-logic-hw/channel"
	"github.com/nerrad567/gray-logic-hw/native"
)

// Encoder is a rotary encoder channel reporting a signed position count.
type Encoder struct {
	*channel.Channel
}

// NewEncoder creates an unopened encoder channel.
func NewEncoder(opts ...channel.Option) (*Encoder, error) {
	c, err := channel.New(native.ClassEncoder, opts...)
	if err != nil {
		return nil, err
	}
	return &Encoder{Channel: c}, nil
}

// Position reads the accumulated position count.
func (e *Encoder) Position() (int64, error) {
	return channel.Get[int64](e.Channel, native.PropPosition)
}

// SetPosition rebases the accumulated count, typically to zero a homed axis.
func (e *Encoder) SetPosition(count int64) error {
	return channel.Set(e.Channel, native.PropPosition, count)
}

// OnPositionChange registers a handler for position change events.
func (e *Encoder) OnPositionChange(fn func(position int64)) error {
	if fn == nil {
		return e.OnChange(nil)
	}
	return e.OnChange(func(p native.Property, v native.Value) {
		if p == native.PropPosition {
			fn(v.Int)
		}
	})
}
