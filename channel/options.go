package channel

import "github.com/nerrad567/gray-logic-hw/native"

// Option configures a Channel at construction time.
type Option func(*Channel)

// WithRuntime injects the native runtime to use. Defaults to the
// process-wide runtime registered via native.Register.
func WithRuntime(rt native.Runtime) Option {
	return func(c *Channel) { c.rt = rt }
}

// WithSerialNumber restricts open to the device with this serial number.
func WithSerialNumber(serial int64) Option {
	return func(c *Channel) { c.filter.SerialNumber = serial }
}

// WithHubPort restricts open to a specific hub port.
func WithHubPort(port int) Option {
	return func(c *Channel) { c.filter.HubPort = port }
}

// WithChannelIndex restricts open to a specific channel index on the device.
func WithChannelIndex(index int) Option {
	return func(c *Channel) { c.filter.ChannelIndex = index }
}

// WithLabel restricts open to a device carrying this user label.
func WithLabel(label string) Option {
	return func(c *Channel) { c.filter.Label = label }
}

// WithHubPortDevice opens the hub port itself as the device rather than a
// device plugged into it. Requires WithHubPort.
func WithHubPortDevice() Option {
	return func(c *Channel) { c.filter.IsHubPortDevice = true }
}

// WithLogger sets the logger for lifecycle and bridge diagnostics.
func WithLogger(log Logger) Option {
	return func(c *Channel) {
		if log != nil {
			c.log = log
		}
	}
}
