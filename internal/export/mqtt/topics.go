package mqtt

import (
	"fmt"

	"github.com/nerrad567/gray-logic-hw/native"
)

// Topic prefixes for the hardware layer.
//
// All publisher topics use the flat scheme:
// graylogic/hw/{serial}/{class}/{channel}/{event}
const (
	// TopicPrefixHW is the base for all hardware event topics.
	TopicPrefixHW = "graylogic/hw"
)

// Topics provides builders for hardware MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	attachTopic := topics.Attach(info)
//	// Returns: "graylogic/hw/12345/voltage_input/0/attach"
type Topics struct{}

// channelBase returns the shared prefix for a channel's event topics.
func (Topics) channelBase(info native.AttachInfo) string {
	return fmt.Sprintf("%s/%d/%s/%d", TopicPrefixHW, info.SerialNumber, info.Class, info.ChannelIndex)
}

// Attach returns the topic for channel attachment events.
//
// Example: graylogic/hw/12345/voltage_input/0/attach
func (t Topics) Attach(info native.AttachInfo) string {
	return t.channelBase(info) + "/attach"
}

// Detach returns the topic for channel detachment events.
//
// Example: graylogic/hw/12345/voltage_input/0/detach
func (t Topics) Detach(info native.AttachInfo) string {
	return t.channelBase(info) + "/detach"
}

// Error returns the topic for asynchronous device error events.
//
// Example: graylogic/hw/12345/voltage_input/0/error
func (t Topics) Error(info native.AttachInfo) string {
	return t.channelBase(info) + "/error"
}

// Change returns the topic for property change events.
//
// Example: graylogic/hw/12345/voltage_input/0/change/voltage
func (t Topics) Change(info native.AttachInfo, prop native.Property) string {
	return fmt.Sprintf("%s/change/%s", t.channelBase(info), prop)
}

// Status returns the publisher status topic.
//
// Example: graylogic/hw/status
func (Topics) Status() string {
	return TopicPrefixHW + "/status"
}
