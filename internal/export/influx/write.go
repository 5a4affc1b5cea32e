package influx

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-hw/native"
)

// channelTags builds the tag set identifying one hardware channel.
// Tags stay low-cardinality: serial, class, channel index, and property
// or event name. Labels go in fields, not tags, because installers
// relabel hardware freely.
func channelTags(info native.AttachInfo) map[string]string {
	return map[string]string{
		"serial_number": strconv.FormatInt(info.SerialNumber, 10),
		"class":         info.Class.String(),
		"channel_index": strconv.Itoa(info.ChannelIndex),
	}
}

// WriteSample records a single numeric property reading.
//
// This is the primary method for recording sensor telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - info: Identity of the channel the reading came from
//   - prop: The property that changed (e.g., "voltage", "temperature")
//   - value: The numeric value to record
//
// Example:
//
//	rec.WriteSample(info, native.PropVoltage, 3.3)
func (r *Recorder) WriteSample(info native.AttachInfo, prop native.Property, value float64) {
	if !r.IsConnected() {
		return
	}

	tags := channelTags(info)
	tags["property"] = string(prop)

	fields := map[string]interface{}{
		"value": value,
	}
	if info.Label != "" {
		fields["label"] = info.Label
	}

	point := write.NewPoint("hw_samples", tags, fields, time.Now())
	r.writeAPI.WritePoint(point)
}

// WriteEvent records a presence event (attach or detach) for a channel.
//
// Parameters:
//   - info: Identity of the channel
//   - event: "attach" or "detach"
func (r *Recorder) WriteEvent(info native.AttachInfo, event string) {
	if !r.IsConnected() {
		return
	}

	tags := channelTags(info)
	tags["event"] = event

	fields := map[string]interface{}{
		"count": int64(1),
	}
	if info.Label != "" {
		fields["label"] = info.Label
	}

	point := write.NewPoint("hw_events", tags, fields, time.Now())
	r.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (r *Recorder) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !r.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	r.writeAPI.WritePoint(point)
}
