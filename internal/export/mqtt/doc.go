// Package mqtt publishes hardware channel events to an MQTT broker.
//
// The publisher mirrors every attach, detach, error, and change event onto
// the broker so that other services (dashboards, automation, alerting) can
// observe hardware activity without linking against the vendor runtime.
//
// # Topic Hierarchy
//
// All topics live under the graylogic/hw prefix:
//
//	graylogic/hw/status                                   publisher online/offline
//	graylogic/hw/{serial}/{class}/{channel}/attach        channel attached
//	graylogic/hw/{serial}/{class}/{channel}/detach        channel detached
//	graylogic/hw/{serial}/{class}/{channel}/error         asynchronous device error
//	graylogic/hw/{serial}/{class}/{channel}/change/{prop} property value change
//
// Attach and detach messages are retained so late subscribers see the last
// known presence of each channel. Change and error messages are not retained.
//
// # Connection Handling
//
// The publisher auto-reconnects with exponential backoff and registers a
// Last Will so the broker announces an unexpected disconnect on the status
// topic. Publish calls on a disconnected client return ErrNotConnected
// rather than blocking.
//
// Usage:
//
//	pub, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//
//	ch.OnAttach(func(info native.AttachInfo) {
//	    pub.PublishAttach(info)
//	})
package mqtt
