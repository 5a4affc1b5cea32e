// Package influx records hardware samples in InfluxDB for trend analysis.
//
// The recorder turns property change events into time-series points so that
// sensor readings (voltage, temperature, velocity) can be graphed and
// queried long after the hardware layer restarts.
//
// # Measurements
//
//   - hw_samples: one point per numeric property change, tagged by serial
//     number, device class, channel index, and property name
//   - hw_events: one point per attach or detach, for presence history
//
// # Write Path
//
// Writes use the non-blocking batched API; recording a sample from inside a
// change handler never stalls event delivery. Async write failures surface
// through the SetOnError callback.
//
// Usage:
//
//	rec, err := influx.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer rec.Close()
//
//	ch.OnVoltageChange(func(v float64) {
//	    rec.WriteSample(info, native.PropVoltage, v)
//	})
package influx
