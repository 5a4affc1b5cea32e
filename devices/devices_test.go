package devices

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hw/channel"
	"github.com/nerrad567/gray-logic-hw/native"
	"github.com/nerrad567/gray-logic-hw/native/nativetest"
)

// =============================================================================
// End-to-end: voltage input against a simulated runtime
// =============================================================================

func TestVoltageInputEndToEnd(t *testing.T) {
	rt := nativetest.New()
	rt.Plug(&nativetest.Device{
		Info: native.AttachInfo{Class: native.ClassVoltageInput, SerialNumber: 12345},
		Properties: map[native.Property]native.Value{
			native.PropVoltage: native.FloatValue(3.3),
		},
	})

	in, err := NewVoltageInput(channel.WithRuntime(rt), channel.WithSerialNumber(12345))
	if err != nil {
		t.Fatalf("NewVoltageInput() error = %v", err)
	}
	if err := in.OpenWaitForAttachment(time.Second); err != nil {
		t.Fatalf("OpenWaitForAttachment() error = %v", err)
	}
	defer in.Close()

	v, err := in.Voltage()
	if err != nil {
		t.Fatalf("Voltage() error = %v", err)
	}
	if v != 3.3 {
		t.Errorf("Voltage() = %v, want 3.3", v)
	}

	var observed []float64
	if err := in.OnVoltageChange(func(volts float64) { observed = append(observed, volts) }); err != nil {
		t.Fatalf("OnVoltageChange() error = %v", err)
	}
	rt.DeliverChange(12345, native.PropVoltage, native.FloatValue(3.1))
	if len(observed) != 1 || observed[0] != 3.1 {
		t.Errorf("observed changes = %v, want [3.1]", observed)
	}

	rt.Unplug(12345)
	if _, err := in.Voltage(); !errors.Is(err, native.ErrNotAttached) {
		t.Errorf("Voltage() after detach = %v, want ErrNotAttached", err)
	}
}

// =============================================================================
// Per-class typed surfaces
// =============================================================================

func TestDigitalOutputDrive(t *testing.T) {
	rt := nativetest.New()
	rt.Plug(&nativetest.Device{
		Info: native.AttachInfo{Class: native.ClassDigitalOutput, SerialNumber: 1},
	})

	out, err := NewDigitalOutput(channel.WithRuntime(rt))
	if err != nil {
		t.Fatalf("NewDigitalOutput() error = %v", err)
	}
	if err := out.OpenWaitForAttachment(time.Second); err != nil {
		t.Fatalf("OpenWaitForAttachment() error = %v", err)
	}
	defer out.Close()

	if err := out.SetState(true); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	on, err := out.State()
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if !on {
		t.Error("State() = false after SetState(true)")
	}

	if err := out.SetDutyCycle(0.25); err != nil {
		t.Fatalf("SetDutyCycle() error = %v", err)
	}
	ratio, err := out.DutyCycle()
	if err != nil {
		t.Fatalf("DutyCycle() error = %v", err)
	}
	if ratio != 0.25 {
		t.Errorf("DutyCycle() = %v, want 0.25", ratio)
	}
}

func TestMotorVelocityControl(t *testing.T) {
	rt := nativetest.New()
	rt.Plug(&nativetest.Device{
		Info: native.AttachInfo{Class: native.ClassMotor, SerialNumber: 2},
		Properties: map[native.Property]native.Value{
			native.PropVelocity: native.FloatValue(0),
		},
	})

	m, err := NewMotor(channel.WithRuntime(rt))
	if err != nil {
		t.Fatalf("NewMotor() error = %v", err)
	}
	if err := m.OpenWaitForAttachment(time.Second); err != nil {
		t.Fatalf("OpenWaitForAttachment() error = %v", err)
	}
	defer m.Close()

	if err := m.SetAcceleration(0.5); err != nil {
		t.Fatalf("SetAcceleration() error = %v", err)
	}
	if err := m.SetTargetVelocity(0.8); err != nil {
		t.Fatalf("SetTargetVelocity() error = %v", err)
	}
	target, err := m.TargetVelocity()
	if err != nil {
		t.Fatalf("TargetVelocity() error = %v", err)
	}
	if target != 0.8 {
		t.Errorf("TargetVelocity() = %v, want 0.8", target)
	}

	var ramped []float64
	if err := m.OnVelocityChange(func(v float64) { ramped = append(ramped, v) }); err != nil {
		t.Fatalf("OnVelocityChange() error = %v", err)
	}
	rt.DeliverChange(2, native.PropVelocity, native.FloatValue(0.4))
	rt.DeliverChange(2, native.PropVelocity, native.FloatValue(0.8))
	if len(ramped) != 2 || ramped[1] != 0.8 {
		t.Errorf("velocity changes = %v, want [0.4 0.8]", ramped)
	}
}

func TestEncoderPosition(t *testing.T) {
	rt := nativetest.New()
	rt.Plug(&nativetest.Device{
		Info: native.AttachInfo{Class: native.ClassEncoder, SerialNumber: 3},
		Properties: map[native.Property]native.Value{
			native.PropPosition: native.IntValue(1024),
		},
	})

	e, err := NewEncoder(channel.WithRuntime(rt))
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if err := e.OpenWaitForAttachment(time.Second); err != nil {
		t.Fatalf("OpenWaitForAttachment() error = %v", err)
	}
	defer e.Close()

	pos, err := e.Position()
	if err != nil {
		t.Fatalf("Position() error = %v", err)
	}
	if pos != 1024 {
		t.Errorf("Position() = %d, want 1024", pos)
	}

	if err := e.SetPosition(0); err != nil {
		t.Fatalf("SetPosition() error = %v", err)
	}
	pos, err = e.Position()
	if err != nil {
		t.Fatalf("Position() error = %v", err)
	}
	if pos != 0 {
		t.Errorf("Position() = %d after rebase, want 0", pos)
	}
}

func TestTemperatureSensorOnHubPort(t *testing.T) {
	rt := nativetest.New()
	rt.Plug(&nativetest.Device{
		Info: native.AttachInfo{
			Class:        native.ClassTemperatureSensor,
			SerialNumber: 4,
			HubPort:      1,
		},
		Properties: map[native.Property]native.Value{
			native.PropTemperature: native.FloatValue(21.5),
		},
	})

	s, err := NewTemperatureSensor(
		channel.WithRuntime(rt),
		channel.WithSerialNumber(4),
		channel.WithHubPort(1),
	)
	if err != nil {
		t.Fatalf("NewTemperatureSensor() error = %v", err)
	}
	if err := s.OpenWaitForAttachment(time.Second); err != nil {
		t.Fatalf("OpenWaitForAttachment() error = %v", err)
	}
	defer s.Close()

	c, err := s.Temperature()
	if err != nil {
		t.Fatalf("Temperature() error = %v", err)
	}
	if c != 21.5 {
		t.Errorf("Temperature() = %v, want 21.5", c)
	}

	var readings []float64
	if err := s.OnTemperatureChange(func(celsius float64) { readings = append(readings, celsius) }); err != nil {
		t.Fatalf("OnTemperatureChange() error = %v", err)
	}
	rt.DeliverChange(4, native.PropTemperature, native.FloatValue(22.0))
	if len(readings) != 1 || readings[0] != 22.0 {
		t.Errorf("temperature changes = %v, want [22]", readings)
	}
}

func TestHubPortCount(t *testing.T) {
	rt := nativetest.New()
	rt.Plug(&nativetest.Device{
		Info: native.AttachInfo{Class: native.ClassHub, SerialNumber: 5},
		Properties: map[native.Property]native.Value{
			native.PropPortCount: native.IntValue(6),
		},
	})

	h, err := NewHub(channel.WithRuntime(rt))
	if err != nil {
		t.Fatalf("NewHub() error = %v", err)
	}
	if err := h.OpenWaitForAttachment(time.Second); err != nil {
		t.Fatalf("OpenWaitForAttachment() error = %v", err)
	}
	defer h.Close()

	n, err := h.PortCount()
	if err != nil {
		t.Fatalf("PortCount() error = %v", err)
	}
	if n != 6 {
		t.Errorf("PortCount() = %d, want 6", n)
	}
}

func TestDigitalInputStateEvents(t *testing.T) {
	rt := nativetest.New()
	rt.Plug(&nativetest.Device{
		Info: native.AttachInfo{Class: native.ClassDigitalInput, SerialNumber: 6},
		Properties: map[native.Property]native.Value{
			native.PropState: native.BoolValue(false),
		},
	})

	in, err := NewDigitalInput(channel.WithRuntime(rt))
	if err != nil {
		t.Fatalf("NewDigitalInput() error = %v", err)
	}
	if err := in.OpenWaitForAttachment(time.Second); err != nil {
		t.Fatalf("OpenWaitForAttachment() error = %v", err)
	}
	defer in.Close()

	var states []bool
	if err := in.OnStateChange(func(state bool) { states = append(states, state) }); err != nil {
		t.Fatalf("OnStateChange() error = %v", err)
	}
	rt.DeliverChange(6, native.PropState, native.BoolValue(true))
	rt.DeliverChange(6, native.PropState, native.BoolValue(false))

	if len(states) != 2 || !states[0] || states[1] {
		t.Errorf("state changes = %v, want [true false]", states)
	}

	got, err := in.State()
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if got {
		t.Error("State() = true, want false")
	}
}
