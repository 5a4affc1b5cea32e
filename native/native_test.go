package native

import "testing"

func TestFilterMatches(t *testing.T) {
	info := AttachInfo{
		Class:        ClassVoltageInput,
		SerialNumber: 12345,
		HubPort:      2,
		ChannelIndex: 0,
		Label:        "pressure",
	}

	tests := []struct {
		name   string
		filter OpenFilter
		want   bool
	}{
		{"any of class", AnyFilter(ClassVoltageInput), true},
		{"wrong class", AnyFilter(ClassDigitalInput), false},
		{
			"serial match",
			OpenFilter{Class: ClassVoltageInput, SerialNumber: 12345, HubPort: -1, ChannelIndex: -1},
			true,
		},
		{
			"serial mismatch",
			OpenFilter{Class: ClassVoltageInput, SerialNumber: 99999, HubPort: -1, ChannelIndex: -1},
			false,
		},
		{
			"serial match but hub port mismatch",
			OpenFilter{Class: ClassVoltageInput, SerialNumber: 12345, HubPort: 0, ChannelIndex: -1},
			false,
		},
		{
			"channel index match",
			OpenFilter{Class: ClassVoltageInput, SerialNumber: -1, HubPort: -1, ChannelIndex: 0},
			true,
		},
		{
			"label mismatch",
			OpenFilter{Class: ClassVoltageInput, SerialNumber: -1, HubPort: -1, ChannelIndex: -1, Label: "flow"},
			false,
		},
		{
			"full identity",
			OpenFilter{Class: ClassVoltageInput, SerialNumber: 12345, HubPort: 2, ChannelIndex: 0, Label: "pressure"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(info); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPropertiesPerClass(t *testing.T) {
	if Properties(ClassUnknown) != nil {
		t.Error("Properties(ClassUnknown) != nil")
	}

	volt := Properties(ClassVoltageInput)
	if kind, ok := volt[PropVoltage]; !ok || kind != KindFloat {
		t.Errorf("voltage input voltage property = (%v, %v), want (KindFloat, true)", kind, ok)
	}
	if _, ok := volt[PropPosition]; ok {
		t.Error("voltage input exposes encoder position property")
	}

	if kind := Properties(ClassDigitalInput)[PropState]; kind != KindBool {
		t.Errorf("digital input state kind = %v, want KindBool", kind)
	}
	if kind := Properties(ClassEncoder)[PropPosition]; kind != KindInt {
		t.Errorf("encoder position kind = %v, want KindInt", kind)
	}
}

func TestDefaultRuntimeUnregistered(t *testing.T) {
	if _, err := Default(); err == nil {
		t.Error("Default() with no registered runtime returned nil error")
	}
}
