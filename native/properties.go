package native

// Properties exposed by the supported device classes. Names match the
// vendor runtime's property identifiers.
const (
	PropVoltage        Property = "voltage"
	PropVoltageRatio   Property = "voltage_ratio"
	PropState          Property = "state"
	PropDutyCycle      Property = "duty_cycle"
	PropTargetVelocity Property = "target_velocity"
	PropVelocity       Property = "velocity"
	PropAcceleration   Property = "acceleration"
	PropPosition       Property = "position"
	PropTemperature    Property = "temperature"
	PropChangeTrigger  Property = "change_trigger"
	PropPortCount      Property = "port_count"
)

// propertyTables maps each device class to its typed property set. The
// channel layer consults this to reject foreign properties and wrong-kinded
// values before touching the runtime.
var propertyTables = map[DeviceClass]map[Property]ValueKind{
	ClassVoltageInput: {
		PropVoltage:       KindFloat,
		PropVoltageRatio:  KindFloat,
		PropChangeTrigger: KindFloat,
	},
	ClassDigitalInput: {
		PropState: KindBool,
	},
	ClassDigitalOutput: {
		PropState:     KindBool,
		PropDutyCycle: KindFloat,
	},
	ClassMotor: {
		PropTargetVelocity: KindFloat,
		PropVelocity:       KindFloat,
		PropAcceleration:   KindFloat,
	},
	ClassEncoder: {
		PropPosition: KindInt,
	},
	ClassTemperatureSensor: {
		PropTemperature:   KindFloat,
		PropChangeTrigger: KindFloat,
	},
	ClassHub: {
		PropPortCount: KindInt,
	},
}

// Properties returns the property table for a device class, or nil for an
// unknown class. The returned map is shared; callers must not modify it.
func Properties(class DeviceClass) map[Property]ValueKind {
	return propertyTables[class]
}
