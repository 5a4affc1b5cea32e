// Gray Logic HW - hardware channel monitor
//
// hwmon opens a single hardware channel, waits for attachment, and mirrors
// its events to the configured exporters (MQTT, InfluxDB, SQLite inventory).
// With -discover it instead watches the device manager and reports every
// channel the runtime can see.
//
// Examples:
//
//	hwmon -class voltage_input -serial 12345 -timeout 10s
//	hwmon -class temperature_sensor -hub-port 2 -config /etc/graylogic/hw.yaml
//	hwmon -discover
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-hw/channel"
	"github.com/nerrad567/gray-logic-hw/internal/export/influx"
	"github.com/nerrad567/gray-logic-hw/internal/export/mqtt"
	"github.com/nerrad567/gray-logic-hw/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hw/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hw/internal/inventory"
	"github.com/nerrad567/gray-logic-hw/manager"
	"github.com/nerrad567/gray-logic-hw/native"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
)

// options holds the parsed command line.
type options struct {
	configPath string
	discover   bool

	class    string
	serial   int64
	hubPort  int
	chanIdx  int
	label    string
	hub      bool
	timeout  time.Duration
	hasLimit bool
}

func main() {
	opts := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.configPath, "config", "", "path to config.yaml (defaults to built-in config)")
	flag.BoolVar(&opts.discover, "discover", false, "watch the device manager instead of one channel")
	flag.StringVar(&opts.class, "class", "voltage_input", "device class to open")
	flag.Int64Var(&opts.serial, "serial", -1, "device serial number (-1 matches any)")
	flag.IntVar(&opts.hubPort, "hub-port", -1, "hub port (-1 matches any)")
	flag.IntVar(&opts.chanIdx, "channel", -1, "channel index (-1 matches any)")
	flag.StringVar(&opts.label, "label", "", "device label (empty matches any)")
	flag.BoolVar(&opts.hub, "hub", false, "address the hub port itself, not a device on it")
	flag.DurationVar(&opts.timeout, "timeout", 0, "attachment wait (0 uses config, -1s waits forever)")

	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "timeout" {
			opts.hasLimit = true
		}
	})

	return opts
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Parsed command line options
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts options) error {
	log := logging.Default()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting Gray Logic HW monitor", "version", version)

	exp, err := connectExporters(cfg, log)
	if err != nil {
		return err
	}
	defer exp.close(log)

	if opts.discover {
		return runDiscover(ctx, exp, log)
	}
	return runMonitor(ctx, cfg, opts, exp, log)
}

// loadConfig resolves the configuration source: explicit flag, the
// GRAYLOGICHW_CONFIG environment variable, or built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("GRAYLOGICHW_CONFIG")
	}
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// exporters bundles the optional event sinks.
type exporters struct {
	pub   *mqtt.Publisher
	rec   *influx.Recorder
	store *inventory.Store
}

// connectExporters brings up each enabled sink. A disabled sink stays nil
// and is skipped at event time.
func connectExporters(cfg *config.Config, log *logging.Logger) (*exporters, error) {
	exp := &exporters{}

	if cfg.MQTT.Enabled {
		pub, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		pub.SetLogger(log)
		exp.pub = pub
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		)
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		rec, err := influx.Connect(cfg.InfluxDB)
		if err != nil {
			exp.close(log)
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		rec.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		exp.rec = rec
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.Inventory.Enabled {
		store, err := inventory.Open(cfg.Inventory)
		if err != nil {
			exp.close(log)
			return nil, fmt.Errorf("opening inventory: %w", err)
		}
		exp.store = store
		log.Info("inventory open", "path", store.Path())
	} else {
		log.Info("inventory disabled")
	}

	return exp, nil
}

func (e *exporters) close(log *logging.Logger) {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			log.Error("error closing inventory", "error", err)
		}
		e.store = nil
	}
	if e.rec != nil {
		if err := e.rec.Close(); err != nil {
			log.Error("error closing InfluxDB", "error", err)
		}
		e.rec = nil
	}
	if e.pub != nil {
		if err := e.pub.Close(); err != nil {
			log.Error("error closing MQTT", "error", err)
		}
		e.pub = nil
	}
}

// attach routes one attach event to every enabled sink.
func (e *exporters) attach(ctx context.Context, info native.AttachInfo, log *logging.Logger) {
	if e.pub != nil {
		if err := e.pub.PublishAttach(info); err != nil {
			log.Error("publishing attach", "error", err)
		}
	}
	if e.rec != nil {
		e.rec.WriteEvent(info, "attach")
	}
	if e.store != nil {
		if err := e.store.RecordAttach(ctx, info); err != nil {
			log.Error("recording attach", "error", err)
		}
	}
}

// detach routes one detach event to every enabled sink.
func (e *exporters) detach(ctx context.Context, info native.AttachInfo, log *logging.Logger) {
	if e.pub != nil {
		if err := e.pub.PublishDetach(info); err != nil {
			log.Error("publishing detach", "error", err)
		}
	}
	if e.rec != nil {
		e.rec.WriteEvent(info, "detach")
	}
	if e.store != nil {
		if err := e.store.RecordDetach(ctx, info); err != nil {
			log.Error("recording detach", "error", err)
		}
	}
}

// change routes one property change to every enabled sink.
func (e *exporters) change(info native.AttachInfo, p native.Property, v native.Value, log *logging.Logger) {
	if e.pub != nil {
		if err := e.pub.PublishChange(info, p, v); err != nil {
			log.Error("publishing change", "error", err)
		}
	}
	if e.rec != nil && v.Kind == native.KindFloat {
		e.rec.WriteSample(info, p, v.Float)
	}
}

// runMonitor opens one channel, waits for attachment, and mirrors its
// events until the context is cancelled.
func runMonitor(ctx context.Context, cfg *config.Config, opts options, exp *exporters, log *logging.Logger) error {
	class, err := parseClass(opts.class)
	if err != nil {
		return err
	}

	chOpts := []channel.Option{channel.WithLogger(log)}
	if opts.serial >= 0 {
		chOpts = append(chOpts, channel.WithSerialNumber(opts.serial))
	}
	if opts.hubPort >= 0 {
		chOpts = append(chOpts, channel.WithHubPort(opts.hubPort))
	}
	if opts.chanIdx >= 0 {
		chOpts = append(chOpts, channel.WithChannelIndex(opts.chanIdx))
	}
	if opts.label != "" {
		chOpts = append(chOpts, channel.WithLabel(opts.label))
	}
	if opts.hub {
		chOpts = append(chOpts, channel.WithHubPortDevice())
	}

	ch, err := channel.New(class, chOpts...)
	if err != nil {
		return fmt.Errorf("creating channel: %w", err)
	}

	log.Info("opening channel", "class", class.String())
	if err := ch.Open(); err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}

	// Handler registration is only legal while the channel is open. Hardware
	// already plugged in attaches during Open itself, before these handlers
	// exist; sawAttach distinguishes that case so the initial attach is still
	// reported exactly once after the wait below.
	var sawAttach atomic.Bool
	if err := registerHandlers(ctx, ch, exp, &sawAttach, log); err != nil {
		_ = ch.Close()
		return fmt.Errorf("registering handlers: %w", err)
	}

	timeout := cfg.GetOpenTimeout()
	if opts.hasLimit {
		timeout = opts.timeout
	}

	log.Info("waiting for attachment", "timeout", timeout)
	if err := ch.WaitForAttachment(timeout); err != nil {
		_ = ch.Close()
		return fmt.Errorf("waiting for attachment: %w", err)
	}

	if info, ok := ch.AttachedInfo(); ok && !sawAttach.Load() {
		log.Info("channel attached",
			"serial", info.SerialNumber,
			"class", info.Class.String(),
			"hub_port", info.HubPort,
			"channel", info.ChannelIndex,
			"label", info.Label,
		)
		exp.attach(ctx, info, log)
	}

	if prop, v, err := readPrimary(ch); err != nil {
		log.Warn("reading initial value", "error", err)
	} else {
		log.Info("initial value", "property", string(prop), "value", formatValue(v))
	}

	<-ctx.Done()

	log.Info("shutdown signal received, closing channel")
	if err := ch.Close(); err != nil {
		return fmt.Errorf("closing channel: %w", err)
	}

	log.Info("Gray Logic HW monitor stopped")
	return nil
}

// registerHandlers wires the channel's event slots to logging and the
// exporters. Must be called while the channel is open.
func registerHandlers(ctx context.Context, ch *channel.Channel, exp *exporters, sawAttach *atomic.Bool, log *logging.Logger) error {
	if err := ch.OnAttach(func(info native.AttachInfo) {
		sawAttach.Store(true)
		log.Info("channel attached",
			"serial", info.SerialNumber,
			"class", info.Class.String(),
			"hub_port", info.HubPort,
			"channel", info.ChannelIndex,
			"label", info.Label,
		)
		exp.attach(ctx, info, log)
	}); err != nil {
		return err
	}

	if err := ch.OnDetach(func() {
		info, _ := ch.AttachedInfo()
		log.Warn("channel detached", "serial", info.SerialNumber)
		exp.detach(ctx, info, log)
	}); err != nil {
		return err
	}

	if err := ch.OnError(func(err error) {
		log.Error("device error", "error", err)
		if info, ok := ch.AttachedInfo(); ok && exp.pub != nil {
			if pubErr := exp.pub.PublishError(info, err); pubErr != nil {
				log.Error("publishing device error", "error", pubErr)
			}
		}
	}); err != nil {
		return err
	}

	return ch.OnChange(func(p native.Property, v native.Value) {
		log.Info("property changed", "property", string(p), "value", formatValue(v))
		if info, ok := ch.AttachedInfo(); ok {
			exp.change(info, p, v, log)
		}
	})
}

// runDiscover watches the device manager and reports every channel the
// runtime exposes until the context is cancelled.
func runDiscover(ctx context.Context, exp *exporters, log *logging.Logger) error {
	mgr, err := manager.New(manager.WithLogger(log))
	if err != nil {
		return fmt.Errorf("creating manager: %w", err)
	}

	onAttach := func(d manager.Descriptor) {
		log.Info("device attached",
			"serial", d.SerialNumber,
			"class", d.Class.String(),
			"hub_port", d.HubPort,
			"channel", d.ChannelIndex,
			"label", d.Label,
		)
		exp.attach(ctx, native.AttachInfo{
			Class:        d.Class,
			SerialNumber: d.SerialNumber,
			HubPort:      d.HubPort,
			ChannelIndex: d.ChannelIndex,
			Label:        d.Label,
		}, log)
	}
	onDetach := func(d manager.Descriptor) {
		log.Info("device detached", "serial", d.SerialNumber, "class", d.Class.String())
		exp.detach(ctx, native.AttachInfo{
			Class:        d.Class,
			SerialNumber: d.SerialNumber,
			HubPort:      d.HubPort,
			ChannelIndex: d.ChannelIndex,
			Label:        d.Label,
		}, log)
	}

	if err := mgr.Start(onAttach, onDetach); err != nil {
		return fmt.Errorf("starting manager: %w", err)
	}

	<-ctx.Done()

	log.Info("shutdown signal received, stopping manager")
	if err := mgr.Stop(); err != nil {
		return fmt.Errorf("stopping manager: %w", err)
	}

	log.Info("Gray Logic HW monitor stopped")
	return nil
}

// readPrimary reads the class's primary property so the operator sees a
// value immediately after attachment, before the first change event.
func readPrimary(ch *channel.Channel) (native.Property, native.Value, error) {
	switch ch.Class() {
	case native.ClassVoltageInput:
		v, err := channel.Get[float64](ch, native.PropVoltage)
		return native.PropVoltage, native.FloatValue(v), err
	case native.ClassDigitalInput, native.ClassDigitalOutput:
		v, err := channel.Get[bool](ch, native.PropState)
		return native.PropState, native.BoolValue(v), err
	case native.ClassMotor:
		v, err := channel.Get[float64](ch, native.PropVelocity)
		return native.PropVelocity, native.FloatValue(v), err
	case native.ClassEncoder:
		v, err := channel.Get[int64](ch, native.PropPosition)
		return native.PropPosition, native.IntValue(v), err
	case native.ClassTemperatureSensor:
		v, err := channel.Get[float64](ch, native.PropTemperature)
		return native.PropTemperature, native.FloatValue(v), err
	case native.ClassHub:
		v, err := channel.Get[int64](ch, native.PropPortCount)
		return native.PropPortCount, native.IntValue(v), err
	default:
		return "", native.Value{}, fmt.Errorf("no primary property for class %s", ch.Class())
	}
}

// parseClass maps a command-line class name to its device class.
func parseClass(name string) (native.DeviceClass, error) {
	classes := []native.DeviceClass{
		native.ClassVoltageInput,
		native.ClassDigitalInput,
		native.ClassDigitalOutput,
		native.ClassMotor,
		native.ClassEncoder,
		native.ClassTemperatureSensor,
		native.ClassHub,
	}
	for _, c := range classes {
		if c.String() == name {
			return c, nil
		}
	}
	return native.ClassUnknown, fmt.Errorf("unknown device class %q", name)
}

// formatValue renders a tagged value for log output.
func formatValue(v native.Value) string {
	switch v.Kind {
	case native.KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case native.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case native.KindInt:
		return fmt.Sprintf("%d", v.Int)
	case native.KindString:
		return v.Str
	default:
		return "?"
	}
}
