package manager

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-hw/native"
)

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Descriptor identifies one attached device channel in the snapshot.
type Descriptor struct {
	SerialNumber int64
	HubPort      int
	ChannelIndex int
	Class        native.DeviceClass
	Label        string
}

// deviceKey is the snapshot map key: everything identity-bearing, label
// excluded since it is user-assigned and mutable.
type deviceKey struct {
	serial  int64
	hubPort int
	index   int
	class   native.DeviceClass
}

func (d Descriptor) key() deviceKey {
	return deviceKey{d.SerialNumber, d.HubPort, d.ChannelIndex, d.Class}
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithRuntime injects the native runtime to observe. Defaults to the
// process-wide runtime registered via native.Register.
func WithRuntime(rt native.Runtime) Option {
	return func(m *Manager) { m.rt = rt }
}

// WithLogger sets the logger for discovery diagnostics.
func WithLogger(log Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// Manager is the process-wide observer of attached devices. At most one
// observation cycle runs at a time; Start during a running cycle fails with
// native.ErrAlreadyOpen. Stop is safe from any goroutine.
type Manager struct {
	rt  native.Runtime
	log Logger

	mu        sync.Mutex
	started   bool
	gen       uint64
	inflight  int
	broadcast chan struct{}
	devices   map[deviceKey]Descriptor
	onAttach  func(Descriptor)
	onDetach  func(Descriptor)
}

// New creates a stopped Manager.
func New(opts ...Option) (*Manager, error) {
	m := &Manager{
		log:       noopLogger{},
		broadcast: make(chan struct{}),
		devices:   make(map[deviceKey]Descriptor),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rt == nil {
		rt, err := native.Default()
		if err != nil {
			return nil, err
		}
		m.rt = rt
	}
	return m, nil
}

// Start registers the process-wide observers with the runtime's discovery
// mechanism. Devices already attached are reported through onAttach before or
// shortly after Start returns, depending on the runtime. Either handler may
// be nil.
func (m *Manager) Start(onAttach, onDetach func(Descriptor)) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("start device manager: %w", native.ErrAlreadyOpen)
	}
	m.started = true
	m.gen++
	gen := m.gen
	m.onAttach = onAttach
	m.onDetach = onDetach
	m.devices = make(map[deviceKey]Descriptor)
	m.mu.Unlock()

	code := m.rt.OpenManager(
		func(info native.AttachInfo) { m.dispatchAttach(gen, info) },
		func(info native.AttachInfo) { m.dispatchDetach(gen, info) },
	)
	if code != native.CodeOK {
		m.mu.Lock()
		m.started = false
		m.onAttach = nil
		m.onDetach = nil
		m.mu.Unlock()
		return fmt.Errorf("start device manager: %w", native.Translate(code))
	}

	m.log.Debug("device manager started")
	return nil
}

// Stop deregisters the observers, waits out in-flight notifications and
// clears the snapshot. Idempotent: stopping a stopped Manager is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	m.onAttach = nil
	m.onDetach = nil
	m.mu.Unlock()

	// Deregister outside the lock; a delivery thread reporting a detach
	// needs the same lock.
	code := m.rt.CloseManager()

	m.mu.Lock()
	for m.inflight > 0 {
		wait := m.broadcast
		m.mu.Unlock()
		<-wait
		m.mu.Lock()
	}
	m.devices = make(map[deviceKey]Descriptor)
	m.mu.Unlock()

	if code != native.CodeOK {
		return fmt.Errorf("stop device manager: %w", native.Translate(code))
	}
	m.log.Debug("device manager stopped")
	return nil
}

// Snapshot returns a copy of the currently attached devices, sorted by
// serial number, hub port, channel index and class.
func (m *Manager) Snapshot() []Descriptor {
	m.mu.Lock()
	out := make([]Descriptor, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SerialNumber != b.SerialNumber {
			return a.SerialNumber < b.SerialNumber
		}
		if a.HubPort != b.HubPort {
			return a.HubPort < b.HubPort
		}
		if a.ChannelIndex != b.ChannelIndex {
			return a.ChannelIndex < b.ChannelIndex
		}
		return a.Class < b.Class
	})
	return out
}

// Count returns the number of devices in the snapshot.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.devices)
}

// =============================================================================
// Dispatch: runs on the native runtime's delivery threads
// =============================================================================

func describe(info native.AttachInfo) Descriptor {
	return Descriptor{
		SerialNumber: info.SerialNumber,
		HubPort:      info.HubPort,
		ChannelIndex: info.ChannelIndex,
		Class:        info.Class,
		Label:        info.Label,
	}
}

func (m *Manager) dispatchAttach(gen uint64, info native.AttachInfo) {
	d := describe(info)

	m.mu.Lock()
	if gen != m.gen || !m.started {
		m.mu.Unlock()
		return
	}
	m.devices[d.key()] = d
	fn := m.onAttach
	m.inflight++
	m.mu.Unlock()

	defer m.exitDispatch()
	if fn != nil {
		m.invoke("attach", func() { fn(d) })
	}
}

func (m *Manager) dispatchDetach(gen uint64, info native.AttachInfo) {
	d := describe(info)

	m.mu.Lock()
	if gen != m.gen || !m.started {
		m.mu.Unlock()
		return
	}
	delete(m.devices, d.key())
	fn := m.onDetach
	m.inflight++
	m.mu.Unlock()

	defer m.exitDispatch()
	if fn != nil {
		m.invoke("detach", func() { fn(d) })
	}
}

func (m *Manager) exitDispatch() {
	m.mu.Lock()
	m.inflight--
	if m.inflight < 0 {
		panic("manager: notification in-flight count went negative")
	}
	close(m.broadcast)
	m.broadcast = make(chan struct{})
	m.mu.Unlock()
}

func (m *Manager) invoke(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("device manager handler panic recovered", "event", kind, "panic", r)
		}
	}()
	fn()
}
