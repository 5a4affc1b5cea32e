package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-hw/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hw/native"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publisher wraps paho.mqtt.golang and mirrors hardware channel events onto
// the broker.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Publish methods are intended to be called directly from channel and
//     manager event handlers.
type Publisher struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	id     string

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// logger for error logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament (LWT) for offline detection
//  3. Sets up auto-reconnect with exponential backoff
//  4. Attempts initial connection with timeout
//  5. Publishes online status to graylogic/hw/status
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Publisher: Connected publisher ready for use
//   - error: If initial connection fails within timeout
func Connect(cfg config.MQTTConfig) (*Publisher, error) {
	id := clientID(cfg)
	opts := buildClientOptions(cfg, id)
	configureLWT(opts, id)

	p := &Publisher{
		cfg: cfg,
		id:  id,
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		p.handleConnect()
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		p.handleDisconnect(err)
	})

	p.client = pahomqtt.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// Set connected state immediately after successful connection.
	// The OnConnectHandler callback runs asynchronously and may not have
	// executed yet, so we set it here to ensure IsConnected() returns true.
	p.connMu.Lock()
	p.connected = true
	p.connMu.Unlock()

	return p, nil
}

// handleConnect is called when the connection is established.
func (p *Publisher) handleConnect() {
	p.connMu.Lock()
	p.connected = true
	p.connMu.Unlock()

	// Publish online status
	topic := Topics{}.Status()
	p.client.Publish(topic, byte(p.cfg.QoS), true, buildOnlinePayload(p.id))
}

// handleDisconnect is called when the connection is lost.
func (p *Publisher) handleDisconnect(err error) {
	p.connMu.Lock()
	p.connected = false
	p.connMu.Unlock()

	p.loggerMu.RLock()
	log := p.logger
	p.loggerMu.RUnlock()
	if log != nil {
		log.Warn("mqtt connection lost", "error", err)
	}
}

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "graylogic/hw/12345/voltage_input/0/attach")
//   - payload: The message payload (typically JSON, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (p *Publisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !p.IsConnected() {
		return ErrNotConnected
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishAttach publishes a retained attach event for the channel.
//
// Retention means a subscriber joining after the event still learns the
// channel is present.
func (p *Publisher) PublishAttach(info native.AttachInfo) error {
	payload, err := buildAttachPayload("attach", info, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return p.Publish(Topics{}.Attach(info), payload, byte(p.cfg.QoS), true)
}

// PublishDetach publishes a retained detach event for the channel.
func (p *Publisher) PublishDetach(info native.AttachInfo) error {
	payload, err := buildAttachPayload("detach", info, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return p.Publish(Topics{}.Detach(info), payload, byte(p.cfg.QoS), true)
}

// PublishError publishes an asynchronous device error event.
func (p *Publisher) PublishError(info native.AttachInfo, devErr error) error {
	payload, err := buildErrorPayload(info, devErr, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return p.Publish(Topics{}.Error(info), payload, byte(p.cfg.QoS), false)
}

// PublishChange publishes a property change event.
func (p *Publisher) PublishChange(info native.AttachInfo, prop native.Property, v native.Value) error {
	payload, err := buildChangePayload(info, prop, v, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return p.Publish(Topics{}.Change(info, prop), payload, byte(p.cfg.QoS), false)
}

// Close gracefully disconnects from the MQTT broker.
//
// It performs:
//  1. Publishes graceful offline status (different from LWT crash status)
//  2. Waits for pending publish operations
//  3. Disconnects from broker
//
// Returns:
//   - error: If disconnect fails (connection already closed is not an error)
func (p *Publisher) Close() error {
	if p.client == nil {
		return nil
	}

	if p.IsConnected() {
		topic := Topics{}.Status()
		token := p.client.Publish(topic, byte(p.cfg.QoS), true, buildOfflinePayload(p.id))
		token.WaitTimeout(defaultPublishTimeout)
	}

	p.client.Disconnect(defaultDisconnectQuiesce)

	p.connMu.Lock()
	p.connected = false
	p.connMu.Unlock()

	return nil
}

// IsConnected returns the current connection state.
func (p *Publisher) IsConnected() bool {
	p.connMu.RLock()
	defer p.connMu.RUnlock()
	return p.connected && p.client.IsConnected()
}

// SetLogger sets an optional logger for connection warnings.
func (p *Publisher) SetLogger(logger Logger) {
	p.loggerMu.Lock()
	p.logger = logger
	p.loggerMu.Unlock()
}
