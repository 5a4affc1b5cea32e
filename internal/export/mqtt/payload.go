package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-hw/native"
)

// channelIdentity is the channel identification block embedded in every
// event payload.
type channelIdentity struct {
	SerialNumber int64  `json:"serial_number"`
	Class        string `json:"class"`
	HubPort      int    `json:"hub_port"`
	ChannelIndex int    `json:"channel_index"`
	Label        string `json:"label,omitempty"`
}

// attachEvent is the payload for attach and detach messages.
type attachEvent struct {
	Event     string          `json:"event"`
	Channel   channelIdentity `json:"channel"`
	Timestamp string          `json:"timestamp"`
}

// errorEvent is the payload for asynchronous device error messages.
type errorEvent struct {
	Event     string          `json:"event"`
	Channel   channelIdentity `json:"channel"`
	Error     string          `json:"error"`
	Timestamp string          `json:"timestamp"`
}

// changeEvent is the payload for property change messages.
type changeEvent struct {
	Event     string          `json:"event"`
	Channel   channelIdentity `json:"channel"`
	Property  string          `json:"property"`
	Value     any             `json:"value"`
	Timestamp string          `json:"timestamp"`
}

// identityOf converts runtime attach info into the payload identity block.
func identityOf(info native.AttachInfo) channelIdentity {
	return channelIdentity{
		SerialNumber: info.SerialNumber,
		Class:        info.Class.String(),
		HubPort:      info.HubPort,
		ChannelIndex: info.ChannelIndex,
		Label:        info.Label,
	}
}

// valueOf converts a tagged runtime value into its JSON representation.
func valueOf(v native.Value) any {
	switch v.Kind {
	case native.KindFloat:
		return v.Float
	case native.KindBool:
		return v.Bool
	case native.KindInt:
		return v.Int
	case native.KindString:
		return v.Str
	default:
		return nil
	}
}

func buildAttachPayload(event string, info native.AttachInfo, now time.Time) ([]byte, error) {
	return json.Marshal(attachEvent{
		Event:     event,
		Channel:   identityOf(info),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}

func buildErrorPayload(info native.AttachInfo, devErr error, now time.Time) ([]byte, error) {
	return json.Marshal(errorEvent{
		Event:     "error",
		Channel:   identityOf(info),
		Error:     devErr.Error(),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}

func buildChangePayload(info native.AttachInfo, prop native.Property, v native.Value, now time.Time) ([]byte, error) {
	return json.Marshal(changeEvent{
		Event:     "change",
		Channel:   identityOf(info),
		Property:  string(prop),
		Value:     valueOf(v),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}

// buildOnlinePayload creates the JSON payload for online status messages.
func buildOnlinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"online","client_id":"%s","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// buildOfflinePayload creates the JSON payload for graceful offline status.
func buildOfflinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"offline","client_id":"%s","reason":"graceful_shutdown","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}
