package tvremote

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Outbound methods.
const (
	MethodRemoteControl = "ms.remote.control"
	MethodChannelEmit   = "ms.channel.emit"
)

// Inbound events the remote waits on.
const (
	EventChannelConnect      = "ms.channel.connect"
	EventChannelUnauthorized = "ms.channel.unauthorized"
	EventIMEStart            = "ms.remote.imeStart"
	EventIMEUpdate           = "ms.remote.imeUpdate"
	EventTouchEnable         = "ms.remote.touchEnable"
	EventVoiceStandby        = "ms.voiceApp.standby"
	EventVoiceHide           = "ms.voiceApp.hide"
	EventEdenApps            = "ed.edenApp.get"
	EventInstalledApps       = "ed.installedApp.get"
	EventAppLaunch           = "ed.apps.launch"
)

// Message is one decoded inbound frame.
type Message struct {
	Raw []byte

	fields map[string]json.RawMessage
}

// parseMessage decodes a frame. Only JSON objects are accepted.
func parseMessage(data []byte) (*Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	if fields == nil {
		return nil, errors.New("parse frame: not an object")
	}
	return &Message{Raw: data, fields: fields}, nil
}

// Has reports whether the frame carries key at the top level.
func (m *Message) Has(key string) bool {
	_, ok := m.fields[key]
	return ok
}

// String returns the value of key when it is a JSON string.
func (m *Message) String(key string) (string, bool) {
	raw, ok := m.fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Event returns the "event" discriminator, or "" when absent.
func (m *Message) Event() string {
	s, _ := m.String("event")
	return s
}

// UnmarshalData decodes the "data" field into v.
func (m *Message) UnmarshalData(v any) error {
	raw, ok := m.fields["data"]
	if !ok {
		return errors.New("message has no data")
	}
	return json.Unmarshal(raw, v)
}

// frame is the outbound wire format.
type frame struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

func marshalFrame(method string, params any) ([]byte, error) {
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(frame{Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", method, err)
	}
	return data, nil
}

// serializeString encodes text the way the device expects names and input strings.
func serializeString(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
