// Package eventstream republishes application events to local WebSocket
// clients, for out-of-process consumers such as a recording backend.
//
// # Wire format
//
// Every frame is a UTF-8 JSON text message:
//
//	{"type":"hello","seq":0,"ts":1700000000000}
//	{"type":"event","name":"hotkey-pressed","seq":1,"ts":1700000000123}
//
// ts is Unix milliseconds. seq increases by one per broadcast event and is
// shared by all clients, so a client can detect frames it missed after being
// dropped for falling behind. The server ignores client text frames.
package eventstream

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types.
const (
	TypeHello = "hello"
	TypeEvent = "event"
)

// Message is one frame on the stream.
type Message struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Seq  uint64 `json:"seq"`
	TS   int64  `json:"ts"`
}

// Time converts TS back to a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.TS)
}

// EncodeMessage marshals msg as a text frame payload.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.Type == "" {
		return nil, fmt.Errorf("eventstream: encode: type must not be empty")
	}
	if msg.Type == TypeEvent && msg.Name == "" {
		return nil, fmt.Errorf("eventstream: encode: event name must not be empty")
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a text frame payload.
func DecodeMessage(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, fmt.Errorf("eventstream: decode: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("eventstream: decode: missing type")
	}
	return msg, nil
}
