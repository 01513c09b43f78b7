// Package hub fans messages out to websocket clients over channels.
package hub

// Message is one broadcast payload, written as a text frame.
type Message struct {
	Data []byte
}

// NewJSONMessage wraps encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}
