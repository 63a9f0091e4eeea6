// Package hub fans pipeline events out to connected websocket clients using
// a single channel-driven loop.
package hub

// MessageType indicates the websocket frame type
type MessageType int

const (
	// JSONMessage is a JSON-encoded event
	JSONMessage MessageType = iota
	// BinaryMessage carries raw audio bytes
	BinaryMessage
)

// Message is one frame queued for every client
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps raw bytes
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
