package relay

import (
	"encoding/json"
	"errors"
	"time"
)

// MaxLineBytes caps a single inbound frame (one JSON line on TCP, one text
// message on WebSocket). Exceeding it is terminal for the connection.
const MaxLineBytes = 128 * 1024

// Inbound ops dispatched by the Manager.
const (
	opJoin = "join"
	opPing = "ping"
	opPong = "pong"
	opMsg  = "msg"
)

// DefaultRoom is used when a join carries no room key.
const DefaultRoom = "default"

// Roles a peer can take in a room.
const (
	RoleHost = "host"
	RoleJoin = "join"
)

var (
	ErrInvalidJSON    = errors.New("invalid json")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Inbound is a decoded client message. Kept as a generic map so forwarded
// payload fields (`type`, `body`) stay opaque to the core.
type Inbound map[string]any

// Op returns the message's op field, or "" if absent/non-string.
func (m Inbound) Op() string {
	s, _ := m["op"].(string)
	return s
}

// Str returns a string field, or "" if absent or not a string.
func (m Inbound) Str(key string) string {
	s, _ := m[key].(string)
	return s
}

// Decode parses one frame into an Inbound message. ErrInvalidJSON means the
// bytes are not JSON; ErrInvalidPayload means they parsed to something other
// than an object. Both are non-terminal for the connection.
func Decode(data []byte) (Inbound, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ErrInvalidJSON
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrInvalidPayload
	}
	return Inbound(obj), nil
}

// Outbound reply envelopes. Every timestamp is ms since the Unix epoch,
// computed server-side at send time.

type joinedReply struct {
	Op          string `json:"op"`
	Room        string `json:"room"`
	Role        string `json:"role"`
	TimestampMs int64  `json:"timestampMs"`
}

type readyNotice struct {
	Op          string `json:"op"`
	Peer        string `json:"peer"`
	TimestampMs int64  `json:"timestampMs"`
}

type peerLeftNotice struct {
	Op          string `json:"op"`
	Reason      string `json:"reason"`
	TimestampMs int64  `json:"timestampMs"`
}

type pongReply struct {
	Op          string `json:"op"`
	TimestampMs int64  `json:"timestampMs"`
}

type errorReply struct {
	Op      string `json:"op"`
	Message string `json:"message"`
}

// ErrorReply builds an error envelope. Exposed for the transports, which
// report decode failures themselves before the Manager ever sees a message.
func ErrorReply(message string) any {
	return errorReply{Op: "error", Message: message}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
