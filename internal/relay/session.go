package relay

// Peer is the transport-side half of a connection: the Manager sends
// envelopes through it and identifies occupants by its stable ID. Send
// failures are swallowed by the core; the transport's own disconnect path
// is responsible for cleanup.
type Peer interface {
	ID() string
	RemoteAddr() string
	Send(v any) error
}

// Session is the relay-side state for one connected peer. The name, room
// and role fields are owned by the Manager and only touched under its
// mutex. Invariant: room is set iff role is set.
type Session struct {
	peer Peer
	name string
	room string
	role string
}

// ID returns the stable connection ID.
func (s *Session) ID() string { return s.peer.ID() }

// Name returns the current display name.
func (s *Session) Name() string { return s.name }

// Room returns the current room key, or "" when unattached.
func (s *Session) Room() string { return s.room }

// Role returns "host" or "join", or "" when unattached.
func (s *Session) Role() string { return s.role }

// send marshals and writes one envelope, best-effort.
func (s *Session) send(v any) {
	_ = s.peer.Send(v)
}

// sendError reports a protocol error to the peer. Never terminal.
func (s *Session) sendError(message string) {
	s.send(ErrorReply(message))
}
