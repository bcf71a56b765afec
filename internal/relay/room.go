package relay

// Room pairs exactly one host and one join occupant under a string key.
// All access happens under the Manager's mutex.
type Room struct {
	key     string
	created uint64 // registry-wide creation sequence, FIFO tie-break for auto matchmaking

	host *Session
	join *Session
}

// slot returns a pointer to the occupant slot for role.
func (r *Room) slot(role string) **Session {
	if role == RoleHost {
		return &r.host
	}
	return &r.join
}

// peerOf returns the other occupant for s, or nil if the far slot is empty
// or s is not in this room.
func (r *Room) peerOf(s *Session) *Session {
	switch s.role {
	case RoleHost:
		return r.join
	case RoleJoin:
		return r.host
	}
	return nil
}

// empty reports whether both slots are vacant.
func (r *Room) empty() bool {
	return r.host == nil && r.join == nil
}
