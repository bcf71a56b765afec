package relay

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"battle-relay/pkg/metrics"
)

// autoRoomPrefix marks rooms synthesized by auto matchmaking. The auto-join
// scan only considers keys carrying it.
const autoRoomPrefix = "auto-"

// Manager owns the room registry and all session state. Every mutation runs
// under one mutex covering the full check-then-mutate-then-notify sequence,
// so concurrent joins for the same slot always produce exactly one winner.
type Manager struct {
	log *slog.Logger
	met *metrics.Metrics

	mu    sync.Mutex
	rooms map[string]*Room
	seq   uint64 // room creation counter, drives the auto-match FIFO order
}

// NewManager sets up an empty registry with the given logger and collectors.
func NewManager(log *slog.Logger, met *metrics.Metrics) *Manager {
	return &Manager{log: log, met: met, rooms: map[string]*Room{}}
}

// Connect registers a new peer and returns its session. The display name
// starts as an address-derived default until the first join supplies one.
func (m *Manager) Connect(p Peer) *Session {
	s := &Session{peer: p, name: "peer-" + p.RemoteAddr()}
	m.met.ConnectionsTotal.Inc()
	m.met.OpenConnections.Inc()
	m.log.Info("relay.connect", "conn", p.ID(), "addr", p.RemoteAddr())
	return s
}

// Disconnect runs departure cleanup for a closed connection. Safe to call
// for a session that already left its room.
func (m *Manager) Disconnect(s *Session) {
	m.mu.Lock()
	m.detachLocked(s, "peer disconnected")
	m.mu.Unlock()
	m.met.OpenConnections.Dec()
	m.log.Info("relay.disconnect", "conn", s.ID(), "addr", s.peer.RemoteAddr())
}

// Handle dispatches one decoded inbound message. The transport calls this
// strictly in per-connection arrival order.
func (m *Manager) Handle(s *Session, msg Inbound) {
	switch msg.Op() {
	case opJoin:
		room := strings.TrimSpace(msg.Str("room"))
		if room == "" {
			room = DefaultRoom
		}
		role := strings.ToLower(strings.TrimSpace(msg.Str("role")))
		name := strings.TrimSpace(msg.Str("name"))
		if name == "" {
			name = "peer-" + s.peer.RemoteAddr()
		}
		if role != RoleHost && role != RoleJoin {
			m.met.ProtocolErrors.Inc()
			s.sendError("role must be host or join")
			return
		}
		m.join(s, room, role, name)

	case opPing:
		s.send(pongReply{Op: "pong", TimestampMs: nowMs()})

	case opPong:
		// Keepalive reply from the peer, nothing to do.

	case opMsg:
		m.forward(s, msg)

	default:
		m.met.ProtocolErrors.Inc()
		s.sendError(fmt.Sprintf("unknown op: %v", msg["op"]))
	}
}

// join runs the matchmaking algorithm: resolve or create the target room,
// refuse an occupied slot, detach from any previous room, attach, ack, and
// fire ready when the attach completes a pair. Atomic under the mutex.
func (m *Manager) join(s *Session, key, role, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var room *Room
	if key == "auto" {
		if role == RoleHost {
			key = m.newAutoKeyLocked()
			room = m.createRoomLocked(key)
		} else {
			room = m.oldestWaitingAutoLocked()
			if room == nil {
				m.met.ProtocolErrors.Inc()
				s.sendError("no hosts waiting")
				return
			}
			key = room.key
		}
	} else {
		room = m.rooms[key]
		if room == nil {
			room = m.createRoomLocked(key)
		}
	}

	slot := room.slot(role)
	if cur := *slot; cur != nil && cur.ID() != s.ID() {
		m.met.ProtocolErrors.Inc()
		s.sendError(role + " slot already occupied")
		return
	}

	if s.room == key && s.role == role {
		// Idempotent re-join of the slot the session already holds. Skip
		// the detach so the existing peer never sees a spurious peer_left.
		s.name = name
		s.send(joinedReply{Op: "joined", Room: key, Role: role, TimestampMs: nowMs()})
		m.notifyReadyLocked(room)
		return
	}

	// Leaving the previous room and entering the new one is a single atomic
	// step from every other client's perspective.
	m.detachLocked(s, "switched room")
	if m.rooms[key] == nil {
		// The detach emptied and collected the target room (a same-room
		// role switch by its sole occupant). Put it back before attaching.
		m.rooms[key] = room
	}

	*slot = s
	s.room, s.role, s.name = key, role, name
	m.met.Rooms.Set(float64(len(m.rooms)))

	s.send(joinedReply{Op: "joined", Room: key, Role: role, TimestampMs: nowMs()})
	m.log.Info("relay.join", "conn", s.ID(), "room", key, "role", role, "name", name)
	m.notifyReadyLocked(room)
}

// forward relays a msg envelope to the sender's room peer. The peer is
// resolved under the lock; the send itself happens outside it. The payload
// fields are passed through untouched and the sender gets no ack.
func (m *Manager) forward(s *Session, msg Inbound) {
	m.mu.Lock()
	var target *Session
	var errMsg string
	if s.room == "" || s.role == "" {
		errMsg = "join room first"
	} else if room := m.rooms[s.room]; room == nil {
		errMsg = "room missing"
	} else if target = room.peerOf(s); target == nil {
		errMsg = "peer not connected"
	}
	m.mu.Unlock()

	if errMsg != "" {
		m.met.ProtocolErrors.Inc()
		s.sendError(errMsg)
		return
	}

	ts, ok := msg["timestampMs"]
	if !ok {
		ts = nowMs()
	}
	target.send(map[string]any{
		"op":          opMsg,
		"type":        msg["type"],
		"body":        msg["body"],
		"timestampMs": ts,
	})
	m.met.ForwardedTotal.Inc()
}

// detachLocked removes s from its current room, notifies the abandoned
// peer, and collects the room if it emptied. No-op for an unattached
// session, which both the disconnect path and the room switch rely on.
func (m *Manager) detachLocked(s *Session, reason string) {
	key, role := s.room, s.role
	if key == "" || role == "" {
		return
	}
	room := m.rooms[key]
	if room == nil {
		s.room, s.role = "", ""
		return
	}

	var peer *Session
	slot := room.slot(role)
	if cur := *slot; cur != nil && cur.ID() == s.ID() {
		*slot = nil
		peer = room.peerOf(s)
	}
	s.room, s.role = "", ""

	if room.empty() {
		delete(m.rooms, key)
		m.met.Rooms.Set(float64(len(m.rooms)))
		m.log.Info("relay.room.closed", "room", key)
	}
	if peer != nil {
		peer.send(peerLeftNotice{Op: "peer_left", Reason: reason, TimestampMs: nowMs()})
	}
}

// notifyReadyLocked tells both occupants about each other once the room is
// full. Fires on every attach that completes the pair, re-joins included.
func (m *Manager) notifyReadyLocked(room *Room) {
	if room.host == nil || room.join == nil {
		return
	}
	room.host.send(readyNotice{Op: "ready", Peer: room.join.name, TimestampMs: nowMs()})
	room.join.send(readyNotice{Op: "ready", Peer: room.host.name, TimestampMs: nowMs()})
}

// newAutoKeyLocked synthesizes a registry-unique auto room key.
func (m *Manager) newAutoKeyLocked() string {
	for {
		key := autoRoomPrefix + uuid.NewString()[:8]
		if _, ok := m.rooms[key]; !ok {
			return key
		}
	}
}

// oldestWaitingAutoLocked picks the auto room that has been waiting for a
// joiner the longest: occupied host slot, empty join slot, lowest creation
// sequence.
func (m *Manager) oldestWaitingAutoLocked() *Room {
	var best *Room
	for key, r := range m.rooms {
		if !strings.HasPrefix(key, autoRoomPrefix) {
			continue
		}
		if r.host == nil || r.join != nil {
			continue
		}
		if best == nil || r.created < best.created {
			best = r
		}
	}
	return best
}

func (m *Manager) createRoomLocked(key string) *Room {
	m.seq++
	r := &Room{key: key, created: m.seq}
	m.rooms[key] = r
	m.met.Rooms.Set(float64(len(m.rooms)))
	return r
}

// RoomStatus is the read-only per-room view for the status page.
type RoomStatus struct {
	Key          string `json:"key"`
	Host         string `json:"host,omitempty"`
	Join         string `json:"join,omitempty"`
	HostOccupied bool   `json:"hostOccupied"`
	JoinOccupied bool   `json:"joinOccupied"`
}

// Snapshot is a point-in-time copy of the registry for display. Never used
// for protocol decisions.
type Snapshot struct {
	Rooms     []RoomStatus `json:"rooms"`
	RoomCount int          `json:"roomCount"`
	Occupants int          `json:"occupants"`
}

// Snapshot copies the registry state under the mutex, sorted by room key.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{Rooms: make([]RoomStatus, 0, len(m.rooms)), RoomCount: len(m.rooms)}
	for key, r := range m.rooms {
		rs := RoomStatus{Key: key, HostOccupied: r.host != nil, JoinOccupied: r.join != nil}
		if r.host != nil {
			rs.Host = r.host.name
			snap.Occupants++
		}
		if r.join != nil {
			rs.Join = r.join.name
			snap.Occupants++
		}
		snap.Rooms = append(snap.Rooms, rs)
	}
	sort.Slice(snap.Rooms, func(i, j int) bool { return snap.Rooms[i].Key < snap.Rooms[j].Key })
	return snap
}
