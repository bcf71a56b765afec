package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"battle-relay/internal/relay"
	"battle-relay/pkg/ratelimit"
)

const writeWait = 10 * time.Second

// TCPServer accepts line-delimited JSON peers and feeds them to the session
// manager, one goroutine per connection.
type TCPServer struct {
	log   *slog.Logger
	mgr   *relay.Manager
	limit *ratelimit.Limiter // nil disables per-IP accept limiting
}

// NewTCPServer wires the accept loop to the manager.
func NewTCPServer(log *slog.Logger, mgr *relay.Manager, limit *ratelimit.Limiter) *TCPServer {
	return &TCPServer{log: log, mgr: mgr, limit: limit}
}

// Serve accepts peers until ctx is cancelled, then closes the listener.
// Returns nil on clean shutdown.
func (s *TCPServer) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error("tcp.accept", "err", err)
			continue
		}

		if s.limit != nil {
			ip, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
			if !s.limit.Allow(ip) {
				s.log.Warn("tcp.accept.ratelimited", "addr", conn.RemoteAddr())
				_ = conn.Close()
				continue
			}
		}

		go s.handle(conn)
	}
}

// handle runs one peer's read loop. Malformed lines get an error reply and
// the loop continues; an oversized line gets an error reply and terminates
// the connection.
func (s *TCPServer) handle(conn net.Conn) {
	defer conn.Close()

	peer := &tcpConn{id: uuid.NewString(), conn: conn}
	sess := s.mgr.Connect(peer)
	defer s.mgr.Disconnect(sess)

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 4096), relay.MaxLineBytes)

	for sc.Scan() {
		msg, err := relay.Decode(sc.Bytes())
		if err != nil {
			s.log.Debug("tcp.decode", "addr", conn.RemoteAddr(), "err", err)
			_ = peer.Send(relay.ErrorReply(err.Error()))
			continue
		}
		s.mgr.Handle(sess, msg)
	}

	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			_ = peer.Send(relay.ErrorReply("line too large"))
			// Consume the rest of the oversized line so the close is a
			// clean FIN instead of a reset racing the error reply.
			drainLine(conn)
		} else {
			s.log.Debug("tcp.read", "addr", conn.RemoteAddr(), "err", err)
		}
	}
}

// drainLine reads and discards up to the next newline, bounded by a
// deadline.
func drainLine(conn net.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil || buf[0] == '\n' {
			return
		}
	}
}

// tcpConn implements relay.Peer over a raw TCP connection. Writes are
// serialized under a mutex so forwarded payloads and control replies never
// interleave on the wire.
type tcpConn struct {
	id   string
	conn net.Conn
	wmu  sync.Mutex
}

func (c *tcpConn) ID() string { return c.id }

func (c *tcpConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

// Send writes one envelope as a JSON line with a write deadline. Failures
// are reported but the owning read loop handles the actual teardown.
func (c *tcpConn) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_, err = c.conn.Write(append(payload, '\n'))
	return err
}
