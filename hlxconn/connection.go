// Package hlxconn implements the per-peer Connection, the Listener, and the
// Connection Manager: the transport layer shared by client, server, and
// proxy roles, carrying the Telnet-wrapped command protocol over TCP.
package hlxconn

import (
	"bytes"
	"fmt"
	"net"
	"sync"

	"github.com/gerickson-labs/hlxgo/rxmatch"
	"github.com/gerickson-labs/hlxgo/telnet"
	log "github.com/sirupsen/logrus"
)

// Role distinguishes which side of the handshake a Connection plays.
type Role int

// Roles.
const (
	RoleClient Role = iota
	RoleServer
)

// State is the connection's lifecycle state.
type State int

// States, matching the two role-specific state machines of spec §4.3.
const (
	StateUnknown State = iota
	StateConnecting
	StateConnected
	StateAccepting
	StateAccepted
	StateDisconnecting
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAccepting:
		return "accepting"
	case StateAccepted:
		return "accepted"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

var bannerPattern = rxmatch.MustCompile(`^telnet_client_([0-9]+): connected\r\n$`)

// Banner formats the server-originated handshake line for session id.
func Banner(sessionID uint64) string {
	return fmt.Sprintf("telnet_client_%d: connected\r\n", sessionID)
}

// Delegate is the set of callbacks a Connection invokes on its owner. It is
// a bundle of closures (per the design note in spec §9 replacing member
// pointer + void* context trampolines) rather than an interface with many
// small methods.
type Delegate struct {
	DidConnect               func(*Connection)
	DidNotConnect            func(*Connection, error)
	DidAccept                func(*Connection)
	DidNotAccept             func(*Connection, error)
	DidDisconnect            func(*Connection, error)
	DidReceiveApplicationData func(*Connection, []byte)
}

// Connection is one TCP stream in Telnet framing, playing either the
// client or server side of the application-layer handshake.
type Connection struct {
	Role      Role
	SessionID uint64

	conn     net.Conn
	framer   *telnet.Framer
	delegate Delegate

	mu              sync.Mutex
	state           State
	waitingForBanner bool
	bannerAcc       []byte
	pendingOutbound [][]byte

	teardownOnce sync.Once
	doneCh       chan struct{}
}

const maxBannerAccumulate = 256

// NewClient wraps an already-dialed net.Conn as a client-role Connection.
// The returned Connection is in StateConnecting until the server's banner
// is observed.
func NewClient(conn net.Conn, delegate Delegate) *Connection {
	c := &Connection{
		Role:            RoleClient,
		conn:            conn,
		framer:          telnet.NewFramer(),
		delegate:        delegate,
		state:           StateConnecting,
		waitingForBanner: true,
		doneCh:          make(chan struct{}),
	}
	return c
}

// NewServer wraps an accepted net.Conn as a server-role Connection for the
// given monotonic session id, in StateAccepting. Start sends the
// handshake banner and transitions it to StateAccepted.
func NewServer(conn net.Conn, sessionID uint64, delegate Delegate) *Connection {
	c := &Connection{
		Role:      RoleServer,
		SessionID: sessionID,
		conn:      conn,
		framer:    telnet.NewFramer(),
		delegate:  delegate,
		state:     StateAccepting,
		doneCh:    make(chan struct{}),
	}
	return c
}

// Start launches the connection's read loop (and, for the server role,
// sends the handshake banner) on a new goroutine.
func (c *Connection) Start() {
	if c.Role == RoleServer {
		c.mu.Lock()
		banner := Banner(c.SessionID)
		c.mu.Unlock()
		if _, err := c.conn.Write(telnet.Wrap([]byte(banner))); err != nil {
			c.fail(err)
			return
		}
		c.mu.Lock()
		c.state = StateAccepted
		c.mu.Unlock()
		if c.delegate.DidAccept != nil {
			c.delegate.DidAccept(c)
		}
	}
	go c.readLoop()
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RemoteAddr returns the peer's network address.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Connection) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.handleInbound(buf[:n])
		}
		if err != nil {
			c.fail(err)
			return
		}
	}
}

func (c *Connection) handleInbound(raw []byte) {
	appData, toSend := c.framer.Consume(raw)
	if len(toSend) > 0 {
		_, _ = c.conn.Write(toSend)
	}

	c.mu.Lock()
	waiting := c.Role == RoleClient && c.waitingForBanner
	c.mu.Unlock()

	if waiting {
		appData = c.consumeBannerBytes(appData)
		if len(appData) == 0 {
			return
		}
	}

	if c.delegate.DidReceiveApplicationData != nil {
		c.delegate.DidReceiveApplicationData(c, appData)
	}
}

// consumeBannerBytes feeds data into the banner accumulator until a
// complete line is observed; it returns any application bytes that follow
// the banner line once matched, or nil while still waiting.
func (c *Connection) consumeBannerBytes(data []byte) []byte {
	c.mu.Lock()
	c.bannerAcc = append(c.bannerAcc, data...)
	acc := c.bannerAcc
	c.mu.Unlock()

	idx := bytes.Index(acc, []byte("\r\n"))
	if idx < 0 {
		if len(acc) > maxBannerAccumulate {
			log.Warn("hlxconn: discarding oversized pre-banner data without a line terminator")
			c.mu.Lock()
			c.bannerAcc = nil
			c.mu.Unlock()
		}
		return nil
	}

	line := acc[:idx+2]
	rest := acc[idx+2:]

	if m := bannerPattern.FindSubmatch(line); m != nil {
		c.mu.Lock()
		c.waitingForBanner = false
		c.state = StateConnected
		pending := c.pendingOutbound
		c.pendingOutbound = nil
		c.bannerAcc = nil
		c.mu.Unlock()

		for _, p := range pending {
			_ = c.rawSend(p)
		}
		if c.delegate.DidConnect != nil {
			c.delegate.DidConnect(c)
		}
		return rest
	}

	// Not a banner match; drop the line and keep waiting (malformed or
	// unrelated preamble before the real banner arrives).
	c.mu.Lock()
	c.bannerAcc = rest
	c.mu.Unlock()
	return nil
}

// Send writes buffer through the Telnet framer to the peer. If a client
// connection is still waiting for the handshake banner, the bytes are
// queued and flushed once the banner is observed (spec §8 scenario 5).
func (c *Connection) Send(buffer []byte) error {
	c.mu.Lock()
	if c.Role == RoleClient && c.waitingForBanner {
		cp := make([]byte, len(buffer))
		copy(cp, buffer)
		c.pendingOutbound = append(c.pendingOutbound, cp)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.rawSend(buffer)
}

func (c *Connection) rawSend(buffer []byte) error {
	_, err := c.conn.Write(telnet.Wrap(buffer))
	return err
}

// fail tears the connection down in response to a read/write error,
// classifying it and firing exactly one terminal delegate callback
// appropriate to the state the connection was in when the error occurred.
func (c *Connection) fail(err error) {
	c.teardown(classifyError(err))
}

// teardown performs the state transition and single terminal delegate
// callback exactly once, regardless of whether it was triggered by a
// read-loop error (fail) or an explicit Close.
func (c *Connection) teardown(reported error) {
	c.teardownOnce.Do(func() {
		c.mu.Lock()
		prior := c.state
		c.state = StateDisconnected
		c.mu.Unlock()

		switch prior {
		case StateConnecting:
			if c.delegate.DidNotConnect != nil {
				c.delegate.DidNotConnect(c, reported)
			}
		case StateAccepting:
			if c.delegate.DidNotAccept != nil {
				c.delegate.DidNotAccept(c, reported)
			}
		default:
			if c.delegate.DidDisconnect != nil {
				c.delegate.DidDisconnect(c, reported)
			}
		}
		close(c.doneCh)
	})
}

// Close gracefully tears the connection down, transitioning through
// StateDisconnecting to StateDisconnected and firing DidDisconnect(nil). A
// second Close call is a no-op returning ErrAlreadyDisconnected.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == StateDisconnected || c.state == StateDisconnecting {
		c.mu.Unlock()
		return ErrAlreadyDisconnected
	}
	c.state = StateDisconnecting
	c.mu.Unlock()

	_ = c.conn.Close()
	c.teardown(nil)
	return nil
}
