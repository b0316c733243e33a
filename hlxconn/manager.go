package hlxconn

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/cespare/xxhash"
	log "github.com/sirupsen/logrus"
)

// IPVersion filters which address families Listen resolves to.
type IPVersion int

// IP versions.
const (
	IPv4 IPVersion = 1 << iota
	IPv6
)

// IPBoth requests both IPv4 and IPv6 listeners (the default).
const IPBoth = IPv4 | IPv6

// ManagerDelegate receives manager-wide lifecycle notifications: resolve,
// listen, accept, connect, disconnect, and error. Multiple delegates may
// register via Manager.AddDelegate.
type ManagerDelegate struct {
	WillResolve func(target string)
	DidResolve  func(target string, addrs []string)
	DidNotResolve func(target string, err error)

	WillListen func(addr string)
	DidListen  func(addr string)
	DidNotListen func(addr string, err error)

	DidAccept func(*Connection)

	WillConnect func(addr string)
	DidConnect  func(*Connection)
	DidNotConnect func(addr string, err error)

	DidDisconnect func(*Connection, error)

	Error func(error)
}

// ApplicationDataDelegate is the one-and-only recipient of buffered
// inbound application bytes from any managed connection.
type ApplicationDataDelegate func(*Connection, []byte)

// Manager owns listeners and active/inactive connections, dispatching
// lifecycle events to every registered ManagerDelegate and buffered
// application data to the single ApplicationDataDelegate.
type Manager struct {
	mu sync.Mutex

	delegates   []ManagerDelegate
	appDelegate ApplicationDataDelegate

	listeners         map[string]*Listener
	activeConnections map[uint64]*Connection
	inactive          []*Connection

	nextSessionID uint64
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		listeners:         make(map[string]*Listener),
		activeConnections: make(map[uint64]*Connection),
		nextSessionID:     1,
	}
}

// AddDelegate registers a peer delegate for lifecycle notifications.
func (m *Manager) AddDelegate(d ManagerDelegate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delegates = append(m.delegates, d)
}

// SetApplicationDataDelegate sets the single recipient of inbound
// application data from every managed connection.
func (m *Manager) SetApplicationDataDelegate(d ApplicationDataDelegate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appDelegate = d
}

func connKey(remoteAddr string, sessionID uint64) uint64 {
	return xxhash.Sum64([]byte(fmt.Sprintf("%s#%d", remoteAddr, sessionID)))
}

func (m *Manager) forEachDelegate(fn func(ManagerDelegate)) {
	m.mu.Lock()
	ds := make([]ManagerDelegate, len(m.delegates))
	copy(ds, m.delegates)
	m.mu.Unlock()
	for _, d := range ds {
		fn(d)
	}
}

// resolveVersions parses a bare host, host:port, or telnet:// URL into one
// or more host:port addresses, filtered by the requested IP version set.
func resolveVersions(maybeURL string, versions IPVersion) ([]string, error) {
	if versions == 0 {
		versions = IPBoth
	}
	host, port := maybeURL, "23"
	if u, err := url.Parse(maybeURL); err == nil && u.Scheme == "telnet" {
		host = u.Hostname()
		if u.Port() != "" {
			port = u.Port()
		}
	} else if h, p, err := net.SplitHostPort(maybeURL); err == nil {
		host, port = h, p
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		var out []string
		if versions&IPv4 != 0 {
			out = append(out, net.JoinHostPort("0.0.0.0", port))
		}
		if versions&IPv6 != 0 {
			out = append(out, net.JoinHostPort("::", port))
		}
		return out, nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Not resolvable as a hostname; assume it is a literal address and
		// let net.Dial/Listen surface any real error.
		return []string{net.JoinHostPort(host, port)}, nil
	}
	var out []string
	for _, ip := range ips {
		if ip.To4() != nil && versions&IPv4 == 0 {
			continue
		}
		if ip.To4() == nil && versions&IPv6 == 0 {
			continue
		}
		out = append(out, net.JoinHostPort(ip.String(), port))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no addresses for %q matching requested IP versions", host)
	}
	return out, nil
}

// Listen resolves maybeURL (a telnet:// URL or bare host[:port], default
// port 23) to one or more addresses filtered by versions (default both),
// and creates one Listener per resulting address.
func (m *Manager) Listen(maybeURL string, versions ...IPVersion) error {
	v := IPBoth
	if len(versions) > 0 {
		v = versions[0]
	}

	m.forEachDelegate(func(d ManagerDelegate) {
		if d.WillResolve != nil {
			d.WillResolve(maybeURL)
		}
	})

	addrs, err := resolveVersions(maybeURL, v)
	if err != nil {
		m.forEachDelegate(func(d ManagerDelegate) {
			if d.DidNotResolve != nil {
				d.DidNotResolve(maybeURL, err)
			}
		})
		return err
	}
	m.forEachDelegate(func(d ManagerDelegate) {
		if d.DidResolve != nil {
			d.DidResolve(maybeURL, addrs)
		}
	})

	for _, addr := range addrs {
		if err := m.listenOne(addr); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) listenOne(addr string) error {
	m.forEachDelegate(func(d ManagerDelegate) {
		if d.WillListen != nil {
			d.WillListen(addr)
		}
	})

	ln := NewListener(addr, ListenerDelegate{
		DidAccept: func(conn net.Conn, peer net.Addr) {
			m.handleAccept(conn, peer)
		},
		DidNotListen: func(a string, err error) {
			m.forEachDelegate(func(d ManagerDelegate) {
				if d.DidNotListen != nil {
					d.DidNotListen(a, err)
				}
			})
		},
	})
	if err := ln.Listen(); err != nil {
		return err
	}

	m.mu.Lock()
	m.listeners[addr] = ln
	m.mu.Unlock()

	m.forEachDelegate(func(d ManagerDelegate) {
		if d.DidListen != nil {
			d.DidListen(addr)
		}
	})
	return nil
}

func (m *Manager) handleAccept(conn net.Conn, peer net.Addr) {
	m.flushInactiveLocked()

	m.mu.Lock()
	sessionID := m.nextSessionID
	m.nextSessionID++
	m.mu.Unlock()

	var c *Connection
	c = NewServer(conn, sessionID, Delegate{
		DidDisconnect: func(conn *Connection, err error) {
			m.onDisconnect(c)
			m.forEachDelegate(func(d ManagerDelegate) {
				if d.DidDisconnect != nil {
					d.DidDisconnect(c, err)
				}
			})
		},
		DidReceiveApplicationData: func(conn *Connection, data []byte) {
			m.mu.Lock()
			ad := m.appDelegate
			m.mu.Unlock()
			if ad != nil {
				ad(c, data)
			}
		},
	})

	m.mu.Lock()
	m.activeConnections[connKey(peer.String(), sessionID)] = c
	m.mu.Unlock()

	c.Start()

	m.forEachDelegate(func(d ManagerDelegate) {
		if d.DidAccept != nil {
			d.DidAccept(c)
		}
	})
}

// Connect dials addr (telnet:// URL or host[:port]) as a client-role
// connection with the given connect+handshake timeout.
func (m *Manager) Connect(ctx context.Context, addr string, timeout time.Duration) (*Connection, error) {
	target := addr
	if u, err := url.Parse(addr); err == nil && u.Scheme == "telnet" {
		host := u.Hostname()
		port := u.Port()
		if port == "" {
			port = "23"
		}
		target = net.JoinHostPort(host, port)
	} else if _, _, err := net.SplitHostPort(addr); err != nil {
		target = net.JoinHostPort(addr, "23")
	}

	m.forEachDelegate(func(d ManagerDelegate) {
		if d.WillConnect != nil {
			d.WillConnect(target)
		}
	})

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(dctx, "tcp", target)
	if err != nil {
		m.forEachDelegate(func(md ManagerDelegate) {
			if md.DidNotConnect != nil {
				md.DidNotConnect(target, err)
			}
		})
		return nil, err
	}

	m.flushInactiveLocked()

	var c *Connection
	connectedCh := make(chan struct{}, 1)
	c = NewClient(conn, Delegate{
		DidConnect: func(conn *Connection) {
			select {
			case connectedCh <- struct{}{}:
			default:
			}
			m.forEachDelegate(func(md ManagerDelegate) {
				if md.DidConnect != nil {
					md.DidConnect(c)
				}
			})
		},
		DidNotConnect: func(conn *Connection, err error) {
			m.forEachDelegate(func(md ManagerDelegate) {
				if md.DidNotConnect != nil {
					md.DidNotConnect(target, err)
				}
			})
		},
		DidDisconnect: func(conn *Connection, err error) {
			m.onDisconnect(c)
			m.forEachDelegate(func(md ManagerDelegate) {
				if md.DidDisconnect != nil {
					md.DidDisconnect(c, err)
				}
			})
		},
		DidReceiveApplicationData: func(conn *Connection, data []byte) {
			m.mu.Lock()
			ad := m.appDelegate
			m.mu.Unlock()
			if ad != nil {
				ad(c, data)
			}
		},
	})

	m.mu.Lock()
	m.activeConnections[connKey(target, 0)] = c
	m.mu.Unlock()

	c.Start()

	select {
	case <-connectedCh:
	case <-time.After(timeout):
		_ = c.Close()
		return nil, fmt.Errorf("timed out waiting for handshake banner from %s: %w", target, ErrTimeout)
	}
	return c, nil
}

// onDisconnect moves a terminated connection from active to the inactive
// bin rather than destroying it synchronously inside its own delegate
// callback (spec §4.5's deferred-disposal rule); it is physically dropped
// on the next accept or an explicit call to FlushInactive.
func (m *Manager) onDisconnect(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.activeConnections {
		if v == c {
			delete(m.activeConnections, k)
			break
		}
	}
	m.inactive = append(m.inactive, c)
}

func (m *Manager) flushInactiveLocked() {
	m.mu.Lock()
	n := len(m.inactive)
	m.inactive = nil
	m.mu.Unlock()
	if n > 0 {
		log.Debugf("hlxconn: dropped %d inactive connections", n)
	}
}

// FlushInactive explicitly drops any connections pending disposal.
func (m *Manager) FlushInactive() { m.flushInactiveLocked() }

// ActiveConnections returns a snapshot of the currently active connections.
func (m *Manager) ActiveConnections() []*Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Connection, 0, len(m.activeConnections))
	for _, c := range m.activeConnections {
		out = append(out, c)
	}
	return out
}

// Send delivers buffer to conn first, then to every other active
// connection (fan-out, spec §4.5/§4.10). A send failure to one peer does
// not abort sends to the remaining peers.
func (m *Manager) Send(conn *Connection, buffer []byte) {
	if conn != nil {
		if err := conn.Send(buffer); err != nil {
			m.reportError(err)
		}
	}
	for _, other := range m.ActiveConnections() {
		if other == conn {
			continue
		}
		if err := other.Send(buffer); err != nil {
			m.reportError(err)
		}
	}
}

func (m *Manager) reportError(err error) {
	m.forEachDelegate(func(d ManagerDelegate) {
		if d.Error != nil {
			d.Error(err)
		}
	})
}

// Close closes every listener and active connection.
func (m *Manager) Close() {
	m.mu.Lock()
	listeners := make([]*Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()
	for _, l := range listeners {
		_ = l.Close()
	}
	for _, c := range m.ActiveConnections() {
		_ = c.Close()
	}
}
