package controller

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/model"
	"github.com/gerickson-labs/hlxgo/rxmatch"
	"github.com/gerickson-labs/hlxgo/statechange"
)

// Network owns the device's single network configuration.
type Network struct {
	mu       sync.Mutex
	state    model.Network
	notifier *statechange.Notifier
}

// NewNetwork returns an uninitialized Network controller.
func NewNetwork(notifier *statechange.Notifier) *Network {
	return &Network{notifier: notifier}
}

// Init sets the network configuration to its default state.
func (c *Network) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = model.NewNetwork()
}

// State returns a copy of the current network configuration.
func (c *Network) State() model.Network {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ExpectedQueryCount: Refresh issues a single QW.
func (c *Network) ExpectedQueryCount() int { return 1 }

func parseIP(text []byte) (net.IP, error) {
	ip := net.ParseIP(string(text))
	if ip == nil {
		return nil, fmt.Errorf("malformed address %q: %w", text, model.ErrInvalidArgument)
	}
	return ip, nil
}

// RegisterServer wires the network's request handlers into mgr. A
// genuine change additionally fans its response frame out through
// connMgr to every other active connection; connMgr may be nil.
func (c *Network) RegisterServer(mgr *command.Manager, connMgr *hlxconn.Manager) error {
	if err := mgr.RegisterRequestHandler(command.NameNetworkDHCPv4, command.NetworkTable()[0].Matcher, c.handleDHCPv4(true, connMgr)); err != nil {
		return err
	}
	if err := mgr.RegisterRequestHandler(command.NameNetworkHost, command.NetworkTable()[1].Matcher, c.handleHost(true, connMgr)); err != nil {
		return err
	}
	if err := mgr.RegisterRequestHandler(command.NameNetworkNetmask, command.NetworkTable()[2].Matcher, c.handleNetmask(true, connMgr)); err != nil {
		return err
	}
	if err := mgr.RegisterRequestHandler(command.NameNetworkRouter, command.NetworkTable()[3].Matcher, c.handleRouter(true, connMgr)); err != nil {
		return err
	}
	if err := mgr.RegisterRequestHandler(command.NameNetworkSDDP, command.NetworkTable()[4].Matcher, c.handleSDDP(true, connMgr)); err != nil {
		return err
	}
	return mgr.RegisterRequestHandler(command.NameNetworkQuery, command.NetworkTable()[5].Matcher, c.handleQuery)
}

// RegisterClient wires the network's notification handlers into mgr.
func (c *Network) RegisterClient(mgr *command.Manager) error {
	if err := mgr.RegisterNotificationHandler(command.NameNetworkDHCPv4, command.NetworkTable()[0].Matcher, func(conn *hlxconn.Connection, m []rxmatch.Match) {
		c.handleDHCPv4(false, nil)(conn, m)
	}); err != nil {
		return err
	}
	if err := mgr.RegisterNotificationHandler(command.NameNetworkHost, command.NetworkTable()[1].Matcher, func(conn *hlxconn.Connection, m []rxmatch.Match) {
		c.handleHost(false, nil)(conn, m)
	}); err != nil {
		return err
	}
	if err := mgr.RegisterNotificationHandler(command.NameNetworkNetmask, command.NetworkTable()[2].Matcher, func(conn *hlxconn.Connection, m []rxmatch.Match) {
		c.handleNetmask(false, nil)(conn, m)
	}); err != nil {
		return err
	}
	if err := mgr.RegisterNotificationHandler(command.NameNetworkRouter, command.NetworkTable()[3].Matcher, func(conn *hlxconn.Connection, m []rxmatch.Match) {
		c.handleRouter(false, nil)(conn, m)
	}); err != nil {
		return err
	}
	return mgr.RegisterNotificationHandler(command.NameNetworkSDDP, command.NetworkTable()[4].Matcher, func(conn *hlxconn.Connection, m []rxmatch.Match) {
		c.handleSDDP(false, nil)(conn, m)
	})
}

func (c *Network) handleDHCPv4(reply bool, connMgr *hlxconn.Manager) func(*hlxconn.Connection, []rxmatch.Match) {
	return func(conn *hlxconn.Connection, matches []rxmatch.Match) {
		enabled := string(matches[0].Text) == "1"
		c.mu.Lock()
		setErr := c.state.SetDHCPv4Enabled(enabled)
		c.mu.Unlock()
		if !ok(setErr) {
			if reply {
				_ = conn.Send(command.ErrorResponse)
			}
			return
		}
		if changed(setErr) {
			c.notifier.Emit(statechange.Notification{Kind: statechange.KindNetworkDHCPv4Enabled, Bool: enabled})
		}
		if reply {
			frame := command.WrapResponse(fmt.Sprintf("WDHCP%d", boolBit(enabled)))
			if changed(setErr) && connMgr != nil {
				connMgr.Send(conn, frame)
				return
			}
			_ = conn.Send(frame)
		}
	}
}

func (c *Network) handleHost(reply bool, connMgr *hlxconn.Manager) func(*hlxconn.Connection, []rxmatch.Match) {
	return func(conn *hlxconn.Connection, matches []rxmatch.Match) {
		ip, err := parseIP(matches[0].Text)
		if err != nil {
			if reply {
				_ = conn.Send(command.ErrorResponse)
			}
			return
		}
		c.mu.Lock()
		setErr := c.state.SetHostAddress(ip)
		cur := c.state.HostAddress()
		c.mu.Unlock()
		if !ok(setErr) {
			if reply {
				_ = conn.Send(command.ErrorResponse)
			}
			return
		}
		if changed(setErr) {
			c.notifier.Emit(statechange.Notification{Kind: statechange.KindNetworkHostAddress, Str: cur.String()})
		}
		if reply {
			frame := command.WrapResponse(fmt.Sprintf(`WIP"%s"`, cur))
			if changed(setErr) && connMgr != nil {
				connMgr.Send(conn, frame)
				return
			}
			_ = conn.Send(frame)
		}
	}
}

func (c *Network) handleNetmask(reply bool, connMgr *hlxconn.Manager) func(*hlxconn.Connection, []rxmatch.Match) {
	return func(conn *hlxconn.Connection, matches []rxmatch.Match) {
		ip, err := parseIP(matches[0].Text)
		if err != nil {
			if reply {
				_ = conn.Send(command.ErrorResponse)
			}
			return
		}
		mask := net.IPMask(ip.To4())
		if mask == nil {
			mask = net.IPMask(ip.To16())
		}
		c.mu.Lock()
		setErr := c.state.SetNetmask(mask)
		cur := c.state.Netmask()
		c.mu.Unlock()
		if !ok(setErr) {
			if reply {
				_ = conn.Send(command.ErrorResponse)
			}
			return
		}
		if changed(setErr) {
			c.notifier.Emit(statechange.Notification{Kind: statechange.KindNetworkNetmask, Str: net.IP(cur).String()})
		}
		if reply {
			frame := command.WrapResponse(fmt.Sprintf(`WNM"%s"`, net.IP(cur)))
			if changed(setErr) && connMgr != nil {
				connMgr.Send(conn, frame)
				return
			}
			_ = conn.Send(frame)
		}
	}
}

func (c *Network) handleRouter(reply bool, connMgr *hlxconn.Manager) func(*hlxconn.Connection, []rxmatch.Match) {
	return func(conn *hlxconn.Connection, matches []rxmatch.Match) {
		ip, err := parseIP(matches[0].Text)
		if err != nil {
			if reply {
				_ = conn.Send(command.ErrorResponse)
			}
			return
		}
		c.mu.Lock()
		setErr := c.state.SetRouter(ip)
		cur := c.state.Router()
		c.mu.Unlock()
		if !ok(setErr) {
			if reply {
				_ = conn.Send(command.ErrorResponse)
			}
			return
		}
		if changed(setErr) {
			c.notifier.Emit(statechange.Notification{Kind: statechange.KindNetworkRouter, Str: cur.String()})
		}
		if reply {
			frame := command.WrapResponse(fmt.Sprintf(`WGW"%s"`, cur))
			if changed(setErr) && connMgr != nil {
				connMgr.Send(conn, frame)
				return
			}
			_ = conn.Send(frame)
		}
	}
}

func (c *Network) handleSDDP(reply bool, connMgr *hlxconn.Manager) func(*hlxconn.Connection, []rxmatch.Match) {
	return func(conn *hlxconn.Connection, matches []rxmatch.Match) {
		enabled := string(matches[0].Text) == "1"
		c.mu.Lock()
		setErr := c.state.SetSDDPEnabled(enabled)
		c.mu.Unlock()
		if !ok(setErr) {
			if reply {
				_ = conn.Send(command.ErrorResponse)
			}
			return
		}
		if changed(setErr) {
			c.notifier.Emit(statechange.Notification{Kind: statechange.KindNetworkSDDPEnabled, Bool: enabled})
		}
		if reply {
			frame := command.WrapResponse(fmt.Sprintf("WSDDP%d", boolBit(enabled)))
			if changed(setErr) && connMgr != nil {
				connMgr.Send(conn, frame)
				return
			}
			_ = conn.Send(frame)
		}
	}
}

func (c *Network) handleQuery(conn *hlxconn.Connection, _ []rxmatch.Match) {
	s := c.State()
	_ = conn.Send(command.WrapResponse(fmt.Sprintf("WDHCP%d", boolBit(s.DHCPv4Enabled()))))
	if s.HostAddress() != nil {
		_ = conn.Send(command.WrapResponse(fmt.Sprintf(`WIP"%s"`, s.HostAddress())))
	}
	if s.Netmask() != nil {
		_ = conn.Send(command.WrapResponse(fmt.Sprintf(`WNM"%s"`, net.IP(s.Netmask()))))
	}
	if s.Router() != nil {
		_ = conn.Send(command.WrapResponse(fmt.Sprintf(`WGW"%s"`, s.Router())))
	}
	_ = conn.Send(command.WrapResponse(fmt.Sprintf("WSDDP%d", boolBit(s.SDDPEnabled()))))
	_ = conn.Send(command.WrapResponse("QW"))
}

// Refresh issues a single QW query.
func (c *Network) Refresh(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, onComplete func(error)) {
	_ = mgr.SendCommand(conn, "QW", command.NetworkTable()[5].Matcher, timeout, func(_ []rxmatch.Match, err error) {
		onComplete(err)
	})
}

// SetDHCPv4Enabled issues a client-role DHCPv4 toggle request upstream.
func (c *Network) SetDHCPv4Enabled(mgr *command.Manager, conn *hlxconn.Connection, enabled bool, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf("WDHCP%d", boolBit(enabled)), command.NetworkTable()[0].Matcher, timeout, completion)
}

// SetHostAddress issues a client-role static host address request upstream.
func (c *Network) SetHostAddress(mgr *command.Manager, conn *hlxconn.Connection, ip net.IP, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf(`WIP"%s"`, ip), command.NetworkTable()[1].Matcher, timeout, completion)
}
