// Package proxy glues a client-role Top-Level Controller dialed upstream
// to real (or emulated) hardware to a server-role Connection Manager
// accepting downstream client connections, so many downstream clients
// can share one upstream connection.
package proxy

import (
	"context"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/topctrl"
	log "github.com/sirupsen/logrus"
)

// Delegate receives proxy-wide lifecycle events, layered over
// hlxconn.ManagerDelegate and topctrl.Delegate for the pieces a caller
// (cmd/hlxproxyd) typically wants to log or expose via hlxstats.
type Delegate struct {
	hlxconn.ManagerDelegate
	topctrl.Delegate
}

// Proxy is a transparent relay: downstream requests are forwarded
// upstream unconditionally (§9 open question decision 3 — no local
// de-duplication; the real hardware's own "already set" handling is
// relied on), and upstream bytes are fanned out verbatim to every
// downstream connection via the Connection Manager's Send, so multiple
// downstream clients observe exactly what the hardware would have sent
// them directly. In parallel, a client-role Top-Level Controller
// decodes the same upstream byte stream into a local model mirror,
// which hlxstats and other in-process consumers can read without a
// round trip.
type Proxy struct {
	Controller *topctrl.Controller

	upstreamConn *hlxconn.Connection
	upstreamMgr  *command.Manager

	downstream *hlxconn.Manager

	refreshTimeout time.Duration
	ipVersions     []hlxconn.IPVersion

	delegate Delegate
}

// New constructs a Proxy with its own Top-Level Controller and a fresh
// downstream Connection Manager. defaultTimeout governs both the
// upstream Command Manager's exchange timeout and Refresh calls.
func New(defaultTimeout time.Duration) *Proxy {
	p := &Proxy{
		Controller:     topctrl.New(),
		upstreamMgr:    command.NewManager(defaultTimeout),
		downstream:     hlxconn.NewManager(),
		refreshTimeout: defaultTimeout,
	}
	p.Controller.Init()
	return p
}

// SetDelegate registers the caller's lifecycle delegate. Its embedded
// topctrl.Delegate is forwarded to the Top-Level Controller; its
// embedded hlxconn.ManagerDelegate is added to both the downstream and
// upstream Connection Managers alongside the proxy's own logging
// delegates.
func (p *Proxy) SetDelegate(d Delegate) {
	p.delegate = d
	p.Controller.SetDelegate(d.Delegate)
}

// SetIPVersions restricts downstream listening to the given address
// families; upstream dialing is not restricted. Unset means both v4 and
// v6, hlxconn's default.
func (p *Proxy) SetIPVersions(versions ...hlxconn.IPVersion) { p.ipVersions = versions }

// Start dials upstreamAddr as a client connection, wires the Top-Level
// Controller's notification handlers to the resulting upstream Command
// Manager, begins relaying upstream bytes to every downstream
// connection, and listens for downstream connections on
// downstreamAddrs.
func (p *Proxy) Start(ctx context.Context, upstreamAddr string, connectTimeout time.Duration, downstreamAddrs ...string) error {
	if err := p.Controller.RegisterClient(p.upstreamMgr); err != nil {
		return err
	}

	p.downstream.AddDelegate(hlxconn.ManagerDelegate{
		DidAccept: func(conn *hlxconn.Connection) {
			log.Debugf("proxy: accepted downstream connection from %s", conn.RemoteAddr())
		},
		DidDisconnect: func(conn *hlxconn.Connection, err error) {
			log.Debugf("proxy: downstream connection from %s disconnected: %v", conn.RemoteAddr(), err)
		},
	})
	p.downstream.AddDelegate(p.delegate.ManagerDelegate)
	p.downstream.SetApplicationDataDelegate(func(conn *hlxconn.Connection, data []byte) {
		// Forward unconditionally: the proxy performs no local
		// matching or de-duplication on the downstream-originated
		// request, per the documented open-question decision.
		if err := p.upstreamConn.Send(data); err != nil {
			log.Warnf("proxy: failed to forward downstream request upstream: %v", err)
		}
	})

	for _, addr := range downstreamAddrs {
		if err := p.downstream.Listen(addr, p.ipVersions...); err != nil {
			return err
		}
	}

	connectedConn, err := p.dialUpstream(ctx, upstreamAddr, connectTimeout)
	if err != nil {
		return err
	}
	p.upstreamConn = connectedConn

	p.Controller.Refresh(p.upstreamMgr, p.upstreamConn, p.refreshTimeout)
	return nil
}

func (p *Proxy) dialUpstream(ctx context.Context, addr string, timeout time.Duration) (*hlxconn.Connection, error) {
	upstreamConnMgr := hlxconn.NewManager()
	upstreamConnMgr.SetApplicationDataDelegate(func(conn *hlxconn.Connection, data []byte) {
		// Keep the local model mirror current...
		p.upstreamMgr.HandleResponse(conn, data)
		// ...and relay the exact bytes to every downstream client.
		p.downstream.Send(nil, data)
	})
	upstreamConnMgr.AddDelegate(hlxconn.ManagerDelegate{
		DidDisconnect: func(conn *hlxconn.Connection, err error) {
			log.Warnf("proxy: upstream connection disconnected: %v", err)
		},
	})
	upstreamConnMgr.AddDelegate(p.delegate.ManagerDelegate)
	return upstreamConnMgr.Connect(ctx, addr, timeout)
}

// Close tears down the downstream listeners/connections and the
// upstream connection.
func (p *Proxy) Close() {
	p.downstream.Close()
	if p.upstreamConn != nil {
		_ = p.upstreamConn.Close()
	}
}

// ErrorCount reports how many upstream response frames matched no
// registered notification handler. The proxy never runs HandleRequest
// against downstream bytes (those are forwarded raw, unconditionally),
// so the upstream Command Manager is the only counter that exists.
func (p *Proxy) ErrorCount() uint64 { return p.upstreamMgr.ErrorCount() }

// ActiveDownstreamCount reports how many downstream clients are
// currently connected. Satisfies hlxstats.Source.
func (p *Proxy) ActiveDownstreamCount() int { return len(p.downstream.ActiveConnections()) }
