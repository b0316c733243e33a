package hlxconn

import (
	"context"
	"net"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// ListenerDelegate receives accepted sockets and listen failures.
type ListenerDelegate struct {
	DidAccept   func(conn net.Conn, addr net.Addr)
	DidNotListen func(addr string, err error)
}

// Listener binds and listens on one SocketAddress, handing each accepted
// socket to its delegate.
type Listener struct {
	Addr     string
	delegate ListenerDelegate
	ln       net.Listener
	done     chan struct{}
}

// NewListener returns an unbound Listener for addr (host:port).
func NewListener(addr string, delegate ListenerDelegate) *Listener {
	return &Listener{Addr: addr, delegate: delegate, done: make(chan struct{})}
}

// Listen binds and starts listening, returning an error immediately on a
// bind/listen failure (and also reporting it via DidNotListen, for
// consistency with the other async entry points).
func (l *Listener) Listen() error {
	lc := net.ListenConfig{Control: setReuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", l.Addr)
	if err != nil {
		if l.delegate.DidNotListen != nil {
			l.delegate.DidNotListen(l.Addr, err)
		}
		return err
	}
	l.ln = ln
	go l.acceptLoop()
	return nil
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			log.Debugf("hlxconn: accept error on %s: %v", l.Addr, err)
			return
		}
		if l.delegate.DidAccept != nil {
			l.delegate.DidAccept(conn, conn.RemoteAddr())
		}
	}
}

// setReuseAddr sets SO_REUSEADDR on the listening socket before bind, so a
// restarted proxy/server can rebind port 23 immediately rather than waiting
// out TIME_WAIT on the previous listener's sockets.
func setReuseAddr(_, _ string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	select {
	case <-l.done:
		return nil
	default:
		close(l.done)
	}
	if l.ln != nil {
		return l.ln.Close()
	}
	return nil
}
