package hlxconn

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManagerListenAcceptConnect(t *testing.T) {
	serverMgr := NewManager()
	accepted := make(chan *Connection, 1)
	serverMgr.AddDelegate(ManagerDelegate{
		DidAccept: func(c *Connection) { accepted <- c },
	})
	require.NoError(t, serverMgr.listenOne("127.0.0.1:0"))

	var addr string
	serverMgr.mu.Lock()
	for a := range serverMgr.listeners {
		addr = a
	}
	serverMgr.mu.Unlock()
	// listenOne binds to an ephemeral port ("127.0.0.1:0"); recover the
	// actual bound address from the OS listener rather than the request string.
	serverMgr.mu.Lock()
	ln := serverMgr.listeners[addr]
	serverMgr.mu.Unlock()
	realAddr := ln.ln.Addr().String()

	clientMgr := NewManager()
	client, err := clientMgr.Connect(context.Background(), realAddr, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, StateConnected, client.State())

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted")
	}

	serverMgr.Close()
	clientMgr.Close()
}

func TestFanOutSendReachesOriginatorAndEveryOtherConnection(t *testing.T) {
	m := NewManager()

	// Build three in-process connections over net.Pipe, wired directly into
	// the manager's active set (bypassing dial/accept, which is exercised
	// elsewhere), to test fan-out reach in isolation.
	var conns []*Connection
	var peers []net.Conn
	for i := 0; i < 3; i++ {
		a, b := net.Pipe()
		peers = append(peers, b)
		c := NewServer(a, uint64(i+1), Delegate{})
		conns = append(conns, c)
	}
	for i, c := range conns {
		m.activeConnections[connKey(c.RemoteAddr().String(), uint64(i+1))] = c
	}

	// Drain each peer side so Send() on the pipe doesn't block.
	received := make([]chan []byte, len(peers))
	for i, p := range peers {
		ch := make(chan []byte, 4)
		received[i] = ch
		go func(p net.Conn, ch chan []byte) {
			buf := make([]byte, 64)
			for {
				n, err := p.Read(buf)
				if n > 0 {
					cp := make([]byte, n)
					copy(cp, buf[:n])
					ch <- cp
				}
				if err != nil {
					return
				}
			}
		}(p, ch)
	}

	m.Send(conns[0], []byte("[VO1R-10]"))

	for i := range peers {
		select {
		case <-received[i]:
		case <-time.After(time.Second):
			t.Fatalf("peer %d never received the fanned-out frame", i)
		}
	}

	for _, p := range peers {
		_ = p.Close()
	}
}
