package hlxconn

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientServerHandshake(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	connected := make(chan struct{}, 1)
	client := NewClient(clientSide, Delegate{
		DidConnect: func(c *Connection) {
			connected <- struct{}{}
		},
	})
	client.Start()

	server := NewServer(serverSide, 1, Delegate{})
	server.Start()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("client never observed DidConnect")
	}
	require.Equal(t, StateConnected, client.State())
	require.Equal(t, StateAccepted, server.State())
}

func TestClientQueuesOutboundBeforeBanner(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	received := make(chan []byte, 1)
	server := NewServer(serverSide, 7, Delegate{
		DidReceiveApplicationData: func(c *Connection, data []byte) {
			received <- data
		},
	})

	connected := make(chan struct{}, 1)
	client := NewClient(clientSide, Delegate{
		DidConnect: func(c *Connection) { connected <- struct{}{} },
	})
	client.Start()
	require.NoError(t, client.Send([]byte("[QX]")))

	server.Start()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("never connected")
	}

	select {
	case data := <-received:
		require.Equal(t, "[QX]", string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("queued data was never flushed to server")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	client := NewClient(clientSide, Delegate{})
	client.Start()

	server := NewServer(serverSide, 1, Delegate{})
	server.Start()

	require.NoError(t, server.Close())
	require.ErrorIs(t, server.Close(), ErrAlreadyDisconnected)
}
