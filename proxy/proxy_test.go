package proxy

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/topctrl"
	"github.com/stretchr/testify/require"
)

// getFreePort grabs an OS-assigned loopback port and releases it, matching
// sptp/client's json_stats_test.go helper of the same name.
func getFreePort(t *testing.T) int {
	t.Helper()
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	require.NoError(t, err)
	l, err := net.ListenTCP("tcp", addr)
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// startFakeHardware starts a minimal server-role Top-Level Controller standing in
// for real HLX hardware: it accepts connections and answers every
// request through its own command.Manager, exactly as cmd/hlxserverd does.
func startFakeHardware(t *testing.T, addr string) *topctrl.Controller {
	t.Helper()
	ctrl := topctrl.New()
	ctrl.Init()

	mgr := command.NewManager(time.Second)
	connMgr := hlxconn.NewManager()
	require.NoError(t, ctrl.RegisterServer(mgr, connMgr))

	connMgr.SetApplicationDataDelegate(func(conn *hlxconn.Connection, data []byte) {
		mgr.HandleRequest(conn, data)
	})
	require.NoError(t, connMgr.Listen(addr))
	t.Cleanup(connMgr.Close)
	return ctrl
}

// TestProxyRelaysDownstreamRequestAndFansOutNotification exercises the
// proxy's two data paths end to end: a downstream client's request is
// forwarded upstream unconditionally (§9 decision 3), the upstream
// hardware's response is relayed back, and the proxy's own model mirror
// (used by hlxstats and other in-process consumers) reflects the change.
func TestProxyRelaysDownstreamRequestAndFansOutNotification(t *testing.T) {
	upstreamPort := getFreePort(t)
	upstreamAddr := fmt.Sprintf("127.0.0.1:%d", upstreamPort)
	startFakeHardware(t, upstreamAddr)

	downstreamPort := getFreePort(t)
	downstreamAddr := fmt.Sprintf("127.0.0.1:%d", downstreamPort)

	p := New(2 * time.Second)
	refreshed := make(chan struct{}, 1)
	p.SetDelegate(Delegate{Delegate: topctrl.Delegate{DidRefresh: func() { refreshed <- struct{}{} }}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx, upstreamAddr, time.Second, downstreamAddr))
	defer p.Close()

	select {
	case <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("proxy never finished its initial refresh")
	}

	downConn, err := net.Dial("tcp", downstreamAddr)
	require.NoError(t, err)
	defer downConn.Close()

	// Drain and discard the server-role banner before sending a request.
	buf := make([]byte, 256)
	n, err := downConn.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "connected\r\n")

	_, err = downConn.Write([]byte(`[NO7"Kitchen"]`))
	require.NoError(t, err)

	downConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err = downConn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, `(NO7"Kitchen")`, string(buf[:n]))

	z, err := p.Controller.Zones.Zone(7)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return z.Name() == "Kitchen"
	}, 2*time.Second, 10*time.Millisecond, "proxy's own model mirror should reflect the upstream response")

	require.Equal(t, 1, p.ActiveDownstreamCount())
}
