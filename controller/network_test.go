package controller

import (
	"net"
	"testing"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/statechange"
	"github.com/stretchr/testify/require"
)

// TestNetworkSetHostAddressDeduplicates exercises the single-instance
// family's §8 scenario 2 analogue: re-applying the same static host
// address is reported back as success but suppresses the notification.
func TestNetworkSetHostAddressDeduplicates(t *testing.T) {
	notifier := &statechange.Notifier{}
	var notifications []statechange.Notification
	notifier.Subscribe(statechange.ObserverFunc(func(n statechange.Notification) { notifications = append(notifications, n) }))

	nw := NewNetwork(notifier)
	nw.Init()

	mgr := command.NewManager(time.Second)
	require.NoError(t, nw.RegisterServer(mgr, nil))

	conn, recv := connectedServerPair(t)
	mgr.HandleRequest(conn, []byte(`[WIP"10.0.0.5"]`))
	require.Equal(t, `(WIP"10.0.0.5")`, drain(t, recv, time.Second))
	require.Len(t, notifications, 1)
	require.Equal(t, "10.0.0.5", net.ParseIP(nw.State().HostAddress().String()).String())

	notifications = nil
	mgr.HandleRequest(conn, []byte(`[WIP"10.0.0.5"]`))
	require.Equal(t, `(WIP"10.0.0.5")`, drain(t, recv, time.Second), "re-applying the same address still mirrors the request")
	require.Empty(t, notifications, "re-applying the same address must not notify again")
}

// TestNetworkHandleQueryOmitsUnsetAddresses exercises handleQuery's
// sparse reply shape: before any static address is ever set, QW's reply
// omits the WIP/WNM/WGW frames entirely rather than emitting them empty.
func TestNetworkHandleQueryOmitsUnsetAddresses(t *testing.T) {
	notifier := &statechange.Notifier{}
	nw := NewNetwork(notifier)
	nw.Init()

	mgr := command.NewManager(time.Second)
	require.NoError(t, nw.RegisterServer(mgr, nil))

	conn, recv := connectedServerPair(t)
	mgr.HandleRequest(conn, []byte("[QW]"))

	require.Equal(t, "(WDHCP1)", drain(t, recv, time.Second))
	require.Equal(t, "(WSDDP1)", drain(t, recv, time.Second))
	require.Equal(t, "(QW)", drain(t, recv, time.Second))
}

// TestInfraredSetDisabledDeduplicates confirms the infrared flag's
// idempotent-set behavior matches every other single-instance family.
func TestInfraredSetDisabledDeduplicates(t *testing.T) {
	notifier := &statechange.Notifier{}
	var notifications []statechange.Notification
	notifier.Subscribe(statechange.ObserverFunc(func(n statechange.Notification) { notifications = append(notifications, n) }))

	ir := NewInfrared(notifier)
	ir.Init()

	mgr := command.NewManager(time.Second)
	require.NoError(t, ir.RegisterServer(mgr, nil))

	conn, recv := connectedServerPair(t)
	mgr.HandleRequest(conn, []byte("[IRD1]"))
	require.Equal(t, "(IRD1)", drain(t, recv, time.Second))
	require.Len(t, notifications, 1)
	require.True(t, ir.State().IsDisabled())

	notifications = nil
	mgr.HandleRequest(conn, []byte("[IRD1]"))
	require.Equal(t, "(IRD1)", drain(t, recv, time.Second), "re-applying the same flag still mirrors the request")
	require.Empty(t, notifications, "re-applying the same flag must not notify again")
}

// TestInfraredHandleQuerySendsCurrentStateThenEcho pins the two-frame
// query reply shape shared with front panel's QFPB/QFPL handlers.
func TestInfraredHandleQuerySendsCurrentStateThenEcho(t *testing.T) {
	notifier := &statechange.Notifier{}
	ir := NewInfrared(notifier)
	ir.Init()

	mgr := command.NewManager(time.Second)
	require.NoError(t, ir.RegisterServer(mgr, nil))

	conn, recv := connectedServerPair(t)
	mgr.HandleRequest(conn, []byte("[QIR]"))

	require.Equal(t, "(IRD0)", drain(t, recv, time.Second))
	require.Equal(t, "(QIR)", drain(t, recv, time.Second))
}
