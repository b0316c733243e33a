package command

import (
	"net"
	"testing"
	"time"

	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/model"
	"github.com/gerickson-labs/hlxgo/rxmatch"
	"github.com/stretchr/testify/require"
)

// connectedPair returns a handshake-complete client Connection and the
// raw net.Conn representing its peer, with a reader goroutine already
// draining the peer side into recv.
func connectedPair(t *testing.T) (client *hlxconn.Connection, recv chan []byte) {
	t.Helper()
	serverSide, clientSide := net.Pipe()

	connected := make(chan struct{}, 1)
	client = hlxconn.NewClient(clientSide, hlxconn.Delegate{
		DidConnect: func(c *hlxconn.Connection) { connected <- struct{}{} },
	})
	client.Start()

	recv = make(chan []byte, 8)
	server := hlxconn.NewServer(serverSide, 1, hlxconn.Delegate{
		DidReceiveApplicationData: func(c *hlxconn.Connection, data []byte) {
			cp := make([]byte, len(data))
			copy(cp, data)
			recv <- cp
		},
	})
	server.Start()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("handshake never completed")
	}

	return client, recv
}

func TestRegisterRequestHandlerDuplicateName(t *testing.T) {
	m := NewManager(time.Second)
	require.NoError(t, m.RegisterRequestHandler("zq", rxmatch.MustCompile(`^QO([[:digit:]]+)`), func(*hlxconn.Connection, []rxmatch.Match) {}))
	err := m.RegisterRequestHandler("zq", rxmatch.MustCompile(`^QO([[:digit:]]+)`), func(*hlxconn.Connection, []rxmatch.Match) {})
	require.ErrorIs(t, err, model.ErrAlreadyExists)
}

func TestUnregisterRequestHandlerNotFound(t *testing.T) {
	m := NewManager(time.Second)
	require.ErrorIs(t, m.UnregisterRequestHandler("missing"), model.ErrNotFound)
}

func TestHandleRequestDispatchesFirstMatch(t *testing.T) {
	m := NewManager(time.Second)
	client, recv := connectedPair(t)

	var gotID string
	require.NoError(t, m.RegisterRequestHandler(NameZonesVolume, ZoneTable()[13].Matcher, func(conn *hlxconn.Connection, matches []rxmatch.Match) {
		gotID = string(matches[0].Text)
	}))

	m.HandleRequest(client, []byte("[VO3R-25]"))
	require.Equal(t, "3", gotID)

	select {
	case <-recv:
		t.Fatal("no (ERROR) expected on a matched request")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleRequestSendsErrorOnNoMatch(t *testing.T) {
	m := NewManager(time.Second)
	client, recv := connectedPair(t)

	m.HandleRequest(client, []byte("[ZZZ]"))
	require.EqualValues(t, 1, m.ErrorCount())

	select {
	case data := <-recv:
		require.Equal(t, "(ERROR)", string(data))
	case <-time.After(time.Second):
		t.Fatal("never received (ERROR)")
	}
}

func TestSendCommandCorrelatesResponse(t *testing.T) {
	m := NewManager(time.Second)
	client, recv := connectedPair(t)

	responsePattern := rxmatch.MustCompile(`^VO([[:digit:]]+)R(-?[[:digit:]]+)`)
	done := make(chan []rxmatch.Match, 1)
	require.NoError(t, m.SendCommand(client, "VO3R-25", responsePattern, time.Second, func(matches []rxmatch.Match, err error) {
		require.NoError(t, err)
		done <- matches
	}))

	select {
	case data := <-recv:
		require.Equal(t, "[VO3R-25]", string(data))
	case <-time.After(time.Second):
		t.Fatal("request never reached the peer")
	}

	m.HandleResponse(client, []byte("(VO3R-25)"))

	select {
	case matches := <-done:
		require.Equal(t, "3", string(matches[0].Text))
		require.Equal(t, "-25", string(matches[1].Text))
	case <-time.After(time.Second):
		t.Fatal("completion never fired")
	}
}

func TestSendCommandTimeout(t *testing.T) {
	m := NewManager(time.Second)
	client, _ := connectedPair(t)

	responsePattern := rxmatch.MustCompile(`^VO([[:digit:]]+)R(-?[[:digit:]]+)`)
	done := make(chan error, 1)
	require.NoError(t, m.SendCommand(client, "VO3R-25", responsePattern, 20*time.Millisecond, func(matches []rxmatch.Match, err error) {
		done <- err
	}))

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrTimeout)
	case <-time.After(time.Second):
		t.Fatal("exchange never timed out")
	}
}

func TestHandleResponseFallsBackToNotificationHandler(t *testing.T) {
	m := NewManager(time.Second)
	client, _ := connectedPair(t)

	gotName := ""
	require.NoError(t, m.RegisterNotificationHandler(NameZonesName, ZoneTable()[6].Matcher, func(conn *hlxconn.Connection, matches []rxmatch.Match) {
		gotName = string(matches[1].Text)
	}))

	m.HandleResponse(client, []byte(`(NO7"Kitchen")`))
	require.Equal(t, "Kitchen", gotName)
}
