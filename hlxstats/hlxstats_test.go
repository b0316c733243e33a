package hlxstats

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func getFreePort(t *testing.T) int {
	t.Helper()
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	require.NoError(t, err)
	l, err := net.ListenTCP("tcp", addr)
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

type fakeSource struct {
	errorCount uint64
	active     int
}

func (f fakeSource) ErrorCount() uint64        { return f.errorCount }
func (f fakeSource) ActiveDownstreamCount() int { return f.active }

func TestStatsRefreshLifecycleCounters(t *testing.T) {
	s := New(nil)

	s.IsRefreshing(40)
	m := s.toMap()
	require.Equal(t, int64(1), m["refresh.active"])
	require.Equal(t, int64(40), m["refresh.percent"])
	require.Equal(t, int64(0), m["refresh.count"])

	s.DidRefresh()
	m = s.toMap()
	require.Equal(t, int64(0), m["refresh.active"])
	require.Equal(t, int64(100), m["refresh.percent"])
	require.Equal(t, int64(1), m["refresh.count"])

	s.IsRefreshing(10)
	s.ControllerError(errors.New("boom"))
	m = s.toMap()
	require.Equal(t, int64(0), m["refresh.active"])
	require.Equal(t, int64(1), m["refresh.aborted"])
	// A second completed refresh afterward still counts correctly.
	s.DidRefresh()
	require.Equal(t, int64(2), s.toMap()["refresh.count"])
}

func TestStatsToMapOmitsSourceCountersWhenNil(t *testing.T) {
	s := New(nil)
	m := s.toMap()
	_, ok := m["command.errors"]
	require.False(t, ok)
	_, ok = m["downstream.connections"]
	require.False(t, ok)
}

func TestStatsToMapPollsSourceAtRequestTime(t *testing.T) {
	src := fakeSource{errorCount: 3, active: 2}
	s := New(src)

	m := s.toMap()
	require.Equal(t, int64(3), m["command.errors"])
	require.Equal(t, int64(2), m["downstream.connections"])
}

func TestStatsHTTPServesJSON(t *testing.T) {
	src := fakeSource{errorCount: 7, active: 1}
	s := New(src)
	s.IsRefreshing(55)

	port := getFreePort(t)
	go s.Start(port)
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var data map[string]int64
	require.NoError(t, json.Unmarshal(body, &data))

	require.Equal(t, int64(1), data["refresh.active"])
	require.Equal(t, int64(55), data["refresh.percent"])
	require.Equal(t, int64(7), data["command.errors"])
	require.Equal(t, int64(1), data["downstream.connections"])
}
