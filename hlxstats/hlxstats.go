// Package hlxstats implements statistics collection and reporting. It is
// used by hlxproxyd and hlxserverd to report internal counters, such as
// refresh progress and connection counts, over a small JSON HTTP surface.
package hlxstats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Source is polled at request time for counters that are already tracked
// elsewhere (the upstream Command Manager's error counter, the downstream
// Connection Manager's active count) rather than duplicated here.
type Source interface {
	// ErrorCount reports how many inbound frames matched no registered
	// handler (the Command Manager's ErrorCount).
	ErrorCount() uint64
	// ActiveDownstreamCount reports how many downstream clients are
	// currently connected.
	ActiveDownstreamCount() int
}

// Stats is what hlxproxyd and hlxserverd report via HTTP. Its
// IsRefreshing/DidRefresh/ControllerError methods match topctrl.Delegate's
// field signatures, so a Stats can be wired directly into a
// proxy.Delegate's embedded topctrl.Delegate without an adapter.
type Stats struct {
	source Source

	refreshing     int64
	refreshPercent int64
	refreshCount   int64
	refreshAborted int64
}

// New returns a Stats that polls source for counters at request time.
// source may be nil, in which case only the refresh-lifecycle counters
// are reported.
func New(source Source) *Stats {
	return &Stats{source: source}
}

// Start runs the JSON HTTP server on monitoringPort. It blocks; callers
// typically run it in its own goroutine.
func (s *Stats) Start(monitoringPort int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)
	addr := fmt.Sprintf(":%d", monitoringPort)
	log.Infof("hlxstats: starting json http server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("hlxstats: failed to start listener: %v", err)
	}
}

// IsRefreshing records the refresh lifecycle's latest completion percentage.
func (s *Stats) IsRefreshing(percent int) {
	atomic.StoreInt64(&s.refreshing, 1)
	atomic.StoreInt64(&s.refreshPercent, int64(percent))
}

// DidRefresh records a completed refresh.
func (s *Stats) DidRefresh() {
	atomic.StoreInt64(&s.refreshing, 0)
	atomic.StoreInt64(&s.refreshPercent, 100)
	atomic.AddInt64(&s.refreshCount, 1)
}

// ControllerError records an aborted refresh.
func (s *Stats) ControllerError(error) {
	atomic.StoreInt64(&s.refreshing, 0)
	atomic.AddInt64(&s.refreshAborted, 1)
}

func (s *Stats) toMap() map[string]int64 {
	m := map[string]int64{
		"refresh.active":  atomic.LoadInt64(&s.refreshing),
		"refresh.percent": atomic.LoadInt64(&s.refreshPercent),
		"refresh.count":   atomic.LoadInt64(&s.refreshCount),
		"refresh.aborted": atomic.LoadInt64(&s.refreshAborted),
	}
	if s.source != nil {
		m["command.errors"] = int64(s.source.ErrorCount())
		m["downstream.connections"] = int64(s.source.ActiveDownstreamCount())
	}
	return m
}

// handleRequest is the handler used for all http monitoring requests.
func (s *Stats) handleRequest(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(s.toMap())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(js); err != nil {
		log.Errorf("hlxstats: failed to reply: %v", err)
	}
}
