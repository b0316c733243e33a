// Package command implements the Command/Response Framer and Command
// Manager: the regex-driven request/response/notification dispatcher
// that sits between the Connection (raw Telnet-framed bytes) and the
// Object Controllers (typed model mutations).
package command

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/model"
	"github.com/gerickson-labs/hlxgo/rxmatch"
	log "github.com/sirupsen/logrus"
)

// RequestHandlerFunc handles an inbound request frame that matched its
// registered regex (server role).
type RequestHandlerFunc func(conn *hlxconn.Connection, matches []rxmatch.Match)

// NotificationHandlerFunc handles an inbound notification frame that
// matched its registered regex and did not correlate with any in-flight
// exchange (client role).
type NotificationHandlerFunc func(conn *hlxconn.Connection, matches []rxmatch.Match)

// CompletionFunc is invoked when an outbound exchange's response arrives
// (matches non-nil, err nil) or times out (matches nil, err set).
type CompletionFunc func(matches []rxmatch.Match, err error)

type registeredHandler struct {
	name    string
	matcher *rxmatch.Matcher
	request RequestHandlerFunc
	notify  NotificationHandlerFunc
}

type exchange struct {
	matcher    *rxmatch.Matcher
	completion CompletionFunc
	timer      *time.Timer
	fired      sync.Once
}

type connState struct {
	mu        sync.Mutex
	source    *frameSource
	exchanges []*exchange
}

// Manager is the central regex dispatch point, used in either or both of
// two roles on the same instance: a server role dispatching inbound
// request frames against a registered-handler table (§4.6 items 1-4,
// sending the literal (ERROR) frame on no match), and a client role
// correlating inbound response/notification frames against an
// in-flight exchange queue first and a notification-handler table
// second (§4.6 "Outbound path"). The proxy uses one Manager, in the
// client role, for its upstream connection; it forwards downstream
// request bytes upstream without dispatching them through any Manager.
type Manager struct {
	mu                   sync.Mutex
	requestHandlers      []*registeredHandler
	notificationHandlers []*registeredHandler

	states map[*hlxconn.Connection]*connState

	defaultTimeout time.Duration
	errorCount     uint64
}

// NewManager returns a Manager whose exchanges time out after
// defaultTimeout unless SendCommand is given an explicit override.
func NewManager(defaultTimeout time.Duration) *Manager {
	return &Manager{
		states:         make(map[*hlxconn.Connection]*connState),
		defaultTimeout: defaultTimeout,
	}
}

func (m *Manager) stateFor(conn *hlxconn.Connection) *connState {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.states[conn]
	if !ok {
		cs = &connState{source: newFrameSource()}
		m.states[conn] = cs
	}
	return cs
}

// CloseConnection discards any buffered partial frame and in-flight
// exchanges for conn; call this from the owning DidDisconnect delegate.
func (m *Manager) CloseConnection(conn *hlxconn.Connection) {
	m.mu.Lock()
	cs, ok := m.states[conn]
	delete(m.states, conn)
	m.mu.Unlock()
	if !ok {
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, ex := range cs.exchanges {
		ex.timer.Stop()
	}
}

// RegisterRequestHandler registers fn to handle inbound request frames
// matching pattern, in registration order. Registering the same name
// twice fails with model.ErrAlreadyExists.
func (m *Manager) RegisterRequestHandler(name string, pattern *rxmatch.Matcher, fn RequestHandlerFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.requestHandlers {
		if h.name == name {
			return model.ErrAlreadyExists
		}
	}
	m.requestHandlers = append(m.requestHandlers, &registeredHandler{name: name, matcher: pattern, request: fn})
	return nil
}

// UnregisterRequestHandler removes a previously registered request
// handler. Fails with model.ErrNotFound if name is not registered.
func (m *Manager) UnregisterRequestHandler(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, h := range m.requestHandlers {
		if h.name == name {
			m.requestHandlers = append(m.requestHandlers[:i], m.requestHandlers[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

// RegisterNotificationHandler registers fn to handle inbound
// notification frames matching pattern that do not correlate with any
// in-flight exchange. Registering the same name twice fails with
// model.ErrAlreadyExists.
func (m *Manager) RegisterNotificationHandler(name string, pattern *rxmatch.Matcher, fn NotificationHandlerFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.notificationHandlers {
		if h.name == name {
			return model.ErrAlreadyExists
		}
	}
	m.notificationHandlers = append(m.notificationHandlers, &registeredHandler{name: name, matcher: pattern, notify: fn})
	return nil
}

// UnregisterNotificationHandler removes a previously registered
// notification handler. Fails with model.ErrNotFound if name is not
// registered.
func (m *Manager) UnregisterNotificationHandler(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, h := range m.notificationHandlers {
		if h.name == name {
			m.notificationHandlers = append(m.notificationHandlers[:i], m.notificationHandlers[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

// ErrorCount returns the number of inbound frames that matched nothing
// since the Manager was created: request frames matching no request
// handler, and response frames matching neither the head exchange nor a
// notification handler. hlxstats exposes it as the command.errors counter.
func (m *Manager) ErrorCount() uint64 { return atomic.LoadUint64(&m.errorCount) }

// HandleRequest dispatches inbound bytes from conn as request frames
// (server role, §4.6 items 1-4): each complete "[...]" frame is matched
// against the request-handler table in registration order; the first
// match wins. A frame matching nothing gets the literal (ERROR) response.
func (m *Manager) HandleRequest(conn *hlxconn.Connection, data []byte) {
	cs := m.stateFor(conn)
	cs.mu.Lock()
	frames, err := cs.source.Feed(data)
	cs.mu.Unlock()
	if err != nil {
		log.Warnf("command: request framer error on %s: %v", conn.RemoteAddr(), err)
		return
	}

	m.mu.Lock()
	handlers := append([]*registeredHandler(nil), m.requestHandlers...)
	m.mu.Unlock()

	for _, frame := range frames {
		body := payload(frame)
		matched := false
		for _, h := range handlers {
			if matches := h.matcher.FindSubmatch(body); matches != nil {
				h.request(conn, matches)
				matched = true
				break
			}
		}
		if !matched {
			atomic.AddUint64(&m.errorCount, 1)
			if err := conn.Send(ErrorResponse); err != nil {
				log.Debugf("command: failed to send (ERROR) to %s: %v", conn.RemoteAddr(), err)
			}
		}
	}
}

// HandleResponse dispatches inbound bytes from conn as response/
// notification frames (client role, §4.6 "Outbound path"): each
// complete "(...)" frame is matched first against the head of conn's
// in-flight exchange queue (FIFO); on match the exchange's completion
// fires and it is retired. Otherwise the frame is matched against the
// notification-handler table in registration order. A frame matching
// neither is counted in ErrorCount, logged and dropped.
func (m *Manager) HandleResponse(conn *hlxconn.Connection, data []byte) {
	cs := m.stateFor(conn)
	cs.mu.Lock()
	frames, err := cs.source.Feed(data)
	cs.mu.Unlock()
	if err != nil {
		log.Warnf("command: response framer error on %s: %v", conn.RemoteAddr(), err)
		return
	}

	m.mu.Lock()
	handlers := append([]*registeredHandler(nil), m.notificationHandlers...)
	m.mu.Unlock()

	for _, frame := range frames {
		body := payload(frame)

		cs.mu.Lock()
		var head *exchange
		if len(cs.exchanges) > 0 {
			head = cs.exchanges[0]
		}
		var matches []rxmatch.Match
		if head != nil {
			matches = head.matcher.FindSubmatch(body)
			if matches != nil {
				cs.exchanges = cs.exchanges[1:]
			}
		}
		cs.mu.Unlock()

		if matches != nil {
			head.timer.Stop()
			head.fired.Do(func() { head.completion(matches, nil) })
			continue
		}

		dispatched := false
		for _, h := range handlers {
			if m := h.matcher.FindSubmatch(body); m != nil {
				h.notify(conn, m)
				dispatched = true
				break
			}
		}
		if !dispatched {
			atomic.AddUint64(&m.errorCount, 1)
			log.Debugf("command: unsolicited frame matched no notification handler: %q", body)
		}
	}
}

// SendCommand writes requestBody (wrapped as a request frame) to conn,
// and arranges for completion to be invoked once a frame matching
// responsePattern is dispatched via HandleResponse, or with ErrTimeout
// if none arrives within timeout (0 selects the Manager's default).
func (m *Manager) SendCommand(conn *hlxconn.Connection, requestBody string, responsePattern *rxmatch.Matcher, timeout time.Duration, completion CompletionFunc) error {
	if timeout <= 0 {
		timeout = m.defaultTimeout
	}

	cs := m.stateFor(conn)
	ex := &exchange{matcher: responsePattern, completion: completion}

	cs.mu.Lock()
	cs.exchanges = append(cs.exchanges, ex)
	cs.mu.Unlock()

	ex.timer = time.AfterFunc(timeout, func() {
		cs.mu.Lock()
		for i, e := range cs.exchanges {
			if e == ex {
				cs.exchanges = append(cs.exchanges[:i], cs.exchanges[i+1:]...)
				break
			}
		}
		cs.mu.Unlock()
		ex.fired.Do(func() { completion(nil, ErrTimeout) })
	})

	if err := conn.Send(WrapRequest(requestBody)); err != nil {
		ex.timer.Stop()
		cs.mu.Lock()
		for i, e := range cs.exchanges {
			if e == ex {
				cs.exchanges = append(cs.exchanges[:i], cs.exchanges[i+1:]...)
				break
			}
		}
		cs.mu.Unlock()
		return err
	}
	return nil
}
