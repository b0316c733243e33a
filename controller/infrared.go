package controller

import (
	"fmt"
	"sync"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/model"
	"github.com/gerickson-labs/hlxgo/rxmatch"
	"github.com/gerickson-labs/hlxgo/statechange"
)

// Infrared owns the device's single infrared-remote-disable flag.
type Infrared struct {
	mu       sync.Mutex
	state    model.Infrared
	notifier *statechange.Notifier
}

// NewInfrared returns an uninitialized Infrared controller.
func NewInfrared(notifier *statechange.Notifier) *Infrared {
	return &Infrared{notifier: notifier}
}

// Init sets infrared control to its default (enabled) state.
func (c *Infrared) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = model.NewInfrared()
}

// State returns a copy of the current infrared state.
func (c *Infrared) State() model.Infrared {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ExpectedQueryCount: Refresh issues a single QIR.
func (c *Infrared) ExpectedQueryCount() int { return 1 }

// RegisterServer wires infrared's request handlers into mgr. A genuine
// change additionally fans its response frame out through connMgr to
// every other active connection; connMgr may be nil.
func (c *Infrared) RegisterServer(mgr *command.Manager, connMgr *hlxconn.Manager) error {
	if err := mgr.RegisterRequestHandler(command.NameInfraredDisabled, command.InfraredTable()[0].Matcher, c.handleDisabled(true, connMgr)); err != nil {
		return err
	}
	return mgr.RegisterRequestHandler(command.NameInfraredQuery, command.InfraredTable()[1].Matcher, c.handleQuery)
}

// RegisterClient wires infrared's notification handlers into mgr.
func (c *Infrared) RegisterClient(mgr *command.Manager) error {
	return mgr.RegisterNotificationHandler(command.NameInfraredDisabled, command.InfraredTable()[0].Matcher, func(conn *hlxconn.Connection, m []rxmatch.Match) {
		c.handleDisabled(false, nil)(conn, m)
	})
}

func (c *Infrared) handleDisabled(reply bool, connMgr *hlxconn.Manager) func(*hlxconn.Connection, []rxmatch.Match) {
	return func(conn *hlxconn.Connection, matches []rxmatch.Match) {
		disabled := string(matches[0].Text) == "1"
		c.mu.Lock()
		setErr := c.state.SetDisabled(disabled)
		c.mu.Unlock()
		if !ok(setErr) {
			if reply {
				_ = conn.Send(command.ErrorResponse)
			}
			return
		}
		if changed(setErr) {
			c.notifier.Emit(statechange.Notification{Kind: statechange.KindInfraredDisabled, Bool: disabled})
		}
		if reply {
			frame := command.WrapResponse(fmt.Sprintf("IRD%d", boolBit(disabled)))
			if changed(setErr) && connMgr != nil {
				connMgr.Send(conn, frame)
				return
			}
			_ = conn.Send(frame)
		}
	}
}

func (c *Infrared) handleQuery(conn *hlxconn.Connection, _ []rxmatch.Match) {
	_ = conn.Send(command.WrapResponse(fmt.Sprintf("IRD%d", boolBit(c.State().IsDisabled()))))
	_ = conn.Send(command.WrapResponse("QIR"))
}

// Refresh issues a single QIR query.
func (c *Infrared) Refresh(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, onComplete func(error)) {
	_ = mgr.SendCommand(conn, "QIR", command.InfraredTable()[1].Matcher, timeout, func(_ []rxmatch.Match, err error) {
		onComplete(err)
	})
}

// SetDisabled issues a client-role infrared disable/enable request upstream.
func (c *Infrared) SetDisabled(mgr *command.Manager, conn *hlxconn.Connection, disabled bool, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf("IRD%d", boolBit(disabled)), command.InfraredTable()[0].Matcher, timeout, completion)
}
