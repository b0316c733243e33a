package controller

import (
	"sync"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/model"
	"github.com/gerickson-labs/hlxgo/rxmatch"
	"github.com/gerickson-labs/hlxgo/statechange"
)

// Configuration owns the device's save/load/reset-to-defaults operations
// and the transient "currently saving" flag.
type Configuration struct {
	mu       sync.Mutex
	state    model.Configuration
	notifier *statechange.Notifier
}

// NewConfiguration returns an uninitialized Configuration controller.
func NewConfiguration(notifier *statechange.Notifier) *Configuration {
	return &Configuration{notifier: notifier}
}

// Init sets the configuration to its default (not saving) state.
func (c *Configuration) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = model.NewConfiguration()
}

// IsSaving reports whether a save is currently in progress.
func (c *Configuration) IsSaving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.IsSaving()
}

// ExpectedQueryCount: Refresh issues a single QX.
func (c *Configuration) ExpectedQueryCount() int { return 1 }

// RegisterServer wires configuration's request handlers into mgr. Every
// save/load/reset response additionally fans out through connMgr to
// every other active connection, since these operations always count
// as a change; connMgr may be nil.
func (c *Configuration) RegisterServer(mgr *command.Manager, connMgr *hlxconn.Manager) error {
	if err := mgr.RegisterRequestHandler(command.NameConfigurationQuery, command.ConfigurationTable()[0].Matcher, c.handleQuery); err != nil {
		return err
	}
	if err := mgr.RegisterRequestHandler(command.NameConfigurationSave, command.ConfigurationTable()[1].Matcher, func(conn *hlxconn.Connection, _ []rxmatch.Match) {
		c.handleSave(conn, connMgr)
	}); err != nil {
		return err
	}
	if err := mgr.RegisterRequestHandler(command.NameConfigurationLoad, command.ConfigurationTable()[3].Matcher, func(conn *hlxconn.Connection, _ []rxmatch.Match) {
		c.handleLoad(conn, connMgr)
	}); err != nil {
		return err
	}
	return mgr.RegisterRequestHandler(command.NameConfigurationReset, command.ConfigurationTable()[4].Matcher, func(conn *hlxconn.Connection, _ []rxmatch.Match) {
		c.handleReset(conn, connMgr)
	})
}

// RegisterClient wires configuration's notification handlers into mgr:
// the in-progress (CSAVING) frame and the terminal (CSAVE)/(CLOAD)/
// (CRESET) mirrors, observed as an upstream peer's own save/load/reset.
func (c *Configuration) RegisterClient(mgr *command.Manager) error {
	if err := mgr.RegisterNotificationHandler(command.NameConfigurationSaving, command.ConfigurationTable()[2].Matcher, func(*hlxconn.Connection, []rxmatch.Match) {
		c.notifier.Emit(statechange.Notification{Kind: statechange.KindConfigurationSaving})
	}); err != nil {
		return err
	}
	if err := mgr.RegisterNotificationHandler(command.NameConfigurationSave, command.ConfigurationTable()[1].Matcher, func(*hlxconn.Connection, []rxmatch.Match) {
		c.notifier.Emit(statechange.Notification{Kind: statechange.KindConfigurationSaved})
	}); err != nil {
		return err
	}
	if err := mgr.RegisterNotificationHandler(command.NameConfigurationLoad, command.ConfigurationTable()[3].Matcher, func(*hlxconn.Connection, []rxmatch.Match) {
		c.notifier.Emit(statechange.Notification{Kind: statechange.KindConfigurationLoaded})
	}); err != nil {
		return err
	}
	return mgr.RegisterNotificationHandler(command.NameConfigurationReset, command.ConfigurationTable()[4].Matcher, func(*hlxconn.Connection, []rxmatch.Match) {
		c.notifier.Emit(statechange.Notification{Kind: statechange.KindConfigurationReset})
	})
}

func (c *Configuration) handleQuery(conn *hlxconn.Connection, _ []rxmatch.Match) {
	_ = conn.Send(command.WrapResponse("QX"))
}

// handleSave answers CSAVE by emitting the transient (CSAVING) frame
// immediately, performing the save, then mirroring (CSAVE) back as the
// completion marker — the same "marker frame" shape Zones.handleQuery
// uses for its trailing echo, adapted here to a two-state operation
// instead of a property dump.
func (c *Configuration) handleSave(conn *hlxconn.Connection, connMgr *hlxconn.Manager) {
	c.mu.Lock()
	beginErr := c.state.BeginSaving()
	c.mu.Unlock()
	if !ok(beginErr) {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	savingFrame := command.WrapResponse("CSAVING")
	if changed(beginErr) {
		c.notifier.Emit(statechange.Notification{Kind: statechange.KindConfigurationSaving})
		if connMgr != nil {
			connMgr.Send(conn, savingFrame)
		} else {
			_ = conn.Send(savingFrame)
		}
	} else {
		_ = conn.Send(savingFrame)
	}

	c.mu.Lock()
	_ = c.state.EndSaving()
	c.mu.Unlock()
	c.notifier.Emit(statechange.Notification{Kind: statechange.KindConfigurationSaved})
	saveFrame := command.WrapResponse("CSAVE")
	if connMgr != nil {
		connMgr.Send(conn, saveFrame)
		return
	}
	_ = conn.Send(saveFrame)
}

func (c *Configuration) handleLoad(conn *hlxconn.Connection, connMgr *hlxconn.Manager) {
	c.notifier.Emit(statechange.Notification{Kind: statechange.KindConfigurationLoaded})
	frame := command.WrapResponse("CLOAD")
	if connMgr != nil {
		connMgr.Send(conn, frame)
		return
	}
	_ = conn.Send(frame)
}

func (c *Configuration) handleReset(conn *hlxconn.Connection, connMgr *hlxconn.Manager) {
	c.notifier.Emit(statechange.Notification{Kind: statechange.KindConfigurationReset})
	frame := command.WrapResponse("CRESET")
	if connMgr != nil {
		connMgr.Send(conn, frame)
		return
	}
	_ = conn.Send(frame)
}

// Refresh issues a single QX query.
func (c *Configuration) Refresh(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, onComplete func(error)) {
	_ = mgr.SendCommand(conn, "QX", command.ConfigurationTable()[0].Matcher, timeout, func(_ []rxmatch.Match, err error) {
		onComplete(err)
	})
}

// Save issues a client-role CSAVE request upstream, correlating on the
// terminal (CSAVE) mirror rather than the transient (CSAVING) frame.
func (c *Configuration) Save(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, "CSAVE", command.ConfigurationTable()[1].Matcher, timeout, completion)
}

// Load issues a client-role CLOAD request upstream.
func (c *Configuration) Load(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, "CLOAD", command.ConfigurationTable()[3].Matcher, timeout, completion)
}

// Reset issues a client-role CRESET request upstream.
func (c *Configuration) Reset(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, "CRESET", command.ConfigurationTable()[4].Matcher, timeout, completion)
}
