// Package topctrl implements the Top-Level Controller: the aggregate of
// every object controller plus the refresh lifecycle that rebuilds a
// full local mirror of a peer's state by querying every family in turn.
package topctrl

import (
	"sync"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/controller"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/statechange"
)

// State is the refresh lifecycle's state, per §4.9: idle -> refreshing -> idle.
type State int

// States.
const (
	StateIdle State = iota
	StateRefreshing
)

// Delegate receives Top-Level Controller lifecycle events. IsRefreshing
// fires once per completed query with the percentage of the refresh
// done so far; DidRefresh fires once the counter reaches the total;
// ControllerError aborts the refresh and fires in place of any further
// IsRefreshing/DidRefresh calls.
type Delegate struct {
	IsRefreshing    func(percent int)
	DidRefresh      func()
	ControllerError func(err error)
}

// Controller aggregates the nine object controllers and drives the
// refresh protocol against a single upstream connection and its Command
// Manager. Each Controller built by New owns its own object controllers
// and Notifier; the proxy builds a single Controller, in the client role,
// and has no server-role Controller for its downstream side.
type Controller struct {
	Zones            *controller.Zones
	Groups           *controller.Groups
	Sources          *controller.Sources
	Favorites        *controller.Favorites
	EqualizerPresets *controller.EqualizerPresets
	FrontPanel       *controller.FrontPanel
	Network          *controller.Network
	Infrared         *controller.Infrared
	Configuration    *controller.Configuration

	Notifier *statechange.Notifier

	mu       sync.Mutex
	state    State
	delegate Delegate
}

// New constructs every object controller, wired to one shared Notifier.
func New() *Controller {
	notifier := &statechange.Notifier{}
	return &Controller{
		Zones:            controller.NewZones(notifier),
		Groups:           controller.NewGroups(notifier),
		Sources:          controller.NewSources(notifier),
		Favorites:        controller.NewFavorites(notifier),
		EqualizerPresets: controller.NewEqualizerPresets(notifier),
		FrontPanel:       controller.NewFrontPanel(notifier),
		Network:          controller.NewNetwork(notifier),
		Infrared:         controller.NewInfrared(notifier),
		Configuration:    controller.NewConfiguration(notifier),
		Notifier:         notifier,
	}
}

// SetDelegate registers the refresh-lifecycle delegate.
func (c *Controller) SetDelegate(d Delegate) { c.delegate = d }

// Init initializes every object controller's model to its default state.
func (c *Controller) Init() {
	c.Zones.Init()
	c.Groups.Init()
	c.Sources.Init()
	c.Favorites.Init()
	c.EqualizerPresets.Init()
	c.FrontPanel.Init()
	c.Network.Init()
	c.Infrared.Init()
	c.Configuration.Init()
}

// RegisterClient wires every object controller's notification handlers
// into mgr (client role: this Controller mirrors an upstream peer).
func (c *Controller) RegisterClient(mgr *command.Manager) error {
	for _, fn := range []func(*command.Manager) error{
		c.Zones.RegisterClient,
		c.Groups.RegisterClient,
		c.Sources.RegisterClient,
		c.Favorites.RegisterClient,
		c.EqualizerPresets.RegisterClient,
		c.FrontPanel.RegisterClient,
		c.Network.RegisterClient,
		c.Infrared.RegisterClient,
		c.Configuration.RegisterClient,
	} {
		if err := fn(mgr); err != nil {
			return err
		}
	}
	return nil
}

// RegisterServer wires every object controller's request handlers into
// mgr (server role: this Controller answers a downstream client). When
// connMgr is non-nil, every genuine state change additionally fans out
// through it to every other active connection, so every other connected
// peer observes the change too; connMgr may be nil for a bare
// command.Manager with no Connection Manager behind it.
func (c *Controller) RegisterServer(mgr *command.Manager, connMgr *hlxconn.Manager) error {
	for _, fn := range []func(*command.Manager, *hlxconn.Manager) error{
		c.Zones.RegisterServer,
		c.Groups.RegisterServer,
		c.Sources.RegisterServer,
		c.Favorites.RegisterServer,
		c.EqualizerPresets.RegisterServer,
		c.FrontPanel.RegisterServer,
		c.Network.RegisterServer,
		c.Infrared.RegisterServer,
		c.Configuration.RegisterServer,
	} {
		if err := fn(mgr, connMgr); err != nil {
			return err
		}
	}
	return nil
}

// expectedTotal sums every family's ExpectedQueryCount. Per §9's open
// question (not consistently resolved across families upstream), this
// repo counts queries issued, not raw identifiers: a per-identifier
// family (e.g. Zones) contributes one per identifier, a single-instance
// family (e.g. Configuration) contributes one.
func (c *Controller) expectedTotal() int {
	return c.Zones.ExpectedQueryCount() +
		c.Groups.ExpectedQueryCount() +
		c.Sources.ExpectedQueryCount() +
		c.Favorites.ExpectedQueryCount() +
		c.EqualizerPresets.ExpectedQueryCount() +
		c.FrontPanel.ExpectedQueryCount() +
		c.Network.ExpectedQueryCount() +
		c.Infrared.ExpectedQueryCount() +
		c.Configuration.ExpectedQueryCount()
}

// State returns the refresh lifecycle's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Refresh drives idle -> refreshing -> idle: every object controller is
// asked to refresh in the fixed order §4.9 specifies (matching the
// order the hardware answers "query current configuration" — the same
// order command.AllTables returns its family tables in). Completions
// increment a shared counter; IsRefreshing(percent) fires at each
// completion and DidRefresh fires once the counter reaches the total.
// The first controller to report an error aborts the refresh and fires
// ControllerError instead of any further IsRefreshing/DidRefresh calls.
func (c *Controller) Refresh(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration) {
	c.mu.Lock()
	if c.state == StateRefreshing {
		c.mu.Unlock()
		return
	}
	c.state = StateRefreshing
	c.mu.Unlock()

	total := c.expectedTotal()
	var (
		mu      sync.Mutex
		done    int
		aborted bool
	)

	onComplete := func(err error) {
		mu.Lock()
		if aborted {
			mu.Unlock()
			return
		}
		if err != nil {
			aborted = true
			mu.Unlock()
			c.mu.Lock()
			c.state = StateIdle
			c.mu.Unlock()
			if c.delegate.ControllerError != nil {
				c.delegate.ControllerError(err)
			}
			return
		}
		done++
		percent := 0
		if total > 0 {
			percent = done * 100 / total
		}
		finished := done >= total
		mu.Unlock()

		if c.delegate.IsRefreshing != nil {
			c.delegate.IsRefreshing(percent)
		}
		if finished {
			c.mu.Lock()
			c.state = StateIdle
			c.mu.Unlock()
			if c.delegate.DidRefresh != nil {
				c.delegate.DidRefresh()
			}
		}
	}

	c.Zones.Refresh(mgr, conn, timeout, onComplete)
	c.Groups.Refresh(mgr, conn, timeout, onComplete)
	c.Sources.Refresh(mgr, conn, timeout, onComplete)
	c.Favorites.Refresh(mgr, conn, timeout, onComplete)
	c.EqualizerPresets.Refresh(mgr, conn, timeout, onComplete)
	c.FrontPanel.Refresh(mgr, conn, timeout, onComplete)
	c.Network.Refresh(mgr, conn, timeout, onComplete)
	c.Infrared.Refresh(mgr, conn, timeout, onComplete)
	c.Configuration.Refresh(mgr, conn, timeout, onComplete)
}
