package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/model"
	"github.com/gerickson-labs/hlxgo/rxmatch"
	"github.com/gerickson-labs/hlxgo/statechange"
)

// Groups owns the named-zone/source-membership family.
type Groups struct {
	family   *model.Family[model.Group]
	notifier *statechange.Notifier
}

// NewGroups returns an uninitialized Groups controller.
func NewGroups(notifier *statechange.Notifier) *Groups {
	return &Groups{
		family:   model.NewFamily(model.Identifier(model.GroupIdentifierMax), model.NewGroup),
		notifier: notifier,
	}
}

// Init populates one default-named, empty group per identifier.
func (c *Groups) Init() { c.family.Init() }

// Group returns the group at id.
func (c *Groups) Group(id model.Identifier) (*model.Group, error) { return c.family.Get(id) }

// ExpectedQueryCount is one GQO<id> query per group identifier.
func (c *Groups) ExpectedQueryCount() int { return int(model.GroupIdentifierMax) }

// membershipOK reports whether err leaves membership in the caller's
// intended state: a genuine mutation (nil), or a no-op because the
// member was already present (IdentifiersCollection.Add's
// ErrAlreadyExists) or already absent (IdentifiersCollection.Remove's
// ErrNotFound). Either no-op still mirrors the request back per
// invariant (c); only a real validation failure produces (ERROR).
func membershipOK(err error) bool {
	return err == nil || errors.Is(err, model.ErrAlreadyExists) || errors.Is(err, model.ErrNotFound)
}

func (c *Groups) entries() []dispatchEntry {
	return []dispatchEntry{
		{command.NameGroupsName, command.GroupTable()[0].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			g, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			name := string(m[1].Text)
			setErr := g.SetName(name)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindGroupsName, ID: id, Str: name})
			}
			return fmt.Sprintf(`GNO%d"%s"`, id, g.Name()), changed(setErr), nil
		}},
		{command.NameGroupsAddZone, command.GroupTable()[2].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			zoneID, err := parseIdentifier(m[1].Text)
			if err != nil {
				return "", false, err
			}
			g, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := g.AddZone(zoneID)
			if !membershipOK(setErr) {
				return "", false, setErr
			}
			didChange := setErr == nil
			if didChange {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindGroupsZones, ID: id, Ids: g.Zones()})
			}
			return fmt.Sprintf("GO%dAZ%d", id, zoneID), didChange, nil
		}},
		{command.NameGroupsRemoveZone, command.GroupTable()[3].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			zoneID, err := parseIdentifier(m[1].Text)
			if err != nil {
				return "", false, err
			}
			g, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := g.RemoveZone(zoneID)
			if !membershipOK(setErr) {
				return "", false, setErr
			}
			didChange := setErr == nil
			if didChange {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindGroupsZones, ID: id, Ids: g.Zones()})
			}
			return fmt.Sprintf("GO%dRZ%d", id, zoneID), didChange, nil
		}},
		{command.NameGroupsAddSource, command.GroupTable()[4].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			srcID, err := parseIdentifier(m[1].Text)
			if err != nil {
				return "", false, err
			}
			g, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := g.AddSource(srcID)
			if !membershipOK(setErr) {
				return "", false, setErr
			}
			didChange := setErr == nil
			if didChange {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindGroupsSources, ID: id, Ids: g.Sources()})
			}
			return fmt.Sprintf("GO%dAS%d", id, srcID), didChange, nil
		}},
		{command.NameGroupsRemoveSource, command.GroupTable()[5].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			srcID, err := parseIdentifier(m[1].Text)
			if err != nil {
				return "", false, err
			}
			g, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := g.RemoveSource(srcID)
			if !membershipOK(setErr) {
				return "", false, setErr
			}
			didChange := setErr == nil
			if didChange {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindGroupsSources, ID: id, Ids: g.Sources()})
			}
			return fmt.Sprintf("GO%dRS%d", id, srcID), didChange, nil
		}},
	}
}

// RegisterServer wires the groups request handlers into mgr.
func (c *Groups) RegisterServer(mgr *command.Manager, connMgr *hlxconn.Manager) error {
	if err := registerServer(mgr, connMgr, c.entries()); err != nil {
		return err
	}
	return mgr.RegisterRequestHandler(command.NameGroupsQuery, command.GroupTable()[1].Matcher, c.handleQuery)
}

// RegisterClient wires the groups notification handlers into mgr.
func (c *Groups) RegisterClient(mgr *command.Manager) error {
	return registerClient(mgr, c.entries())
}

func (c *Groups) handleQuery(conn *hlxconn.Connection, matches []rxmatch.Match) {
	id, err := parseIdentifier(matches[0].Text)
	if err != nil {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	g, err := c.family.Get(id)
	if err != nil {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	_ = conn.Send(command.WrapResponse(fmt.Sprintf(`GNO%d"%s"`, id, g.Name())))
	for _, zoneID := range g.Zones() {
		_ = conn.Send(command.WrapResponse(fmt.Sprintf("GO%dAZ%d", id, zoneID)))
	}
	for _, srcID := range g.Sources() {
		_ = conn.Send(command.WrapResponse(fmt.Sprintf("GO%dAS%d", id, srcID)))
	}
	_ = conn.Send(command.WrapResponse(fmt.Sprintf("GQO%d", id)))
}

// Refresh issues one GQO<id> query per group identifier.
func (c *Groups) Refresh(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, onComplete func(error)) {
	queryPattern := command.GroupTable()[1].Matcher
	for id := model.Identifier(1); id <= model.Identifier(model.GroupIdentifierMax); id++ {
		_ = mgr.SendCommand(conn, fmt.Sprintf("GQO%d", id), queryPattern, timeout, func(_ []rxmatch.Match, err error) {
			onComplete(err)
		})
	}
}

// SetName issues a client-role group-rename request upstream.
func (c *Groups) SetName(mgr *command.Manager, conn *hlxconn.Connection, id model.Identifier, name string, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf(`GNO%d"%s"`, id, name), command.GroupTable()[0].Matcher, timeout, completion)
}

// AddZone issues a client-role group-zone-membership request upstream.
func (c *Groups) AddZone(mgr *command.Manager, conn *hlxconn.Connection, id, zoneID model.Identifier, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf("GO%dAZ%d", id, zoneID), command.GroupTable()[2].Matcher, timeout, completion)
}

// RemoveZone issues a client-role group-zone-membership request upstream.
func (c *Groups) RemoveZone(mgr *command.Manager, conn *hlxconn.Connection, id, zoneID model.Identifier, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf("GO%dRZ%d", id, zoneID), command.GroupTable()[3].Matcher, timeout, completion)
}
