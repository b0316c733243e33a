package controller

import (
	"fmt"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/model"
	"github.com/gerickson-labs/hlxgo/rxmatch"
	"github.com/gerickson-labs/hlxgo/statechange"
)

// Sources owns the audio-input family: one name per identifier, no
// other mutable state.
type Sources struct {
	family   *model.Family[model.Source]
	notifier *statechange.Notifier
}

// NewSources returns an uninitialized Sources controller.
func NewSources(notifier *statechange.Notifier) *Sources {
	return &Sources{
		family:   model.NewFamily(model.Identifier(model.SourceIdentifierMax), model.NewSource),
		notifier: notifier,
	}
}

// Init populates one default-named source per identifier.
func (c *Sources) Init() { c.family.Init() }

// Source returns the source at id.
func (c *Sources) Source(id model.Identifier) (*model.Source, error) { return c.family.Get(id) }

// ExpectedQueryCount is one SQO<id> query per source identifier.
func (c *Sources) ExpectedQueryCount() int { return int(model.SourceIdentifierMax) }

func (c *Sources) entries() []dispatchEntry {
	return []dispatchEntry{
		{command.NameSourcesName, command.SourceTable()[0].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			s, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			name := string(m[1].Text)
			setErr := s.SetName(name)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindSourcesName, ID: id, Str: name})
			}
			return fmt.Sprintf(`SNO%d"%s"`, id, s.Name()), changed(setErr), nil
		}},
	}
}

// RegisterServer wires the sources request handlers into mgr.
func (c *Sources) RegisterServer(mgr *command.Manager, connMgr *hlxconn.Manager) error {
	if err := registerServer(mgr, connMgr, c.entries()); err != nil {
		return err
	}
	return mgr.RegisterRequestHandler(command.NameSourcesQuery, command.SourceTable()[1].Matcher, c.handleQuery)
}

// RegisterClient wires the sources notification handlers into mgr.
func (c *Sources) RegisterClient(mgr *command.Manager) error {
	return registerClient(mgr, c.entries())
}

func (c *Sources) handleQuery(conn *hlxconn.Connection, matches []rxmatch.Match) {
	id, err := parseIdentifier(matches[0].Text)
	if err != nil {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	s, err := c.family.Get(id)
	if err != nil {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	_ = conn.Send(command.WrapResponse(fmt.Sprintf(`SNO%d"%s"`, id, s.Name())))
	_ = conn.Send(command.WrapResponse(fmt.Sprintf("SQO%d", id)))
}

// Refresh issues one SQO<id> query per source identifier.
func (c *Sources) Refresh(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, onComplete func(error)) {
	queryPattern := command.SourceTable()[1].Matcher
	for id := model.Identifier(1); id <= model.Identifier(model.SourceIdentifierMax); id++ {
		_ = mgr.SendCommand(conn, fmt.Sprintf("SQO%d", id), queryPattern, timeout, func(_ []rxmatch.Match, err error) {
			onComplete(err)
		})
	}
}

// SetName issues a client-role source-rename request upstream.
func (c *Sources) SetName(mgr *command.Manager, conn *hlxconn.Connection, id model.Identifier, name string, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf(`SNO%d"%s"`, id, name), command.SourceTable()[0].Matcher, timeout, completion)
}
