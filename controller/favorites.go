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

// Favorites owns the named-preset-selection family: one name per
// identifier, no other mutable state.
type Favorites struct {
	family   *model.Family[model.Favorite]
	notifier *statechange.Notifier
}

// NewFavorites returns an uninitialized Favorites controller.
func NewFavorites(notifier *statechange.Notifier) *Favorites {
	return &Favorites{
		family:   model.NewFamily(model.Identifier(model.FavoriteIdentifierMax), model.NewFavorite),
		notifier: notifier,
	}
}

// Init populates one default-named favorite per identifier.
func (c *Favorites) Init() { c.family.Init() }

// Favorite returns the favorite at id.
func (c *Favorites) Favorite(id model.Identifier) (*model.Favorite, error) { return c.family.Get(id) }

// ExpectedQueryCount is one FQO<id> query per favorite identifier.
func (c *Favorites) ExpectedQueryCount() int { return int(model.FavoriteIdentifierMax) }

func (c *Favorites) entries() []dispatchEntry {
	return []dispatchEntry{
		{command.NameFavoritesName, command.FavoriteTable()[0].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			f, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			name := string(m[1].Text)
			setErr := f.SetName(name)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindFavoritesName, ID: id, Str: name})
			}
			return fmt.Sprintf(`FNO%d"%s"`, id, f.Name()), changed(setErr), nil
		}},
	}
}

// RegisterServer wires the favorites request handlers into mgr.
func (c *Favorites) RegisterServer(mgr *command.Manager, connMgr *hlxconn.Manager) error {
	if err := registerServer(mgr, connMgr, c.entries()); err != nil {
		return err
	}
	return mgr.RegisterRequestHandler(command.NameFavoritesQuery, command.FavoriteTable()[1].Matcher, c.handleQuery)
}

// RegisterClient wires the favorites notification handlers into mgr.
func (c *Favorites) RegisterClient(mgr *command.Manager) error {
	return registerClient(mgr, c.entries())
}

func (c *Favorites) handleQuery(conn *hlxconn.Connection, matches []rxmatch.Match) {
	id, err := parseIdentifier(matches[0].Text)
	if err != nil {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	f, err := c.family.Get(id)
	if err != nil {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	_ = conn.Send(command.WrapResponse(fmt.Sprintf(`FNO%d"%s"`, id, f.Name())))
	_ = conn.Send(command.WrapResponse(fmt.Sprintf("FQO%d", id)))
}

// Refresh issues one FQO<id> query per favorite identifier.
func (c *Favorites) Refresh(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, onComplete func(error)) {
	queryPattern := command.FavoriteTable()[1].Matcher
	for id := model.Identifier(1); id <= model.Identifier(model.FavoriteIdentifierMax); id++ {
		_ = mgr.SendCommand(conn, fmt.Sprintf("FQO%d", id), queryPattern, timeout, func(_ []rxmatch.Match, err error) {
			onComplete(err)
		})
	}
}

// SetName issues a client-role favorite-rename request upstream.
func (c *Favorites) SetName(mgr *command.Manager, conn *hlxconn.Connection, id model.Identifier, name string, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf(`FNO%d"%s"`, id, name), command.FavoriteTable()[0].Matcher, timeout, completion)
}
