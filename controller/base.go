// Package controller implements the per-family Object Controllers:
// zones, groups, sources, favorites, equalizer presets, front panel,
// network, infrared, and configuration. Each controller owns its model
// slice, registers the regexes it cares about with a Command Manager,
// translates sub-matches into model mutations, and emits state-change
// notifications — suppressing the notification whenever the underlying
// setter reports the value was already set (§4.8 item 5).
//
// The source's deep multiple inheritance (a shared "basis" plus
// independent client/server bases) is rendered as capability
// composition per spec §9: every family's request/notification
// handlers are built from one mutate function shared by both roles
// (registerServer wraps it with a response write, registerClient wraps
// it with nothing — the model mutation and notification emission are
// identical either way).
package controller

import (
	"errors"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/model"
	"github.com/gerickson-labs/hlxgo/rxmatch"
)

// mutateFunc applies one regex match to the model, returning the
// normalized body to mirror back as a response, whether anything
// actually changed, and a genuine error (not model.ErrValueAlreadySet,
// which is success-with-no-change, per invariant (c)).
type mutateFunc func(matches []rxmatch.Match) (body string, changed bool, err error)

type dispatchEntry struct {
	name    string
	matcher *rxmatch.Matcher
	mutate  mutateFunc
}

// registerServer wires entries as request handlers: on match, mutate
// runs, and the response mirrors the request body on success (changed
// or not) or is the literal (ERROR) frame on a genuine error — this is
// scenario 2's "response is still relayed" even when the setter
// reports ValueAlreadySet. A genuine change additionally fans the
// response frame out to every other active connection on connMgr
// (spec's "a connection serves as a proxy for an active subscription to
// server state changes"), rather than replying only to the requester;
// connMgr may be nil, in which case every response goes only to conn,
// matching a bare command.Manager with no Connection Manager behind it.
func registerServer(mgr *command.Manager, connMgr *hlxconn.Manager, entries []dispatchEntry) error {
	for _, e := range entries {
		e := e
		err := mgr.RegisterRequestHandler(e.name, e.matcher, func(conn *hlxconn.Connection, matches []rxmatch.Match) {
			body, didChange, err := e.mutate(matches)
			if err != nil {
				_ = conn.Send(command.ErrorResponse)
				return
			}
			frame := command.WrapResponse(body)
			if didChange && connMgr != nil {
				connMgr.Send(conn, frame)
				return
			}
			_ = conn.Send(frame)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// registerClient wires entries as notification handlers: an unsolicited
// frame from the peer mutates the local mirror and (via mutate's own
// notifier.Emit call) fans a state-change notification to observers; no
// response is written back, since the client role never replies to a
// notification.
func registerClient(mgr *command.Manager, entries []dispatchEntry) error {
	for _, e := range entries {
		e := e
		err := mgr.RegisterNotificationHandler(e.name, e.matcher, func(conn *hlxconn.Connection, matches []rxmatch.Match) {
			_, _, _ = e.mutate(matches)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ok reports whether err is nil or model.ErrValueAlreadySet (a
// no-op setter outcome, not a failure per invariant (c)).
func ok(err error) bool {
	return err == nil || errors.Is(err, model.ErrValueAlreadySet)
}

// changed reports whether err is nil (a real mutation occurred).
func changed(err error) bool {
	return err == nil
}
