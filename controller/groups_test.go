package controller

import (
	"testing"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/statechange"
	"github.com/stretchr/testify/require"
)

// TestGroupsAddZoneIsIdempotent exercises membershipOK: re-adding a zone
// already in a group's membership is reported back as success (the
// group's state already matches what the caller asked for) but suppresses
// the state-change notification, since nothing actually changed.
func TestGroupsAddZoneIsIdempotent(t *testing.T) {
	notifier := &statechange.Notifier{}
	var notifications []statechange.Notification
	notifier.Subscribe(statechange.ObserverFunc(func(n statechange.Notification) { notifications = append(notifications, n) }))

	groups := NewGroups(notifier)
	groups.Init()

	mgr := command.NewManager(time.Second)
	require.NoError(t, groups.RegisterServer(mgr, nil))

	conn, recv := connectedServerPair(t)
	mgr.HandleRequest(conn, []byte("[GO2AZ5]"))
	require.Equal(t, "(GO2AZ5)", drain(t, recv, time.Second))
	require.Len(t, notifications, 1, "first add must emit a notification")

	notifications = nil
	mgr.HandleRequest(conn, []byte("[GO2AZ5]"))
	require.Equal(t, "(GO2AZ5)", drain(t, recv, time.Second), "re-adding an existing member still mirrors the request")
	require.Empty(t, notifications, "re-adding an existing member must not notify again")
}

// TestGroupsRemoveZoneNotInGroupIsIdempotent mirrors the add case: removing
// a zone that was never a member is also treated as a no-op success.
func TestGroupsRemoveZoneNotInGroupIsIdempotent(t *testing.T) {
	notifier := &statechange.Notifier{}
	var notifications []statechange.Notification
	notifier.Subscribe(statechange.ObserverFunc(func(n statechange.Notification) { notifications = append(notifications, n) }))

	groups := NewGroups(notifier)
	groups.Init()

	mgr := command.NewManager(time.Second)
	require.NoError(t, groups.RegisterServer(mgr, nil))

	conn, recv := connectedServerPair(t)
	mgr.HandleRequest(conn, []byte("[GO4RZ9]"))

	require.Equal(t, "(GO4RZ9)", drain(t, recv, time.Second))
	require.Empty(t, notifications)
}

// TestGroupsHandleQueryEmitsOneFramePerMember exercises handleQuery's
// multi-frame reply: a query on a group with members yields a name
// frame, one add-zone/add-source frame per member, and a terminal GQO<id>
// frame, matching the hardware's own multi-line query response shape.
func TestGroupsHandleQueryEmitsOneFramePerMember(t *testing.T) {
	notifier := &statechange.Notifier{}
	groups := NewGroups(notifier)
	groups.Init()

	mgr := command.NewManager(time.Second)
	require.NoError(t, groups.RegisterServer(mgr, nil))

	conn, recv := connectedServerPair(t)

	mgr.HandleRequest(conn, []byte("[GO1AZ3]"))
	require.Equal(t, "(GO1AZ3)", drain(t, recv, time.Second))
	mgr.HandleRequest(conn, []byte("[GO1AS2]"))
	require.Equal(t, "(GO1AS2)", drain(t, recv, time.Second))

	mgr.HandleRequest(conn, []byte("[GQO1]"))
	require.Equal(t, `(GNO1"Group 1")`, drain(t, recv, time.Second))
	require.Equal(t, "(GO1AZ3)", drain(t, recv, time.Second))
	require.Equal(t, "(GO1AS2)", drain(t, recv, time.Second))
	require.Equal(t, "(GQO1)", drain(t, recv, time.Second))
}
