// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBindingEmpty(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.Binding()
	require.NoError(t, err)
	assert.Nil(t, rec, "fresh store has no binding record")
}

func TestBindingRoundTrip(t *testing.T) {
	store := newTestStore(t)

	saved := BindingRecord{
		ActiveInterface:     "eth1",
		HardwareID:          "02:75:6c:aa:bb:cc",
		LastSwitch:          time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		ConsecutiveFailures: 2,
	}
	require.NoError(t, store.SaveBinding(saved))

	rec, err := store.Binding()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, saved, *rec)
}

func TestBindingUpsertKeepsSingleRecord(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveBinding(BindingRecord{ActiveInterface: "eth0", LastSwitch: time.Unix(100, 0)}))
	require.NoError(t, store.SaveBinding(BindingRecord{ActiveInterface: "eth1", LastSwitch: time.Unix(200, 0)}))

	rec, err := store.Binding()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "eth1", rec.ActiveInterface, "second save must replace the first")
}

func TestEventsAppendOnlyNewestFirst(t *testing.T) {
	store := newTestStore(t)

	for _, ev := range []Event{
		{Type: EventProbeFailure, Interface: "eth0"},
		{Type: EventSwitchAttempt, Interface: "eth1", OperationID: "op-1"},
		{Type: EventSwitchSuccess, Interface: "eth1", OperationID: "op-1"},
	} {
		require.NoError(t, store.AppendEvent(ev))
	}

	events, err := store.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventSwitchSuccess, events[0].Type)
	assert.Equal(t, EventProbeFailure, events[2].Type)
	assert.Equal(t, "op-1", events[0].OperationID)
}

func TestRecentEventsLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 10; i++ {
		require.NoError(t, store.AppendEvent(Event{Type: EventProbeFailure, Interface: "eth0"}))
	}

	events, err := store.RecentEvents(4)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}
