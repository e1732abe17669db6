package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apibridge/apibridge/internal/sched"
)

func newTestSessionManager(t *testing.T, clock sched.Clock) *SessionManager {
	t.Helper()
	m := NewSessionManager(SessionManagerConfig{
		IdleTimeout:   time.Minute,
		SweepInterval: 0, // sweep invoked directly
	}, clock, nil, nil)
	t.Cleanup(m.Shutdown)
	return m
}

func TestSessionLifecycle(t *testing.T) {
	clock := sched.NewManualClock(time.Now())
	m := newTestSessionManager(t, clock)

	id := m.Start()
	require.NotEmpty(t, id)
	assert.Equal(t, 1, m.Len())

	conv, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateNew, conv.State)
	assert.Empty(t, conv.Parameters)

	m.End(id)
	assert.Zero(t, m.Len())
	_, err = m.Get(id)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSessionGetUnknownID(t *testing.T) {
	m := newTestSessionManager(t, sched.NewManualClock(time.Now()))
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSweepRemovesIdleConversations(t *testing.T) {
	clock := sched.NewManualClock(time.Now())
	m := newTestSessionManager(t, clock)

	stale := m.Start()
	clock.Advance(30 * time.Second)
	fresh := m.Start()
	clock.Advance(45 * time.Second)

	m.Sweep()

	_, err := m.Get(stale)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	_, err = m.Get(fresh)
	assert.NoError(t, err)
}

func TestGetRefreshesActivity(t *testing.T) {
	clock := sched.NewManualClock(time.Now())
	m := newTestSessionManager(t, clock)

	id := m.Start()
	clock.Advance(45 * time.Second)
	_, err := m.Get(id)
	require.NoError(t, err)

	// Another 45s would exceed the timeout from creation, but the Get above
	// reset the idle clock.
	clock.Advance(45 * time.Second)
	m.Sweep()
	_, err = m.Get(id)
	assert.NoError(t, err)
}
