package convlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	store := newSQLiteTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendMessage(ctx, "c1", RoleUser, "add a pet"))
	require.NoError(t, store.AppendMessage(ctx, "c1", RoleAssistant, "which name?"))
	require.NoError(t, store.AppendMessage(ctx, "c2", RoleUser, "get pet 5"))

	msgs, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "add a pet", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.False(t, msgs[0].CreatedAt.IsZero())
}

func TestSQLiteLoadUnknownConversation(t *testing.T) {
	store := newSQLiteTestStore(t)
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListGroupsByConversation(t *testing.T) {
	store := newSQLiteTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendMessage(ctx, "b", RoleUser, "1"))
	require.NoError(t, store.AppendMessage(ctx, "a", RoleUser, "2"))
	require.NoError(t, store.AppendMessage(ctx, "a", RoleAssistant, "3"))

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "a", summaries[0].ConversationID)
	assert.Equal(t, 2, summaries[0].MessageCount)
	assert.Equal(t, "b", summaries[1].ConversationID)
	assert.Equal(t, 1, summaries[1].MessageCount)
}
