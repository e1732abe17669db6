package apibridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apibridge/apibridge/catalog"
	"github.com/apibridge/apibridge/config"
	"github.com/apibridge/apibridge/testutil"
	"github.com/apibridge/apibridge/testutil/mocks"
)

func newTestBridge(t *testing.T) (*Bridge, *mocks.MockExecutor, *mocks.MockProvider) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Match.UseLLM = false
	cfg.Dialog.Session.SweepInterval = 0

	executor := mocks.NewMockExecutor()
	provider := mocks.NewMockProvider()

	bridge, err := New(context.Background(), cfg, nil,
		WithCatalog(catalog.NewStaticAccessor(testutil.PetstoreTools())),
		WithLLM(provider),
		WithExecutor(executor),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bridge.Close() })
	return bridge, executor, provider
}

func TestBridgeConversationRoundTrip(t *testing.T) {
	bridge, executor, provider := newTestBridge(t)
	ctx := testutil.TestContext(t)

	id := bridge.StartConversation(ctx)
	require.NotEmpty(t, id)

	provider.WithJSON(map[string]any{"name": "Rex"})
	reply, err := bridge.ProcessMessage(ctx, id, "add a pet named Rex")
	require.NoError(t, err)

	assert.True(t, reply.Executed)
	assert.Equal(t, 1, executor.Calls)
	require.Len(t, executor.Received, 1)
	assert.Equal(t, "POST", executor.Received[0].Method)

	bridge.EndConversation(id)
	_, err = bridge.ProcessMessage(ctx, id, "hello")
	require.Error(t, err)
}

func TestBridgeFindSimilarTools(t *testing.T) {
	bridge, _, _ := newTestBridge(t)
	ctx := testutil.TestContext(t)

	got := bridge.FindSimilarTools(ctx, "add a pet", 3)
	require.NotEmpty(t, got)
	assert.Equal(t, "addPet", got[0].Tool.Name)
	assert.LessOrEqual(t, len(got), 3)
}

func TestBridgeMetricsRegistry(t *testing.T) {
	bridge, _, _ := newTestBridge(t)
	require.NotNil(t, bridge.MetricsRegistry())

	_, err := bridge.MetricsRegistry().Gather()
	require.NoError(t, err)
}
