package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConversationStoreContract runs a suite of tests to verify that a
// ConversationStore implementation adheres to the interface contract.
func RunConversationStoreContract(t *testing.T, store ConversationStore) {
	ctx := context.Background()
	id := "contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		conv := domain.NewConversation(id)
		conv.Resume = &domain.ResumePoint{Node: "register", Step: 1, Keyword: domain.EventRegister}
		conv.State["name"] = "Ada"
		conv.LastActivity = time.Now().UTC().Truncate(time.Second)

		require.NoError(t, store.Save(ctx, conv))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, loaded.ID)
		require.NotNil(t, loaded.Resume)
		assert.Equal(t, "register", loaded.Resume.Node)
		assert.Equal(t, 1, loaded.Resume.Step)
		assert.Equal(t, "Ada", loaded.State["name"])
		assert.True(t, conv.LastActivity.Equal(loaded.LastActivity))
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		loaded.State["name"] = "Grace"

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Ada", again.State["name"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+id)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("List", func(t *testing.T) {
		other := id + "-2"
		require.NoError(t, store.Save(ctx, domain.NewConversation(other)))
		defer func() { _ = store.Delete(ctx, other) }()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id)
		assert.Contains(t, ids, other)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, id))
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})
}

// RunBlacklistContract verifies the add/remove/contains semantics of a Blacklist.
func RunBlacklistContract(t *testing.T, list Blacklist) {
	ctx := context.Background()
	id := "blocked-" + time.Now().Format("150405.000")

	ok, err := list.Contains(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "fresh id must not be blacklisted")

	require.NoError(t, list.Add(ctx, id))
	require.NoError(t, list.Add(ctx, id), "Add must be idempotent")

	ok, err = list.Contains(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, list.Remove(ctx, id))
	require.NoError(t, list.Remove(ctx, id), "Remove must be idempotent")

	ok, err = list.Contains(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}
