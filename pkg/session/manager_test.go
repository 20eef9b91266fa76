package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore simulates latency to provoke race conditions if locking is missing.
type slowStore struct {
	*memory.Store
}

func (s slowStore) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Load(ctx, id)
}

func (s slowStore) Save(ctx context.Context, conv *domain.Conversation) error {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Save(ctx, conv)
}

func TestManager_SerializesSameConversation(t *testing.T) {
	mgr := session.NewManager(slowStore{memory.NewStore()})
	ctx := context.Background()

	var wg sync.WaitGroup
	var active, maxActive int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.Update(ctx, "same", func(ctx context.Context, conv *domain.Conversation) error {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				count, _ := conv.State["count"].(int)
				conv.State["count"] = count + 1
				atomic.AddInt32(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive, "updates of one conversation must not overlap")
	v, ok, err := mgr.Get(ctx, "same", "count")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20, v, "no update may be lost")
}

func TestManager_DistinctConversationsRunInParallel(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = mgr.Update(ctx, "a", func(ctx context.Context, conv *domain.Conversation) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	go func() {
		_ = mgr.Update(ctx, "b", func(ctx context.Context, conv *domain.Conversation) error {
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("conversation b was blocked by conversation a")
	}
	close(release)
}

func TestManager_FailedUpdateWritesNothing(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, mgr.Set(ctx, "c", "name", "Ada"))

	boom := errors.New("boom")
	err := mgr.Update(ctx, "c", func(ctx context.Context, conv *domain.Conversation) error {
		conv.State["name"] = "Grace"
		conv.Resume = &domain.ResumePoint{Node: "x"}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	conv, err := mgr.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "Ada", conv.State["name"])
	assert.True(t, conv.Idle())
}

func TestManager_GetSetClear(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, ok, err := mgr.Get(ctx, "d", "name")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mgr.Set(ctx, "d", "name", "Ada"))
	v, ok, err := mgr.Get(ctx, "d", "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)

	require.NoError(t, mgr.Clear(ctx, "d"))
	_, ok, err = mgr.Get(ctx, "d", "name")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_WithDistributedLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	mgr := session.NewManager(
		redis.NewFromClient(client),
		session.WithLocker(redis.NewLocker(client, "parley:")),
		session.WithLockTTL(5*time.Second),
	)
	ctx := context.Background()

	require.NoError(t, mgr.Set(ctx, "e", "age", "36"))
	assert.False(t, mr.Exists("parley:lock:e"), "lock must be released after the update")

	v, ok, err := mgr.Get(ctx, "e", "age")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "36", v)
}
