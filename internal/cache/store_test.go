package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-scrum-client/internal/retry"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newStore(t *testing.T) (*Store, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(Options{
		DefaultStaleTime: 5 * time.Minute,
		StaleTimes:       map[string]time.Duration{"notifications": 30 * time.Second},
		Now:              c.Now,
	})
	t.Cleanup(s.Close)
	return s, c
}

func counting(value string, calls *atomic.Int32) Fetcher {
	return func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte(value), nil
	}
}

func TestFetchCachesFreshValue(t *testing.T) {
	s, _ := newStore(t)
	var calls atomic.Int32
	key := K("tasks", "detail", "t1")

	e, err := s.Fetch(context.Background(), key, counting(`{"id":"t1"}`, &calls))
	require.NoError(t, err)
	assert.Equal(t, `{"id":"t1"}`, string(e.Value))
	assert.False(t, e.Stale)

	_, err = s.Fetch(context.Background(), key, counting(`{"id":"t1"}`, &calls))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidateIsIdempotent(t *testing.T) {
	s, _ := newStore(t)
	var calls atomic.Int32
	key := K("tasks", "list", "p1")
	_, err := s.Fetch(context.Background(), key, counting(`[]`, &calls))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Invalidate(K("tasks", "list")))
	assert.Equal(t, 1, s.Invalidate(K("tasks", "list")))

	_, err = s.Fetch(context.Background(), key, counting(`[1]`, &calls))
	require.NoError(t, err)
	e, err := s.Fetch(context.Background(), key, counting(`[2]`, &calls))
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, `[1]`, string(e.Value))
}

func TestInvalidateOnlyMatchesPrefix(t *testing.T) {
	s, _ := newStore(t)
	s.Write(K("sprints", "list", "p1"), []byte(`[]`))
	s.Write(K("sprints", "active", "p1"), []byte(`{}`))
	s.Write(K("tasks", "list", "p1"), []byte(`[]`))

	assert.Equal(t, 1, s.Invalidate(K("sprints", "list")))
	e, _ := s.Read(K("sprints", "active", "p1"))
	assert.False(t, e.Invalidated)
	e, _ = s.Read(K("sprints", "list", "p1"))
	assert.True(t, e.Invalidated)
	assert.Equal(t, 0, s.Invalidate(K("labels")))
}

func TestConcurrentFetchesShareOneCall(t *testing.T) {
	s, _ := newStore(t)
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte(`"ok"`), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := s.Fetch(context.Background(), K("projects", "detail", "p1"), fetch)
			assert.NoError(t, err)
			assert.Equal(t, `"ok"`, string(e.Value))
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestExpiredEntryIsServedWhileRevalidating(t *testing.T) {
	s, c := newStore(t)
	key := K("notifications", "list")
	s.Write(key, []byte(`["old"]`))
	c.Advance(31 * time.Second)

	done := make(chan struct{})
	e, err := s.Fetch(context.Background(), key, func(context.Context) ([]byte, error) {
		defer close(done)
		return []byte(`["new"]`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, `["old"]`, string(e.Value))
	assert.True(t, e.Stale)

	<-done
	assert.Eventually(t, func() bool {
		e, _ := s.Read(key)
		return string(e.Value) == `["new"]`
	}, time.Second, 5*time.Millisecond)
}

func TestStaleTimeByFamily(t *testing.T) {
	s, c := newStore(t)
	s.Write(K("notifications", "count"), []byte(`{}`))
	s.Write(K("tasks", "detail", "t1"), []byte(`{}`))
	c.Advance(time.Minute)

	e, _ := s.Read(K("notifications", "count"))
	assert.True(t, e.Stale)
	e, _ = s.Read(K("tasks", "detail", "t1"))
	assert.False(t, e.Stale)
}

func TestFailedRefetchKeepsInvalidatedValue(t *testing.T) {
	s, _ := newStore(t)
	key := K("labels", "list", "p1")
	s.Write(key, []byte(`["a"]`))
	s.Invalidate(key)

	boom := errors.New("boom")
	e, err := s.Fetch(context.Background(), key, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, `["a"]`, string(e.Value))
	assert.True(t, e.Stale)
}

func TestFetchRetriesWithPolicy(t *testing.T) {
	c := &clock{now: time.Now()}
	s := New(Options{
		DefaultStaleTime: time.Minute,
		Retryer:          retry.NewFixed(time.Millisecond, 1),
		ShouldRetry:      func(error) bool { return true },
		Now:              c.Now,
	})
	defer s.Close()

	var calls atomic.Int32
	e, err := s.Fetch(context.Background(), K("users", "me"), func(context.Context) ([]byte, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("flaky")
		}
		return []byte(`{"id":"u1"}`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, `{"id":"u1"}`, string(e.Value))
}

func TestCallerCancellationStopsWaiting(t *testing.T) {
	s, _ := newStore(t)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Fetch(ctx, K("spaces", "list", "w1"), func(context.Context) ([]byte, error) {
		<-release
		return []byte(`[]`), nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCancelledFetchDoesNotOverwrite(t *testing.T) {
	s, _ := newStore(t)
	key := K("tasks", "detail", "t1")
	started := make(chan struct{})
	release := make(chan struct{})

	type result struct {
		e   Entry
		err error
	}
	out := make(chan result, 1)
	go func() {
		e, err := s.Fetch(context.Background(), key, func(context.Context) ([]byte, error) {
			close(started)
			<-release
			return []byte(`{"status":"todo"}`), nil
		})
		out <- result{e, err}
	}()

	<-started
	s.CancelFetches(K("tasks"))
	s.Write(key, []byte(`{"status":"done"}`))
	close(release)

	r := <-out
	require.NoError(t, r.err)
	assert.Equal(t, `{"status":"done"}`, string(r.e.Value))
	e, _ := s.Read(key)
	assert.Equal(t, `{"status":"done"}`, string(e.Value))
}

func TestInvalidateDuringFetchMarksResult(t *testing.T) {
	s, _ := newStore(t)
	key := K("sprints", "list", "p1")
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Fetch(context.Background(), key, func(context.Context) ([]byte, error) {
			close(started)
			<-release
			return []byte(`[]`), nil
		})
	}()
	<-started
	s.Invalidate(K("sprints"))
	close(release)
	<-done

	e, ok := s.Read(key)
	require.True(t, ok)
	assert.True(t, e.Invalidated)
}

func TestCommitIsAllOrNothing(t *testing.T) {
	s, _ := newStore(t)
	s.Write(K("a"), []byte(`1`))

	boom := errors.New("boom")
	err := s.Commit(
		Set(K("a"), []byte(`2`)),
		Op{Key: K("b"), Update: func([]byte, bool) ([]byte, bool, error) { return nil, false, boom }},
	)
	assert.ErrorIs(t, err, boom)
	e, _ := s.Read(K("a"))
	assert.Equal(t, `1`, string(e.Value))
}

func TestSwapAndRestore(t *testing.T) {
	s, _ := newStore(t)
	original := []byte(`{"id":"t1","status":"todo","title":"A"}`)
	s.Write(K("tasks", "detail", "t1"), original)

	snaps, err := s.Swap(
		UpdateJSON(K("tasks", "detail", "t1"), func(m *map[string]any) bool {
			(*m)["status"] = "done"
			return true
		}),
		Set(K("tasks", "detail", "t2"), []byte(`{"id":"t2"}`)),
		UpdateJSON(K("tasks", "detail", "missing"), func(*map[string]any) bool { return true }),
	)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	e, _ := s.Read(K("tasks", "detail", "t1"))
	var m map[string]any
	require.NoError(t, json.Unmarshal(e.Value, &m))
	assert.Equal(t, "done", m["status"])

	s.Restore(snaps)
	e, ok := s.Read(K("tasks", "detail", "t1"))
	require.True(t, ok)
	assert.Equal(t, original, e.Value)
	_, ok = s.Read(K("tasks", "detail", "t2"))
	assert.False(t, ok)
	_, ok = s.Read(K("tasks", "detail", "missing"))
	assert.False(t, ok)
}

func TestPrefixOpTouchesEveryMatch(t *testing.T) {
	s, _ := newStore(t)
	s.Write(K("chat", "messages", "c1", "50", "0"), []byte(`[{"id":"m1","content":"hi"}]`))
	s.Write(K("chat", "messages", "c1", "50", "50"), []byte(`[{"id":"m0","content":"yo"}]`))
	s.Write(K("chat", "messages", "c2", "50", "0"), []byte(`[{"id":"m1","content":"other"}]`))

	type msg struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	require.NoError(t, s.Commit(UpdateEachJSON(K("chat", "messages", "c1"), func(list *[]msg) bool {
		for i := range *list {
			if (*list)[i].ID == "m1" {
				(*list)[i].Content = "edited"
				return true
			}
		}
		return false
	})))

	got, _, err := Get[[]msg](s, K("chat", "messages", "c1", "50", "0"))
	require.NoError(t, err)
	assert.Equal(t, "edited", got[0].Content)
	got, _, _ = Get[[]msg](s, K("chat", "messages", "c2", "50", "0"))
	assert.Equal(t, "other", got[0].Content)
}

func TestSubscribeAndClear(t *testing.T) {
	s, _ := newStore(t)
	var mu sync.Mutex
	var seen []string
	cancel := s.Subscribe(K("tasks"), func(k Key) {
		mu.Lock()
		seen = append(seen, k.String())
		mu.Unlock()
	})

	s.Write(K("tasks", "detail", "t1"), []byte(`{}`))
	s.Write(K("labels", "list", "p1"), []byte(`[]`))
	s.Clear()
	assert.Empty(t, s.Keys(nil))
	cancel()
	s.Write(K("tasks", "detail", "t2"), []byte(`{}`))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"tasks/detail/t1", "tasks/detail/t1"}, seen)
	require.Len(t, s.Keys(nil), 1)
	assert.Equal(t, "tasks/detail/t2", s.Keys(nil)[0].String())
}

func TestClosedStoreRejectsFetch(t *testing.T) {
	s := New(Options{})
	s.Close()
	_, err := s.Fetch(context.Background(), K("x"), func(context.Context) ([]byte, error) {
		return []byte(`1`), nil
	})
	assert.ErrorIs(t, err, ErrClosed)
}
