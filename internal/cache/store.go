// Package cache is the client-side query cache: JSON values addressed by
// hierarchical keys, with per-family stale times, deduplicated fetches,
// prefix invalidation and atomic multi-key batches for optimistic writes.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Marga-Ghale/ora-scrum-client/internal/retry"
)

var ErrClosed = errors.New("cache is closed")

// Fetcher loads the current server value for a key.
type Fetcher func(ctx context.Context) ([]byte, error)

// Entry is a copy of a cached value.
type Entry struct {
	Key       Key
	Value     []byte
	UpdatedAt time.Time
	// Invalidated is set by Invalidate until the next successful fetch.
	Invalidated bool
	// Stale is Invalidated or older than the family's stale time.
	Stale bool
}

// Snapshot is the pre-image of one key taken by Swap.
type Snapshot struct {
	Key         Key
	Value       []byte
	Present     bool
	UpdatedAt   time.Time
	Invalidated bool
}

type Options struct {
	// DefaultStaleTime applies to keys without a more specific rule.
	DefaultStaleTime time.Duration
	// StaleTimes overrides the stale time by key prefix, written as
	// Key.String() ("notifications", "chat/unread"). The longest match wins.
	StaleTimes map[string]time.Duration
	// Retryer and ShouldRetry govern fetch retries.
	Retryer     retry.Retryer
	ShouldRetry func(error) bool
	Logger      zerolog.Logger
	Now         func() time.Time
}

type entry struct {
	key         Key
	value       []byte
	updatedAt   time.Time
	invalidated bool
}

type flight struct {
	key         Key
	cancelled   bool
	invalidated bool
}

type subscription struct {
	prefix Key
	fn     func(Key)
}

type Store struct {
	opts Options
	log  zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	flights map[string]*flight
	subs    map[int]subscription
	nextSub int
	closed  bool

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Retryer == nil {
		opts.Retryer = retry.Never
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		opts:    opts,
		log:     opts.Logger,
		entries: make(map[string]*entry),
		flights: make(map[string]*flight),
		subs:    make(map[int]subscription),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close cancels background refetches and waits for them to finish.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Store) staleTime(key Key) time.Duration {
	best, bestLen := s.opts.DefaultStaleTime, -1
	for prefix, d := range s.opts.StaleTimes {
		if len(prefix) > bestLen && key.HasPrefix(splitKey(prefix)) {
			best, bestLen = d, len(prefix)
		}
	}
	return best
}

func splitKey(s string) Key {
	var out Key
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// must hold s.mu
func (s *Store) view(e *entry) Entry {
	stale := e.invalidated || s.opts.Now().Sub(e.updatedAt) >= s.staleTime(e.key)
	return Entry{
		Key:         e.key.clone(),
		Value:       e.value,
		UpdatedAt:   e.updatedAt,
		Invalidated: e.invalidated,
		Stale:       stale,
	}
}

// Read returns the cached entry without fetching.
func (s *Store) Read(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key.id()]
	if !ok {
		return Entry{}, false
	}
	return s.view(e), true
}

// Keys lists the cached keys under prefix.
func (s *Store) Keys(prefix Key) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Key
	for _, e := range s.entries {
		if e.key.HasPrefix(prefix) {
			out = append(out, e.key.clone())
		}
	}
	return out
}

// Fetch returns the entry at key, loading it with fetch when needed.
// A fresh entry is returned as is. An entry that aged past its stale time is
// returned immediately while a background refetch runs. An absent or
// invalidated entry waits for the fetch; if that fails, an invalidated entry
// is still returned alongside the error. Concurrent fetches of one key share
// a single call.
func (s *Store) Fetch(ctx context.Context, key Key, fetch Fetcher) (Entry, error) {
	cur, ok := s.Read(key)
	if ok && !cur.Stale {
		return cur, nil
	}
	if ok && !cur.Invalidated {
		s.revalidate(key, fetch)
		return cur, nil
	}

	ch := s.group.DoChan(key.id(), func() (any, error) {
		return s.run(key, fetch)
	})
	select {
	case <-ctx.Done():
		return cur, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return cur, res.Err
		}
		return res.Val.(Entry), nil
	}
}

// Refetch forces a fetch of key, joining any fetch already in flight.
func (s *Store) Refetch(ctx context.Context, key Key, fetch Fetcher) (Entry, error) {
	s.Invalidate(key)
	return s.Fetch(ctx, key, fetch)
}

func (s *Store) revalidate(key Key, fetch Fetcher) {
	id := key.id()
	s.mu.RLock()
	_, busy := s.flights[id]
	s.mu.RUnlock()
	if busy {
		return
	}
	go func() {
		if _, err, _ := s.group.Do(id, func() (any, error) {
			return s.run(key, fetch)
		}); err != nil && !errors.Is(err, ErrClosed) {
			s.log.Warn().Err(err).Str("key", key.String()).Msg("Background refetch failed")
		}
	}()
}

// run performs one fetch on the store context so that a caller giving up
// does not abort a fetch other callers share.
func (s *Store) run(key Key, fetch Fetcher) (Entry, error) {
	id := key.id()
	f := &flight{key: key.clone()}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Entry{}, ErrClosed
	}
	s.flights[id] = f
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.flights[id] == f {
			delete(s.flights, id)
		}
		s.mu.Unlock()
		s.wg.Done()
	}()

	var value []byte
	err := retry.Do(s.ctx, s.opts.Retryer, s.opts.ShouldRetry, func(ctx context.Context) error {
		v, err := fetch(ctx)
		if err == nil {
			value = v
		}
		return err
	})
	if err != nil {
		s.log.Debug().Err(err).Str("key", key.String()).Msg("Fetch failed")
		return Entry{}, err
	}

	s.mu.Lock()
	if f.cancelled {
		// An optimistic write owns the key now; never overwrite it.
		if cur, ok := s.entries[id]; ok {
			out := s.view(cur)
			s.mu.Unlock()
			return out, nil
		}
		s.mu.Unlock()
		return Entry{Key: key.clone(), Value: value, UpdatedAt: s.opts.Now(), Stale: true}, nil
	}
	e := &entry{key: key.clone(), value: value, updatedAt: s.opts.Now(), invalidated: f.invalidated}
	s.entries[id] = e
	out := s.view(e)
	s.mu.Unlock()

	s.notify([]Key{key})
	return out, nil
}

// CancelFetches detaches every in-flight fetch under prefix: callers still
// receive a value but the fetched result is not written to the cache.
func (s *Store) CancelFetches(prefix Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.flights {
		if f.key.HasPrefix(prefix) {
			f.cancelled = true
		}
	}
}

// Invalidate marks every entry under prefix as needing a refetch and
// returns how many entries it touched. Fetches already in flight store
// their result as invalidated too. Repeating it is harmless.
func (s *Store) Invalidate(prefix Key) int {
	s.mu.Lock()
	var changed []Key
	n := 0
	for _, e := range s.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		n++
		if !e.invalidated {
			e.invalidated = true
			changed = append(changed, e.key.clone())
		}
	}
	for _, f := range s.flights {
		if f.key.HasPrefix(prefix) {
			f.invalidated = true
		}
	}
	s.mu.Unlock()

	s.notify(changed)
	return n
}

// Remove deletes every entry under prefix.
func (s *Store) Remove(prefix Key) {
	s.mu.Lock()
	var removed []Key
	for id, e := range s.entries {
		if e.key.HasPrefix(prefix) {
			removed = append(removed, e.key)
			delete(s.entries, id)
		}
	}
	for _, f := range s.flights {
		if f.key.HasPrefix(prefix) {
			f.cancelled = true
		}
	}
	s.mu.Unlock()

	s.notify(removed)
}

// Clear drops every entry and detaches in-flight fetches.
func (s *Store) Clear() {
	s.Remove(nil)
}

// Write stores value at key.
func (s *Store) Write(key Key, value []byte) {
	// A plain Set cannot fail.
	_ = s.Commit(Set(key, value))
}

// Commit applies ops in order as one atomic batch. If any op fails, nothing
// is written.
func (s *Store) Commit(ops ...Op) error {
	_, err := s.apply(ops, false)
	return err
}

// Swap applies ops like Commit and returns the pre-images of the keys it
// actually changed, for Restore.
func (s *Store) Swap(ops ...Op) ([]Snapshot, error) {
	return s.apply(ops, true)
}

// Restore puts snapshotted keys back exactly as they were, deleting those
// that did not exist.
func (s *Store) Restore(snapshots []Snapshot) {
	if len(snapshots) == 0 {
		return
	}
	s.mu.Lock()
	keys := make([]Key, 0, len(snapshots))
	for _, snap := range snapshots {
		id := snap.Key.id()
		if snap.Present {
			s.entries[id] = &entry{
				key:         snap.Key.clone(),
				value:       snap.Value,
				updatedAt:   snap.UpdatedAt,
				invalidated: snap.Invalidated,
			}
		} else {
			delete(s.entries, id)
		}
		keys = append(keys, snap.Key)
	}
	s.mu.Unlock()

	s.notify(keys)
}

type staged struct {
	key     Key
	value   []byte
	present bool
}

func (s *Store) apply(ops []Op, snapshot bool) ([]Snapshot, error) {
	s.mu.Lock()

	next := make(map[string]*staged)
	var order []string
	current := func(id string, key Key) *staged {
		if st, ok := next[id]; ok {
			return st
		}
		st := &staged{key: key.clone()}
		if e, ok := s.entries[id]; ok {
			st.value, st.present = e.value, true
		}
		next[id] = st
		order = append(order, id)
		return st
	}

	touched := make(map[string]bool)
	for _, op := range ops {
		var targets []Key
		if op.Prefix {
			for _, e := range s.entries {
				if e.key.HasPrefix(op.Key) {
					targets = append(targets, e.key)
				}
			}
		} else {
			targets = []Key{op.Key}
		}

		for _, key := range targets {
			id := key.id()
			st := current(id, key)
			switch {
			case op.Delete:
				if st.present {
					st.value, st.present = nil, false
					touched[id] = true
				}
			case op.Update != nil:
				v, write, err := op.Update(st.value, st.present)
				if err != nil {
					s.mu.Unlock()
					return nil, err
				}
				if write {
					st.value, st.present = v, true
					touched[id] = true
				}
			default:
				st.value, st.present = op.Value, true
				touched[id] = true
			}
		}
	}

	var snaps []Snapshot
	var changed []Key
	now := s.opts.Now()
	for _, id := range order {
		if !touched[id] {
			continue
		}
		st := next[id]
		if snapshot {
			snap := Snapshot{Key: st.key}
			if e, ok := s.entries[id]; ok {
				snap.Value, snap.Present = e.value, true
				snap.UpdatedAt, snap.Invalidated = e.updatedAt, e.invalidated
			}
			snaps = append(snaps, snap)
		}
		if st.present {
			s.entries[id] = &entry{key: st.key, value: st.value, updatedAt: now}
		} else {
			delete(s.entries, id)
		}
		changed = append(changed, st.key)
	}
	s.mu.Unlock()

	s.notify(changed)
	return snaps, nil
}

// Subscribe calls fn after any entry under prefix changes. The returned
// func removes the subscription.
func (s *Store) Subscribe(prefix Key, fn func(Key)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscription{prefix: prefix.clone(), fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(keys []Key) {
	if len(keys) == 0 {
		return
	}
	s.mu.RLock()
	subs := make([]subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	for _, key := range keys {
		for _, sub := range subs {
			if key.HasPrefix(sub.prefix) {
				sub.fn(key)
			}
		}
	}
}
