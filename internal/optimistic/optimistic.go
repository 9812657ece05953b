// Package optimistic runs a server mutation with its cache effects applied
// ahead of the response and rolled back if the server rejects it.
package optimistic

import (
	"context"

	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
)

// Plan describes one optimistic mutation.
type Plan[T any] struct {
	// Targets are the optimistic edits. Ops whose key is not cached are
	// skipped and take no part in rollback.
	Targets []cache.Op
	// Cancel lists further prefixes whose in-flight reads are detached.
	Cancel []cache.Key
	// Call performs the server request.
	Call func(ctx context.Context) (T, error)
	// Confirm returns the writes that replace optimistic values with the
	// server's answer. Optional.
	Confirm func(result T) []cache.Op
	// Invalidate is applied once the call settles, success or failure.
	Invalidate []cache.Key
}

// Run applies the plan against store:
//
//  1. in-flight reads of the targets are detached so they cannot land on
//     top of the optimistic values;
//  2. the targets are swapped in atomically and their pre-images kept;
//  3. the server call runs on a context that ignores the caller's
//     cancellation, so a started request is always settled;
//  4. success writes Confirm, failure restores the pre-images;
//  5. Invalidate keys are marked for refetch either way.
//
// Concurrent runs each restore only their own snapshots.
func Run[T any](ctx context.Context, store *cache.Store, plan Plan[T]) (T, error) {
	for _, op := range plan.Targets {
		store.CancelFetches(op.Key)
	}
	for _, key := range plan.Cancel {
		store.CancelFetches(key)
	}

	snapshots, err := store.Swap(plan.Targets...)
	if err != nil {
		var zero T
		return zero, err
	}

	result, callErr := plan.Call(context.WithoutCancel(ctx))

	if callErr != nil {
		store.Restore(snapshots)
	} else if plan.Confirm != nil {
		if err := store.Commit(plan.Confirm(result)...); err != nil {
			// The server accepted the write; refetch what we could not patch.
			for _, op := range plan.Targets {
				store.Invalidate(op.Key)
			}
			settle(store, plan.Invalidate)
			return result, err
		}
	}

	settle(store, plan.Invalidate)
	return result, callErr
}

func settle(store *cache.Store, keys []cache.Key) {
	for _, key := range keys {
		store.Invalidate(key)
	}
}
