// Package optimistic applies a tentative change before a remote commit and
// rolls it back if the commit fails.
package optimistic

import "context"

// Cell is the state an optimistic update reads and writes.
// Implementations handle their own locking.
type Cell[T any] interface {
	Load() T
	Store(T)
}

// Run snapshots cell, stores mutate(snapshot), and runs commit.
// If commit fails the snapshot is stored back and the commit error is returned.
// PRE: mutate does not modify its argument in place
// POST: cell holds mutate(snapshot) on success, snapshot on failure
func Run[T any](ctx context.Context, cell Cell[T], mutate func(T) T, commit func(context.Context) error) error {
	snapshot := cell.Load()
	cell.Store(mutate(snapshot))
	if err := commit(ctx); err != nil {
		cell.Store(snapshot)
		return err
	}
	return nil
}

// Value is a Cell backed by a plain variable, for callers that need no locking.
type Value[T any] struct {
	V T
}

// Load returns the current value.
func (v *Value[T]) Load() T { return v.V }

// Store replaces the current value.
func (v *Value[T]) Store(x T) { v.V = x }
