package services

import (
	"context"
	"slices"
)

type identified interface {
	GetID() string
}

// mutate runs one optimistic write against a local collection: apply the
// change locally, write remotely, then either reload the collection or put
// the previous row back. next == nil means deletion.
func mutate[T identified](ctx context.Context, w *Workspace, coll string, list *[]T, id string, next *T, write func() error) error {
	w.mu.Lock()
	prev, existed := findRow(*list, id)
	if next != nil {
		*list = upsertRow(*list, *next)
	} else {
		*list = removeRow(*list, id)
	}
	w.mu.Unlock()

	if err := write(); err != nil {
		w.mu.Lock()
		if existed {
			*list = upsertRow(*list, prev)
		} else {
			*list = removeRow(*list, id)
		}
		w.mu.Unlock()
		w.logger.Error("remote write failed, local change rolled back", "collection", coll, "id", id, "error", err)
		return err
	}

	// a failed reload keeps the optimistic row; the write itself succeeded
	_ = w.Reload(ctx, coll)
	return nil
}

func findRow[T identified](rows []T, id string) (T, bool) {
	for _, r := range rows {
		if r.GetID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

func upsertRow[T identified](rows []T, row T) []T {
	out := slices.Clone(rows)
	for i := range out {
		if out[i].GetID() == row.GetID() {
			out[i] = row
			return out
		}
	}
	return append(out, row)
}

func removeRow[T identified](rows []T, id string) []T {
	return slices.DeleteFunc(slices.Clone(rows), func(r T) bool { return r.GetID() == id })
}

func ids[T identified](rows []T) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.GetID())
	}
	return out
}

// snapshot copies rows matching keep under the read lock.
func snapshot[T any](w *Workspace, rows *[]T, keep func(*T) bool) []T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]T, 0, len(*rows))
	for i := range *rows {
		if keep == nil || keep(&(*rows)[i]) {
			out = append(out, (*rows)[i])
		}
	}
	return out
}

// lookup finds a visible row by id under the read lock.
func lookup[T identified](w *Workspace, rows *[]T, id string) (T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return findRow(*rows, id)
}
