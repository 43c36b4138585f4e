package crawler

import "sort"

// DedupStore is the persisted set of canonical identifiers already completed.
// It is consulted before scheduling and marked only after a task's record has
// been durably handed to the sink; marking strictly after emission means a
// crash costs at most a harmless duplicate re-fetch, never a lost record.
//
// Mutated exclusively by the session controller after a task fully completes,
// so no locking is required under the single-worker model.
type DedupStore struct {
	keys map[string]struct{}
}

// NewDedupStore returns an empty store.
func NewDedupStore() *DedupStore {
	return &DedupStore{keys: make(map[string]struct{})}
}

// Seen reports whether key has already been completed.
func (d *DedupStore) Seen(key string) bool {
	_, ok := d.keys[key]
	return ok
}

// Mark records key as completed. Marking an already-seen key is a no-op.
func (d *DedupStore) Mark(key string) {
	if key == "" {
		return
	}
	d.keys[key] = struct{}{}
}

// Len reports the number of completed keys.
func (d *DedupStore) Len() int {
	return len(d.keys)
}

// Snapshot returns the completed keys sorted for stable checkpoints.
func (d *DedupStore) Snapshot() []string {
	out := make([]string, 0, len(d.keys))
	for k := range d.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Restore loads keys from a prior checkpoint.
func (d *DedupStore) Restore(keys []string) {
	for _, k := range keys {
		d.Mark(k)
	}
}
