package table

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/openexcavate/fieldbook-backend/internal/record"
)

// RowSaver is supplied by the caller: upsert the surviving rows and
// batch-delete the pending removals. The edit table itself never touches the
// network.
type RowSaver func(ctx context.Context, rows []record.Record, deletions []string) error

// EditTable is the in-memory add/remove/edit row collection behind inline
// grid editing. New rows get a client-side uuid and the column defaults so
// they can be addressed before the server has seen them. A shared instance
// is safe under concurrent handlers.
type EditTable struct {
	defaults map[string]any

	mu      sync.Mutex
	rows    []record.Record
	pending []string
}

func NewEditTable(defaults map[string]any) *EditTable {
	return &EditTable{defaults: defaults}
}

// SetRows installs the loaded collection, resetting any pending deletions.
func (t *EditTable) SetRows(rows []record.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append([]record.Record(nil), rows...)
	t.pending = nil
}

func (t *EditTable) Rows() []record.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]record.Record(nil), t.rows...)
}

func (t *EditTable) PendingDeletions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.pending...)
}

// Add synthesizes a new row and returns it.
func (t *EditTable) Add() record.Record {
	row := record.Record{record.KeyUUID: uuid.NewString()}
	for k, v := range t.defaults {
		row[k] = v
	}
	t.mu.Lock()
	t.rows = append(t.rows, row)
	t.mu.Unlock()
	return row
}

// Update replaces the row with the matching uuid.
func (t *EditTable) Update(updated record.Record) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, row := range t.rows {
		if row.UUID() == updated.UUID() {
			t.rows[i] = updated
			return true
		}
	}
	return false
}

// Remove drops the row from the visible set and queues its id for deletion
// at save time. Rows the server never saw are queued too; the batch delete
// filter simply matches nothing for them.
func (t *EditTable) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, row := range t.rows {
		if row.UUID() == id {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			t.pending = append(t.pending, id)
			return true
		}
	}
	return false
}

// Save hands a snapshot of the row set and the pending deletions to the
// caller's saver. Only the deletions that went out clear on success;
// removals queued while the save was in flight stay pending.
func (t *EditTable) Save(ctx context.Context, save RowSaver) error {
	t.mu.Lock()
	rows := append([]record.Record(nil), t.rows...)
	deletions := append([]string(nil), t.pending...)
	t.mu.Unlock()

	if err := save(ctx, rows, deletions); err != nil {
		return err
	}

	t.mu.Lock()
	sent := make(map[string]bool, len(deletions))
	for _, id := range deletions {
		sent[id] = true
	}
	var remaining []string
	for _, id := range t.pending {
		if !sent[id] {
			remaining = append(remaining, id)
		}
	}
	t.pending = remaining
	t.mu.Unlock()
	return nil
}
