package table

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/record"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

// FilterSpec is a grid's client-side filter and sort state.
type FilterSpec struct {
	// Contains matches rows whose column's string form contains the term,
	// case-insensitively (the grid's ilike-style quick filter).
	Contains map[string]string
	SortBy   string
	Desc     bool
}

// ViewTable keeps a queried collection plus the filtered subset and selected
// row shared through the store, so a map panel renders exactly the rows the
// grid shows and selection stays bidirectional. A shared instance is safe
// under concurrent handlers.
type ViewTable struct {
	log   *logger.Logger
	api   postgrest.Client
	store *store.Store

	ListTable string

	mu   sync.Mutex
	rows []record.Record
}

func NewViewTable(log *logger.Logger, api postgrest.Client, st *store.Store, listTable string) *ViewTable {
	return &ViewTable{
		log:       log.With("table", listTable),
		api:       api,
		store:     st,
		ListTable: listTable,
	}
}

// Load queries the collection once per list-table change and shares the
// unfiltered set as the current filtered rows.
func (t *ViewTable) Load(ctx context.Context, f postgrest.Filter) ([]record.Record, error) {
	rows, err := t.api.Get(ctx, t.ListTable, f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.ListTable, err)
	}
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, record.Record(r))
	}
	t.mu.Lock()
	t.rows = out
	t.mu.Unlock()
	t.store.SetFilteredRows(t.ListTable, out)
	return out, nil
}

// ApplyFilter recomputes the shared filtered subset from the loaded rows.
// The shared selection is left untouched even when it falls outside the new
// subset.
func (t *ViewTable) ApplyFilter(spec FilterSpec) []record.Record {
	t.mu.Lock()
	rows := append([]record.Record(nil), t.rows...)
	t.mu.Unlock()

	filtered := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		if matchesSpec(row, spec) {
			filtered = append(filtered, row)
		}
	}
	if spec.SortBy != "" {
		sort.SliceStable(filtered, func(i, j int) bool {
			a := fmt.Sprint(filtered[i][spec.SortBy])
			b := fmt.Sprint(filtered[j][spec.SortBy])
			if spec.Desc {
				return a > b
			}
			return a < b
		})
	}
	t.store.SetFilteredRows(t.ListTable, filtered)
	return filtered
}

func matchesSpec(row record.Record, spec FilterSpec) bool {
	for col, term := range spec.Contains {
		if term == "" {
			continue
		}
		v, ok := row[col]
		if !ok || v == nil {
			return false
		}
		if !strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(term)) {
			return false
		}
	}
	return true
}

// Select shares the chosen row (grid click or map click, either direction).
func (t *ViewTable) Select(row record.Record) {
	t.store.SetSelectedRow(t.ListTable, row)
}

// SelectByID selects out of the currently shared subset, the map side of the
// bidirectional sync.
func (t *ViewTable) SelectByID(id string) bool {
	for _, row := range t.store.FilteredRows(t.ListTable) {
		if row.UUID() == id {
			t.Select(row)
			return true
		}
	}
	return false
}
