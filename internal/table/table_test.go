package table

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/record"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

type stubAPI struct {
	rows []postgrest.Row
	err  error

	mu   sync.Mutex
	last string
}

func (s *stubAPI) Request(ctx context.Context, method, resourcePath string, body any, prefer string) ([]postgrest.Row, error) {
	s.mu.Lock()
	s.last = strings.ToUpper(method) + " " + resourcePath
	s.mu.Unlock()
	return s.rows, s.err
}

func (s *stubAPI) lastCall() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *stubAPI) Get(ctx context.Context, resource string, f postgrest.Filter) ([]postgrest.Row, error) {
	return s.Request(ctx, "GET", f.Path(resource), nil, "")
}

func (s *stubAPI) Post(ctx context.Context, resource string, body any, prefer string) ([]postgrest.Row, error) {
	return s.Request(ctx, "POST", resource, body, prefer)
}

func (s *stubAPI) Patch(ctx context.Context, resource string, f postgrest.Filter, body any, prefer string) ([]postgrest.Row, error) {
	return s.Request(ctx, "PATCH", f.Path(resource), body, prefer)
}

func (s *stubAPI) Delete(ctx context.Context, resource string, f postgrest.Filter) error {
	_, err := s.Request(ctx, "DELETE", f.Path(resource), nil, "")
	return err
}

func TestSelectTableRoute(t *testing.T) {
	log := logger.NewNop()
	st := NewSelectTable(log, &stubAPI{}, "view_source")
	if got := st.Route(record.Record{"uuid": "D123"}); got != "/Documentary/D123" {
		t.Fatalf("route = %q", got)
	}
	st.SubColumn = "parent_survey"
	st.ParentPath = "Survey"
	if got := st.Route(record.Record{"uuid": "ctx-9", "parent_survey": "sv-1"}); got != "/Survey/sv-1/ctx-9" {
		t.Fatalf("route = %q", got)
	}
	if got := st.Route(record.Record{"uuid": "ctx-9"}); got != "./ctx-9" {
		t.Fatalf("route without parent = %q", got)
	}
}

func TestViewTableLoadSharesRows(t *testing.T) {
	log := logger.NewNop()
	shared := store.New(log, store.NewHub(log))
	api := &stubAPI{rows: []postgrest.Row{
		{"uuid": "a", "label": "North wall"},
		{"uuid": "b", "label": "South apse"},
	}}
	vt := NewViewTable(log, api, shared, "view_context")

	rows, err := vt.Load(context.Background(), postgrest.Where().Eq("trench", "t1"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if api.lastCall() != "GET view_context?trench=eq.t1" {
		t.Fatalf("api call = %q", api.lastCall())
	}
	if got := shared.FilteredRows("view_context"); len(got) != 2 {
		t.Fatalf("shared rows = %v", got)
	}
}

func TestViewTableFilterKeepsSelection(t *testing.T) {
	log := logger.NewNop()
	shared := store.New(log, store.NewHub(log))
	api := &stubAPI{rows: []postgrest.Row{
		{"uuid": "a", "label": "North wall"},
		{"uuid": "b", "label": "South apse"},
		{"uuid": "c", "label": "North gate"},
	}}
	vt := NewViewTable(log, api, shared, "view_context")
	if _, err := vt.Load(context.Background(), postgrest.Where()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !vt.SelectByID("b") {
		t.Fatalf("selection failed")
	}

	filtered := vt.ApplyFilter(FilterSpec{Contains: map[string]string{"label": "north"}, SortBy: "label"})
	if len(filtered) != 2 || filtered[0]["uuid"] != "c" || filtered[1]["uuid"] != "a" {
		t.Fatalf("filtered = %v", filtered)
	}
	// The selection survives even though "b" no longer matches.
	if sel := shared.SelectedRow("view_context"); sel == nil || sel["uuid"] != "b" {
		t.Fatalf("selection = %v", sel)
	}
	if vt.SelectByID("b") {
		t.Fatalf("selecting outside the filtered subset should fail")
	}
}

func TestEditTableLifecycle(t *testing.T) {
	et := NewEditTable(map[string]any{"material": "ceramic", "count": 1})
	et.SetRows([]record.Record{{"uuid": "old", "material": "glass"}})

	added := et.Add()
	if added.UUID() == "" {
		t.Fatalf("added row missing client uuid")
	}
	if added["material"] != "ceramic" || added["count"] != 1 {
		t.Fatalf("defaults not applied: %v", added)
	}
	if !et.Update(record.Record{"uuid": added.UUID(), "material": "bone"}) {
		t.Fatalf("update failed")
	}
	if !et.Remove("old") {
		t.Fatalf("remove failed")
	}
	if len(et.Rows()) != 1 || et.Rows()[0]["material"] != "bone" {
		t.Fatalf("rows = %v", et.Rows())
	}
	if got := et.PendingDeletions(); len(got) != 1 || got[0] != "old" {
		t.Fatalf("pending = %v", got)
	}

	var savedRows []record.Record
	var savedDeletes []string
	err := et.Save(context.Background(), func(ctx context.Context, rows []record.Record, deletions []string) error {
		savedRows, savedDeletes = rows, deletions
		return nil
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(savedRows) != 1 || len(savedDeletes) != 1 {
		t.Fatalf("saver got %v / %v", savedRows, savedDeletes)
	}
	if len(et.PendingDeletions()) != 0 {
		t.Fatalf("pending deletions not reset after save")
	}
}

func TestEditTableConcurrentAdd(t *testing.T) {
	et := NewEditTable(nil)
	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				et.Add()
			}
		}()
	}
	wg.Wait()

	if got := len(et.Rows()); got != workers*perWorker {
		t.Fatalf("rows = %d, want %d", got, workers*perWorker)
	}
}

func TestEditTableSaveKeepsInFlightRemovals(t *testing.T) {
	et := NewEditTable(nil)
	a := et.Add()
	b := et.Add()
	et.Remove(a.UUID())

	err := et.Save(context.Background(), func(ctx context.Context, rows []record.Record, deletions []string) error {
		// A removal lands while the save is on the wire.
		et.Remove(b.UUID())
		if len(deletions) != 1 || deletions[0] != a.UUID() {
			t.Fatalf("deletions = %v", deletions)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := et.PendingDeletions(); len(got) != 1 || got[0] != b.UUID() {
		t.Fatalf("pending = %v, want the in-flight removal kept", got)
	}
}

func TestViewTableConcurrentLoadAndFilter(t *testing.T) {
	log := logger.NewNop()
	shared := store.New(log, store.NewHub(log))
	api := &stubAPI{rows: []postgrest.Row{{"uuid": "a", "label": "North wall"}}}
	vt := NewViewTable(log, api, shared, "view_context")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := vt.Load(context.Background(), postgrest.Where()); err != nil {
					t.Errorf("Load: %v", err)
					return
				}
				vt.ApplyFilter(FilterSpec{Contains: map[string]string{"label": "north"}})
			}
		}()
	}
	wg.Wait()

	if rows := shared.FilteredRows("view_context"); len(rows) != 1 {
		t.Fatalf("filtered = %v", rows)
	}
}
