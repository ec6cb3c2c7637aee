package crud

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/record"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

type apiCall struct {
	method   string
	resource string
	body     any
	prefer   string
}

// fakeAPI records calls and plays scripted responses.
type fakeAPI struct {
	calls   []apiCall
	respond func(call apiCall) ([]postgrest.Row, error)
}

func (f *fakeAPI) Request(ctx context.Context, method, resourcePath string, body any, prefer string) ([]postgrest.Row, error) {
	call := apiCall{method: strings.ToUpper(method), resource: resourcePath, body: body, prefer: prefer}
	f.calls = append(f.calls, call)
	if f.respond != nil {
		return f.respond(call)
	}
	return nil, nil
}

func (f *fakeAPI) Get(ctx context.Context, resource string, filter postgrest.Filter) ([]postgrest.Row, error) {
	return f.Request(ctx, http.MethodGet, filter.Path(resource), nil, "")
}

func (f *fakeAPI) Post(ctx context.Context, resource string, body any, prefer string) ([]postgrest.Row, error) {
	return f.Request(ctx, http.MethodPost, resource, body, prefer)
}

func (f *fakeAPI) Patch(ctx context.Context, resource string, filter postgrest.Filter, body any, prefer string) ([]postgrest.Row, error) {
	return f.Request(ctx, http.MethodPatch, filter.Path(resource), body, prefer)
}

func (f *fakeAPI) Delete(ctx context.Context, resource string, filter postgrest.Filter) error {
	_, err := f.Request(ctx, http.MethodDelete, filter.Path(resource), nil, "")
	return err
}

func newTestBinder(t *testing.T, api *fakeAPI, cfg Config) (*Binder, *store.Store) {
	t.Helper()
	log := logger.NewNop()
	st := store.New(log, store.NewHub(log))
	st.SetActor("actor-1", "R. Lanciani")
	b, err := NewBinder(log, api, st, cfg)
	if err != nil {
		t.Fatalf("NewBinder: %v", err)
	}
	b.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return b, st
}

func trenchConfig() Config {
	return Config{
		Entity:               "trench",
		ViewTable:            "view_trench",
		EditTable:            "edit_trench",
		StripKeys:            []string{"supervisor_label"},
		ReturnRepresentation: true,
	}
}

func TestSaveNewRecordPosts(t *testing.T) {
	api := &fakeAPI{respond: func(call apiCall) ([]postgrest.Row, error) {
		if call.method != http.MethodPost {
			return nil, fmt.Errorf("unexpected %s", call.method)
		}
		sent := call.body.(record.Record)
		// Server representation echoes the row plus computed columns.
		echo := postgrest.Row{"created_at": sent["created_at"], "row_version": float64(1)}
		for k, v := range sent {
			echo[k] = v
		}
		return []postgrest.Row{echo}, nil
	}}
	b, st := newTestBinder(t, api, trenchConfig())

	curr := record.NewWithID()
	curr = record.SetInput(curr, "label", "Trench 4")
	curr = record.SetAutocomplete(curr, "supervisor", record.Option{UUID: "sup-1"})
	curr = record.SetCheck(curr, "backfilled", false)
	curr["supervisor_label"] = "Rodolfo Lanciani" // joined display key
	st.SetCurrent("trench", curr, false)

	if err := b.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("calls = %+v", api.calls)
	}
	sent := api.calls[0].body.(record.Record)
	if _, ok := sent["supervisor_label"]; ok {
		t.Fatalf("derived key not stripped: %v", sent)
	}
	if sent.UUID() != curr.UUID() {
		t.Fatalf("client uuid replaced: %q vs %q", sent.UUID(), curr.UUID())
	}
	if sent["created_at"] != "2026-03-14T09:00:00Z" || sent["created_by"] != "actor-1" {
		t.Fatalf("stamps missing: %v", sent)
	}
	if api.calls[0].prefer != postgrest.PreferRepresentation {
		t.Fatalf("prefer = %q", api.calls[0].prefer)
	}

	got, persisted := st.Current("trench")
	if !persisted {
		t.Fatalf("slice not marked persisted")
	}
	// The slice now holds the server's representation, not the local edit.
	if got["row_version"] != float64(1) {
		t.Fatalf("server-computed column missing: %v", got)
	}
}

func TestSavePersistedRecordPatches(t *testing.T) {
	api := &fakeAPI{respond: func(call apiCall) ([]postgrest.Row, error) {
		return []postgrest.Row{{"uuid": "u1", "label": "renamed"}}, nil
	}}
	b, st := newTestBinder(t, api, trenchConfig())
	st.SetCurrent("trench", record.Record{"uuid": "u1", "label": "renamed"}, true)

	if err := b.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	call := api.calls[0]
	if call.method != http.MethodPatch {
		t.Fatalf("method = %q", call.method)
	}
	if call.resource != "edit_trench?uuid=eq.u1" {
		t.Fatalf("resource = %q", call.resource)
	}
	sent := call.body.(record.Record)
	if sent["updated_at"] != "2026-03-14T09:00:00Z" || sent["updated_by"] != "actor-1" {
		t.Fatalf("update stamps missing: %v", sent)
	}
	if _, ok := sent["created_at"]; ok {
		t.Fatalf("created stamp on update: %v", sent)
	}
}

func TestSaveWithoutRepresentationRefreshesFromView(t *testing.T) {
	api := &fakeAPI{respond: func(call apiCall) ([]postgrest.Row, error) {
		if call.method == http.MethodGet {
			return []postgrest.Row{{"uuid": "u1", "label": "T4", "supervisor_label": "joined"}}, nil
		}
		return nil, nil
	}}
	cfg := trenchConfig()
	cfg.ReturnRepresentation = false
	b, st := newTestBinder(t, api, cfg)
	st.SetCurrent("trench", record.Record{"uuid": "u1", "label": "T4"}, true)

	if err := b.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(api.calls) != 2 || api.calls[1].method != http.MethodGet {
		t.Fatalf("calls = %+v", api.calls)
	}
	if api.calls[1].resource != "view_trench?uuid=eq.u1" {
		t.Fatalf("refresh resource = %q", api.calls[1].resource)
	}
	got, _ := st.Current("trench")
	if got["supervisor_label"] != "joined" {
		t.Fatalf("view refresh not applied: %v", got)
	}
}

func TestSaveFailureKeepsEditsAndNotifies(t *testing.T) {
	api := &fakeAPI{respond: func(call apiCall) ([]postgrest.Row, error) {
		return nil, &postgrest.Error{
			StatusCode: http.StatusConflict,
			Payload:    postgrest.ErrorPayload{Message: "duplicate key", Details: "label exists"},
		}
	}}
	b, st := newTestBinder(t, api, trenchConfig())
	edited := record.Record{"uuid": "u1", "label": "dup"}
	st.SetCurrent("trench", edited, true)

	if err := b.Save(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	got, persisted := st.Current("trench")
	if got["label"] != "dup" || !persisted {
		t.Fatalf("in-memory edit rolled back: %v", got)
	}
	n := st.Notification()
	if n.ActionType != "save" || n.MessageType != "error" {
		t.Fatalf("notification = %+v", n)
	}
	if !strings.Contains(n.MessageText, "duplicate key") || !strings.Contains(n.MessageText, "label exists") {
		t.Fatalf("message = %q", n.MessageText)
	}
}

func TestDeleteClearsSlice(t *testing.T) {
	api := &fakeAPI{}
	b, st := newTestBinder(t, api, trenchConfig())
	st.SetCurrent("trench", record.Record{"uuid": "u1"}, true)

	if err := b.Delete(context.Background()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if api.calls[0].method != http.MethodDelete || api.calls[0].resource != "edit_trench?uuid=eq.u1" {
		t.Fatalf("call = %+v", api.calls[0])
	}
	if _, ok := st.Current("trench"); ok {
		t.Fatalf("slice not cleared")
	}
	if n := st.Notification(); n.ActionType != "delete" || n.MessageType != "success" {
		t.Fatalf("notification = %+v", n)
	}
}

func TestSaveRowsUpsertsAndBatchDeletes(t *testing.T) {
	api := &fakeAPI{}
	b, _ := newTestBinder(t, api, trenchConfig())

	rows := []record.Record{
		{"uuid": "a", "label": "row a", "supervisor_label": "x"},
		{"uuid": "b", "label": "row b"},
	}
	if err := b.SaveRows(context.Background(), rows, []string{"c", "d"}); err != nil {
		t.Fatalf("save rows: %v", err)
	}
	if len(api.calls) != 2 {
		t.Fatalf("calls = %+v", api.calls)
	}
	if api.calls[0].method != http.MethodPost || api.calls[0].prefer != postgrest.PreferMergeDuplicates {
		t.Fatalf("upsert call = %+v", api.calls[0])
	}
	sent := api.calls[0].body.([]postgrest.Row)
	if len(sent) != 2 {
		t.Fatalf("payload = %v", sent)
	}
	if _, ok := sent[0]["supervisor_label"]; ok {
		t.Fatalf("derived key not stripped from batch: %v", sent[0])
	}
	if api.calls[1].method != http.MethodDelete || !strings.Contains(api.calls[1].resource, "eq%28any%29.%7Bc%2Cd%7D") {
		t.Fatalf("batch delete call = %+v", api.calls[1])
	}
}

func TestWatchReactsToActionSignals(t *testing.T) {
	saved := make(chan apiCall, 1)
	api := &fakeAPI{respond: func(call apiCall) ([]postgrest.Row, error) {
		select {
		case saved <- call:
		default:
		}
		return []postgrest.Row{{"uuid": "u1"}}, nil
	}}
	b, st := newTestBinder(t, api, trenchConfig())
	st.SetCurrent("trench", record.Record{"uuid": "u1"}, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Watch(ctx)

	st.RequestAction("trench", store.ActionSave)
	select {
	case call := <-saved:
		if call.method != http.MethodPatch {
			t.Fatalf("call = %+v", call)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("save signal never reached the api")
	}
}

func sourceConfig() Config {
	return Config{
		Entity:               "literary_source",
		ViewTable:            "view_literary_source",
		EditTable:            "edit_literary_source",
		ReturnRepresentation: true,
		KeyColumn:            "source_code",
	}
}

func TestSavePersistedNaturalKeyPatchesByKeyColumn(t *testing.T) {
	api := &fakeAPI{respond: func(call apiCall) ([]postgrest.Row, error) {
		return []postgrest.Row{{"source_code": "Lh-042", "title": "Liber horarum"}}, nil
	}}
	b, st := newTestBinder(t, api, sourceConfig())
	st.SetCurrent("literary_source", record.Record{"source_code": "Lh-042", "title": "Liber horarum"}, true)

	if err := b.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("calls = %+v", api.calls)
	}
	call := api.calls[0]
	if call.method != http.MethodPatch || !strings.Contains(call.resource, "source_code=eq.Lh-042") {
		t.Fatalf("patch call = %+v", call)
	}
	if strings.Contains(call.resource, "uuid=") {
		t.Fatalf("natural-key entity addressed by uuid: %s", call.resource)
	}
}

func TestSavePersistedWithoutKeyFails(t *testing.T) {
	api := &fakeAPI{}
	b, st := newTestBinder(t, api, sourceConfig())
	st.SetCurrent("literary_source", record.Record{"title": "Liber horarum"}, true)

	if err := b.Save(context.Background()); err == nil {
		t.Fatal("saving a persisted record without its key must fail")
	}
	if len(api.calls) != 0 {
		t.Fatalf("no request should be issued, got %+v", api.calls)
	}
	if n := st.Notification(); n.MessageType != "error" {
		t.Fatalf("notification = %+v", n)
	}
}

func TestDeleteNaturalKeyUsesKeyColumn(t *testing.T) {
	api := &fakeAPI{}
	b, st := newTestBinder(t, api, sourceConfig())
	st.SetCurrent("literary_source", record.Record{"source_code": "Lh-042"}, true)

	if err := b.Delete(context.Background()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(api.calls) != 1 || !strings.Contains(api.calls[0].resource, "source_code=eq.Lh-042") {
		t.Fatalf("delete call = %+v", api.calls)
	}
}
