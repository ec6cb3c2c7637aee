package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/crud"
	"github.com/openexcavate/fieldbook-backend/internal/entity"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/record"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

// RecordHandler drives the per-entity current record: load, field edits
// through the mutator contract, and the save/delete pipeline.
type RecordHandler struct {
	log      *logger.Logger
	api      postgrest.Client
	store    *store.Store
	registry *entity.Registry
	binders  map[string]*crud.Binder
}

func NewRecordHandler(log *logger.Logger, api postgrest.Client, st *store.Store, reg *entity.Registry, binders map[string]*crud.Binder) *RecordHandler {
	return &RecordHandler{
		log:      log.With("handler", "RecordHandler"),
		api:      api,
		store:    st,
		registry: reg,
		binders:  binders,
	}
}

func (h *RecordHandler) descriptor(c *gin.Context) (entity.Descriptor, bool) {
	name := c.Param("entity")
	desc, ok := h.registry.Get(name)
	if !ok {
		RespondError(c, http.StatusNotFound, "unknown_entity", fmt.Errorf("unknown entity %q", name))
	}
	return desc, ok
}

// GET /api/records/:entity/:id
// Load a row from the view relation into the entity's current slice.
func (h *RecordHandler) Get(c *gin.Context) {
	desc, ok := h.descriptor(c)
	if !ok {
		return
	}
	id := c.Param("id")
	rows, err := h.api.Get(c.Request.Context(), desc.ViewTable, postgrest.Where().Eq(desc.KeyColumn, id))
	if err != nil {
		RespondUpstreamError(c, err)
		return
	}
	if len(rows) == 0 {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("%s %s not found", desc.Name, id))
		return
	}
	r := record.Record(rows[0])
	h.store.SetCurrent(desc.Name, r, true)
	RespondOK(c, r)
}

// POST /api/records/:entity/new
// Start an "Add New" edit: fresh client-side uuid plus column defaults.
func (h *RecordHandler) New(c *gin.Context) {
	desc, ok := h.descriptor(c)
	if !ok {
		return
	}
	r := record.NewWithID()
	for k, v := range desc.Defaults {
		r[k] = v
	}
	h.store.SetCurrent(desc.Name, r, false)
	RespondOK(c, r)
}

// GET /api/records/:entity
// The entity's current in-progress record.
func (h *RecordHandler) Current(c *gin.Context) {
	desc, ok := h.descriptor(c)
	if !ok {
		return
	}
	r, persisted := h.store.Current(desc.Name)
	if r == nil {
		RespondError(c, http.StatusNotFound, "no_current", fmt.Errorf("no current %s record", desc.Name))
		return
	}
	RespondOK(c, gin.H{"record": r, "persisted": persisted})
}

type fieldChange struct {
	Field string          `json:"field"`
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// PATCH /api/records/:entity/field
// Apply one field change through the matching mutator.
func (h *RecordHandler) ApplyField(c *gin.Context) {
	desc, ok := h.descriptor(c)
	if !ok {
		return
	}
	var change fieldChange
	if err := c.ShouldBindJSON(&change); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	curr, persisted := h.store.Current(desc.Name)
	if curr == nil {
		RespondError(c, http.StatusNotFound, "no_current", fmt.Errorf("no current %s record", desc.Name))
		return
	}
	updated, err := applyMutator(curr, change)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_field_change", err)
		return
	}
	h.store.SetCurrent(desc.Name, updated, persisted)
	RespondOK(c, updated)
}

func applyMutator(curr record.Record, change fieldChange) (record.Record, error) {
	switch change.Kind {
	case "input":
		var raw string
		if err := json.Unmarshal(change.Value, &raw); err != nil {
			return nil, fmt.Errorf("input value must be a string: %w", err)
		}
		return record.SetInput(curr, change.Field, raw), nil
	case "check":
		var b bool
		if err := json.Unmarshal(change.Value, &b); err != nil {
			return nil, fmt.Errorf("check value must be a bool: %w", err)
		}
		return record.SetCheck(curr, change.Field, b), nil
	case "date":
		var raw string
		if err := json.Unmarshal(change.Value, &raw); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", raw, err)
		}
		return record.SetDate(curr, change.Field, t), nil
	case "daterange":
		var bounds struct {
			Start string `json:"start"`
			End   string `json:"end"`
		}
		if err := json.Unmarshal(change.Value, &bounds); err != nil {
			return nil, err
		}
		return record.SetDateRange(curr, change.Field, bounds.Start, bounds.End), nil
	case "autocomplete":
		var sel any
		if err := json.Unmarshal(change.Value, &sel); err != nil {
			return nil, err
		}
		return record.SetAutocomplete(curr, change.Field, sel), nil
	case "multiautocomplete":
		var sels []any
		if err := json.Unmarshal(change.Value, &sels); err != nil {
			return nil, err
		}
		return record.SetMultiAutocomplete(curr, change.Field, sels), nil
	case "array":
		var v any
		if err := json.Unmarshal(change.Value, &v); err != nil {
			return nil, err
		}
		return record.SetArray(curr, change.Field, v), nil
	default:
		return nil, fmt.Errorf("unknown mutator kind %q", change.Kind)
	}
}

// POST /api/records/:entity/save
func (h *RecordHandler) Save(c *gin.Context) {
	desc, ok := h.descriptor(c)
	if !ok {
		return
	}
	binder, ok := h.binders[desc.Name]
	if !ok {
		RespondError(c, http.StatusNotFound, "unbound_entity", fmt.Errorf("no binder for %s", desc.Name))
		return
	}
	if err := binder.Save(c.Request.Context()); err != nil {
		RespondUpstreamError(c, err)
		return
	}
	r, _ := h.store.Current(desc.Name)
	RespondOK(c, r)
}

// DELETE /api/records/:entity
func (h *RecordHandler) Delete(c *gin.Context) {
	desc, ok := h.descriptor(c)
	if !ok {
		return
	}
	binder, ok := h.binders[desc.Name]
	if !ok {
		RespondError(c, http.StatusNotFound, "unbound_entity", fmt.Errorf("no binder for %s", desc.Name))
		return
	}
	if err := binder.Delete(c.Request.Context()); err != nil {
		RespondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/records/:entity/action
// Raise the save/delete signal for whatever is watching the entity channel.
func (h *RecordHandler) RequestAction(c *gin.Context) {
	desc, ok := h.descriptor(c)
	if !ok {
		return
	}
	var body struct {
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	action := store.ButtonAction(body.Action)
	if action != store.ActionSave && action != store.ActionDelete {
		RespondError(c, http.StatusBadRequest, "bad_action", fmt.Errorf("unknown action %q", body.Action))
		return
	}
	h.store.RequestAction(desc.Name, action)
	c.Status(http.StatusAccepted)
}

// POST /api/validate
// Inline helper text for a field value. Advisory only: an invalid value can
// still be saved.
func (h *RecordHandler) Validate(c *gin.Context) {
	var body struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var msg string
	switch body.Kind {
	case "integer":
		msg = record.ValidateInteger(body.Value)
	case "percent":
		msg = record.ValidatePercent(body.Value)
	default:
		RespondError(c, http.StatusBadRequest, "bad_kind", fmt.Errorf("unknown validation kind %q", body.Kind))
		return
	}
	RespondOK(c, gin.H{"message": msg})
}
