package handlers

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/crud"
	"github.com/openexcavate/fieldbook-backend/internal/entity"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/record"
	"github.com/openexcavate/fieldbook-backend/internal/table"
)

// GridHandler drives inline grid editing: rows staged in memory, removals
// queued, the whole set written as one batch on save.
type GridHandler struct {
	log      *logger.Logger
	api      postgrest.Client
	registry *entity.Registry
	binders  map[string]*crud.Binder

	mu    sync.Mutex
	grids map[string]*table.EditTable
}

func NewGridHandler(log *logger.Logger, api postgrest.Client, reg *entity.Registry, binders map[string]*crud.Binder) *GridHandler {
	return &GridHandler{
		log:      log.With("handler", "GridHandler"),
		api:      api,
		registry: reg,
		binders:  binders,
		grids:    make(map[string]*table.EditTable),
	}
}

func (h *GridHandler) grid(c *gin.Context) (*table.EditTable, entity.Descriptor, bool) {
	name := c.Param("entity")
	desc, ok := h.registry.Get(name)
	if !ok {
		RespondError(c, http.StatusNotFound, "unknown_entity", fmt.Errorf("unknown entity %q", name))
		return nil, entity.Descriptor{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.grids[name]
	if !ok {
		g = table.NewEditTable(desc.Defaults)
		h.grids[name] = g
	}
	return g, desc, true
}

// POST /api/grids/:entity/load
func (h *GridHandler) Load(c *gin.Context) {
	g, desc, ok := h.grid(c)
	if !ok {
		return
	}
	rows, err := h.api.Get(c.Request.Context(), desc.ViewTable, postgrest.Where())
	if err != nil {
		RespondUpstreamError(c, err)
		return
	}
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, record.Record(r))
	}
	g.SetRows(out)
	RespondOK(c, out)
}

// GET /api/grids/:entity
func (h *GridHandler) Rows(c *gin.Context) {
	g, _, ok := h.grid(c)
	if !ok {
		return
	}
	RespondOK(c, gin.H{"rows": g.Rows(), "pending_deletions": g.PendingDeletions()})
}

// POST /api/grids/:entity/rows
func (h *GridHandler) Add(c *gin.Context) {
	g, _, ok := h.grid(c)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, g.Add())
}

// PUT /api/grids/:entity/rows
func (h *GridHandler) Update(c *gin.Context) {
	g, _, ok := h.grid(c)
	if !ok {
		return
	}
	var row record.Record
	if err := c.ShouldBindJSON(&row); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if !g.Update(row) {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("row %s is not in the grid", row.UUID()))
		return
	}
	RespondOK(c, row)
}

// DELETE /api/grids/:entity/rows/:uuid
func (h *GridHandler) Remove(c *gin.Context) {
	g, _, ok := h.grid(c)
	if !ok {
		return
	}
	if !g.Remove(c.Param("uuid")) {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("row %s is not in the grid", c.Param("uuid")))
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/grids/:entity/save
func (h *GridHandler) Save(c *gin.Context) {
	g, desc, ok := h.grid(c)
	if !ok {
		return
	}
	binder, ok := h.binders[desc.Name]
	if !ok {
		RespondError(c, http.StatusNotFound, "unbound_entity", fmt.Errorf("no binder for %s", desc.Name))
		return
	}
	if err := g.Save(c.Request.Context(), binder.SaveRows); err != nil {
		RespondUpstreamError(c, err)
		return
	}
	RespondOK(c, g.Rows())
}
