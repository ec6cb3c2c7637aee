package handlers

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/store"
	"github.com/openexcavate/fieldbook-backend/internal/table"
)

// TableHandler serves the list views: pick-a-record select tables and the
// filterable grids whose subset and selection are shared through the store.
type TableHandler struct {
	log   *logger.Logger
	api   postgrest.Client
	store *store.Store

	mu    sync.Mutex
	views map[string]*table.ViewTable
}

func NewTableHandler(log *logger.Logger, api postgrest.Client, st *store.Store) *TableHandler {
	return &TableHandler{
		log:   log.With("handler", "TableHandler"),
		api:   api,
		store: st,
		views: make(map[string]*table.ViewTable),
	}
}

// view returns the cached ViewTable for a list table, loading it on first
// use. A table caches only after its load succeeds, so a failed first load
// is retried by the next request.
func (h *TableHandler) view(c *gin.Context, name string) (*table.ViewTable, error) {
	h.mu.Lock()
	vt, ok := h.views[name]
	h.mu.Unlock()
	if ok {
		return vt, nil
	}
	vt = table.NewViewTable(h.log, h.api, h.store, name)
	if _, err := vt.Load(c.Request.Context(), postgrest.Where()); err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.views[name] = vt
	h.mu.Unlock()
	return vt, nil
}

// GET /api/tables/:table/rows
func (h *TableHandler) Rows(c *gin.Context) {
	vt, err := h.view(c, c.Param("table"))
	if err != nil {
		RespondUpstreamError(c, err)
		return
	}
	RespondOK(c, h.store.FilteredRows(vt.ListTable))
}

// POST /api/tables/:table/reload
func (h *TableHandler) Reload(c *gin.Context) {
	name := c.Param("table")
	h.mu.Lock()
	vt, ok := h.views[name]
	h.mu.Unlock()
	if !ok {
		vt = table.NewViewTable(h.log, h.api, h.store, name)
	}
	rows, err := vt.Load(c.Request.Context(), postgrest.Where())
	if err != nil {
		RespondUpstreamError(c, err)
		return
	}
	h.mu.Lock()
	h.views[name] = vt
	h.mu.Unlock()
	RespondOK(c, rows)
}

type filterBody struct {
	Contains map[string]string `json:"contains"`
	SortBy   string            `json:"sort_by"`
	Desc     bool              `json:"desc"`
}

// POST /api/tables/:table/filter
// Recompute the shared subset. The shared selection is not touched.
func (h *TableHandler) Filter(c *gin.Context) {
	var body filterBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	vt, err := h.view(c, c.Param("table"))
	if err != nil {
		RespondUpstreamError(c, err)
		return
	}
	rows := vt.ApplyFilter(table.FilterSpec{
		Contains: body.Contains,
		SortBy:   body.SortBy,
		Desc:     body.Desc,
	})
	RespondOK(c, rows)
}

// POST /api/tables/:table/selection
func (h *TableHandler) Select(c *gin.Context) {
	var body struct {
		UUID string `json:"uuid"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	vt, err := h.view(c, c.Param("table"))
	if err != nil {
		RespondUpstreamError(c, err)
		return
	}
	if !vt.SelectByID(body.UUID) {
		RespondError(c, http.StatusNotFound, "not_in_subset", fmt.Errorf("row %s is not in the filtered subset", body.UUID))
		return
	}
	RespondOK(c, h.store.SelectedRow(vt.ListTable))
}

// GET /api/tables/:table/selected
func (h *TableHandler) Selected(c *gin.Context) {
	row := h.store.SelectedRow(c.Param("table"))
	if row == nil {
		c.Status(http.StatusNoContent)
		return
	}
	RespondOK(c, row)
}

// GET /api/tables/:table/routes
// Load a pick-a-record list and resolve each row's navigation target.
func (h *TableHandler) Routes(c *gin.Context) {
	st := table.NewSelectTable(h.log, h.api, c.Param("table"))
	st.SubColumn = c.Query("sub_column")
	st.ParentPath = c.Query("parent_path")
	if key := c.Query("key_column"); key != "" {
		st.KeyColumn = key
	}
	rows, err := st.Load(c.Request.Context(), postgrest.Where())
	if err != nil {
		RespondUpstreamError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{"row": row, "route": st.Route(row)})
	}
	RespondOK(c, out)
}
