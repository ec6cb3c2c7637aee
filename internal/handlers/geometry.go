package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/entity"
	"github.com/openexcavate/fieldbook-backend/internal/geometry"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

// GeometryHandler folds drawn map layers into the current record's geom
// field, serves background reference layers, and runs the locate marker.
type GeometryHandler struct {
	log      *logger.Logger
	api      postgrest.Client
	store    *store.Store
	registry *entity.Registry
	locator  *geometry.Locator
}

func NewGeometryHandler(log *logger.Logger, api postgrest.Client, st *store.Store, reg *entity.Registry, loc *geometry.Locator) *GeometryHandler {
	return &GeometryHandler{
		log:      log.With("handler", "GeometryHandler"),
		api:      api,
		store:    st,
		registry: reg,
		locator:  loc,
	}
}

// PUT /api/records/:entity/geometry
// Merge the posted feature collection into the current record's geom field.
// Per-feature properties are dropped; draw order is kept.
func (h *GeometryHandler) SaveLayers(c *gin.Context) {
	name := c.Param("entity")
	desc, ok := h.registry.Get(name)
	if !ok {
		RespondError(c, http.StatusNotFound, "unknown_entity", fmt.Errorf("unknown entity %q", name))
		return
	}
	if !desc.Geometry {
		RespondError(c, http.StatusBadRequest, "no_geometry", fmt.Errorf("%s records carry no geometry", desc.Name))
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_geojson", err)
		return
	}
	curr, persisted := h.store.Current(desc.Name)
	if curr == nil {
		RespondError(c, http.StatusNotFound, "no_current", fmt.Errorf("no current %s record", desc.Name))
		return
	}
	layers := geometry.NewLayerSet()
	for _, f := range fc.Features {
		layers.Add(f)
	}
	updated, err := layers.SaveTo(curr)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "geometry_encode", err)
		return
	}
	h.store.SetCurrent(desc.Name, updated, persisted)
	RespondOK(c, updated)
}

// GET /api/layers/:table
// A read-only background layer built from a related table's rows.
func (h *GeometryHandler) Background(c *gin.Context) {
	f := postgrest.Where()
	if col, val := c.Query("col"), c.Query("eq"); col != "" && val != "" {
		f = f.Eq(col, val)
	}
	fc, err := geometry.LoadBackground(c.Request.Context(), h.api, c.Param("table"), f)
	if err != nil {
		RespondUpstreamError(c, err)
		return
	}
	RespondOK(c, fc)
}

// POST /api/locate
func (h *GeometryHandler) Locate(c *gin.Context) {
	var body struct {
		Lon      float64 `json:"lon"`
		Lat      float64 `json:"lat"`
		Accuracy float64 `json:"accuracy_m"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	shown := h.locator.Locate(orb.Point{body.Lon, body.Lat}, body.Accuracy)
	RespondOK(c, gin.H{"shown": shown})
}

// GET /api/locate/marker
func (h *GeometryHandler) Marker(c *gin.Context) {
	p, ok := h.locator.Marker()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	RespondOK(c, gin.H{"lon": p.Lon(), "lat": p.Lat()})
}

// POST /api/locate/record
// Fold the shown marker into the geometry being drawn.
func (h *GeometryHandler) RecordPosition(c *gin.Context) {
	var body struct {
		Mode     string          `json:"mode"`
		Geometry json.RawMessage `json:"geometry"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	mode, ok := drawModes[body.Mode]
	if !ok {
		RespondError(c, http.StatusBadRequest, "bad_mode", fmt.Errorf("unknown draw mode %q", body.Mode))
		return
	}
	var g orb.Geometry
	if len(body.Geometry) > 0 {
		gj := &geojson.Geometry{}
		if err := json.Unmarshal(body.Geometry, gj); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_geojson", err)
			return
		}
		g = gj.Geometry()
	}
	out, recorded := h.locator.RecordPosition(mode, g)
	if !recorded {
		RespondOK(c, gin.H{"recorded": false})
		return
	}
	RespondOK(c, gin.H{"recorded": true, "geometry": geojson.NewGeometry(out)})
}

var drawModes = map[string]geometry.DrawMode{
	"none":    geometry.DrawNone,
	"point":   geometry.DrawPoint,
	"line":    geometry.DrawLine,
	"polygon": geometry.DrawPolygon,
}
