package geometry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/record"
)

// KeyGeom is the spatial column on every geometry-bearing relation.
const KeyGeom = "geom"

// LayerSet holds the editable vector layers of one map editing session, in
// draw order.
type LayerSet struct {
	features []*geojson.Feature
}

func NewLayerSet() *LayerSet {
	return &LayerSet{}
}

func (s *LayerSet) Add(f *geojson.Feature) {
	if f == nil || f.Geometry == nil {
		return
	}
	s.features = append(s.features, f)
}

func (s *LayerSet) Features() []*geojson.Feature { return s.features }

func (s *LayerSet) Clear() { s.features = nil }

// Collect merges every drawn layer into one GeometryCollection, keeping draw
// order and discarding per-feature properties (style, labels). Only geometry
// persists.
func (s *LayerSet) Collect() orb.Collection {
	out := make(orb.Collection, 0, len(s.features))
	for _, f := range s.features {
		out = append(out, f.Geometry)
	}
	return out
}

// SaveTo writes the collected geometry into the record's geom field as a
// GeoJSON object. Multiple drawn shapes always merge into one collection,
// never separate rows.
func (s *LayerSet) SaveTo(r record.Record) (record.Record, error) {
	if len(s.features) == 0 {
		return r.With(KeyGeom, nil), nil
	}
	raw, err := geojson.NewGeometry(s.Collect()).MarshalJSON()
	if err != nil {
		return r, fmt.Errorf("encode geometry: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return r, fmt.Errorf("decode geometry: %w", err)
	}
	return r.With(KeyGeom, payload), nil
}

// GeometryOf reads a record's geom field back into an orb geometry.
func GeometryOf(r record.Record) (orb.Geometry, error) {
	v, ok := r[KeyGeom]
	if !ok || v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	g := &geojson.Geometry{}
	if err := json.Unmarshal(raw, g); err != nil {
		return nil, fmt.Errorf("decode geom field: %w", err)
	}
	return g.Geometry(), nil
}

// LoadBackground fetches a read-only reference layer from a related table
// and builds a feature collection out of the rows, geom column as geometry
// and the remaining columns as properties.
func LoadBackground(ctx context.Context, api postgrest.Client, table string, f postgrest.Filter) (*geojson.FeatureCollection, error) {
	rows, err := api.Get(ctx, table, f)
	if err != nil {
		return nil, fmt.Errorf("load background %s: %w", table, err)
	}
	fc := geojson.NewFeatureCollection()
	for _, row := range rows {
		g, err := GeometryOf(record.Record(row))
		if err != nil || g == nil {
			continue
		}
		feature := geojson.NewFeature(g)
		for k, v := range row {
			if k != KeyGeom {
				feature.Properties[k] = v
			}
		}
		fc.Append(feature)
	}
	return fc, nil
}
