package geometry

import (
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
)

// DrawMode is the active draw operation, if any.
type DrawMode int

const (
	DrawNone DrawMode = iota
	DrawPoint
	DrawLine
	DrawPolygon
)

const (
	// markerAccuracyMax rejects locate fixes worse than 2 meters.
	markerAccuracyMax = 2.0
	// markerTTL auto-removes a shown marker after 90 seconds.
	markerTTL = 90 * time.Second
)

// Locator is the location-tracking control: a locate fix with acceptable
// accuracy shows a temporary marker; "record position" folds the marker into
// the active draw; the marker expires on a timeout or the next fix.
//
//	{idle} -> locate, accuracy ok -> {marker-shown}
//	{marker-shown} -> record position, draw active -> append/move vertex -> {idle}
//	{marker-shown} -> 90s timeout or next locate -> {idle} / {marker-shown}
type Locator struct {
	mu      sync.Mutex
	log     *logger.Logger
	marker  orb.Point
	shown   bool
	shownAt time.Time
	now     func() time.Time
}

func NewLocator(log *logger.Logger) *Locator {
	return &Locator{
		log: log.With("component", "Locator"),
		now: time.Now,
	}
}

// Locate handles a position fix. A previous marker is always discarded; the
// new one shows only when the fix is within accuracy.
func (l *Locator) Locate(p orb.Point, accuracyMeters float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shown = false
	if accuracyMeters > markerAccuracyMax {
		l.log.Debug("locate fix rejected", "accuracy_m", accuracyMeters)
		return false
	}
	l.marker = p
	l.shown = true
	l.shownAt = l.now()
	return true
}

// Marker returns the temporary marker while it is shown and unexpired.
func (l *Locator) Marker() (orb.Point, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.shown {
		return orb.Point{}, false
	}
	if l.now().Sub(l.shownAt) > markerTTL {
		l.shown = false
		return orb.Point{}, false
	}
	return l.marker, true
}

// RecordPosition folds the shown marker into the geometry being drawn:
// appended as a vertex for lines and polygons, repositioning for a point.
// The marker clears afterwards; with no draw active nothing happens.
func (l *Locator) RecordPosition(mode DrawMode, g orb.Geometry) (orb.Geometry, bool) {
	p, ok := l.Marker()
	if !ok || mode == DrawNone {
		return g, false
	}

	var out orb.Geometry
	switch mode {
	case DrawPoint:
		out = p
	case DrawLine:
		line, _ := g.(orb.LineString)
		grown := make(orb.LineString, len(line), len(line)+1)
		copy(grown, line)
		out = append(grown, p)
	case DrawPolygon:
		poly, _ := g.(orb.Polygon)
		if len(poly) == 0 {
			poly = orb.Polygon{orb.Ring{}}
		}
		// Copy before extending so the caller's rings stay untouched.
		grown := make(orb.Polygon, len(poly))
		copy(grown, poly)
		ring := make(orb.Ring, len(poly[0]), len(poly[0])+1)
		copy(ring, poly[0])
		grown[0] = append(ring, p)
		out = grown
	default:
		return g, false
	}

	l.mu.Lock()
	l.shown = false
	l.mu.Unlock()
	return out, true
}
