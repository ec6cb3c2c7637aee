package record

import (
	"encoding/json"
	"time"

	"github.com/openexcavate/fieldbook-backend/internal/chrono"
)

// Field mutators. Each is a pure function of (new value, record) returning a
// record that is reference-distinct from its input and differs only in the
// targeted key, so they unit-test without any UI or store attached.

// Option is one choice offered by an autocomplete/select field. Vocabulary
// terms are addressed by uuid; free-form choices only carry a value.
type Option struct {
	UUID  string `json:"uuid,omitempty"`
	Value any    `json:"value,omitempty"`
	Label string `json:"label,omitempty"`
}

// SetInput applies a text-field change. The raw string is tried as JSON
// first so a field can hold structured data typed as JSON text; if parsing
// fails the raw string is kept as-is. An empty string normalizes to nil.
func SetInput(r Record, key, raw string) Record {
	if raw == "" {
		return r.With(key, nil)
	}
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return r.With(key, parsed)
	}
	return r.With(key, raw)
}

func SetCheck(r Record, key string, checked bool) Record {
	return r.With(key, checked)
}

// SetDate stores the instant as an ISO-8601 timestamp string.
func SetDate(r Record, key string, t time.Time) Record {
	return r.With(key, t.UTC().Format(time.RFC3339))
}

// SetDateRange stores a two-date selection as the half-open range literal.
func SetDateRange(r Record, key, start, end string) Record {
	return r.With(key, chrono.FormatDateRange(start, end))
}

// SetAutocomplete stores the selection's uuid when it has one, else its
// value, else the selection itself. A cleared selection stores nil.
func SetAutocomplete(r Record, key string, sel any) Record {
	return r.With(key, selectionValue(sel))
}

// SetMultiAutocomplete stores the uuid/value of each selection, or nil when
// the whole selection was cleared.
func SetMultiAutocomplete(r Record, key string, sels []any) Record {
	if sels == nil {
		return r.With(key, nil)
	}
	out := make([]any, 0, len(sels))
	for _, sel := range sels {
		out = append(out, selectionValue(sel))
	}
	return r.With(key, out)
}

// SetArray assigns the value verbatim under the key.
func SetArray(r Record, key string, v any) Record {
	return r.With(key, v)
}

func selectionValue(sel any) any {
	switch s := sel.(type) {
	case nil:
		return nil
	case Option:
		if s.UUID != "" {
			return s.UUID
		}
		if s.Value != nil {
			return s.Value
		}
		return s
	case *Option:
		if s == nil {
			return nil
		}
		return selectionValue(*s)
	case map[string]any:
		if u, ok := s[KeyUUID]; ok && u != nil && u != "" {
			return u
		}
		if v, ok := s["value"]; ok {
			return v
		}
		return s
	default:
		return sel
	}
}
