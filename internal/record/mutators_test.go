package record

import (
	"reflect"
	"testing"
	"time"
)

func TestMutatorsReturnDistinctSingleKeyDelta(t *testing.T) {
	base := Record{"existing": "kept", "count": 3}
	muts := map[string]func() Record{
		"SetInput": func() Record { return SetInput(base, "k", "v") },
		"SetCheck": func() Record { return SetCheck(base, "k", true) },
		"SetDate":  func() Record { return SetDate(base, "k", time.Unix(0, 0)) },
		"SetRange": func() Record { return SetDateRange(base, "k", "2012-06-01", "2013-09-15") },
		"SetAuto":  func() Record { return SetAutocomplete(base, "k", Option{UUID: "u"}) },
		"SetMulti": func() Record { return SetMultiAutocomplete(base, "k", []any{Option{UUID: "u"}}) },
		"SetArray": func() Record { return SetArray(base, "k", []int{1}) },
	}
	for name, mut := range muts {
		got := mut()
		if reflect.ValueOf(got).Pointer() == reflect.ValueOf(base).Pointer() {
			t.Fatalf("%s: result aliases input", name)
		}
		if got["existing"] != "kept" || got["count"] != 3 {
			t.Fatalf("%s: untouched keys changed: %v", name, got)
		}
		if len(got) != len(base)+1 {
			t.Fatalf("%s: want exactly one new key, got %v", name, got)
		}
		if _, ok := base["k"]; ok {
			t.Fatalf("%s: input mutated: %v", name, base)
		}
	}
}

func TestSetInput(t *testing.T) {
	r := SetInput(Record{}, "f", "")
	if v, ok := r["f"]; !ok || v != nil {
		t.Fatalf("empty string should store nil, got %#v", r["f"])
	}
	r = SetInput(Record{}, "f", `{"a":1}`)
	obj, ok := r["f"].(map[string]any)
	if !ok || obj["a"] != float64(1) {
		t.Fatalf("json input should parse, got %#v", r["f"])
	}
	r = SetInput(Record{}, "f", `{invalid`)
	if r["f"] != `{invalid` {
		t.Fatalf("malformed json should stay a string, got %#v", r["f"])
	}
	r = SetInput(Record{}, "f", "plain text")
	if r["f"] != "plain text" {
		t.Fatalf("plain text mangled: %#v", r["f"])
	}
}

func TestSetAutocomplete(t *testing.T) {
	r := SetAutocomplete(Record{}, "f", Option{UUID: "U", Value: "V"})
	if r["f"] != "U" {
		t.Fatalf("uuid should win, got %#v", r["f"])
	}
	r = SetAutocomplete(Record{}, "f", Option{Value: "V"})
	if r["f"] != "V" {
		t.Fatalf("value fallback, got %#v", r["f"])
	}
	r = SetAutocomplete(Record{}, "f", nil)
	if v, ok := r["f"]; !ok || v != nil {
		t.Fatalf("nil selection should store nil, got %#v", r["f"])
	}
	r = SetAutocomplete(Record{}, "f", map[string]any{"uuid": "mu", "value": "mv"})
	if r["f"] != "mu" {
		t.Fatalf("map uuid should win, got %#v", r["f"])
	}
	r = SetAutocomplete(Record{}, "f", "raw")
	if r["f"] != "raw" {
		t.Fatalf("raw selection passes through, got %#v", r["f"])
	}
}

func TestSetMultiAutocomplete(t *testing.T) {
	r := SetMultiAutocomplete(Record{}, "f", []any{Option{UUID: "A"}, Option{Value: "B"}})
	got, ok := r["f"].([]any)
	if !ok || len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("got %#v", r["f"])
	}
	r = SetMultiAutocomplete(Record{}, "f", nil)
	if v, ok := r["f"]; !ok || v != nil {
		t.Fatalf("nil selection should store nil, got %#v", r["f"])
	}
	r = SetMultiAutocomplete(Record{}, "f", []any{})
	if got, ok := r["f"].([]any); !ok || len(got) != 0 {
		t.Fatalf("empty selection should store empty slice, got %#v", r["f"])
	}
}

func TestSetDateRange(t *testing.T) {
	r := SetDateRange(Record{}, "dates", "2012-06-01", "2013-09-15")
	if r["dates"] != `["2012-06-01","2013-09-15")` {
		t.Fatalf("got %#v", r["dates"])
	}
}

func TestUUIDImmutable(t *testing.T) {
	r := NewWithID()
	id := r.UUID()
	if id == "" {
		t.Fatalf("expected client-side uuid")
	}
	r2 := r.With(KeyUUID, "other")
	if r2.UUID() != id {
		t.Fatalf("uuid overwritten: %q", r2.UUID())
	}
}

func TestStrip(t *testing.T) {
	r := Record{"uuid": "u", "name": "n", "trench_label": "joined"}
	got := r.Strip("trench_label", "missing")
	if _, ok := got["trench_label"]; ok {
		t.Fatalf("derived key kept: %v", got)
	}
	if got["uuid"] != "u" || got["name"] != "n" {
		t.Fatalf("real columns dropped: %v", got)
	}
	if _, ok := r["trench_label"]; !ok {
		t.Fatalf("input mutated")
	}
}

func TestValidateHelpers(t *testing.T) {
	if msg := ValidateInteger("12"); msg != "" {
		t.Fatalf("12 flagged: %q", msg)
	}
	if msg := ValidateInteger("1.5"); msg == "" {
		t.Fatalf("1.5 not flagged")
	}
	if msg := ValidateInteger(""); msg != "" {
		t.Fatalf("empty flagged: %q", msg)
	}
	if msg := ValidatePercent("101"); msg == "" {
		t.Fatalf("101 not flagged")
	}
	if msg := ValidatePercent("99.5"); msg != "" {
		t.Fatalf("99.5 flagged: %q", msg)
	}
}
