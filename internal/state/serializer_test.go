package state

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

type fakeObj struct{ id string }

func (f *fakeObj) ID() string { return f.id }

type fakeRegistry map[string]*fakeObj

func (r fakeRegistry) Lookup(id string) (Ref, bool) {
	o, ok := r[id]
	return o, ok
}

func TestMarshalReplacesObjectsWithRefs(t *testing.T) {
	obj := &fakeObj{id: "7"}
	v := map[string]any{
		"current": obj,
		"list":    []any{obj, 1},
		"plain":   "text",
	}

	out := Marshal(v).(map[string]any)
	ref, ok := out["current"].(map[string]any)
	if !ok || ref[RefKey] != "7" {
		t.Errorf("Expected ref token for current, got %v", out["current"])
	}
	list := out["list"].([]any)
	if !IsRef(list[0]) {
		t.Errorf("Expected ref token inside list, got %v", list[0])
	}
	if out["plain"] != "text" {
		t.Errorf("Expected scalar passed through, got %v", out["plain"])
	}
}

func TestMarshalCopiesContainers(t *testing.T) {
	src := map[string]any{"inner": map[string]any{"x": 1}}
	out := Marshal(src).(map[string]any)

	out["inner"].(map[string]any)["x"] = 99
	if src["inner"].(map[string]any)["x"] != 1 {
		t.Error("Expected Marshal to deep-copy maps, source was mutated")
	}
}

func TestResolveRefs(t *testing.T) {
	reg := fakeRegistry{"3": {id: "3"}}

	resolved, err := ResolveRefs(map[string]any{
		"target": RefTo("3"),
		"amount": 2.0,
	}, reg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	m := resolved.(map[string]any)
	if m["target"] != reg["3"] {
		t.Errorf("Expected live object, got %v", m["target"])
	}
	if m["amount"] != 2.0 {
		t.Errorf("Expected scalar untouched, got %v", m["amount"])
	}
}

func TestResolveRefsUnknown(t *testing.T) {
	reg := fakeRegistry{}
	_, err := ResolveRefs([]any{RefTo("404")}, reg)
	if !errors.Is(err, ErrUnknownRef) {
		t.Errorf("Expected ErrUnknownRef, got %v", err)
	}
}

func TestRemovedTokenJSON(t *testing.T) {
	b, err := json.Marshal(map[string]any{"gone": Removed})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := `{"gone":"&removed"}`
	if string(b) != want {
		t.Errorf("Expected %s, got %s", want, b)
	}
}

func TestIsRef(t *testing.T) {
	if !IsRef(RefTo("1")) {
		t.Error("Expected RefTo result to be a ref")
	}
	if IsRef(map[string]any{RefKey: "1", "extra": true}) {
		t.Error("Expected map with extra keys not to be a ref")
	}
	if IsRef("plain") {
		t.Error("Expected scalar not to be a ref")
	}
}

func TestMarshalSliceDeepEqual(t *testing.T) {
	in := []any{1, "two", []any{3}}
	out := Marshal(in)
	if !reflect.DeepEqual(out, in) {
		t.Errorf("Expected structural copy, got %v", out)
	}
}
