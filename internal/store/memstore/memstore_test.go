package memstore_test

import (
	"context"
	"errors"
	"testing"

	"orgline/internal/store"
	"orgline/internal/store/memstore"
)

func node(id, scope, kind string) store.Node {
	return store.Node{
		ID:      id,
		Scope:   scope,
		Kind:    kind,
		Payload: []byte(`{}`),
	}
}

func TestPutInsertAndVersion(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	saved, err := st.Put(ctx, node("a", "acme", "department"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if saved.Version != 1 {
		t.Fatalf("version after insert = %d, want 1", saved.Version)
	}

	// A second zero-version put of the same id is a conflicting insert.
	if _, err := st.Put(ctx, node("a", "acme", "department")); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate insert: %v", err)
	}

	saved.Payload = []byte(`{"title":"Finance"}`)
	saved, err = st.Put(ctx, saved)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if saved.Version != 2 {
		t.Fatalf("version after update = %d, want 2", saved.Version)
	}
}

func TestPutStaleVersionConflicts(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	saved, err := st.Put(ctx, node("a", "acme", "department"))
	if err != nil {
		t.Fatal(err)
	}
	stale := saved
	if _, err := st.Put(ctx, saved); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Put(ctx, stale); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("stale update: %v", err)
	}
}

func TestPutMissingIDWithVersion(t *testing.T) {
	st := memstore.New()
	n := node("ghost", "acme", "department")
	n.Version = 3
	if _, err := st.Put(context.Background(), n); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update of missing id: %v", err)
	}
}

func TestGetAndRemove(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	if _, err := st.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	if _, err := st.Put(ctx, node("a", "acme", "department")); err != nil {
		t.Fatal(err)
	}
	got, err := st.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "a" || got.Kind != "department" {
		t.Fatalf("unexpected node: %+v", got)
	}

	if err := st.Remove(ctx, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := st.Get(ctx, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after remove: %v", err)
	}
	// Removing an absent id is not an error.
	if err := st.Remove(ctx, "a"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestFindByKind(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	for _, tc := range []struct {
		id, scope, kind, chart string
	}{
		{"d1", "acme", "department", "c1"},
		{"d2", "acme", "department", "c2"},
		{"p1", "acme", "position", "c1"},
		{"d3", "other", "department", "c1"},
	} {
		n := node(tc.id, tc.scope, tc.kind)
		n.Index = map[string]string{"org_chart_id": tc.chart}
		if _, err := st.Put(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	all, err := st.FindByKind(ctx, "acme", "department", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("departments in scope = %d, want 2", len(all))
	}

	filtered, err := st.FindByKind(ctx, "acme", "department", store.Filter{"org_chart_id": "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].ID != "d1" {
		t.Fatalf("unexpected filtered result: %+v", filtered)
	}

	none, err := st.FindByKind(ctx, "acme", "department", store.Filter{"org_chart_id": "c9"})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %d", len(none))
	}
}

func TestReturnedNodesAreIsolated(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	n := node("a", "acme", "department")
	n.Index = map[string]string{"code": "FIN"}
	saved, err := st.Put(ctx, n)
	if err != nil {
		t.Fatal(err)
	}

	// Mutating what Put returned must not leak into the store.
	saved.Payload[0] = 'X'
	saved.Index["code"] = "HAX"

	got, err := st.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Payload) != "{}" {
		t.Fatalf("payload mutated through returned copy: %q", got.Payload)
	}
	if got.Index["code"] != "FIN" {
		t.Fatalf("index mutated through returned copy: %q", got.Index["code"])
	}

	// Same for Get.
	got.Payload[0] = 'Y'
	again, err := st.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if string(again.Payload) != "{}" {
		t.Fatalf("payload mutated through Get copy: %q", again.Payload)
	}
}
