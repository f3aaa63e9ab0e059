package sqlstore_test

import (
	"context"
	"errors"
	"testing"

	"orgline/internal/db"
	"orgline/internal/migrate"
	"orgline/internal/store"
	"orgline/internal/store/sqlstore"
)

func newSQLStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return sqlstore.New(conn)
}

func node(id, scope, kind string) store.Node {
	return store.Node{
		ID:      id,
		Scope:   scope,
		Kind:    kind,
		Index:   map[string]string{"org_chart_id": "c1"},
		Payload: []byte(`{}`),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	st := newSQLStore(t)
	ctx := context.Background()

	saved, err := st.Put(ctx, node("a", "acme", "department"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if saved.Version != 1 {
		t.Fatalf("version after insert = %d, want 1", saved.Version)
	}

	got, err := st.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != "department" || got.Index["org_chart_id"] != "c1" || string(got.Payload) != "{}" {
		t.Fatalf("unexpected node: %+v", got)
	}

	got.Payload = []byte(`{"title":"Finance"}`)
	updated, err := st.Put(ctx, got)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("version after update = %d, want 2", updated.Version)
	}
}

func TestVersionConflicts(t *testing.T) {
	st := newSQLStore(t)
	ctx := context.Background()

	saved, err := st.Put(ctx, node("a", "acme", "department"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.Put(ctx, node("a", "acme", "department")); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate insert: %v", err)
	}

	stale := saved
	if _, err := st.Put(ctx, saved); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Put(ctx, stale); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("stale update: %v", err)
	}

	ghost := node("ghost", "acme", "department")
	ghost.Version = 7
	if _, err := st.Put(ctx, ghost); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update of missing id: %v", err)
	}
}

func TestRemoveAndFind(t *testing.T) {
	st := newSQLStore(t)
	ctx := context.Background()

	if _, err := st.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}

	for _, id := range []string{"d1", "d2"} {
		if _, err := st.Put(ctx, node(id, "acme", "department")); err != nil {
			t.Fatal(err)
		}
	}
	other := node("d3", "acme", "department")
	other.Index = map[string]string{"org_chart_id": "c2"}
	if _, err := st.Put(ctx, other); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Put(ctx, node("p1", "acme", "position")); err != nil {
		t.Fatal(err)
	}

	all, err := st.FindByKind(ctx, "acme", "department", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("departments = %d, want 3", len(all))
	}
	filtered, err := st.FindByKind(ctx, "acme", "department", store.Filter{"org_chart_id": "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 2 {
		t.Fatalf("filtered = %d, want 2", len(filtered))
	}

	if err := st.Remove(ctx, "d1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := st.Get(ctx, "d1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after remove: %v", err)
	}
	// Removing an absent id is not an error.
	if err := st.Remove(ctx, "d1"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}
