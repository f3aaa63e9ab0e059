package migrate_test

import (
	"testing"

	"orgline/internal/db"
	"orgline/internal/migrate"
)

func TestMigrateStampsVersionAndIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	v, err := migrate.Version(conn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v < 1 {
		t.Fatalf("schema version = %d, want >= 1", v)
	}

	// Running again applies nothing and keeps the version.
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	again, err := migrate.Version(conn)
	if err != nil {
		t.Fatal(err)
	}
	if again != v {
		t.Fatalf("version changed on rerun: %d -> %d", v, again)
	}

	// The nodes table exists and is usable.
	if _, err := conn.Exec(`INSERT INTO nodes(id,scope,kind,version,payload,created_at,updated_at) VALUES ('x','acme','department',1,'{}','t','t')`); err != nil {
		t.Fatalf("insert into nodes: %v", err)
	}
}
