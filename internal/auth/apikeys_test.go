package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"orgline/internal/auth"
	"orgline/internal/store"
	"orgline/internal/store/memstore"
)

func TestHashAPIKey(t *testing.T) {
	a := auth.HashAPIKey("ok_secret")
	b := auth.HashAPIKey("  ok_secret  ")
	if a != b {
		t.Fatalf("hash should ignore surrounding whitespace")
	}
	if a == auth.HashAPIKey("ok_other") {
		t.Fatalf("distinct keys should hash differently")
	}
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestIssueAndLookup(t *testing.T) {
	ctx := context.Background()
	keys := auth.Keys{Store: memstore.New(), Scope: "acme"}

	key, secret, err := keys.Issue(ctx, "ci-bot", "deploys")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(secret, "ok_") {
		t.Fatalf("secret = %q, want ok_ prefix", secret)
	}
	if key.KeyHash != auth.HashAPIKey(secret) {
		t.Fatalf("stored hash does not match secret")
	}

	found, err := keys.GetByHash(ctx, auth.HashAPIKey(secret))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != key.ID || found.ActorID != "ci-bot" || found.Name != "deploys" {
		t.Fatalf("unexpected key: %+v", found)
	}

	if _, err := keys.GetByHash(ctx, auth.HashAPIKey("ok_bogus")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("bogus lookup: %v", err)
	}

	if _, _, err := keys.Issue(ctx, "", ""); err == nil {
		t.Fatalf("issue without actor should fail")
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	keys := auth.Keys{Store: memstore.New(), Scope: "acme", Now: func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}}

	older, _, err := keys.Issue(ctx, "alice", "")
	if err != nil {
		t.Fatal(err)
	}
	newer, _, err := keys.Issue(ctx, "bob", "")
	if err != nil {
		t.Fatal(err)
	}

	all, err := keys.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}

	mine, err := keys.List(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].ID != older.ID {
		t.Fatalf("unexpected actor filter result: %+v", mine)
	}

	if err := keys.Delete(ctx, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := keys.Delete(ctx, older.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	left, err := keys.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 {
		t.Fatalf("keys left = %d, want 1", len(left))
	}
}
