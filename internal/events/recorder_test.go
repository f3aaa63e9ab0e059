package events_test

import (
	"context"
	"testing"
	"time"

	"orgline/internal/events"
	"orgline/internal/store/memstore"
)

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := events.Recorder{Store: memstore.New(), Now: func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}}

	seq := []struct{ evtType, chart string }{
		{"chart.created", "c1"},
		{"department.created", "c1"},
		{"chart.created", "c2"},
		{"department.deleted", "c1"},
	}
	for _, s := range seq {
		if err := rec.Append(ctx, s.evtType, "acme", s.chart, "orgchart", "e-1", "tester", events.Payload{"n": 1}); err != nil {
			t.Fatalf("append %s: %v", s.evtType, err)
		}
	}

	all, err := rec.List(ctx, "acme", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("all events = %d, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].TS > all[i].TS {
			t.Fatalf("events out of order at %d", i)
		}
	}

	c1, err := rec.List(ctx, "acme", "c1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(c1) != 3 {
		t.Fatalf("c1 events = %d, want 3", len(c1))
	}

	created, err := rec.List(ctx, "acme", "c1", "chart.created")
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 || created[0].Type != "chart.created" {
		t.Fatalf("unexpected filtered events: %+v", created)
	}
	if created[0].ActorID != "tester" || created[0].Payload["n"] != float64(1) {
		t.Fatalf("unexpected event contents: %+v", created[0])
	}

	other, err := rec.List(ctx, "globex", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Fatalf("foreign scope events = %d, want 0", len(other))
	}
}
