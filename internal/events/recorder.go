package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"orgline/internal/domain"
	"orgline/internal/store"
)

// Recorder appends audit events through the store. Lifecycle transitions
// recorded here are the observation point for approval-task notifiers.
type Recorder struct {
	Store store.Store
	Now   func() time.Time
}

type Payload map[string]any

func (r Recorder) Append(ctx context.Context, evtType, company, chartID, entityKind, entityID, actorID string, payload Payload) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	evt := domain.Event{
		ID:         uuid.New().String(),
		TS:         ts,
		Type:       evtType,
		Company:    company,
		OrgChartID: chartID,
		EntityKind: entityKind,
		EntityID:   entityID,
		ActorID:    actorID,
		Payload:    payload,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	node := store.Node{
		ID:        evt.ID,
		Scope:     company,
		Kind:      domain.KindEvent,
		Index:     map[string]string{"org_chart_id": chartID, "type": evtType},
		Payload:   data,
		CreatedAt: ts,
		UpdatedAt: ts,
		CreatedBy: actorID,
		UpdatedBy: actorID,
	}
	_, err = r.Store.Put(ctx, node)
	return err
}

// List returns events for a company, optionally filtered by chart and type,
// oldest first.
func (r Recorder) List(ctx context.Context, company, chartID, evtType string) ([]domain.Event, error) {
	filter := store.Filter{}
	if chartID != "" {
		filter["org_chart_id"] = chartID
	}
	if evtType != "" {
		filter["type"] = evtType
	}
	nodes, err := r.Store.FindByKind(ctx, company, domain.KindEvent, filter)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Event, 0, len(nodes))
	for _, n := range nodes {
		var evt domain.Event
		if err := json.Unmarshal(n.Payload, &evt); err != nil {
			return nil, fmt.Errorf("unmarshal event %s: %w", n.ID, err)
		}
		res = append(res, evt)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].TS != res[j].TS {
			return res[i].TS < res[j].TS
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}
