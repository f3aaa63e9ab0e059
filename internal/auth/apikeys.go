package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"orgline/internal/domain"
	"orgline/internal/store"
)

// HashAPIKey returns a stable SHA-256 hex digest for the provided key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// Keys manages API keys for a company. Keys are stored hashed, never in
// clear; the clear secret is returned exactly once at issue time.
type Keys struct {
	Store store.Store
	Scope string
	Now   func() time.Time
}

func (k Keys) now() time.Time {
	if k.Now != nil {
		return k.Now()
	}
	return time.Now()
}

// Issue creates a new key for an actor and returns it together with the
// clear secret.
func (k Keys) Issue(ctx context.Context, actorID, name string) (domain.APIKey, string, error) {
	if actorID == "" {
		return domain.APIKey{}, "", errors.New("actor_id required")
	}
	secret := "ok_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	ts := k.now().UTC().Format(time.RFC3339)
	key := domain.APIKey{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   HashAPIKey(secret),
		CreatedAt: ts,
	}
	payload, err := json.Marshal(key)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	_, err = k.Store.Put(ctx, store.Node{
		ID:        key.ID,
		Scope:     k.Scope,
		Kind:      domain.KindAPIKey,
		Index:     map[string]string{"key_hash": key.KeyHash, "actor_id": key.ActorID},
		Payload:   payload,
		CreatedAt: ts,
		UpdatedAt: ts,
		CreatedBy: actorID,
		UpdatedBy: actorID,
	})
	if err != nil {
		return domain.APIKey{}, "", err
	}
	return key, secret, nil
}

// GetByHash looks a key up by its hashed value.
func (k Keys) GetByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	nodes, err := k.Store.FindByKind(ctx, k.Scope, domain.KindAPIKey, store.Filter{"key_hash": hash})
	if err != nil {
		return domain.APIKey{}, err
	}
	if len(nodes) == 0 {
		return domain.APIKey{}, store.ErrNotFound
	}
	var key domain.APIKey
	if err := json.Unmarshal(nodes[0].Payload, &key); err != nil {
		return domain.APIKey{}, fmt.Errorf("unmarshal api key %s: %w", nodes[0].ID, err)
	}
	return key, nil
}

// List returns keys, optionally filtered by actor.
func (k Keys) List(ctx context.Context, actorID string) ([]domain.APIKey, error) {
	var filter store.Filter
	if actorID != "" {
		filter = store.Filter{"actor_id": actorID}
	}
	nodes, err := k.Store.FindByKind(ctx, k.Scope, domain.KindAPIKey, filter)
	if err != nil {
		return nil, err
	}
	keys := make([]domain.APIKey, 0, len(nodes))
	for _, n := range nodes {
		var key domain.APIKey
		if err := json.Unmarshal(n.Payload, &key); err != nil {
			return nil, fmt.Errorf("unmarshal api key %s: %w", n.ID, err)
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt > keys[j].CreatedAt })
	return keys, nil
}

// Delete removes a key by ID. Missing keys are not an error.
func (k Keys) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	err := k.Store.Remove(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
