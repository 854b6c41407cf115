package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It uses a map for storage and RWMutex for thread-safe concurrent access.
// This implementation is suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu         sync.RWMutex
	targetings map[string]Targeting // id -> Targeting
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		targetings: make(map[string]Targeting),
	}
}

// ListTargetings retrieves the targetings of a programme.
func (m *MemoryStore) ListTargetings(ctx context.Context, programmeID string) ([]Targeting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Targeting, 0, len(m.targetings))
	for _, t := range m.targetings {
		if programmeID == "" || t.ProgrammeID == programmeID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// GetTargeting retrieves a single targeting by ID.
func (m *MemoryStore) GetTargeting(ctx context.Context, id string) (*Targeting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.targetings[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &t, nil
}

// UpsertTargeting creates or updates a targeting in memory.
func (m *MemoryStore) UpsertTargeting(ctx context.Context, params UpsertParams) (*Targeting, error) {
	def := ensureCriteriaInitialized(params.Definition)
	fingerprint, err := Fingerprint(def)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := now
	if existing, ok := m.targetings[id]; ok {
		createdAt = existing.CreatedAt
	}

	t := Targeting{
		ID:          id,
		Name:        params.Name,
		ProgrammeID: params.ProgrammeID,
		Description: params.Description,
		Definition:  def,
		Fingerprint: fingerprint,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}
	m.targetings[id] = t
	return &t, nil
}

// DeleteTargeting removes a targeting from memory.
func (m *MemoryStore) DeleteTargeting(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.targetings[id]
	delete(m.targetings, id)
	return exists, nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}
