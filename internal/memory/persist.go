package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/wkagent/pkg/models"
)

// Persister is a key-value backing store for the long-term snapshot.
// Load returns nil data and a nil error when key is absent.
type Persister interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Snapshot is the persisted form of long-term memory.
type Snapshot struct {
	LongTerm  []LongTermRecord   `json:"longTerm"`
	Stats     models.MemoryStats `json:"memoryStats"`
	Timestamp time.Time          `json:"timestamp"`
}

// Snapshot captures long-term memory and counters.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{LongTerm: m.long.Records(), Stats: m.stats, Timestamp: time.Now()}
}

// Persist mirrors the snapshot to the persister. Failures are logged and
// swallowed.
func (m *Manager) Persist(ctx context.Context) {
	if m.persister == nil {
		return
	}
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		m.log.Warn("failed to encode memory snapshot", "error", err)
		return
	}
	if err := m.persister.Save(ctx, m.cfg.PersistenceKey, data); err != nil {
		m.log.Warn("failed to persist memory", "error", err)
	}
}

// Restore loads the persisted snapshot, replacing long-term memory and
// merging the counters. A missing snapshot is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	if m.persister == nil {
		return nil
	}
	data, err := m.persister.Load(ctx, m.cfg.PersistenceKey)
	if err != nil {
		return fmt.Errorf("load memory snapshot: %w", err)
	}
	if data == nil {
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode memory snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.long.Clear()
	for _, r := range snap.LongTerm {
		m.long.Set(r.Key, r.Entry)
	}
	m.stats = snap.Stats
	m.log.Debug("memory restored", "longTerm", m.long.Len())
	return nil
}
