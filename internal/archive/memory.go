package archive

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memrepo is used when no DATABASE_URL is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64
	byKey  map[string]*GameRecord
	all    []*GameRecord
}

func NewMemory() Repository {
	return &memrepo{byKey: make(map[string]*GameRecord)}
}

func (m *memrepo) InsertGame(_ context.Context, rec *GameRecord) (int64, error) {
	if rec == nil {
		return 0, ErrDuplicateGame
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := gameKey(rec.SessionID, rec.GameNo)
	if _, exists := m.byKey[key]; exists {
		return 0, ErrDuplicateGame
	}
	m.nextID++
	cp := copyRecord(rec)
	cp.ID = m.nextID
	m.byKey[key] = cp
	m.all = append(m.all, cp)
	return cp.ID, nil
}

func (m *memrepo) ListBySession(_ context.Context, sessionID string) ([]*GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*GameRecord, 0)
	for _, rec := range m.all {
		if rec.SessionID == sessionID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameNo < out[j].GameNo })
	return out, nil
}

func (m *memrepo) Recent(_ context.Context, limit int) ([]*GameRecord, error) {
	m.mu.RLock()
	items := append([]*GameRecord(nil), m.all...)
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]*GameRecord, len(items))
	for i, rec := range items {
		out[i] = copyRecord(rec)
	}
	return out, nil
}

func (m *memrepo) Close() error { return nil }

func copyRecord(rec *GameRecord) *GameRecord {
	cp := *rec
	cp.MovesUCI = append([]string(nil), rec.MovesUCI...)
	return &cp
}

func gameKey(sessionID string, gameNo int) string {
	return fmt.Sprintf("%s|%d", sessionID, gameNo)
}
