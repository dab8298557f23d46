package postgres

import (
	"context"
	"sync"

	"github.com/uptrace/bun"
	"tony-trivia-service/internal/game"
)

// GameStore implements app.GameRepository with durable snapshots in
// Postgres. Live managers stay in memory, the same split the Redis store
// makes: the database never drives gameplay, it only lets a restarted
// instance restore games.
type GameStore struct {
	snapshots *SnapshotStore
	mu        sync.RWMutex
	games     map[string]*game.StateManager
}

func NewGameStore(db *bun.DB) *GameStore {
	return &GameStore{
		snapshots: NewSnapshotStore(db),
		games:     make(map[string]*game.StateManager),
	}
}

func (s *GameStore) GetOrCreate(gameID string, build func() *game.StateManager) (*game.StateManager, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mgr, ok := s.games[gameID]; ok {
		return mgr, false
	}
	mgr := build()
	s.games[gameID] = mgr
	return mgr, true
}

func (s *GameStore) Get(gameID string) (*game.StateManager, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mgr, ok := s.games[gameID]
	return mgr, ok
}

func (s *GameStore) Delete(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, gameID)
}

func (s *GameStore) SaveSnapshot(ctx context.Context, gameID, snapshot string) error {
	return s.snapshots.SaveSnapshot(ctx, gameID, snapshot)
}

func (s *GameStore) LoadSnapshot(ctx context.Context, gameID string) (string, error) {
	return s.snapshots.LoadSnapshot(ctx, gameID)
}
