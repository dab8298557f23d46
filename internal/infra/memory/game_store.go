package memory

import (
	"context"
	"sync"

	"tony-trivia-service/internal/domain"
	"tony-trivia-service/internal/game"
)

// GameStore is an in-memory implementation of app.GameRepository. Snapshots
// live in the same process, so they survive DestroyGame but not a restart.
type GameStore struct {
	mu        sync.RWMutex
	games     map[string]*game.StateManager
	snapshots map[string]string
}

func NewGameStore() *GameStore {
	return &GameStore{
		games:     make(map[string]*game.StateManager),
		snapshots: make(map[string]string),
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

func (s *GameStore) SaveSnapshot(_ context.Context, gameID, snapshot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[gameID] = snapshot
	return nil
}

func (s *GameStore) LoadSnapshot(_ context.Context, gameID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[gameID]
	if !ok {
		return "", domain.ErrGameNotFound
	}
	return snapshot, nil
}
