package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"tony-trivia-service/internal/domain"
	"tony-trivia-service/internal/game"
)

// GameStore is a Redis-aware implementation of app.GameRepository.
// Notes:
//   - It keeps a local in-memory map of live managers so timers and the
//     in-process event bus keep working; Redis never drives gameplay.
//   - Redis marks game liveness and holds the exported snapshot, which lets
//     another instance restore the game after this one goes away.
type GameStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	games  map[string]*game.StateManager
}

func NewGameStore(client *redis.Client, ttl time.Duration) *GameStore {
	return &GameStore{
		client: client,
		ttl:    ttl,
		games:  make(map[string]*game.StateManager),
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.liveKey(gameID), "1", s.ttl).Err()
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
	if _, ok := s.games[gameID]; !ok {
		return
	}
	delete(s.games, gameID)
	_ = s.client.Del(context.Background(), s.liveKey(gameID)).Err()
}

// SaveSnapshot stores the exported manager snapshot and refreshes liveness.
func (s *GameStore) SaveSnapshot(ctx context.Context, gameID, snapshot string) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.snapshotKey(gameID), snapshot, s.ttl)
	pipe.Expire(ctx, s.liveKey(gameID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *GameStore) LoadSnapshot(ctx context.Context, gameID string) (string, error) {
	snapshot, err := s.client.Get(ctx, s.snapshotKey(gameID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrGameNotFound
	}
	if err != nil {
		return "", err
	}
	return snapshot, nil
}

func (s *GameStore) liveKey(gameID string) string {
	return "game:session:" + gameID
}

func (s *GameStore) snapshotKey(gameID string) string {
	return "game:" + gameID + ":snapshot"
}
