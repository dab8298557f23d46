package app

import (
	"context"
	"log"
	"time"

	"tony-trivia-service/internal/domain"
	"tony-trivia-service/internal/game"
)

// GameRepository abstracts how live game managers are stored (in-memory,
// Redis-backed, etc). Snapshot persistence is best-effort: games keep running
// from memory even when the store is unavailable.
type GameRepository interface {
	GetOrCreate(gameID string, build func() *game.StateManager) (*game.StateManager, bool)
	Get(gameID string) (*game.StateManager, bool)
	Delete(gameID string)
	SaveSnapshot(ctx context.Context, gameID, snapshot string) error
	LoadSnapshot(ctx context.Context, gameID string) (string, error)
}

// PackRepository loads question pack content (from cache/backing store).
type PackRepository interface {
	GetPack(ctx context.Context, packID string) (domain.QuestionPack, error)
}

// GameService contains the core game use cases: creating games, routing
// actions into the right state manager, and exposing read models.
type GameService struct {
	games GameRepository
	packs PackRepository
	cfg   game.Config
	now   func() time.Time
}

func NewGameService(games GameRepository, packs PackRepository, cfg game.Config) *GameService {
	return &GameService{games: games, packs: packs, cfg: cfg, now: time.Now}
}

// CreateGame builds the manager tree for a new game from its question pack.
// Creating an already-existing game id returns the existing game's state.
func (s *GameService) CreateGame(ctx context.Context, gameID, roomID, hostID, packID string) (domain.GameState, error) {
	pack, err := s.packs.GetPack(ctx, packID)
	if err != nil {
		return domain.GameState{}, err
	}

	mgr, created := s.games.GetOrCreate(gameID, func() *game.StateManager {
		return game.NewStateManager(gameID, roomID, hostID, pack, s.cfg)
	})
	if created {
		s.persist(ctx, mgr)
	}
	return mgr.Snapshot(), nil
}

// RestoreGame rebuilds a game manager from its persisted snapshot. The pack
// must still be loadable; round content is not part of the snapshot.
func (s *GameService) RestoreGame(ctx context.Context, gameID, roomID, hostID, packID string) (domain.GameState, error) {
	snapshot, err := s.games.LoadSnapshot(ctx, gameID)
	if err != nil {
		return domain.GameState{}, err
	}
	pack, err := s.packs.GetPack(ctx, packID)
	if err != nil {
		return domain.GameState{}, err
	}

	mgr, created := s.games.GetOrCreate(gameID, func() *game.StateManager {
		return game.NewStateManager(gameID, roomID, hostID, pack, s.cfg)
	})
	if created {
		if err := mgr.Import(snapshot); err != nil {
			mgr.Destroy()
			s.games.Delete(gameID)
			return domain.GameState{}, err
		}
	}
	return mgr.Snapshot(), nil
}

// ExecuteAction dispatches one action into its game and persists the updated
// snapshot. The returned state reflects the action's effects.
func (s *GameService) ExecuteAction(ctx context.Context, action domain.Action) (domain.GameState, error) {
	if action == nil {
		return domain.GameState{}, domain.ErrUnknownAction
	}
	mgr, ok := s.games.Get(action.Base().GameID)
	if !ok {
		return domain.GameState{}, domain.ErrGameNotFound
	}
	if err := mgr.Dispatch(ctx, action); err != nil {
		return domain.GameState{}, err
	}
	s.persist(ctx, mgr)
	return mgr.Snapshot(), nil
}

// JoinPlayer registers a player in the game and returns the updated state.
func (s *GameService) JoinPlayer(ctx context.Context, gameID, playerID, name string) (domain.GameState, error) {
	return s.ExecuteAction(ctx, domain.AddPlayer{
		ActionBase: domain.ActionBase{GameID: gameID, Timestamp: s.now()},
		PlayerID:   playerID,
		Name:       name,
	})
}

// LeavePlayer drops a player's registration and scores.
func (s *GameService) LeavePlayer(ctx context.Context, gameID, playerID string) (domain.GameState, error) {
	return s.ExecuteAction(ctx, domain.RemovePlayer{
		ActionBase: domain.ActionBase{GameID: gameID, Timestamp: s.now()},
		PlayerID:   playerID,
	})
}

// State returns the current snapshot of a game.
func (s *GameService) State(_ context.Context, gameID string) (domain.GameState, error) {
	mgr, ok := s.games.Get(gameID)
	if !ok {
		return domain.GameState{}, domain.ErrGameNotFound
	}
	return mgr.Snapshot(), nil
}

// Leaderboard returns the current ranked scoreboard for a game.
func (s *GameService) Leaderboard(_ context.Context, gameID string) (domain.Leaderboard, error) {
	mgr, ok := s.games.Get(gameID)
	if !ok {
		return domain.Leaderboard{}, domain.ErrGameNotFound
	}
	return mgr.Scores().GetLeaderboard(), nil
}

// RoundStats summarizes scoring for one round of a game.
func (s *GameService) RoundStats(_ context.Context, gameID string, roundNumber int) (domain.RoundStatistics, error) {
	mgr, ok := s.games.Get(gameID)
	if !ok {
		return domain.RoundStatistics{}, domain.ErrGameNotFound
	}
	return mgr.Scores().GetRoundStatistics(roundNumber), nil
}

// EventLog returns the append-only event history of a game.
func (s *GameService) EventLog(_ context.Context, gameID string) ([]domain.GameEvent, error) {
	mgr, ok := s.games.Get(gameID)
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return mgr.EventLog(), nil
}

// Submissions lists a game's recorded submissions, earliest first.
func (s *GameService) Submissions(_ context.Context, gameID string) ([]domain.Submission, error) {
	mgr, ok := s.games.Get(gameID)
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return mgr.Submissions().GetAllSubmissions(), nil
}

// SubscribeState returns a channel that receives game state snapshots after
// every successful transition. The caller must invoke the returned cancel
// function to avoid leaks. Slow consumers see the freshest snapshot; stale
// intermediate ones are dropped.
func (s *GameService) SubscribeState(_ context.Context, gameID string) (<-chan domain.GameState, func(), error) {
	mgr, ok := s.games.Get(gameID)
	if !ok {
		return nil, nil, domain.ErrGameNotFound
	}

	ch := make(chan domain.GameState, 8)
	unsubscribe := mgr.SubscribeState(func(state domain.GameState) {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	})
	ch <- mgr.Snapshot()

	cancel := func() {
		unsubscribe()
	}
	return ch, cancel, nil
}

// SubscribeEvents returns a channel carrying the game's domain events.
func (s *GameService) SubscribeEvents(_ context.Context, gameID string) (<-chan domain.GameEvent, func(), error) {
	mgr, ok := s.games.Get(gameID)
	if !ok {
		return nil, nil, domain.ErrGameNotFound
	}

	ch := make(chan domain.GameEvent, 16)
	unsubscribe := mgr.SubscribeEvents(func(evt domain.GameEvent) {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- evt
		}
	})

	cancel := func() {
		unsubscribe()
	}
	return ch, cancel, nil
}

// DestroyGame tears down the manager tree and removes the live game. The
// persisted snapshot stays in the store for a later RestoreGame.
func (s *GameService) DestroyGame(ctx context.Context, gameID string) error {
	mgr, ok := s.games.Get(gameID)
	if !ok {
		return domain.ErrGameNotFound
	}
	s.persist(ctx, mgr)
	mgr.Destroy()
	s.games.Delete(gameID)
	return nil
}

func (s *GameService) persist(ctx context.Context, mgr *game.StateManager) {
	snapshot, err := mgr.Export()
	if err != nil {
		log.Printf("export game %s: %v", mgr.GameID(), err)
		return
	}
	if err := s.games.SaveSnapshot(ctx, mgr.GameID(), snapshot); err != nil {
		log.Printf("persist game %s: %v", mgr.GameID(), err)
	}
}
