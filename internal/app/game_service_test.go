package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tony-trivia-service/internal/app"
	"tony-trivia-service/internal/domain"
	"tony-trivia-service/internal/game"
	"tony-trivia-service/internal/infra/memory"
)

func newTestService() (*app.GameService, *memory.GameStore) {
	store := memory.NewGameStore()
	packs := memory.NewPackRepository(memory.NewStaticPackLoader(map[string]domain.QuestionPack{
		"pack-1": samplePack(),
	}), time.Minute)
	return app.NewGameService(store, packs, game.DefaultConfig()), store
}

func samplePack() domain.QuestionPack {
	return domain.QuestionPack{
		ID:    "pack-1",
		Title: "General Knowledge",
		Rounds: []domain.Round{
			{
				Type:        domain.RoundStandard,
				PointValues: []int{1, 3, 5},
				Questions: []domain.Question{
					{ID: "q1", Prompt: "Capital of France?", Type: domain.QuestionText, CorrectAnswer: "Paris", TimeLimitSec: 30},
				},
			},
		},
	}
}

func stamp(gameID string) domain.ActionBase {
	return domain.ActionBase{GameID: gameID, Timestamp: time.Now()}
}

func TestCreateGameLoadsPack(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	state, err := service.CreateGame(ctx, "g1", "room-1", "host-1", "pack-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if state.Phase != domain.PhasePreGame || state.RoundCount != 1 {
		t.Fatalf("unexpected initial state %+v", state)
	}

	// Creating the same game again returns the existing one.
	if _, err := service.JoinPlayer(ctx, "g1", "u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	state, err = service.CreateGame(ctx, "g1", "room-1", "host-1", "pack-1")
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if state.Version == 0 {
		t.Fatalf("expected existing game returned, got fresh state %+v", state)
	}

	if _, err := service.CreateGame(ctx, "g2", "room-2", "host-1", "missing"); !errors.Is(err, domain.ErrPackNotFound) {
		t.Fatalf("expected ErrPackNotFound, got %v", err)
	}
}

func TestExecuteActionFlow(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if _, err := service.CreateGame(ctx, "g1", "room-1", "host-1", "pack-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.JoinPlayer(ctx, "g1", "u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	state, err := service.ExecuteAction(ctx, domain.StartGame{ActionBase: stamp("g1")})
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if state.Phase != domain.PhaseRoundIntro {
		t.Fatalf("expected round-intro, got %s", state.Phase)
	}

	if _, err := service.ExecuteAction(ctx, domain.StartRound{ActionBase: stamp("g1"), Number: 1}); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if _, err := service.ExecuteAction(ctx, domain.PresentQuestion{ActionBase: stamp("g1"), Index: 0}); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := service.ExecuteAction(ctx, domain.SubmitAnswer{
		ActionBase: stamp("g1"), ParticipantID: "u1", QuestionID: "q1", Answer: "paris", PointValue: 5,
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.ExecuteAction(ctx, domain.LockAnswers{ActionBase: stamp("g1")}); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := service.ExecuteAction(ctx, domain.RevealAnswers{ActionBase: stamp("g1")}); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	lb, err := service.Leaderboard(ctx, "g1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].Score != 5 {
		t.Fatalf("expected Alice with 5 points, got %+v", lb.Entries)
	}

	stats, err := service.RoundStats(ctx, "g1", 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Participants != 1 || stats.Highest != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	subs, err := service.Submissions(ctx, "g1")
	if err != nil || len(subs) != 1 {
		t.Fatalf("expected 1 submission, got %v %v", subs, err)
	}
}

func TestExecuteActionUnknownGame(t *testing.T) {
	service, _ := newTestService()
	_, err := service.ExecuteAction(context.Background(), domain.StartGame{ActionBase: stamp("nope")})
	if !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestSubscribeStateReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if _, err := service.CreateGame(ctx, "g1", "room-1", "host-1", "pack-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	ch, cancel, err := service.SubscribeState(ctx, "g1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	if _, err := service.JoinPlayer(ctx, "g1", "u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	select {
	case state := <-ch:
		if state.Version == 0 {
			t.Fatalf("expected version bump, got %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for state update")
	}
}

func TestSubscribeEventsSeesActionFailures(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if _, err := service.CreateGame(ctx, "g1", "room-1", "host-1", "pack-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	ch, cancel, err := service.SubscribeEvents(ctx, "g1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	// Starting with no participants fails and lands on the event feed.
	_, err = service.ExecuteAction(ctx, domain.StartGame{ActionBase: stamp("g1")})
	if err == nil || !strings.Contains(err.Error(), "players or teams") {
		t.Fatalf("expected participant error, got %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Type != domain.EventActionFailed {
			t.Fatalf("expected action-failed, got %s", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestRestoreGameFromSnapshot(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	if _, err := service.CreateGame(ctx, "g1", "room-1", "host-1", "pack-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.JoinPlayer(ctx, "g1", "u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.ExecuteAction(ctx, domain.StartGame{ActionBase: stamp("g1")}); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := service.DestroyGame(ctx, "g1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, ok := store.Get("g1"); ok {
		t.Fatalf("expected live game removed")
	}

	state, err := service.RestoreGame(ctx, "g1", "room-1", "host-1", "pack-1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if state.Phase != domain.PhaseRoundIntro || !state.IsActive {
		t.Fatalf("unexpected restored state %+v", state)
	}
	// The restored game keeps playing.
	if _, err := service.ExecuteAction(ctx, domain.StartRound{ActionBase: stamp("g1"), Number: 1}); err != nil {
		t.Fatalf("start round after restore: %v", err)
	}
}
