package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tony-trivia-service/internal/domain"
)

func TestPackRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		PackLoader: NewStaticPackLoader(map[string]domain.QuestionPack{
			"pack-1": samplePack(),
		}),
	}
	repo := NewPackRepository(loader, time.Minute)

	if _, err := repo.GetPack(context.Background(), "pack-1"); err != nil {
		t.Fatalf("get pack: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetPack(context.Background(), "pack-1"); err != nil {
		t.Fatalf("get pack 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestPackRepositoryUnknownPack(t *testing.T) {
	repo := NewPackRepository(NewStaticPackLoader(nil), time.Minute)
	_, err := repo.GetPack(context.Background(), "missing")
	if !errors.Is(err, domain.ErrPackNotFound) {
		t.Fatalf("expected ErrPackNotFound, got %v", err)
	}
}

type countingLoader struct {
	PackLoader
	calls int
}

func (l *countingLoader) LoadPack(ctx context.Context, packID string) (domain.QuestionPack, error) {
	l.calls++
	return l.PackLoader.LoadPack(ctx, packID)
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
					{ID: "q1", Prompt: "Capital of France?", Type: domain.QuestionText, CorrectAnswer: "Paris"},
				},
			},
		},
	}
}
