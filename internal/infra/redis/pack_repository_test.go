package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"tony-trivia-service/internal/domain"
	"tony-trivia-service/internal/infra/memory"
)

func TestPackRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		PackLoader: memory.NewStaticPackLoader(map[string]domain.QuestionPack{
			"pack-1": samplePack(),
		}),
	}
	repo := NewPackRepository(client, loader, time.Minute)

	pack, err := repo.GetPack(context.Background(), "pack-1")
	if err != nil {
		t.Fatalf("get pack: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(pack.Rounds) != 1 || pack.Rounds[0].Questions[0].CorrectAnswer != "Paris" {
		t.Fatalf("unexpected pack %+v", pack)
	}

	// Second call should hit cache, loader not incremented.
	pack, _ = repo.GetPack(context.Background(), "pack-1")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if pack.Rounds[0].PointValues[2] != 5 {
		t.Fatalf("expected point values preserved from cache, got %+v", pack.Rounds[0])
	}
}

func TestPackRepositoryMiss(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewPackRepository(newClient(mr), memory.NewStaticPackLoader(nil), time.Minute)
	if _, err := repo.GetPack(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown pack")
	}
}

type countingLoader struct {
	memory.PackLoader
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

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
