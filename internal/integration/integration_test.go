package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"tony-trivia-service/internal/app"
	"tony-trivia-service/internal/domain"
	"tony-trivia-service/internal/game"
	pgstore "tony-trivia-service/internal/infra/postgres"
	pgmigrations "tony-trivia-service/internal/infra/postgres/migrations"
	infraredis "tony-trivia-service/internal/infra/redis"
)

func TestPlayGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, pgURL)
	defer db.Close()
	seedPack(t, ctx, db, samplePack())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	packs := infraredis.NewPackRepository(redisClient, pgstore.NewPackLoader(pool), 5*time.Minute)
	store := pgstore.NewGameStore(db)
	service := app.NewGameService(store, packs, game.DefaultConfig())

	if _, err := service.CreateGame(ctx, "g1", "room-1", "host-1", "pack-1"); err != nil {
		t.Fatalf("create game: %v", err)
	}
	if _, err := service.JoinPlayer(ctx, "g1", "u1", "Alice"); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, err := service.JoinPlayer(ctx, "g1", "u2", "Bob"); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	stamp := func() domain.ActionBase {
		return domain.ActionBase{GameID: "g1", Timestamp: time.Now()}
	}
	steps := []domain.Action{
		domain.StartGame{ActionBase: stamp()},
		domain.StartRound{ActionBase: stamp(), Number: 1},
		domain.PresentQuestion{ActionBase: stamp(), Index: 0},
		domain.SubmitAnswer{ActionBase: stamp(), ParticipantID: "u1", QuestionID: "q1", Answer: "Paris", PointValue: 5, SubmittedBy: "u1"},
		domain.SubmitAnswer{ActionBase: stamp(), ParticipantID: "u2", QuestionID: "q1", Answer: "London", PointValue: 5, SubmittedBy: "u2"},
		domain.LockAnswers{ActionBase: stamp()},
		domain.RevealAnswers{ActionBase: stamp()},
	}
	for _, step := range steps {
		if _, err := service.ExecuteAction(ctx, step); err != nil {
			t.Fatalf("execute %T: %v", step, err)
		}
	}

	lb, err := service.Leaderboard(ctx, "g1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].ID != "u1" || lb.Entries[0].Score != 5 {
		t.Fatalf("expected alice leading with 5 points, got %+v", lb.Entries)
	}

	// The snapshot must survive the in-memory manager: destroy the game and
	// restore it from Postgres through a fresh service.
	if err := service.DestroyGame(ctx, "g1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	restoredService := app.NewGameService(pgstore.NewGameStore(db), packs, game.DefaultConfig())
	state, err := restoredService.RestoreGame(ctx, "g1", "room-1", "host-1", "pack-1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if state.GameID != "g1" || !state.IsActive {
		t.Fatalf("unexpected restored state %+v", state)
	}
	restoredLB, err := restoredService.Leaderboard(ctx, "g1")
	if err != nil {
		t.Fatalf("restored leaderboard: %v", err)
	}
	if len(restoredLB.Entries) != 2 || restoredLB.Entries[0].ID != "u1" || restoredLB.Entries[0].Score != 5 {
		t.Fatalf("restored scores lost, got %+v", restoredLB.Entries)
	}
}

func openBun(t *testing.T, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func seedPack(t *testing.T, ctx context.Context, db *bun.DB, pack domain.QuestionPack) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(pack)
	if err != nil {
		t.Fatalf("marshal pack: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_packs (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, pack.ID, string(data)); err != nil {
		t.Fatalf("insert pack: %v", err)
	}
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
					{ID: "q1", Prompt: "What is the capital of France?", Type: domain.QuestionText, CorrectAnswer: "Paris", TimeLimitSec: 60},
				},
			},
		},
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
