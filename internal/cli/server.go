package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"tony-trivia-service/internal/app"
	"tony-trivia-service/internal/config"
	"tony-trivia-service/internal/domain"
	"tony-trivia-service/internal/game"
	"tony-trivia-service/internal/infra/memory"
	pgstore "tony-trivia-service/internal/infra/postgres"
	redisstore "tony-trivia-service/internal/infra/redis"
	transport "tony-trivia-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()
	}

	packTTL := config.TTLDuration(cfg.Packs.TTL, 10*time.Minute)
	var packs app.PackRepository
	switch {
	case redisClient != nil && pool != nil:
		packs = redisstore.NewPackRepository(redisClient, pgstore.NewPackLoader(pool), packTTL)
	case redisClient != nil:
		packs = redisstore.NewPackRepository(redisClient, memory.NewStaticPackLoader(samplePacks()), packTTL)
	case pool != nil:
		packs = memory.NewPackRepository(pgstore.NewPackLoader(pool), packTTL)
	default:
		packs = memory.NewPackRepository(memory.NewStaticPackLoader(samplePacks()), packTTL)
	}

	// Snapshot durability: Postgres outlives any one process, Redis outlives
	// a single instance, memory covers local development.
	var store app.GameRepository
	switch {
	case bunDB != nil:
		store = pgstore.NewGameStore(bunDB)
	case redisClient != nil:
		store = redisstore.NewGameStore(redisClient, redisTTL)
	default:
		store = memory.NewGameStore()
	}

	gameCfg := game.DefaultConfig()
	gameCfg.QuestionTimeLimit = config.TTLDuration(cfg.Game.QuestionTimeLimit, gameCfg.QuestionTimeLimit)
	gameCfg.AutoAdvance = cfg.Game.AutoAdvance
	gameCfg.AutoAdvanceDelay = config.TTLDuration(cfg.Game.AutoAdvanceDelay, gameCfg.AutoAdvanceDelay)

	service := app.NewGameService(store, packs, gameCfg)
	wsHandler := transport.NewWSHandler(service, transport.NewPresenceRegistry())
	api := transport.NewAPI(service, wsHandler, cfg.Game.JoinBaseURL)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// samplePacks provides a minimal pack for local development; production
// deployments load packs from Postgres.
func samplePacks() map[string]domain.QuestionPack {
	return map[string]domain.QuestionPack{
		"pack-1": {
			ID:    "pack-1",
			Title: "Warm-up Trivia",
			Rounds: []domain.Round{
				{
					Type:        domain.RoundStandard,
					PointValues: []int{1, 3, 5},
					Questions: []domain.Question{
						{
							ID:            "q1",
							Prompt:        "What is the capital of France?",
							Type:          domain.QuestionText,
							CorrectAnswer: "Paris",
							TimeLimitSec:  30,
						},
						{
							ID:              "q2",
							Prompt:          "What is 6 x 7?",
							Type:            domain.QuestionText,
							CorrectAnswer:   "42",
							AcceptedAnswers: []string{"forty-two", "forty two"},
							TimeLimitSec:    30,
						},
					},
				},
				{
					Type:        domain.RoundStandard,
					PointValues: []int{2, 4, 6},
					Questions: []domain.Question{
						{
							ID:            "q3",
							Prompt:        "Which planet is known as the Red Planet?",
							Type:          domain.QuestionText,
							CorrectAnswer: "Mars",
							TimeLimitSec:  30,
						},
					},
				},
			},
		},
	}
}
