package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"tony-trivia-service/internal/domain"
)

// GameSnapshotRow is the bun model for durable game snapshots. The snapshot
// body is the opaque string produced by the state manager's export.
type GameSnapshotRow struct {
	bun.BaseModel `bun:"table:game_snapshots"`

	GameID    string    `bun:"game_id,pk"`
	Snapshot  string    `bun:"snapshot,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SnapshotStore persists exported game snapshots in Postgres. Unlike the
// Redis store this survives a full cluster restart, at the cost of a write
// per persisted transition.
type SnapshotStore struct {
	db *bun.DB
}

func NewSnapshotStore(db *bun.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, gameID, snapshot string) error {
	row := &GameSnapshotRow{
		GameID:    gameID,
		Snapshot:  snapshot,
		UpdatedAt: time.Now(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (game_id) DO UPDATE").
		Set("snapshot = EXCLUDED.snapshot").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) LoadSnapshot(ctx context.Context, gameID string) (string, error) {
	row := new(GameSnapshotRow)
	err := s.db.NewSelect().
		Model(row).
		Where("game_id = ?", gameID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrGameNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load snapshot: %w", err)
	}
	return row.Snapshot, nil
}

func (s *SnapshotStore) DeleteSnapshot(ctx context.Context, gameID string) error {
	_, err := s.db.NewDelete().
		Model((*GameSnapshotRow)(nil)).
		Where("game_id = ?", gameID).
		Exec(ctx)
	return err
}
