package room

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Archive persists a closed room's final state into Postgres. Redis keeps the
// document readable by code; the archive exists so finished games survive a
// cache wipe.
type Archive struct {
	db *sql.DB
}

func NewArchive(databaseURL string) (*Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SaveRoom upserts the final document. Closing the same room twice overwrites
// with identical data, so the conflict clause keeps the call idempotent.
func (a *Archive) SaveRoom(ctx context.Context, r *Room) error {
	if a == nil || a.db == nil || r == nil {
		return nil
	}

	teamsRaw, err := json.Marshal(r.Teams)
	if err != nil {
		return fmt.Errorf("marshal teams: %w", err)
	}
	playersRaw, err := json.Marshal(r.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	scoresRaw, err := json.Marshal(r.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	const q = `INSERT INTO rooms_archive (
	    code, name, mode, teams, players, scores,
	    capacity, creator_device_id, created_at, finished_at
	  ) VALUES (
	    $1,$2,$3,$4::jsonb,$5::jsonb,$6::jsonb,$7,$8,$9,$10
	  ) ON CONFLICT (code) DO UPDATE SET
	    name=EXCLUDED.name,
	    mode=EXCLUDED.mode,
	    teams=EXCLUDED.teams,
	    players=EXCLUDED.players,
	    scores=EXCLUDED.scores,
	    capacity=EXCLUDED.capacity,
	    creator_device_id=EXCLUDED.creator_device_id,
	    created_at=EXCLUDED.created_at,
	    finished_at=EXCLUDED.finished_at`

	_, err = a.db.ExecContext(ctx, q,
		r.Code, r.Name, string(r.Mode),
		string(teamsRaw), string(playersRaw), string(scoresRaw),
		r.Capacity, r.CreatorDeviceID, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert room archive: %w", err)
	}
	return nil
}
