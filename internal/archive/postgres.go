package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Schema creates the table used by the Postgres repository.
const Schema = `
CREATE TABLE IF NOT EXISTS board_games (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL,
	game_no     INTEGER NOT NULL DEFAULT 1,
	variant     TEXT NOT NULL,
	player      TEXT NOT NULL,
	result      TEXT NOT NULL,
	method      TEXT NOT NULL DEFAULT '',
	moves_uci   JSONB NOT NULL DEFAULT '[]',
	pgn         TEXT NOT NULL DEFAULT '',
	final_fen   TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	UNIQUE (session_id, game_no)
);
CREATE INDEX IF NOT EXISTS board_games_ended_at_idx ON board_games (ended_at DESC);
`

const selectColumns = `
	id,
	session_id,
	game_no,
	variant,
	player,
	result,
	method,
	moves_uci,
	pgn,
	final_fen,
	started_at,
	ended_at,
	duration_ms`

type postgresRepo struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

// OpenPostgres opens the pool, pings it and makes sure the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for postgres archive")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}
	return NewPostgres(db), nil
}

func (r *postgresRepo) InsertGame(ctx context.Context, rec *GameRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("nil game record")
	}
	moves := rec.MovesUCI
	if moves == nil {
		moves = []string{}
	}
	movesJSON, err := json.Marshal(moves)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}

	const query = `
		INSERT INTO board_games (
			session_id,
			game_no,
			variant,
			player,
			result,
			method,
			moves_uci,
			pgn,
			final_fen,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12)
		ON CONFLICT (session_id, game_no) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		rec.SessionID,
		rec.GameNo,
		rec.Variant,
		rec.Player,
		rec.Result,
		rec.Method,
		movesJSON,
		rec.PGN,
		rec.FinalFEN,
		rec.StartedAt,
		rec.EndedAt,
		rec.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert board game: %w", err)
	}
	return id.Int64, nil
}

func (r *postgresRepo) ListBySession(ctx context.Context, sessionID string) ([]*GameRecord, error) {
	query := `SELECT` + selectColumns + ` FROM board_games WHERE session_id = $1 ORDER BY game_no`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select session games: %w", err)
	}
	return collect(rows)
}

func (r *postgresRepo) Recent(ctx context.Context, limit int) ([]*GameRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT` + selectColumns + ` FROM board_games ORDER BY ended_at DESC, id DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select board games: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]*GameRecord, error) {
	defer rows.Close()
	out := make([]*GameRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Close() error { return r.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*GameRecord, error) {
	var (
		rec        GameRecord
		movesJSON  []byte
		durationMS sql.NullInt64
	)
	if err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.GameNo,
		&rec.Variant,
		&rec.Player,
		&rec.Result,
		&rec.Method,
		&movesJSON,
		&rec.PGN,
		&rec.FinalFEN,
		&rec.StartedAt,
		&rec.EndedAt,
		&durationMS,
	); err != nil {
		return nil, fmt.Errorf("scan board game: %w", err)
	}
	if durationMS.Valid {
		rec.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if len(movesJSON) > 0 {
		if err := json.Unmarshal(movesJSON, &rec.MovesUCI); err != nil {
			return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
		}
	}
	return &rec, nil
}
