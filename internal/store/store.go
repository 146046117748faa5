// Package store persists match snapshots and the card catalog in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a match has no snapshot.
var ErrNotFound = errors.New("snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS match_snapshots (
	match_id   TEXT        NOT NULL,
	seq        BIGINT      NOT NULL,
	turn       INTEGER     NOT NULL,
	phase      TEXT        NOT NULL,
	winner     TEXT        NOT NULL DEFAULT '',
	checksum   TEXT        NOT NULL,
	state      JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (match_id, seq)
);
CREATE TABLE IF NOT EXISTS cards (
	protocol        TEXT    NOT NULL,
	value           INTEGER NOT NULL,
	name            TEXT    NOT NULL,
	face_down_value INTEGER NOT NULL DEFAULT 0,
	effects         JSONB   NOT NULL,
	PRIMARY KEY (protocol, value)
);`

// Store is a PostgreSQL snapshot store.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open connects to dsn and checks the connection.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Snapshot is a stored match state.
type Snapshot struct {
	MatchID  string
	Seq      int64
	Checksum state.Checksum
	State    state.GameState
}

type encoded struct {
	turn     int
	phase    string
	winner   string
	checksum string
	body     []byte
}

func encode(gs state.GameState) (encoded, error) {
	sum, err := state.ComputeChecksum(gs)
	if err != nil {
		return encoded{}, err
	}
	body, err := json.Marshal(gs)
	if err != nil {
		return encoded{}, fmt.Errorf("failed to encode state: %w", err)
	}
	return encoded{
		turn:     gs.TurnNumber,
		phase:    string(gs.Phase),
		winner:   string(gs.Winner),
		checksum: sum.Hash,
		body:     body,
	}, nil
}

// decode restores a state and checks it against its stored checksum.
func decode(body []byte, checksum string) (state.GameState, state.Checksum, error) {
	var gs state.GameState
	if err := json.Unmarshal(body, &gs); err != nil {
		return gs, state.Checksum{}, fmt.Errorf("failed to decode state: %w", err)
	}
	sum, err := state.ComputeChecksum(gs)
	if err != nil {
		return gs, sum, err
	}
	if sum.Hash != checksum {
		return gs, sum, fmt.Errorf("checksum mismatch: stored %s, computed %s", checksum, sum.Hash)
	}
	return gs, sum, nil
}

// Save appends a snapshot of a match and returns its sequence number.
func (s *Store) Save(ctx context.Context, matchID string, gs state.GameState) (int64, error) {
	enc, err := encode(gs)
	if err != nil {
		return 0, err
	}
	var seq int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO match_snapshots (match_id, seq, turn, phase, winner, checksum, state)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6
		FROM match_snapshots WHERE match_id = $1
		RETURNING seq`,
		matchID, enc.turn, enc.phase, enc.winner, enc.checksum, enc.body,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot of %s: %w", matchID, err)
	}
	s.logger.Debug("saved snapshot",
		zap.String("match_id", matchID),
		zap.Int64("seq", seq),
		zap.Int("turn", enc.turn),
	)
	return seq, nil
}

// Latest returns the most recent snapshot of a match.
func (s *Store) Latest(ctx context.Context, matchID string) (Snapshot, error) {
	var (
		seq      int64
		checksum string
		body     []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT seq, checksum, state FROM match_snapshots
		WHERE match_id = $1 ORDER BY seq DESC LIMIT 1`, matchID,
	).Scan(&seq, &checksum, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, matchID)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load snapshot of %s: %w", matchID, err)
	}
	gs, sum, err := decode(body, checksum)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %d of %s: %w", seq, matchID, err)
	}
	return Snapshot{MatchID: matchID, Seq: seq, Checksum: sum, State: gs}, nil
}

// Matches lists matches that have snapshots, with no winner yet when
// unfinished is set.
func (s *Store) Matches(ctx context.Context, unfinished bool) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT match_id FROM match_snapshots m
		WHERE seq = (SELECT MAX(seq) FROM match_snapshots WHERE match_id = m.match_id)
		  AND ($1 = false OR winner = '')
		ORDER BY created_at`, unfinished)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return ids, nil
}

// ImportCards upserts card definitions in one transaction.
func (s *Store) ImportCards(ctx context.Context, defs []cards.CardDef) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, def := range defs {
		effects, err := json.Marshal(def.Effects)
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s: %w", def.Name(), err)
		}
		batch.Queue(`
			INSERT INTO cards (protocol, value, name, face_down_value, effects)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (protocol, value) DO UPDATE
			SET name = EXCLUDED.name, face_down_value = EXCLUDED.face_down_value, effects = EXCLUDED.effects`,
			def.Protocol, def.Value, def.Name(), def.FaceDownValue, effects,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to import cards: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit cards: %w", err)
	}
	s.logger.Info("imported cards", zap.Int("count", len(defs)))
	return len(defs), nil
}

// LoadCards reads the card definitions back into a catalog.
func (s *Store) LoadCards(ctx context.Context) (*cards.Catalog, error) {
	rows, err := s.pool.Query(ctx, `SELECT protocol, value, face_down_value, effects FROM cards ORDER BY protocol, value`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var defs []cards.CardDef
	for rows.Next() {
		var (
			def     cards.CardDef
			effects []byte
		)
		if err := rows.Scan(&def.Protocol, &def.Value, &def.FaceDownValue, &effects); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		if err := json.Unmarshal(effects, &def.Effects); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", def.Name(), err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}
	return cards.NewCatalog(defs)
}
