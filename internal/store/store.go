// Package store persists training runs and their episodes in Postgres.
package store

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

// DefaultBatchSize is how many episodes a RunRecorder buffers before copying
const DefaultBatchSize = 1000

// EpisodeRecord is one finished episode
type EpisodeRecord struct {
	Episode     int64
	Outcome     string
	Reward      int
	PlayerTotal int
	DealerTotal int
	Upcard      int
	Hits        int
	Epsilon     float64
}

// Run describes a training or evaluation run
type Run struct {
	Name     string
	Policy   string
	Seed     int64
	NumDecks int
}

// Recorder receives finished episodes
type Recorder interface {
	Record(ctx context.Context, rec EpisodeRecord) error
	Close(ctx context.Context) error
}

// Nop discards everything
type Nop struct{}

// Record implements Recorder
func (Nop) Record(context.Context, EpisodeRecord) error { return nil }

// Close implements Recorder
func (Nop) Close(context.Context) error { return nil }

// DB is a Postgres connection pool
type DB struct{ *pgxpool.Pool }

// Open connects to the database at dsn
func Open(ctx context.Context, dsn string) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

// Close releases every pooled connection
func (db *DB) Close() { db.Pool.Close() }

// Ping checks the database is reachable
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

// Migrate applies the embedded schema. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

// StartRun inserts a run row and returns a recorder bound to it
func (db *DB) StartRun(ctx context.Context, run Run) (*RunRecorder, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO runs(name, policy, seed, num_decks)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, run.Name, run.Policy, run.Seed, run.NumDecks).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return newRunRecorder(db.Pool, id, DefaultBatchSize), nil
}

type execer interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

var episodeColumns = []string{
	"run_id", "episode", "outcome", "reward", "player_total",
	"dealer_total", "upcard", "hits", "epsilon",
}

// RunRecorder buffers episodes for one run and writes them with COPY.
// It is not safe for concurrent use.
type RunRecorder struct {
	conn      execer
	runID     int64
	batchSize int
	pending   []EpisodeRecord
	written   int64
}

func newRunRecorder(conn execer, runID int64, batchSize int) *RunRecorder {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &RunRecorder{
		conn:      conn,
		runID:     runID,
		batchSize: batchSize,
		pending:   make([]EpisodeRecord, 0, batchSize),
	}
}

// RunID returns the database id of the run
func (r *RunRecorder) RunID() int64 { return r.runID }

// Written returns the number of episodes copied so far
func (r *RunRecorder) Written() int64 { return r.written }

// Record buffers rec, flushing when the batch is full
func (r *RunRecorder) Record(ctx context.Context, rec EpisodeRecord) error {
	r.pending = append(r.pending, rec)
	if len(r.pending) >= r.batchSize {
		return r.Flush(ctx)
	}
	return nil
}

// Flush copies buffered episodes to the database
func (r *RunRecorder) Flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	rows := make([][]any, len(r.pending))
	for i, rec := range r.pending {
		rows[i] = []any{
			r.runID, rec.Episode, rec.Outcome, rec.Reward, rec.PlayerTotal,
			rec.DealerTotal, rec.Upcard, rec.Hits, rec.Epsilon,
		}
	}
	n, err := r.conn.CopyFrom(ctx, pgx.Identifier{"episodes"}, episodeColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy episodes: %w", err)
	}
	r.written += n
	r.pending = r.pending[:0]
	return nil
}

// Close flushes remaining episodes and marks the run finished
func (r *RunRecorder) Close(ctx context.Context) error {
	if err := r.Flush(ctx); err != nil {
		return err
	}
	_, err := r.conn.Exec(ctx, `UPDATE runs SET finished_at = $2 WHERE id = $1`, r.runID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}
