package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	copies  [][][]any
	execs   []string
	copyErr error
}

func (f *fakeConn) CopyFrom(_ context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	var rows [][]any
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		rows = append(rows, vals)
	}
	f.copies = append(f.copies, rows)
	return int64(len(rows)), nil
}

func (f *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func TestRunRecorderBatches(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{}
	r := newRunRecorder(conn, 7, 3)

	for i := 1; i <= 7; i++ {
		require.NoError(t, r.Record(ctx, EpisodeRecord{Episode: int64(i), Outcome: "win", Reward: 100}))
	}
	require.Len(t, conn.copies, 2)
	assert.Len(t, conn.copies[0], 3)
	assert.Equal(t, int64(6), r.Written())

	row := conn.copies[0][0]
	require.Len(t, row, len(episodeColumns))
	assert.Equal(t, int64(7), row[0])
	assert.Equal(t, int64(1), row[1])
	assert.Equal(t, "win", row[2])

	require.NoError(t, r.Close(ctx))
	require.Len(t, conn.copies, 3)
	assert.Len(t, conn.copies[2], 1)
	assert.Equal(t, int64(7), r.Written())
	require.Len(t, conn.execs, 1)
	assert.Contains(t, conn.execs[0], "finished_at")
}

func TestRunRecorderCopyError(t *testing.T) {
	conn := &fakeConn{copyErr: errors.New("connection reset")}
	r := newRunRecorder(conn, 1, 1)

	err := r.Record(context.Background(), EpisodeRecord{Episode: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy episodes")
	assert.Equal(t, int64(0), r.Written())
}

func TestNop(t *testing.T) {
	var rec Recorder = Nop{}
	assert.NoError(t, rec.Record(context.Background(), EpisodeRecord{}))
	assert.NoError(t, rec.Close(context.Background()))
}

func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("BLACKJACK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BLACKJACK_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping(ctx))
	require.NoError(t, Migrate(ctx, db))

	rec, err := db.StartRun(ctx, Run{Name: "test", Policy: "threshold", Seed: 1, NumDecks: 6})
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		require.NoError(t, rec.Record(ctx, EpisodeRecord{Episode: int64(i), Outcome: "tie", PlayerTotal: 18, DealerTotal: 18, Upcard: 10}))
	}
	require.NoError(t, rec.Close(ctx))

	var n int
	require.NoError(t, db.QueryRow(ctx, `SELECT count(*) FROM episodes WHERE run_id = $1`, rec.RunID()).Scan(&n))
	assert.Equal(t, 5, n)
}
