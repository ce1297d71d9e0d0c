package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	l, err := Open(filepath.Join(t.TempDir(), "history.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	return l
}

func TestRecordRecent_RoundTrip(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	started := time.Now().Truncate(time.Millisecond)

	require.NoError(t, l.Record(ctx, &Attempt{
		RunID:     "run-1",
		StartedAt: started,
		Duration:  2500 * time.Millisecond,
		Filename:  "a.mp4",
		Account:   "alice@x.com",
		Status:    "uploaded",
		VideoID:   "vid-1",
	}))

	attempts, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)

	a := attempts[0]
	assert.Equal(t, "run-1", a.RunID)
	assert.Equal(t, "a.mp4", a.Filename)
	assert.Equal(t, "alice@x.com", a.Account)
	assert.Equal(t, "uploaded", a.Status)
	assert.Equal(t, "vid-1", a.VideoID)
	assert.Empty(t, a.Error)
	assert.Equal(t, 2500*time.Millisecond, a.Duration)
	assert.True(t, a.StartedAt.Equal(started))
}

func TestRecent_NewestFirstAndLimited(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(ctx, &Attempt{
			RunID:     "run-1",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Filename:  "f.mp4",
			Account:   "a@x.com",
			Status:    "failed",
			Error:     "network interrupted",
		}))
	}

	attempts, err := l.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, attempts, 3)

	assert.True(t, attempts[0].StartedAt.After(attempts[1].StartedAt))
	assert.True(t, attempts[1].StartedAt.After(attempts[2].StartedAt))
	assert.Equal(t, "network interrupted", attempts[0].Error)
}

func TestOpen_Reopen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbPath := filepath.Join(t.TempDir(), "history.db")

	l, err := Open(dbPath, logger)
	require.NoError(t, err)
	require.NoError(t, l.Record(context.Background(), &Attempt{
		RunID: "run-1", StartedAt: time.Now(), Filename: "a.mp4",
		Account: "a@x.com", Status: "uploaded",
	}))
	require.NoError(t, l.Close())

	// Migrations are idempotent; existing rows survive.
	l, err = Open(dbPath, logger)
	require.NoError(t, err)
	defer l.Close()

	attempts, err := l.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}
