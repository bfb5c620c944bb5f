package storage_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/storage"
	"github.com/starford/jotter/internal/testutil"
)

func TestSQLite_CreateListRemove(t *testing.T) {
	s := testutil.SQLiteStore(t)
	ctx := context.Background()

	notes, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	first, err := s.Create(ctx, note(t, `{"text":"hi"}`))
	require.NoError(t, err)
	out, err := first.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hi","id":1}`, string(out))

	_, err = s.Create(ctx, note(t, `{"text":"second","id":"ignored"}`))
	require.NoError(t, err)

	notes, err = s.List(ctx)
	require.NoError(t, err)
	enc, err := notes.Encode()
	require.NoError(t, err)
	assert.Equal(t, `[{"text":"hi","id":1},{"text":"second","id":2}]`, string(enc))

	require.NoError(t, s.Remove(ctx, 1))
	require.NoError(t, s.Remove(ctx, 99))

	notes, err = s.List(ctx)
	require.NoError(t, err)
	enc, err = notes.Encode()
	require.NoError(t, err)
	assert.Equal(t, `[{"text":"second","id":2}]`, string(enc))
}

func TestSQLite_IDFollowsCurrentMax(t *testing.T) {
	s := testutil.SQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, note(t, `{}`))
		require.NoError(t, err)
	}
	require.NoError(t, s.Remove(ctx, 2))

	created, err := s.Create(ctx, note(t, `{}`))
	require.NoError(t, err)
	id, _ := created.ID()
	assert.Equal(t, int64(4), id)
}

func TestSQLite_ConcurrentCreates(t *testing.T) {
	s := testutil.SQLiteStore(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, note(t, `{"text":"c"}`))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	notes, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, n)
	seen := map[int64]bool{}
	for _, nt := range notes {
		id, _ := nt.ID()
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}

func TestSQLite_CreateFailsWhenIDsExhausted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exhausted.db")
	s, err := storage.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO notes (id, body) VALUES (?, ?)`, int64(9223372036854775807), `{"id":9223372036854775807}`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	ctx := context.Background()
	_, err = s.Create(ctx, note(t, `{"text":"x"}`))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindExhausted), "got %v", err)
	assert.ErrorIs(t, err, models.ErrIDExhausted)

	notes, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}
