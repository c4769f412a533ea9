package ingest

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/jobtitles/internal/storage"
	"github.com/steveyegge/jobtitles/internal/types"
)

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewStorage(context.Background(), &storage.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

const sample = `id,job_title,company
1,Software Engineer,Acme
2,Sales Manager,Acme
3,Software Engineer,Globex
4,,Initech
5,--,Initech
6,  Sales Manager ,Hooli
7,CTO,Hooli
`

func TestReadDeduplicatesAcrossBatches(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	in := New(store, Options{BatchSize: 2}, quietLogger())
	var progress []Progress
	in.OnProgress(func(p Progress) { progress = append(progress, p) })

	result, err := in.Read(ctx, strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 7, result.Rows)
	assert.Equal(t, 3, result.Titles)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 4, result.Batches)
	require.Len(t, progress, 4)
	assert.Equal(t, Progress{Rows: 7}, progress[3])

	counts, err := store.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Unique.Total())
	assert.Equal(t, 5, counts.Raw.Total())
	assert.Equal(t, 7, counts.Total)
	assert.Equal(t, 2, counts.Skipped)

	one, err := store.GetRawJob(ctx, "1")
	require.NoError(t, err)
	three, err := store.GetRawJob(ctx, "3")
	require.NoError(t, err)
	require.NotNil(t, one.CanonicalID)
	assert.Equal(t, one.CanonicalID, three.CanonicalID)

	six, err := store.GetRawJob(ctx, "6")
	require.NoError(t, err)
	assert.Equal(t, "Sales Manager", six.Title)
	require.NotNil(t, six.CanonicalID)

	blank, err := store.GetRawJob(ctx, "5")
	require.NoError(t, err)
	assert.Nil(t, blank.CanonicalID)
}

func TestReingestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	in := New(store, Options{}, quietLogger())

	_, err := in.Read(ctx, strings.NewReader(sample))
	require.NoError(t, err)

	batch, err := store.ClaimBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	_, err = store.CompleteTitles(ctx, []types.Classification{{
		ID: batch[0].ID, JobFunction: "Software Development", JobSeniority: "Senior", Confidence: 0.8,
	}})
	require.NoError(t, err)

	_, err = in.Read(ctx, strings.NewReader(sample))
	require.NoError(t, err)

	counts, err := store.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Unique.Total())
	assert.Equal(t, 1, counts.Unique.Completed)
	assert.Equal(t, 7, counts.Total)
}

func TestCustomTitleColumnAndPlaceholders(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	data := "\ufeffID,Title\na,Engineer\nb,N/A\nc,n/a\n"
	in := New(store, Options{TitleColumn: "title", Placeholders: []string{"N/A"}}, quietLogger())

	result, err := in.Read(ctx, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, 1, result.Titles)
	assert.Equal(t, 2, result.Skipped)
	assert.True(t, in.IsPlaceholder("  "))
	assert.False(t, in.IsPlaceholder("--"), "custom placeholders replace the defaults")
}

func TestRowsWithoutIDAreDropped(t *testing.T) {
	store := newTestStore(t)
	in := New(store, Options{}, quietLogger())

	result, err := in.Read(context.Background(), strings.NewReader("id,job_title\n,Engineer\n2,Engineer\n3\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Invalid)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 1, result.Skipped, "short row has no title")
}

func TestMissingColumns(t *testing.T) {
	store := newTestStore(t)
	in := New(store, Options{}, quietLogger())

	tests := map[string]string{
		"no id":    "key,job_title\n1,Engineer\n",
		"no title": "id,title\n1,Engineer\n",
		"empty":    "",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := in.Read(context.Background(), strings.NewReader(data))
			assert.ErrorIs(t, err, ErrMissingColumn)
		})
	}
}

func TestFileReportsTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	in := New(newTestStore(t), Options{BatchSize: 5}, quietLogger())
	var last Progress
	in.OnProgress(func(p Progress) { last = p })

	result, err := in.File(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 7, result.Rows)
	assert.Equal(t, Progress{Rows: 7, Total: 7}, last)

	_, err = in.File(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Error(t, Options{BatchSize: 10}.Validate())
	assert.Error(t, Options{TitleColumn: "job_title"}.Validate())
}
