package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
)

func sampleRecord(id string, at time.Time) *entity.Record {
	return &entity.Record{
		ID:        id,
		CreatedAt: at,
		Detections: []entity.Detection{{
			Disease:    "Brown Spot",
			Confidence: 0.75,
			Severity:   entity.SeverityMedium,
			Box:        entity.Box{X1: 1, Y1: 2, X2: 30, Y2: 40},
		}},
		Original:  []byte("original-jpeg"),
		Annotated: []byte("annotated-jpeg"),
	}
}

func repositories(t *testing.T) map[string]port.RecordRepository {
	t.Helper()
	fileRepo, err := NewFileRecordRepository(t.TempDir())
	require.NoError(t, err)

	return map[string]port.RecordRepository{
		"memory": NewMemoryRecordRepository(),
		"file":   fileRepo,
	}
}

func TestRecordRepository_SaveGet(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			want := sampleRecord("abc", at)

			require.NoError(t, repo.Save(ctx, want))

			got, err := repo.Get(ctx, "abc")
			require.NoError(t, err)
			require.Equal(t, want.ID, got.ID)
			require.True(t, want.CreatedAt.Equal(got.CreatedAt))
			require.Equal(t, want.Detections, got.Detections)
			require.Equal(t, want.Original, got.Original)
			require.Equal(t, want.Annotated, got.Annotated)

			_, err = repo.Get(ctx, "nope")
			require.ErrorIs(t, err, port.ErrRecordNotFound)
		})
	}
}

func TestRecordRepository_ListNewestFirst(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

			require.NoError(t, repo.Save(ctx, sampleRecord("old", base)))
			require.NoError(t, repo.Save(ctx, sampleRecord("new", base.Add(time.Hour))))
			require.NoError(t, repo.Save(ctx, sampleRecord("mid", base.Add(time.Minute))))

			all, err := repo.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			require.Equal(t, "new", all[0].ID)
			require.Equal(t, "mid", all[1].ID)
			require.Equal(t, "old", all[2].ID)

			limited, err := repo.List(ctx, 1)
			require.NoError(t, err)
			require.Len(t, limited, 1)
			require.Equal(t, "new", limited[0].ID)
		})
	}
}

func TestFileRecordRepository_RejectsPathIDs(t *testing.T) {
	repo, err := NewFileRecordRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.Error(t, repo.Save(ctx, sampleRecord("../escape", time.Now())))

	_, err = repo.Get(ctx, "../escape")
	require.ErrorIs(t, err, port.ErrRecordNotFound)
}

func TestFileRecordRepository_NoImages(t *testing.T) {
	repo, err := NewFileRecordRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	rec := sampleRecord("bare", time.Now())
	rec.Original = nil
	rec.Annotated = nil
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, "bare")
	require.NoError(t, err)
	require.Nil(t, got.Original)
	require.Nil(t, got.Annotated)
}
