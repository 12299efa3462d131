package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"leafscan/internal/domain/entity"
)

func TestMemoryUserRepository_GetCreatesUser(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	// Изменения без Save не видны другим.
	user.SetState(entity.StateProcessing)
	again, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, again.State)

	require.NoError(t, repo.Save(ctx, user))
	again, err = repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, again.State)
}

func TestMemoryUserRepository_SetLastRecord(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.SetLastRecord(ctx, 5, "missing-user"))

	_, err := repo.Get(ctx, 5, 50)
	require.NoError(t, err)
	require.NoError(t, repo.SetLastRecord(ctx, 5, "rec-1"))

	user, err := repo.Get(ctx, 5, 50)
	require.NoError(t, err)
	require.Equal(t, "rec-1", user.LastRecordID)
}

func TestMemoryUserRepository_UpdateState(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.UpdateState(ctx, 6, entity.StateProcessing))

	user, err := repo.Get(ctx, 6, 60)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	require.NoError(t, repo.UpdateState(ctx, 6, entity.StateAwaitingPhoto))
	user, err = repo.Get(ctx, 6, 60)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)
}
