package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"leafscan/internal/domain/entity"
	"leafscan/internal/infrastructure/storage"
)

func TestUserService_BeginCheckAndCancel(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.BeginCheck(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)

	user, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestUserService_ProcessingGuard(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.StartProcessing(ctx, 2, 20)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, user.State)

	_, err = svc.StartProcessing(ctx, 2, 20)
	require.ErrorIs(t, err, ErrUserBusy)

	user, err = svc.FinishProcessing(ctx, 2, 20, "rec-9")
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Equal(t, "rec-9", user.LastRecordID)

	stored, err := svc.Get(ctx, 2, 20)
	require.NoError(t, err)
	require.Equal(t, "rec-9", stored.LastRecordID)
}

func TestUserService_StartProcessingIsExclusive(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
		busy    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.StartProcessing(ctx, 3, 30)

			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrUserBusy) {
				busy++
				return
			}
			if err == nil {
				started++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, started)
	require.Equal(t, workers-1, busy)
}
