package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Tyrowin/tapwars/internal/storage"
	"github.com/Tyrowin/tapwars/internal/storage/storagetest"
)

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func() storage.Storage { return New() },
	})
}

func TestGetPlayerReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	player, err := s.EnsurePlayer(ctx, "alice")
	require.NoError(t, err)
	player.Coins = 500

	stored, err := s.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(0), stored.Coins)
}

func TestConcurrentTaps(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.EnsurePlayer(ctx, "alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ApplyTap(ctx, "alice")
		}()
	}
	wg.Wait()

	player, err := s.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(50), player.Taps)
	require.Equal(t, int64(50), player.Coins)
}
