package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getdoa/getdoa/internal"
	"github.com/getdoa/getdoa/internal/repository"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// newTestStore starts a throwaway Postgres, applies the embedded migrations
// and returns a Store on it. It skips when Docker is not reachable.
func newTestStore(t *testing.T) (*repository.Store, *sql.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("getdoa"),
		postgres.WithUsername("getdoa"),
		postgres.WithPassword("getdoa"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, internal.RunMigrations(ctx, db, logger))

	return repository.NewStore(db), db
}

func insertUser(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO users (id, email) VALUES ($1, $2)`, id, id.String()+"@getdoa.test")
	require.NoError(t, err)
	return id
}

func TestStoreIntegration(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	// 00:30 +08 on 11 March; the anchor day began at 16:00Z on 10 March.
	windowStart := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
	now := windowStart.Add(30 * time.Minute)

	t.Run("reserve image generation admits one of many concurrent callers", func(t *testing.T) {
		userID := insertUser(t, db)

		var wg sync.WaitGroup
		var admitted, refused atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.ReserveImageGeneration(ctx, repository.ReserveImageGenerationParams{
					UserID:      userID,
					WindowStart: windowStart,
					GeneratedAt: now,
					DailyLimit:  1,
				})
				switch {
				case err == nil:
					admitted.Add(1)
				case errors.Is(err, sql.ErrNoRows):
					refused.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), admitted.Load())
		assert.Equal(t, int32(9), refused.Load())

		row, err := store.GetImageGeneration(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int32(1), row.GenerationsToday)
		assert.Equal(t, int32(1), row.TotalGenerations)
	})

	t.Run("reserve image generation restarts the count on a new day", func(t *testing.T) {
		userID := insertUser(t, db)
		yesterday := windowStart.Add(-time.Hour)

		_, err := store.ReserveImageGeneration(ctx, repository.ReserveImageGenerationParams{
			UserID: userID, WindowStart: windowStart.Add(-24 * time.Hour), GeneratedAt: yesterday, DailyLimit: 1,
		})
		require.NoError(t, err)

		row, err := store.ReserveImageGeneration(ctx, repository.ReserveImageGenerationParams{
			UserID: userID, WindowStart: windowStart, GeneratedAt: now, DailyLimit: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, int32(1), row.GenerationsToday)
		assert.Equal(t, int32(2), row.TotalGenerations)
		assert.True(t, now.Equal(row.LastGeneratedAt.Time))
	})

	t.Run("release gives the reservation back", func(t *testing.T) {
		userID := insertUser(t, db)
		params := repository.ReserveImageGenerationParams{
			UserID: userID, WindowStart: windowStart, GeneratedAt: now, DailyLimit: 1,
		}

		_, err := store.ReserveImageGeneration(ctx, params)
		require.NoError(t, err)
		require.NoError(t, store.ReleaseImageGeneration(ctx, userID, windowStart))

		row, err := store.ReserveImageGeneration(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int32(1), row.GenerationsToday)
	})

	t.Run("guarded list create never exceeds the limit", func(t *testing.T) {
		userID := insertUser(t, db)
		errAtLimit := errors.New("at limit")
		const limit = 3

		var wg sync.WaitGroup
		var created, denied atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.CreateListGuarded(ctx, repository.CreateListParams{
					OwnerID:    userID,
					Title:      "Doa harian",
					Visibility: "private",
				}, func(c repository.AccountCounts) error {
					if c.Lists >= limit {
						return errAtLimit
					}
					return nil
				})
				switch {
				case err == nil:
					created.Add(1)
				case errors.Is(err, errAtLimit):
					denied.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(limit), created.Load())
		assert.Equal(t, int32(10-limit), denied.Load())

		counts, err := store.GetAccountCounts(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(limit), counts.Lists)
	})
}
