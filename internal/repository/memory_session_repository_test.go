package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mythos-server/internal/models"
	"mythos-server/internal/repository"
)

func TestMemorySessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and Get", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository(time.Hour, 0, zap.NewNop())
		defer repo.Stop()

		sess, err := repo.Create(ctx)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.NotEmpty(t, sess.ID)

		got, err := repo.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Same(t, sess, got)
	})

	t.Run("Get of unknown session fails", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository(time.Hour, 0, zap.NewNop())
		defer repo.Stop()

		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	})

	t.Run("Delete is idempotent and calls onEvict", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository(time.Hour, 0, zap.NewNop())
		defer repo.Stop()

		var evicted []*models.Session
		repo.SetOnEvict(func(s *models.Session) { evicted = append(evicted, s) })

		sess, err := repo.Create(ctx)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, sess.ID))
		_, err = repo.Get(ctx, sess.ID)
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
		require.Len(t, evicted, 1)
		assert.Same(t, sess, evicted[0])

		// Повторное удаление - не ошибка и не повторный evict
		require.NoError(t, repo.Delete(ctx, sess.ID))
		assert.Len(t, evicted, 1)
	})

	t.Run("Janitor evicts expired sessions", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository(30*time.Millisecond, 10*time.Millisecond, zap.NewNop())
		defer repo.Stop()

		evicted := make(chan string, 1)
		repo.SetOnEvict(func(s *models.Session) { evicted <- s.ID })

		sess, err := repo.Create(ctx)
		require.NoError(t, err)

		select {
		case id := <-evicted:
			assert.Equal(t, sess.ID, id)
		case <-time.After(2 * time.Second):
			t.Fatal("session was not evicted")
		}

		_, err = repo.Get(ctx, sess.ID)
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	})

	t.Run("Active sessions survive the sweep", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository(time.Hour, 10*time.Millisecond, zap.NewNop())
		defer repo.Stop()

		sess, err := repo.Create(ctx)
		require.NoError(t, err)

		time.Sleep(50 * time.Millisecond)
		_, err = repo.Get(ctx, sess.ID)
		assert.NoError(t, err)
	})
}
