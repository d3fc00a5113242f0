package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runLinkRepositoryContract проверяет поведение, общее для всех реализаций хранилища.
// newRepo должен возвращать пустое хранилище.
func runLinkRepositoryContract(t *testing.T, newRepo func(t *testing.T) repository.LinkRepository) {
	t.Run("create и get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		link := &models.Link{Code: "abc123", TargetURL: "https://example.com"}
		require.NoError(t, repo.Create(ctx, link))
		assert.False(t, link.CreatedAt.IsZero())

		got, err := repo.GetByCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "abc123", got.Code)
		assert.Equal(t, "https://example.com", got.TargetURL)
		assert.Equal(t, int64(0), got.TotalClicks)
		assert.Nil(t, got.LastClicked)
		assert.WithinDuration(t, link.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("занятый код не перезаписывается", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Create(ctx, &models.Link{Code: "dup123", TargetURL: "https://first.example"}))
		err := repo.Create(ctx, &models.Link{Code: "dup123", TargetURL: "https://second.example"})
		assert.ErrorIs(t, err, repository.ErrCodeExists)

		got, err := repo.GetByCode(ctx, "dup123")
		require.NoError(t, err)
		assert.Equal(t, "https://first.example", got.TargetURL)
	})

	t.Run("параллельное создание одного кода", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const workers = 10
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := repo.Create(ctx, &models.Link{Code: "race01", TargetURL: "https://example.com"}); err == nil {
					mu.Lock()
					created++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, repository.ErrCodeExists)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, created)
	})

	t.Run("get несуществующего", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByCode(context.Background(), "nope00")
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	})

	t.Run("list от новых к старым", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		empty, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		require.NoError(t, repo.Create(ctx, &models.Link{Code: "aaa111", TargetURL: "https://a.example"}))
		require.NoError(t, repo.Create(ctx, &models.Link{Code: "bbb222", TargetURL: "https://b.example"}))

		links, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "bbb222", links[0].Code)
		assert.Equal(t, "aaa111", links[1].Code)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Create(ctx, &models.Link{Code: "del123", TargetURL: "https://example.com"}))
		require.NoError(t, repo.Delete(ctx, "del123"))

		_, err := repo.GetByCode(ctx, "del123")
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "del123"), repository.ErrLinkNotFound)

		links, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, links)

		// Код освобождается после удаления
		require.NoError(t, repo.Create(ctx, &models.Link{Code: "del123", TargetURL: "https://again.example"}))
	})

	t.Run("record click", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Create(ctx, &models.Link{Code: "clk123", TargetURL: "https://example.com"}))

		at := time.Now().UTC().Truncate(time.Microsecond)
		link, err := repo.RecordClick(ctx, "clk123", at)
		require.NoError(t, err)
		assert.Equal(t, int64(1), link.TotalClicks)
		require.NotNil(t, link.LastClicked)
		assert.True(t, link.LastClicked.Equal(at))

		// Более ранний клик не откатывает last_clicked назад
		link, err = repo.RecordClick(ctx, "clk123", at.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), link.TotalClicks)
		assert.True(t, link.LastClicked.Equal(at))

		_, err = repo.RecordClick(ctx, "none00", at)
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	})

	t.Run("параллельные клики не теряются", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Create(ctx, &models.Link{Code: "hot123", TargetURL: "https://example.com"}))

		const clicks = 50
		var wg sync.WaitGroup
		for i := 0; i < clicks; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.RecordClick(ctx, "hot123", time.Now())
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		link, err := repo.GetByCode(ctx, "hot123")
		require.NoError(t, err)
		assert.Equal(t, int64(clicks), link.TotalClicks)
		assert.NotNil(t, link.LastClicked)
	})
}
