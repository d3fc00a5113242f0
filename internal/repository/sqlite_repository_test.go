package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepository(t *testing.T) repository.LinkRepository {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "links.db") + "?_pragma=busy_timeout(5000)"
	repo, err := repository.NewSQLiteRepository(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository(t *testing.T) {
	runLinkRepositoryContract(t, newSQLiteRepository)
}

// TestSQLiteRepository_Reopen проверяет, что данные переживают переоткрытие файла
func TestSQLiteRepository_Reopen(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "links.db")

	repo, err := repository.NewSQLiteRepository(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, newLink("keep12")))
	require.NoError(t, repo.Close())

	repo, err = repository.NewSQLiteRepository(ctx, dsn)
	require.NoError(t, err)
	defer repo.Close()

	link, err := repo.GetByCode(ctx, "keep12")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/keep12", link.TargetURL)
}
