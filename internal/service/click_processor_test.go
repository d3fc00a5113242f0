package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/SergeiKhy/shortlink/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestClickProcessor_DrainsOnStop проверяет, что Stop дожидается записи всех принятых кликов
func TestClickProcessor_DrainsOnStop(t *testing.T) {
	linkRepo := mocks.NewMockLinkRepository()
	linkRepo.Put(models.Link{Code: "abc123", TargetURL: "https://example.com", CreatedAt: time.Now()})

	p := NewClickProcessor(linkRepo, nil, ClickProcessorConfig{Workers: 4, Buffer: 100}, zap.NewNop())
	p.Start()

	const clicks = 50
	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Record(context.Background(), "abc123"))
		}()
	}
	wg.Wait()
	p.Stop()

	link, err := linkRepo.GetByCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(clicks), link.TotalClicks)
}

// TestClickProcessor_RecordAfterStop проверяет отказ после остановки
func TestClickProcessor_RecordAfterStop(t *testing.T) {
	p := NewClickProcessor(mocks.NewMockLinkRepository(), nil, ClickProcessorConfig{}, nil)
	p.Start()
	p.Stop()
	p.Stop()

	assert.ErrorIs(t, p.Record(context.Background(), "abc123"), ErrRecorderStopped)
}

// TestClickProcessor_BufferFull проверяет, что переполнение не блокирует запрос
func TestClickProcessor_BufferFull(t *testing.T) {
	linkRepo := mocks.NewMockLinkRepository()
	linkRepo.Put(models.Link{Code: "abc123", TargetURL: "https://example.com", CreatedAt: time.Now()})

	// Воркеры не запущены, буфер на одно событие
	p := NewClickProcessor(linkRepo, nil, ClickProcessorConfig{Workers: 1, Buffer: 1}, zap.NewNop())

	require.NoError(t, p.Record(context.Background(), "abc123"))
	done := make(chan struct{})
	go func() {
		assert.NoError(t, p.Record(context.Background(), "abc123"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record заблокировался на полном буфере")
	}

	p.Start()
	p.Stop()

	link, err := linkRepo.GetByCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.TotalClicks)
}

// TestClickProcessor_Retry проверяет ограниченное число попыток записи
func TestClickProcessor_Retry(t *testing.T) {
	linkRepo := mocks.NewMockLinkRepository()
	linkRepo.RecordClickErr = errors.New("database is down")

	p := NewClickProcessor(linkRepo, nil, ClickProcessorConfig{Workers: 1, Buffer: 1}, zap.NewNop())
	p.Start()
	require.NoError(t, p.Record(context.Background(), "abc123"))
	p.Stop()

	assert.Equal(t, maxRetries, linkRepo.RecordClickCalls)
}

// TestClickProcessor_DeletedLinkNotRetried проверяет, что клик по удалённой ссылке не повторяется
func TestClickProcessor_DeletedLinkNotRetried(t *testing.T) {
	linkRepo := mocks.NewMockLinkRepository()

	p := NewClickProcessor(linkRepo, nil, ClickProcessorConfig{Workers: 1, Buffer: 1}, zap.NewNop())
	p.Start()
	require.NoError(t, p.Record(context.Background(), "abc123"))
	p.Stop()

	assert.Equal(t, 1, linkRepo.RecordClickCalls)
}

// TestSyncClickRecorder проверяет синхронный учёт и передачу ошибок
func TestSyncClickRecorder(t *testing.T) {
	linkRepo := mocks.NewMockLinkRepository()
	linkRepo.Put(models.Link{Code: "abc123", TargetURL: "https://example.com", CreatedAt: time.Now()})

	r := NewSyncClickRecorder(linkRepo, 0)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.(*syncClickRecorder).now = func() time.Time { return fixed }

	// Отменённый контекст запроса не мешает учёту
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Record(ctx, "abc123"))

	link, err := linkRepo.GetByCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.TotalClicks)
	assert.True(t, link.LastClicked.Equal(fixed))

	assert.ErrorIs(t, r.Record(context.Background(), "nope00"), ErrLinkNotFound)
	r.Stop()
}

// TestClickProcessor_EvictsDeletedLinkFromCache проверяет сброс кэша при клике по удалённой ссылке
func TestClickProcessor_EvictsDeletedLinkFromCache(t *testing.T) {
	linkRepo := mocks.NewMockLinkRepository()
	cacheRepo := mocks.NewMockCacheRepository()
	ctx := context.Background()

	// Кэш пережил удаление ссылки из хранилища
	require.NoError(t, cacheRepo.Set(ctx, &models.Link{Code: "gone12", TargetURL: "https://example.com"}, time.Hour))

	p := NewClickProcessor(linkRepo, cacheRepo, ClickProcessorConfig{Workers: 1, Buffer: 1}, zap.NewNop())
	p.Start()
	require.NoError(t, p.Record(ctx, "gone12"))
	p.Stop()

	_, err := cacheRepo.Get(ctx, "gone12")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
	assert.Equal(t, 1, linkRepo.RecordClickCalls)
}
