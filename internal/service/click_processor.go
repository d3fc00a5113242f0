package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SergeiKhy/shortlink/internal/logger"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	defaultClickTimeout  = 2 * time.Second
	maxRetries           = 3 // Максимальное количество попыток записи
)

var ErrRecorderStopped = errors.New("click recorder stopped")

// ClickRecorder учитывает переходы по ссылкам
type ClickRecorder interface {
	Record(ctx context.Context, code string) error
	Stop()
}

// syncClickRecorder пишет клик прямо в запросе, но не дольше timeout
type syncClickRecorder struct {
	linkRepo repository.LinkRepository
	timeout  time.Duration
	now      func() time.Time
}

// NewSyncClickRecorder создаёт синхронный учёт кликов
func NewSyncClickRecorder(linkRepo repository.LinkRepository, timeout time.Duration) ClickRecorder {
	if timeout <= 0 {
		timeout = defaultClickTimeout
	}
	return &syncClickRecorder{
		linkRepo: linkRepo,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (r *syncClickRecorder) Record(ctx context.Context, code string) error {
	// Обрыв соединения клиента не должен отменять учёт клика
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	_, err := r.linkRepo.RecordClick(ctx, code, r.now())
	return err
}

func (r *syncClickRecorder) Stop() {}

// ClickProcessorConfig параметры асинхронного учёта кликов
type ClickProcessorConfig struct {
	Workers int
	Buffer  int
	Timeout time.Duration
}

// ClickProcessor асинхронный учёт кликов с использованием Worker Pool
type ClickProcessor struct {
	linkRepo     repository.LinkRepository
	cacheRepo    repository.CacheRepository // может быть nil
	logger       *zap.Logger
	clickChannel chan clickEvent // Канал для событий кликов
	workerCount  int             // Количество воркеров
	timeout      time.Duration
	wg           sync.WaitGroup // WaitGroup для ожидания завершения воркеров

	mu     sync.RWMutex
	closed bool

	dropWarn rate.Sometimes // не чаще одного предупреждения о переполнении в интервал
}

type clickEvent struct {
	code string
	at   time.Time
}

// NewClickProcessor создаёт асинхронный процессор кликов. Воркеры запускает Start.
// cacheRepo может быть nil; если задан, клик по удалённой ссылке сбрасывает её кэш.
func NewClickProcessor(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	cfg ClickProcessorConfig,
	log *zap.Logger,
) *ClickProcessor {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultChannelBuffer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultClickTimeout
	}

	return &ClickProcessor{
		linkRepo:     linkRepo,
		cacheRepo:    cacheRepo,
		logger:       logger.OrNop(log),
		clickChannel: make(chan clickEvent, cfg.Buffer),
		workerCount:  cfg.Workers,
		timeout:      cfg.Timeout,
		dropWarn:     rate.Sometimes{Interval: 10 * time.Second},
	}
}

// Start запускает worker pool
func (p *ClickProcessor) Start() {
	p.logger.Info("Запуск воркеров процессора кликов", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop перестаёт принимать клики, дожидается обработки очереди и останавливает воркеров
func (p *ClickProcessor) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.clickChannel)
	p.mu.Unlock()

	p.logger.Info("Остановка процессора кликов...")
	p.wg.Wait()
	p.logger.Info("Процессор кликов остановлен")
}

// worker обрабатывает события кликов из канала до его закрытия
func (p *ClickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер кликов запущен", zap.Int("id", id))
	for event := range p.clickChannel {
		p.processClick(event)
	}
	p.logger.Debug("Воркер кликов остановлен", zap.Int("id", id))
}

// processClick обрабатывает одно событие клика с retry логикой
func (p *ClickProcessor) processClick(event clickEvent) {
	var err error
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		_, err = p.linkRepo.RecordClick(ctx, event.code, event.at)
		cancel()

		if err == nil {
			return
		}
		// Ссылку удалили, повторять бессмысленно. Резолвер мог успеть
		// положить её в кэш после удаления, поэтому сбрасываем запись.
		if errors.Is(err, repository.ErrLinkNotFound) {
			p.logger.Debug("Клик по удалённой ссылке пропущен", zap.String("code", event.code))
			p.evict(event.code)
			return
		}

		if i < maxRetries-1 {
			p.logger.Debug("Повторная попытка записи клика",
				zap.String("code", event.code),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}

	p.logger.Error("Не удалось записать клик после всех попыток",
		zap.String("code", event.code),
		zap.Error(err),
	)
}

// evict удаляет ссылку из кэша
func (p *ClickProcessor) evict(code string) {
	if p.cacheRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.cacheRepo.Delete(ctx, code); err != nil {
		p.logger.Warn("Не удалось сбросить кэш удалённой ссылки",
			zap.String("code", code),
			zap.Error(err),
		)
	}
}

// Record отправляет событие клика в worker pool (неблокирующая операция)
func (p *ClickProcessor) Record(ctx context.Context, code string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrRecorderStopped
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.clickChannel <- clickEvent{code: code, at: time.Now()}:
		return nil
	default:
		// Канал заполнен: не блокируем редирект, теряем только статистику
		p.dropWarn.Do(func() {
			p.logger.Warn("Буфер канала кликов заполнен, события теряются",
				zap.String("code", code),
				zap.Int("buffer_size", cap(p.clickChannel)),
			)
		})
		return nil
	}
}
