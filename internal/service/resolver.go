package service

import (
	"context"
	"errors"
	"time"

	"github.com/SergeiKhy/shortlink/internal/logger"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/SergeiKhy/shortlink/internal/shortcode"
	"go.uber.org/zap"
)

// Resolver превращает код в ссылку для редиректа и учитывает переход
type Resolver interface {
	Resolve(ctx context.Context, code string) (*models.Link, error)
}

type resolver struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository // может быть nil
	cacheTTL  time.Duration
	clicks    ClickRecorder
	logger    *zap.Logger
}

// NewResolver создаёт резолвер. cacheRepo может быть nil.
func NewResolver(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
	clicks ClickRecorder,
	log *zap.Logger,
) Resolver {
	return &resolver{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		cacheTTL:  cacheTTL,
		clicks:    clicks,
		logger:    logger.OrNop(log),
	}
}

// Resolve возвращает ссылку, на которую можно перенаправить посетителя.
// ErrLinkNotFound и ErrUnsafeTarget означают, что редиректа не будет.
// Ошибка учёта клика редирект не отменяет.
func (r *resolver) Resolve(ctx context.Context, code string) (*models.Link, error) {
	if !shortcode.Validate(code) {
		return nil, ErrLinkNotFound
	}

	link, err := r.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	// Ссылка могла попасть в хранилище в обход API
	if !shortcode.IsSafeTarget(link.TargetURL) {
		r.logger.Warn("Refusing redirect to unsafe target",
			zap.String("code", code),
			zap.String("target", link.TargetURL),
		)
		return nil, ErrUnsafeTarget
	}

	if err := r.clicks.Record(ctx, code); err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			// Кэш пережил удаление ссылки
			r.evict(ctx, code)
			return nil, ErrLinkNotFound
		}
		r.logger.Warn("Failed to record click, redirecting anyway",
			zap.String("code", code),
			zap.Error(err),
		)
	}

	return link, nil
}

// lookup сначала смотрит в кэш, затем в хранилище
func (r *resolver) lookup(ctx context.Context, code string) (*models.Link, error) {
	if r.cacheRepo != nil {
		link, err := r.cacheRepo.Get(ctx, code)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			r.logger.Warn("Cache read failed", zap.String("code", code), zap.Error(err))
		}
	}

	link, err := r.linkRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if r.cacheRepo != nil {
		if err := r.cacheRepo.Set(ctx, link, r.cacheTTL); err != nil {
			r.logger.Warn("Cache write failed", zap.String("code", code), zap.Error(err))
		}
	}

	return link, nil
}

func (r *resolver) evict(ctx context.Context, code string) {
	if r.cacheRepo == nil {
		return
	}
	if err := r.cacheRepo.Delete(ctx, code); err != nil {
		r.logger.Warn("Failed to invalidate cache", zap.String("code", code), zap.Error(err))
	}
}
