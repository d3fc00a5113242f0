package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortlink/internal/logger"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/SergeiKhy/shortlink/internal/shortcode"
	"go.uber.org/zap"
)

// Ошибки сервиса
var (
	ErrInvalidURL         = shortcode.ErrInvalidURL
	ErrUnsafeScheme       = shortcode.ErrUnsafeScheme
	ErrInvalidCode        = errors.New("code must be A-Za-z0-9 length 6-8")
	ErrCodeSpaceExhausted = errors.New("could not generate a free short code")
	ErrUnsafeTarget       = errors.New("stored target URL is not safe to redirect to")

	ErrLinkNotFound = repository.ErrLinkNotFound
	ErrCodeExists   = repository.ErrCodeExists
)

// maxGenerateAttempts сколько раз пробуем новый сгенерированный код при коллизии
const maxGenerateAttempts = 5

// LinkService интерфейс администрирования ссылок
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	ListLinks(ctx context.Context) ([]*models.Link, error)
	GetLink(ctx context.Context, code string) (*models.Link, error)
	DeleteLink(ctx context.Context, code string) error
}

// Option настройка linkService
type Option func(*linkService)

// WithGenerator подменяет генератор кодов
func WithGenerator(g shortcode.Generator) Option {
	return func(s *linkService) {
		s.generate = g
	}
}

// linkService реализация сервиса ссылок
type linkService struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository // может быть nil
	generate  shortcode.Generator
	logger    *zap.Logger
}

// NewLinkService создаёт новый экземпляр сервиса. cacheRepo может быть nil.
func NewLinkService(linkRepo repository.LinkRepository, cacheRepo repository.CacheRepository, log *zap.Logger, opts ...Option) LinkService {
	s := &linkService{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		generate:  shortcode.Generate,
		logger:    logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLink создаёт новую короткую ссылку. Входные данные проверяются заново,
// даже если их уже проверил HTTP-слой.
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	// Валидация URL
	if err := shortcode.ValidateTarget(input.TargetURL); err != nil {
		return nil, err
	}

	// Кастомный код: коллизия это ошибка клиента, повторов нет
	if input.HasCustomCode() {
		if !shortcode.Validate(*input.Code) {
			return nil, ErrInvalidCode
		}
		return s.insert(ctx, *input.Code, input.TargetURL)
	}

	// Сгенерированный код: ограниченное число попыток при коллизии
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		link, err := s.insert(ctx, code, input.TargetURL)
		if !errors.Is(err, ErrCodeExists) {
			return link, err
		}

		s.logger.Warn("Generated code collision, retrying",
			zap.String("code", code),
			zap.Int("attempt", attempt),
		)
	}

	return nil, ErrCodeSpaceExhausted
}

func (s *linkService) insert(ctx context.Context, code, targetURL string) (*models.Link, error) {
	link := &models.Link{
		Code:      code,
		TargetURL: targetURL,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.linkRepo.Create(ctx, link); err != nil {
		return nil, err
	}

	s.logger.Info("Link created", zap.String("code", link.Code))
	return link, nil
}

// ListLinks возвращает все ссылки, новые первыми
func (s *linkService) ListLinks(ctx context.Context) ([]*models.Link, error) {
	return s.linkRepo.List(ctx)
}

// GetLink получает ссылку из хранилища. Кэш не используется: в нём нет актуальных счётчиков.
func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	if !shortcode.Validate(code) {
		return nil, ErrLinkNotFound
	}
	return s.linkRepo.GetByCode(ctx, code)
}

// DeleteLink удаляет ссылку по короткому коду
func (s *linkService) DeleteLink(ctx context.Context, code string) error {
	if !shortcode.Validate(code) {
		return ErrLinkNotFound
	}

	// Удаляем из БД
	if err := s.linkRepo.Delete(ctx, code); err != nil {
		return err
	}

	// Удаляем кэш
	if s.cacheRepo != nil {
		if err := s.cacheRepo.Delete(ctx, code); err != nil {
			s.logger.Warn("Failed to invalidate cache", zap.String("code", code), zap.Error(err))
		}
	}

	s.logger.Info("Link deleted", zap.String("code", code))
	return nil
}
