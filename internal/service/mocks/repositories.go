package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository for testing
type MockLinkRepository struct {
	mu    sync.RWMutex
	links map[string]*storedLink
	seq   int64

	// Errors injected into the matching operations when non-nil
	CreateErr      error
	GetErr         error
	RecordClickErr error

	// Calls counts per operation
	GetCalls         int
	RecordClickCalls int
}

type storedLink struct {
	link models.Link
	seq  int64
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links: make(map[string]*storedLink),
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, exists := m.links[link.Code]; exists {
		return repository.ErrCodeExists
	}

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	link.TotalClicks = 0
	link.LastClicked = nil

	m.seq++
	m.links[link.Code] = &storedLink{link: *link, seq: m.seq}
	return nil
}

// Put stores a link as is, bypassing every validation
func (m *MockLinkRepository) Put(link models.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.links[link.Code] = &storedLink{link: link, seq: m.seq}
}

func (m *MockLinkRepository) GetByCode(ctx context.Context, code string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	stored, exists := m.links[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	link := stored.link
	return &link, nil
}

func (m *MockLinkRepository) List(ctx context.Context) ([]*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := make([]*storedLink, 0, len(m.links))
	for _, s := range m.links {
		stored = append(stored, s)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq > stored[j].seq })

	links := make([]*models.Link, 0, len(stored))
	for _, s := range stored {
		link := s.link
		links = append(links, &link)
	}
	return links, nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[code]; !exists {
		return repository.ErrLinkNotFound
	}
	delete(m.links, code)
	return nil
}

func (m *MockLinkRepository) RecordClick(ctx context.Context, code string, at time.Time) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordClickCalls++
	if m.RecordClickErr != nil {
		return nil, m.RecordClickErr
	}

	stored, exists := m.links[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}

	stored.link.TotalClicks++
	at = at.UTC()
	if stored.link.LastClicked == nil || at.After(*stored.link.LastClicked) {
		stored.link.LastClicked = &at
	}

	link := stored.link
	return &link, nil
}

func (m *MockLinkRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = make(map[string]*storedLink)
	m.seq = 0
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]models.Link
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]models.Link),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.cache[code]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	return &link, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[link.Code] = *link
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, code)
	return nil
}

func (m *MockCacheRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]models.Link)
}
