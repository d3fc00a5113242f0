package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefixLink префикс хэша одной ссылки
	KeyPrefixLink = "shortlink:link:"
	// KeyLinksIndex sorted set кодов, score = порядковый номер создания
	KeyLinksIndex = "shortlink:links"
	// KeyLinksSeq счётчик порядковых номеров
	KeyLinksSeq = "shortlink:links:seq"
)

// Все мутации выполняются Lua-скриптами: Redis исполняет скрипт атомарно,
// поэтому проверка уникальности и вставка не разделены гонкой.
var (
	createLinkScript = redis.NewScript(`
		if redis.call('EXISTS', KEYS[1]) == 1 then
			return 0
		end
		local seq = redis.call('INCR', KEYS[3])
		redis.call('HSET', KEYS[1],
			'code', ARGV[1],
			'target_url', ARGV[2],
			'total_clicks', 0,
			'created_at', ARGV[3])
		redis.call('ZADD', KEYS[2], seq, ARGV[1])
		return 1
	`)

	recordClickScript = redis.NewScript(`
		if redis.call('EXISTS', KEYS[1]) == 0 then
			return false
		end
		redis.call('HINCRBY', KEYS[1], 'total_clicks', 1)
		local last = tonumber(redis.call('HGET', KEYS[1], 'last_clicked') or '0')
		if tonumber(ARGV[1]) > last then
			redis.call('HSET', KEYS[1], 'last_clicked', ARGV[1])
		end
		return redis.call('HGETALL', KEYS[1])
	`)

	deleteLinkScript = redis.NewScript(`
		if redis.call('DEL', KEYS[1]) == 0 then
			return 0
		end
		redis.call('ZREM', KEYS[2], ARGV[1])
		return 1
	`)
)

// RedisLinkRepository LinkRepository поверх Redis: хэш на ссылку плюс индекс по порядку создания.
// Время хранится в микросекундах Unix, чтобы оставаться точным числом в Lua.
type RedisLinkRepository struct {
	redis *RedisDB
}

func NewRedisLinkRepository(redis *RedisDB) *RedisLinkRepository {
	return &RedisLinkRepository{redis: redis}
}

// LinkKey возвращает ключ хэша ссылки
func LinkKey(code string) string {
	return KeyPrefixLink + code
}

func (r *RedisLinkRepository) Create(ctx context.Context, link *models.Link) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	createdAt := link.CreatedAt.UnixMicro()

	created, err := createLinkScript.Run(ctx, r.redis.Client,
		[]string{LinkKey(link.Code), KeyLinksIndex, KeyLinksSeq},
		link.Code, link.TargetURL, createdAt,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	if created == 0 {
		return ErrCodeExists
	}

	link.CreatedAt = time.UnixMicro(createdAt).UTC()
	link.TotalClicks = 0
	link.LastClicked = nil

	return nil
}

func (r *RedisLinkRepository) GetByCode(ctx context.Context, code string) (*models.Link, error) {
	fields, err := r.redis.Client.HGetAll(ctx, LinkKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrLinkNotFound
	}

	return linkFromHash(fields)
}

func (r *RedisLinkRepository) List(ctx context.Context) ([]*models.Link, error) {
	codes, err := r.redis.Client.ZRevRange(ctx, KeyLinksIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list link codes: %w", err)
	}

	links := make([]*models.Link, 0, len(codes))
	if len(codes) == 0 {
		return links, nil
	}

	pipe := r.redis.Client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(codes))
	for i, code := range codes {
		cmds[i] = pipe.HGetAll(ctx, LinkKey(code))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		// Ссылку могли удалить между ZREVRANGE и HGETALL
		if len(fields) == 0 {
			continue
		}
		link, err := linkFromHash(fields)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, nil
}

func (r *RedisLinkRepository) Delete(ctx context.Context, code string) error {
	deleted, err := deleteLinkScript.Run(ctx, r.redis.Client,
		[]string{LinkKey(code), KeyLinksIndex},
		code,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if deleted == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *RedisLinkRepository) RecordClick(ctx context.Context, code string, at time.Time) (*models.Link, error) {
	reply, err := recordClickScript.Run(ctx, r.redis.Client,
		[]string{LinkKey(code)},
		at.UnixMicro(),
	).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to record click: %w", err)
	}

	fields := make(map[string]string, len(reply)/2)
	for i := 0; i+1 < len(reply); i += 2 {
		fields[reply[i]] = reply[i+1]
	}

	return linkFromHash(fields)
}

func linkFromHash(fields map[string]string) (*models.Link, error) {
	link := &models.Link{
		Code:      fields["code"],
		TargetURL: fields["target_url"],
	}

	totalClicks, err := strconv.ParseInt(fields["total_clicks"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupted total_clicks for %s: %w", link.Code, err)
	}
	link.TotalClicks = totalClicks

	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupted created_at for %s: %w", link.Code, err)
	}
	link.CreatedAt = time.UnixMicro(createdAt).UTC()

	if raw, ok := fields["last_clicked"]; ok && raw != "" {
		lastClicked, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupted last_clicked for %s: %w", link.Code, err)
		}
		t := time.UnixMicro(lastClicked).UTC()
		link.LastClicked = &t
	}

	return link, nil
}
