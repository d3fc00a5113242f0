package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/shortlink/internal/config"
	"github.com/SergeiKhy/shortlink/internal/handler"
	"github.com/SergeiKhy/shortlink/internal/logger"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("Service stopped with error", zap.Error(err))
	}
}

// storage хранилище ссылок и функция его закрытия
type storage struct {
	links repository.LinkRepository
	close func()
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx := context.Background()

	store, err := openStorage(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer store.close()

	// Кэш имеет смысл только поверх другого хранилища
	var cacheRepo repository.CacheRepository
	if cfg.Cache.Enabled && cfg.Storage.Driver != config.DriverRedis {
		redisDB, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisDB.Close()
		zlog.Info("Connected to Redis cache")
		cacheRepo = repository.NewCacheRepository(redisDB)
	}

	// Учёт кликов
	var clicks service.ClickRecorder
	if cfg.Click.Mode == config.ClickModeAsync {
		processor := service.NewClickProcessor(store.links, cacheRepo, service.ClickProcessorConfig{
			Workers: cfg.Click.Workers,
			Buffer:  cfg.Click.Buffer,
			Timeout: cfg.Click.Timeout,
		}, zlog)
		processor.Start()
		clicks = processor
	} else {
		clicks = service.NewSyncClickRecorder(store.links, cfg.Click.Timeout)
	}
	// Воркеры должны закончить запись до закрытия хранилища
	defer clicks.Stop()

	// Инициализация сервисов
	linkService := service.NewLinkService(store.links, cacheRepo, zlog)
	resolver := service.NewResolver(store.links, cacheRepo, cfg.Cache.TTL, clicks, zlog)

	// Настройка роутера
	if cfg.Log.Format != "console" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(linkService, resolver, zlog, handler.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("Server starting",
			zap.String("port", cfg.App.Port),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("click_mode", cfg.Click.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-quit:
	}

	zlog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	zlog.Info("Server exited")
	return nil
}

// openStorage подключает хранилище ссылок согласно STORAGE_DRIVER
func openStorage(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := repository.NewPostgresDB(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		zlog.Info("Connected to PostgreSQL")
		return &storage{links: repository.NewLinkRepository(db), close: db.Close}, nil

	case config.DriverSQLite:
		repo, err := repository.NewSQLiteRepository(ctx, cfg.SQLite.URL)
		if err != nil {
			return nil, err
		}
		zlog.Info("Opened SQLite database", zap.String("url", cfg.SQLite.URL))
		return &storage{links: repo, close: func() {
			if err := repo.Close(); err != nil {
				zlog.Warn("Failed to close SQLite database", zap.Error(err))
			}
		}}, nil

	case config.DriverRedis:
		redisDB, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		zlog.Info("Connected to Redis")
		return &storage{links: repository.NewRedisLinkRepository(redisDB), close: func() {
			if err := redisDB.Close(); err != nil {
				zlog.Warn("Failed to close Redis client", zap.Error(err))
			}
		}}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
