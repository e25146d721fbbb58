// Package app wires the gallery engine's components into one value shared
// by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/providers/google"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"photogallery/internal/archive"
	"photogallery/internal/config"
	"photogallery/internal/database"
	"photogallery/internal/domain/gallery"
	"photogallery/internal/expiration"
	"photogallery/internal/ingest"
	"photogallery/internal/logging"
	"photogallery/internal/middleware"
	"photogallery/internal/modules/download"
	"photogallery/internal/modules/media"
	"photogallery/internal/modules/sections"
	"photogallery/internal/pkg/jwt"
	"photogallery/internal/queue"
	"photogallery/internal/repository"
	"photogallery/internal/sources"
	"photogallery/internal/sources/drive"
	"photogallery/internal/sources/scraper"
	"photogallery/internal/sources/sharedfolder"
	"photogallery/internal/storage"
	"photogallery/internal/storage/thumbnail"
)

const driveReadonlyScope = "https://www.googleapis.com/auth/drive.readonly"

type App struct {
	Config *config.Config
	DB     *gorm.DB
	Log    logging.Logger
	JWT    *jwt.Service

	Galleries   *repository.GalleryRepository
	Sections    *repository.SectionRepository
	Media       *repository.MediaRepository
	Users       *repository.UserRepository
	Credentials *repository.DriveCredentialRepository

	Storage    *storage.Service
	Archive    *archive.Service
	Refresher  *ingest.Refresher
	Schedulers []*ingest.Scheduler
	Expiration *expiration.Worker

	// Publisher and Consumer are nil unless RABBITMQ_URL is set.
	Publisher *queue.Publisher
	Consumer  *queue.Consumer

	redis    *redis.Client
	amqpConn *amqp.Connection
}

// New connects to every configured dependency and builds the engine.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.IsProd())
	return NewWithLogger(ctx, cfg, log)
}

func NewWithLogger(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	a := &App{
		Config:      cfg,
		DB:          db,
		Log:         log,
		JWT:         jwt.New(cfg.JWTSecret, cfg.JWTTTL),
		Galleries:   repository.NewGalleryRepository(db),
		Sections:    repository.NewSectionRepository(db),
		Media:       repository.NewMediaRepository(db),
		Users:       repository.NewUserRepository(db),
		Credentials: repository.NewDriveCredentialRepository(db),
	}

	backend, err := storage.NewBackend(ctx, cfg, log)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.Storage = storage.NewService(backend, cfg.StoragePublicBaseURL, thumbnail.New(), log)
	a.Archive = archive.NewService(a.Galleries, a.Media, a.Storage, cfg.ArchiveChunkBytes, log)
	a.Expiration = expiration.NewWorker(a.Galleries, a.Media, a.Storage, cfg.ExpirationInterval, log)

	a.Refresher = ingest.NewRefresher(
		a.adapters(),
		ingest.NewMerger(repository.NewExternalItemRepository(db)),
		a.Sections,
		a.locker(ctx),
		cfg.SectionLockTTL,
		log,
	)
	for _, t := range gallery.SyncedTypes {
		a.Schedulers = append(a.Schedulers,
			ingest.NewScheduler(t, a.Sections, a.Refresher, ingest.DefaultPolicy(), cfg.SyncTickInterval, log))
	}

	if cfg.RabbitMQURL != "" {
		if err := a.connectQueue(); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) adapters() []sources.Adapter {
	cfg := a.Config

	// A nil provider must stay a nil interface.
	var refresher drive.TokenRefresher
	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" {
		refresher = google.New(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL, driveReadonlyScope)
	}

	return []sources.Adapter{
		scraper.New(cfg.SourceFetchTimeout, cfg.ScraperUserAgent),
		drive.New(cfg.DriveAPIURL, cfg.SourceFetchTimeout, a.Credentials, refresher),
		sharedfolder.New(cfg.SharedFolderAPIURL, cfg.SourceFetchTimeout),
	}
}

// locker uses Redis when configured and reachable, otherwise a process-local
// lock that only serializes syncs within this process.
func (a *App) locker(ctx context.Context) ingest.Locker {
	if a.Config.Redis.Addr == "" {
		return ingest.NewMemoryLocker()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		a.Log.Warn(ctx, "redis unavailable, using in-process section locks", "addr", a.Config.Redis.Addr, "error", err)
		_ = client.Close()
		return ingest.NewMemoryLocker()
	}
	a.redis = client
	return ingest.NewRedisLocker(client)
}

func (a *App) connectQueue() error {
	conn, pubCh, err := queue.Dial(a.Config.RabbitMQURL)
	if err != nil {
		return err
	}
	a.amqpConn = conn
	if err := queue.Declare(pubCh); err != nil {
		return err
	}
	subCh, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open RabbitMQ consumer channel: %w", err)
	}
	a.Publisher = queue.NewPublisher(pubCh)
	a.Consumer = queue.NewConsumer(subCh, a.Refresher, a.Log)
	return nil
}

// Router builds the HTTP surface.
func (a *App) Router() *gin.Engine {
	if a.Config.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.ErrorLogger(a.Log))
	r.Use(middleware.CORS(a.Config.CORSAllowedOrigins))

	if a.Storage.BackendName() == "local" && strings.HasPrefix(a.Config.StoragePublicBaseURL, "/") {
		r.Static(a.Config.StoragePublicBaseURL, a.Config.StorageLocalDir)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Keep the interface nil when no queue is configured.
	var publisher sections.Publisher
	if a.Publisher != nil {
		publisher = a.Publisher
	}

	v1 := r.Group("/api/v1")
	download.NewHandler(download.NewService(a.Archive)).RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(a.JWT))
	sections.NewHandler(sections.NewService(a.Sections, a.Galleries, a.Refresher, publisher), a.Galleries).RegisterRoutes(protected)
	media.NewHandler(
		media.NewService(a.Storage, a.Media, a.Users, a.Config.UploadConcurrency, a.Config.UploadMaxBytes, a.Log),
		a.Galleries,
	).RegisterRoutes(protected)

	return r
}

// RunBackground runs the sync schedulers, the expiration worker and, when
// configured, the refresh consumer until ctx is cancelled.
func (a *App) RunBackground(ctx context.Context) error {
	if a.Consumer != nil {
		if err := a.Consumer.Start(ctx); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range a.Schedulers {
		g.Go(func() error {
			s.Run(ctx)
			return nil
		})
	}
	g.Go(func() error {
		a.Expiration.Run(ctx)
		return nil
	})
	return g.Wait()
}

func (a *App) Close() error {
	var errs []error
	if a.amqpConn != nil {
		errs = append(errs, a.amqpConn.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
