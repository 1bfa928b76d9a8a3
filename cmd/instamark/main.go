package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/ai"
	"github.com/gulguleee/instamark/internal/config"
	"github.com/gulguleee/instamark/internal/embedcache"
	"github.com/gulguleee/instamark/internal/filestore"
	"github.com/gulguleee/instamark/internal/handler"
	"github.com/gulguleee/instamark/internal/job"
	"github.com/gulguleee/instamark/internal/middleware"
	"github.com/gulguleee/instamark/internal/repo"
	"github.com/gulguleee/instamark/internal/schedule"
	"github.com/gulguleee/instamark/internal/scraper"
	"github.com/gulguleee/instamark/internal/service"
	"github.com/gulguleee/instamark/internal/vectorindex"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "instamark",
		Short: "instamark backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run instamark server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sql.DB) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_path", cfg.DBPath),
		zap.String("scraper", cfg.Scraper.Type),
		zap.String("file_store", cfg.FileStore.Type),
	)

	bookmarkRepo := repo.NewBookmarkRepo(db)
	categoryRepo := repo.NewCategoryRepo(db)
	embedCacheRepo := repo.NewEmbeddingCacheRepo(db)

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	generator := ai.NewGenerator(aiProvider, cfg.AI.Model)
	embedder := embedcache.New(
		ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel),
		embedCacheRepo,
		cfg.EmbedCache.MemSize,
		time.Duration(cfg.EmbedCache.MemTTLMinutes)*time.Minute,
	)
	manager := ai.NewManager(generator, time.Duration(cfg.AI.Timeout)*time.Second, cfg.AI.MaxInputChars)

	index, err := vectorindex.New(ctx, embedder, filepath.Join(cfg.DataDir, "vector_index"))
	if err != nil {
		return fmt.Errorf("init vector index: %w", err)
	}

	client, err := scraper.New(cfg.Scraper.Type, cfg.Scraper.Data)
	if err != nil {
		return fmt.Errorf("init scraper: %w", err)
	}
	store, err := filestore.New(cfg.FileStore.Type, cfg.FileStore.Data)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	vocabService := service.NewVocabularyService(categoryRepo)
	classifier := service.NewClassifier(manager, vocabService)
	bookmarkService := service.NewBookmarkService(bookmarkRepo, classifier, index, client, store)
	searchService := service.NewSearchService(bookmarkRepo, index, manager, cfg.Search.SemanticLimit)
	recommendService := service.NewRecommendService(bookmarkRepo, vocabService, client, manager)

	deps := handler.RouterDeps{
		Bookmarks:     handler.NewBookmarkHandler(bookmarkService),
		Categories:    handler.NewCategoryHandler(vocabService, bookmarkService),
		Search:        handler.NewSearchHandler(searchService),
		Recommend:     handler.NewRecommendHandler(recommendService),
		Index:         handler.NewIndexHandler(bookmarkService),
		Files:         handler.NewFileHandler(store),
		RateLimitSpan: time.Duration(cfg.RateLimitMs) * time.Millisecond,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	if cfg.Jobs.VectorSync != "" {
		if err := scheduler.AddJob(job.NewVectorSyncJob(bookmarkService), cfg.Jobs.VectorSync); err != nil {
			return err
		}
	}
	if cfg.Jobs.ClassifyPending != "" {
		if err := scheduler.AddJob(job.NewClassifyPendingJob(bookmarkService, cfg.Jobs.ClassifyPendingBatch), cfg.Jobs.ClassifyPending); err != nil {
			return err
		}
	}
	if cfg.Jobs.EmbedCacheCleanup != "" {
		cleanup := job.NewEmbeddingCacheCleanupJob(embedCacheRepo, time.Duration(cfg.EmbedCache.DBMaxAgeDays)*24*time.Hour)
		if err := scheduler.AddJob(cleanup, cfg.Jobs.EmbedCacheCleanup); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
