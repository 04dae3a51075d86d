package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/ai"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/db"
	"github.com/docsage/docsage/internal/embedcache"
	"github.com/docsage/docsage/internal/filestore"
	"github.com/docsage/docsage/internal/handler"
	"github.com/docsage/docsage/internal/job"
	"github.com/docsage/docsage/internal/middleware"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/repo"
	"github.com/docsage/docsage/internal/schedule"
	"github.com/docsage/docsage/internal/service"
	"github.com/docsage/docsage/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docsage",
		Short: "docsage document chat server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docsage server",
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

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildAIStack(cfg *config.Config) (ai.IChatModel, ai.IEmbedder, error) {
	retryCfg := ai.RetryConfig{
		Attempts:  cfg.AI.Retry.Attempts,
		BaseDelay: time.Duration(cfg.AI.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:  time.Duration(cfg.AI.Retry.MaxDelayMs) * time.Millisecond,
	}
	chatProvider, err := ai.NewChatProvider(cfg.AI.ChatProvider, cfg.AI.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("init chat provider: %w", err)
	}
	chatModel := ai.WithChatRetry(ai.NewChatModel(chatProvider, cfg.AI.ChatModel), retryCfg)

	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("init embed provider: %w", err)
	}
	embedder := ai.WithEmbedRetry(ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel), retryCfg)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.EmbedCache.Size, cfg.EmbedCache.TTL())
	return chatModel, embedder, nil
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_store", cfg.VectorStore.Provider),
		zap.String("file_store", cfg.FileStore.Type),
	)

	chatModel, embedder, err := buildAIStack(cfg)
	if err != nil {
		return err
	}
	store, err := vectorstore.New(cfg.VectorStore.Provider, cfg.VectorStore.Data)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	var files filestore.Store
	switch cfg.FileStore.Type {
	case "s3":
		files, err = filestore.New("s3", cfg.FileStore.S3)
	default:
		files, err = filestore.New("local", map[string]interface{}{"dir": cfg.FileStore.Dir})
	}
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	registryRepo := repo.NewRegistryRepo(database)
	chatRepo := repo.NewChatRepo(redisClient)

	compressor := rag.NewCompressor(chatModel, nil)
	engine := rag.NewEngine(embedder, store, chatModel, compressor, cfg.ScoreThreshold)

	ingestService := service.NewIngestService(embedder, store, registryRepo, files,
		cfg.Chunking.ChunkSize, cfg.Chunking.Overlap, cfg.MaxUploadBytes, cfg.IngestWorkers)
	chatService := service.NewChatService(engine, chatRepo)

	deps := handler.RouterDeps{
		Documents:       handler.NewDocumentHandler(ingestService),
		Chat:            handler.NewChatHandler(chatService),
		UploadRateLimit: time.Duration(cfg.UploadRateLimitMs) * time.Millisecond,
	}

	webEngine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewRegistryReconcileJob(registryRepo, store), cfg.Jobs.RegistryReconcileCron); err != nil {
		return fmt.Errorf("schedule reconcile job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := webEngine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
