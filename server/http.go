package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"recording-ingest/config"
	"recording-ingest/constant"
	ingestHandler "recording-ingest/handler"
	"recording-ingest/pkg/rabbitmq"
	"recording-ingest/repository"
	"recording-ingest/service"
	"recording-ingest/storage"
	"recording-ingest/vapi"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(SetupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	stores, err := storage.NewFactory(&cfg.Storage)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("NewFactory")
	}

	// A missing broker degrades the merge hand-off, not ingestion.
	var publisher rabbitmq.Publisher
	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	} else {
		publisher = rabbitmq.NewPublisher(conn, cfg.Queue)
	}

	repo := repository.NewRepo(cfg.DB)
	uploader := service.NewUploader(stores, cfg, repo, publisher)

	serviceDeps := ingestHandler.ServiceDependencies{
		Uploader:  uploader,
		Assistant: vapi.NewClient(cfg.Vapi),
	}

	r := gin.Default()
	addHealth(r)
	r.GET("/health/assistant", ingestHandler.AssistantHealth(serviceDeps))

	v1 := r.Group("/v1")
	{
		v1.POST("/sessions/:sessionId/chunks/:index", ingestHandler.UploadChunk(serviceDeps))
		v1.POST("/sessions/:sessionId/manifest", ingestHandler.UploadManifest(serviceDeps))
	}

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func SetupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
