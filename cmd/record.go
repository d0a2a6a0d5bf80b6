package cmd

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"recording-ingest/capture"
	"recording-ingest/config"
	"recording-ingest/pkg/rabbitmq"
	"recording-ingest/repository"
	server2 "recording-ingest/server"
	"recording-ingest/service"
	"recording-ingest/storage"
)

func record(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "capture a local stream and upload it in segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			// baseCtx outlives the signal: the final flush, the backlog
			// drain and the manifest write all happen after SIGINT and
			// must not run on a cancelled context.
			baseCtx := server2.SetupLogger(cfg)
			ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			stores, err := storage.NewFactory(&cfg.Storage)
			if err != nil {
				return err
			}

			var publisher rabbitmq.Publisher
			conn, err := config.NewRabbitMQConn(baseCtx, cfg.Queue)
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
			} else {
				publisher = rabbitmq.NewPublisher(conn, cfg.Queue)
			}

			repo := repository.NewRepo(cfg.DB)
			uploader := service.NewUploader(stores, cfg, repo, publisher)
			queue := service.NewUploadQueue(baseCtx, uploader, cfg.Server.Workers)

			sessionID := cfg.Record.SessionID
			if sessionID == "" {
				sessionID = strings.ReplaceAll(uuid.NewString(), "-", "")
			}

			source := capture.NewFFmpegSource(cfg.Record.InputURL, cfg.Record.MimeType)
			recorder, err := service.NewSessionRecorder(sessionID, cfg.Record.Interval, source, queue, uploader)
			if err != nil {
				return err
			}

			if err := recorder.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			if err := recorder.Stop(baseCtx); err != nil {
				zerolog.Ctx(baseCtx).Error().Err(err).Str("session_id", sessionID).Msg("manifest write failed")
			}
			queue.Close()

			return nil
		},
	}
}
