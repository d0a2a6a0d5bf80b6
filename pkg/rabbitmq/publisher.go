package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"recording-ingest/config"
	"recording-ingest/dto"
)

const (
	mergeExchangeName = "recording_exchange"
	mergeRoutingKey   = "recording.merge.request"
)

// Publisher hands finished sessions to the downstream merge worker.
type Publisher interface {
	PublishMergeRequest(ctx context.Context, msg dto.MergeRequestMessage) error
}

type publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) Publisher {
	return &publisher{
		conn: conn,
		cfg:  cfg,
	}
}

func (p *publisher) PublishMergeRequest(ctx context.Context, msg dto.MergeRequestMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(mergeExchangeName, p.cfg.Kind, true, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("exchange", mergeExchangeName).Msg("failed to declare exchange")
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		mergeExchangeName,
		mergeRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", msg.JobId.String()).
		Str("session_id", msg.SessionId).
		Int("total_chunks", msg.TotalChunks).
		Msg("published merge request")

	return nil
}
