package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Exam event kinds published to the broker.
const (
	EventSubmissionFinalized = "submission.finalized"
	EventAnswerRegraded      = "answer.regraded"
)

// ExamEvent is the wire payload fanned out after ledger mutations.
type ExamEvent struct {
	Kind       string    `json:"kind"`
	ExamID     uint      `json:"exam_id"`
	StudentID  uint      `json:"student_id"`
	ActorID    uint      `json:"actor_id"`
	TotalScore float64   `json:"total_score"`
	SentAt     time.Time `json:"sent_at"`
}

// EventPublisher fans exam lifecycle events out to interested consumers.
// Publishing is best effort: a broker outage never fails the request that
// produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event ExamEvent)
}

type eventPublisher struct {
	nats        *nats.Conn
	natsSubject string
	redis       *redis.Client
	redisStream string
	logger      zerolog.Logger
}

// NewEventPublisher constructs the publisher. Both connections are optional;
// nil disables the corresponding sink.
func NewEventPublisher(natsConn *nats.Conn, redisClient *redis.Client, channelBase string, logger zerolog.Logger) EventPublisher {
	subject := ""
	stream := ""
	if channelBase != "" {
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
		stream = channelBase + ":events"
	}

	return &eventPublisher{
		nats:        natsConn,
		natsSubject: subject,
		redis:       redisClient,
		redisStream: stream,
		logger:      logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *eventPublisher) Publish(ctx context.Context, event ExamEvent) {
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("kind", event.Kind).Msg("failed to marshal exam event")
		return
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject+"."+event.Kind, payload); err != nil {
			p.logger.Warn().Err(err).Str("kind", event.Kind).Msg("failed to publish exam event to nats")
		}
	}

	if p.redis != nil && p.redisStream != "" {
		if err := p.redis.Publish(ctx, p.redisStream, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("kind", event.Kind).Msg("failed to publish exam event to redis")
		}
	}
}
