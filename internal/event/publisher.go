package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// EventPublisher sends notifications to a topic exchange. With an empty URL
// it is disabled and every publish is a no-op.
type EventPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	enabled      bool
	log          zerolog.Logger
}

func NewEventPublisher(rabbitURL, exchangeName string, log zerolog.Logger) (*EventPublisher, error) {
	log = log.With().Str("component", "event_publisher").Logger()
	if rabbitURL == "" {
		log.Warn().Msg("AMQP_URL is empty, event publishing is disabled")
		return &EventPublisher{enabled: false, log: log}, nil
	}

	conn, err := amqp091.Dial(rabbitURL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Info().Str("exchange", exchangeName).Msg("RabbitMQ connected")
	return &EventPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		enabled:      true,
		log:          log,
	}, nil
}

func (p *EventPublisher) publish(ctx context.Context, routingKey string, event any) error {
	if !p.enabled {
		p.log.Debug().Str("routing_key", routingKey).Msg("Event publishing disabled, skipping")
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.log.Debug().Str("routing_key", routingKey).Msg("Event published")
	return nil
}

// ApprovalRequested notifies reviewers of a new pending request.
func (p *EventPublisher) ApprovalRequested(ctx context.Context, a *model.ApprovalRequest) error {
	return p.publish(ctx, RouteApprovalRequested, approvalEvent(RouteApprovalRequested, a))
}

// ApprovalDecided notifies that a request was approved or rejected.
func (p *EventPublisher) ApprovalDecided(ctx context.Context, a *model.ApprovalRequest) error {
	return p.publish(ctx, RouteApprovalDecided, approvalEvent(RouteApprovalDecided, a))
}

// ExamFinished notifies that a session was scored.
func (p *EventPublisher) ExamFinished(ctx context.Context, r model.ExamResult) error {
	return p.publish(ctx, RouteExamFinished, ExamFinishedEvent{
		EventType:  RouteExamFinished,
		ResultID:   r.ID.String(),
		SessionID:  r.SessionID,
		ExamType:   r.ExamType,
		Candidate:  r.Candidate.Name,
		Score:      r.Score,
		Correct:    r.Correct,
		Total:      r.Total,
		OccurredAt: r.FinishedAt,
	})
}

func approvalEvent(eventType string, a *model.ApprovalRequest) ApprovalEvent {
	at := a.CreatedAt
	if a.DecidedAt != nil {
		at = *a.DecidedAt
	}
	return ApprovalEvent{
		EventType:  eventType,
		RequestID:  a.ID.String(),
		ExamType:   a.ExamType,
		Candidate:  a.Candidate.Name,
		Phone:      a.Candidate.Phone,
		Status:     string(a.Status),
		OccurredAt: at,
	}
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
