// Package events streams workflow transitions to Kafka.
//
// Every persisted transition becomes one WorkflowEvent keyed by episode id, so
// a topic partition sees an episode's events in order. Publishing is
// decoupled from the workflow actor through a bounded queue drained by a
// single worker; when the queue is full events are dropped and logged rather
// than stalling generation.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"podstudio/internal/config"
	"podstudio/internal/logging"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
	"podstudio/internal/workflow"
)

const defaultQueueSize = 256

// WorkflowEvent is the message payload.
type WorkflowEvent struct {
	EpisodeID      string                    `json:"episode_id"`
	RunID          string                    `json:"run_id,omitempty"`
	Status         workflow.Status           `json:"status"`
	PreviousStatus workflow.Status           `json:"previous_status"`
	Step           string                    `json:"step,omitempty"`
	Progress       int                       `json:"progress"`
	Error          string                    `json:"error,omitempty"`
	Result         *podcast.GenerationResult `json:"result,omitempty"`
	OccurredAt     time.Time                 `json:"occurred_at"`
}

// NewWorkflowEvent builds the event for a transition.
func NewWorkflowEvent(prev, next workflow.State) WorkflowEvent {
	occurred := next.UpdatedAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return WorkflowEvent{
		EpisodeID:      next.EpisodeID,
		RunID:          next.RunID,
		Status:         next.Status,
		PreviousStatus: prev.Status,
		Step:           next.CurrentStep,
		Progress:       next.Progress,
		Error:          next.Error,
		Result:         next.Result,
		OccurredAt:     occurred,
	}
}

// KafkaPublisher publishes workflow events through a sarama SyncProducer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger

	// mu guards closed and the send side of queue.
	mu        sync.RWMutex
	closed    bool
	queue     chan *sarama.ProducerMessage
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("events: publisher closed")

// NewProducerConfig returns the sarama settings used for workflow events.
func NewProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	if strings.TrimSpace(clientID) != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

// Open connects to the configured brokers.
func Open(cfg config.Events, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 || strings.TrimSpace(cfg.Topic) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "events", "open", "brokers and topic required", nil)
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig(cfg.ClientID))
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "events", "open", "connect to kafka", err)
	}
	return NewKafkaPublisher(producer, cfg.Topic, logger), nil
}

// NewKafkaPublisher wraps producer and starts the delivery worker.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logging.NewComponentLogger(logger, "events"),
		queue:    make(chan *sarama.ProducerMessage, defaultQueueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// OnTransition implements workflow.Listener.
func (p *KafkaPublisher) OnTransition(_ context.Context, prev, next workflow.State) {
	msg, err := p.message(NewWorkflowEvent(prev, next))
	if err != nil {
		p.logger.Warn("workflow event encode failed", logging.Error(err))
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Debug("workflow event after close ignored",
			logging.EpisodeID(next.EpisodeID),
			logging.String("status", string(next.Status)),
		)
		return
	}
	select {
	case p.queue <- msg:
	default:
		logging.WarnWithContext(p.logger, "workflow event dropped", "event_dropped",
			"kafka is slow or unreachable; check events.brokers",
			logging.EpisodeID(next.EpisodeID),
			logging.String("status", string(next.Status)),
		)
	}
}

// Publish sends event synchronously, bypassing the queue.
func (p *KafkaPublisher) Publish(event WorkflowEvent) error {
	msg, err := p.message(event)
	if err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	return p.send(msg)
}

// Close drains queued events and closes the producer.
func (p *KafkaPublisher) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		<-p.done
		p.closeErr = p.producer.Close()
	})
	return p.closeErr
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		if err := p.send(msg); err != nil {
			p.logger.Warn("workflow event publish failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "event_publish_failed"),
				logging.String(logging.FieldErrorHint, "check kafka broker health"),
			)
		}
	}
}

func (p *KafkaPublisher) message(event WorkflowEvent) (*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "events", "encode", "", err)
	}
	return &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.EpisodeID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("status"), Value: []byte(event.Status)},
		},
	}, nil
}

func (p *KafkaPublisher) send(msg *sarama.ProducerMessage) error {
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		if errors.Is(err, sarama.ErrClosedClient) {
			return err
		}
		return services.Wrap(services.ErrExternal, "events", "publish", "", err)
	}
	p.logger.Debug("workflow event published",
		logging.String("topic", msg.Topic),
		logging.Int("partition", int(partition)),
		logging.Int64("offset", offset),
	)
	return nil
}
