package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrBacklogFull is returned when the sender has more unsent events than it buffers.
var ErrBacklogFull = errors.New("kafka backlog full")

var errPublisherClosed = errors.New("kafka publisher closed")

const kafkaBacklog = 256

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues events and writes them to the broker from a background
// sender, so Publish never waits on the network.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	pending chan kafka.Message
	done    chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaPublisher(writer, logger, kafkaBacklog)
}

func newKafkaPublisher(writer messageWriter, logger zerolog.Logger, backlog int) *KafkaPublisher {
	p := &KafkaPublisher{
		writer:  writer,
		timeout: 5 * time.Second,
		log:     logger,
		pending: make(chan kafka.Message, backlog),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) Publish(_ context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errPublisherClosed
	}
	select {
	case p.pending <- msg:
		return nil
	default:
		return fmt.Errorf("drop %s: %w", event.Type, ErrBacklogFull)
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.pending {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.log.Warn().Err(err).Str("key", string(msg.Key)).Msg("write call event to kafka")
		}
		cancel()
	}
}

// Close flushes queued events and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.pending)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}
