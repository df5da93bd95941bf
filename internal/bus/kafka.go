package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

// KafkaBus publishes events as JSON messages on Kafka topics.
type KafkaBus struct {
	config   KafkaConfig
	producer sarama.SyncProducer
	consumer sarama.ConsumerGroup
	client   sarama.Client
	log      *logger.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool

	consumerWg sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string
	Version       string // e.g. "2.8.0"
	Timeout       time.Duration
}

// Kafka defaults.
const (
	DefaultKafkaClientID = "rice-insight-bus"
	DefaultKafkaGroup    = "rice-insight"
	DefaultKafkaVersion  = "2.8.0"
)

func (c *KafkaConfig) applyDefaults() {
	if c.ClientID == "" {
		c.ClientID = DefaultKafkaClientID
	}
	if c.Version == "" {
		c.Version = DefaultKafkaVersion
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// saramaConfig validates cfg and builds the client configuration.
func saramaConfig(cfg KafkaConfig) (*sarama.Config, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.ValidationError("kafka brokers cannot be empty")
	}
	if cfg.ConsumerGroup == "" {
		return nil, errors.ValidationError("kafka consumer group cannot be empty")
	}

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "invalid kafka version", err)
	}

	sc := sarama.NewConfig()
	sc.Version = version
	sc.ClientID = cfg.ClientID
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Retry.Max = 3
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Return.Errors = true
	sc.Net.DialTimeout = cfg.Timeout
	sc.Net.ReadTimeout = cfg.Timeout
	sc.Net.WriteTimeout = cfg.Timeout

	return sc, nil
}

// NewKafkaBus connects to the brokers and creates a Kafka-backed bus.
func NewKafkaBus(cfg KafkaConfig, log *logger.Logger) (*KafkaBus, error) {
	if log == nil {
		log = logger.Discard()
	}
	cfg.applyDefaults()

	sc, err := saramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := sarama.NewClient(cfg.Brokers, sc)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka client", err)
	}

	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka producer", err)
	}

	consumer, err := sarama.NewConsumerGroupFromClient(cfg.ConsumerGroup, client)
	if err != nil {
		producer.Close()
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka consumer group", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaBus{
		config:   cfg,
		producer: producer,
		consumer: consumer,
		client:   client,
		log:      log.WithComponent("bus.kafka"),
		handlers: make(map[string][]Handler),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Publish publishes an event to a Kafka topic keyed by its ID.
func (b *KafkaBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	msg, err := producerMessage(topic, event)
	if err != nil {
		return err
	}

	if _, _, err := b.producer.SendMessage(msg); err != nil {
		return errors.TransientError("kafka publish", err).WithDetail("topic", topic)
	}

	b.log.WithContext(ctx).Debug("Event published", "topic", topic, "event_id", event.ID)
	return nil
}

func producerMessage(topic string, event Event) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.InternalError("failed to marshal event", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
		Key:   sarama.StringEncoder(event.ID),
	}
	if event.CorrelationID != "" {
		msg.Headers = []sarama.RecordHeader{
			{Key: []byte("correlation_id"), Value: []byte(event.CorrelationID)},
		}
	}
	return msg, nil
}

// Subscribe registers a handler and starts a consumer for the topic on its
// first subscription.
func (b *KafkaBus) Subscribe(_ context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	isNewTopic := len(b.handlers[topic]) == 0
	b.handlers[topic] = append(b.handlers[topic], handler)

	if isNewTopic {
		b.consumerWg.Add(1)
		go b.consumeTopic(topic)
	}

	return nil
}

func (b *KafkaBus) consumeTopic(topic string) {
	defer b.consumerWg.Done()

	handler := &consumerGroupHandler{bus: b, topic: topic}
	for {
		// Consume blocks for the lifetime of a group session.
		if err := b.consumer.Consume(b.ctx, []string{topic}, handler); err != nil {
			b.log.WithError(err).Warn("Kafka consumer error", "topic", topic)
		}

		select {
		case <-b.ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (b *KafkaBus) topicHandlers(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handlers[topic]
}

// Close stops all consumers and releases Kafka resources. It is idempotent.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.consumerWg.Wait()

	var errs []string
	if err := b.consumer.Close(); err != nil {
		errs = append(errs, fmt.Sprintf("close consumer: %v", err))
	}
	if err := b.producer.Close(); err != nil {
		errs = append(errs, fmt.Sprintf("close producer: %v", err))
	}
	if err := b.client.Close(); err != nil && err != sarama.ErrClosedClient {
		errs = append(errs, fmt.Sprintf("close client: %v", err))
	}

	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()

	if len(errs) > 0 {
		return errors.New(errors.CodeInternal, "errors during close: "+strings.Join(errs, "; "))
	}
	return nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler.
type consumerGroupHandler struct {
	bus   *KafkaBus
	topic string
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim decodes messages and runs the topic handlers. Malformed
// messages and handler failures are logged and the offset is still marked.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok || msg == nil {
				return nil
			}

			var event Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				h.bus.log.WithError(err).Warn("Dropping malformed event", "topic", h.topic, "offset", msg.Offset)
				session.MarkMessage(msg, "")
				continue
			}

			for _, handler := range h.bus.topicHandlers(h.topic) {
				if err := handler(session.Context(), event); err != nil {
					h.bus.log.WithError(err).Warn("Event handler failed", "topic", h.topic, "event_id", event.ID)
				}
			}

			session.MarkMessage(msg, "")
		}
	}
}

// ParseKafkaBrokers parses a comma-separated list of brokers, dropping blanks.
func ParseKafkaBrokers(brokersStr string) []string {
	var brokers []string
	for _, b := range strings.Split(brokersStr, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
