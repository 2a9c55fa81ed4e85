package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	RelayExchange     = "order_events"
	DefaultKafkaTopic = "order-events"
	relayTimeout      = 5 * time.Second
)

// Relay forwards events to a broker for consumers outside this process.
type Relay interface {
	Publisher
	io.Closer
}

// NewRelay picks a broker from the URL scheme: amqp(s):// for RabbitMQ,
// kafka://host:port[,host:port]/topic for Kafka.
func NewRelay(rawURL string, logger *zap.Logger) (Relay, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	switch u.Scheme {
	case "amqp", "amqps":
		return DialAMQPRelay(rawURL, logger)
	case "kafka":
		brokers, topic := kafkaTarget(u)
		return NewKafkaRelay(brokers, topic, logger), nil
	default:
		return nil, fmt.Errorf("unsupported relay scheme %q", u.Scheme)
	}
}

func kafkaTarget(u *url.URL) (brokers []string, topic string) {
	for _, b := range strings.Split(u.Host, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	topic = strings.Trim(u.Path, "/")
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return brokers, topic
}

// AMQPRelay publishes to a durable fanout exchange, routing key = event type.
type AMQPRelay struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

func DialAMQPRelay(rawURL string, logger *zap.Logger) (*AMQPRelay, error) {
	conn, err := amqp.Dial(rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		RelayExchange, // name
		"fanout",      // type
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", RelayExchange, err)
	}

	logger.Info("Connected event relay to RabbitMQ", zap.String("exchange", RelayExchange))
	return &AMQPRelay{conn: conn, channel: channel, logger: logger}, nil
}

func (r *AMQPRelay) Publish(ctx context.Context, e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		r.logger.Error("Failed to encode relayed event", zap.String("event", string(e.Type)), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), relayTimeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	err = r.channel.PublishWithContext(ctx,
		RelayExchange,  // exchange
		string(e.Type), // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.Key,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		r.logger.Error("Failed to relay event to RabbitMQ", zap.String("event", string(e.Type)), zap.Error(err))
	}
}

func (r *AMQPRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// KafkaRelay writes events to a topic keyed by the event's Key so that all
// events for one order land on one partition. Writes are async; failures
// surface in the log only.
type KafkaRelay struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaRelay(brokers []string, topic string, logger *zap.Logger) *KafkaRelay {
	logger.Info("Configured event relay to Kafka", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &KafkaRelay{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
			Async:                  true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Error("Failed to relay events to Kafka", zap.Int("messages", len(messages)), zap.Error(err))
				}
			},
		},
		logger: logger,
	}
}

func (r *KafkaRelay) Publish(ctx context.Context, e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		r.logger.Error("Failed to encode relayed event", zap.String("event", string(e.Type)), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), relayTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(e.Key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(e.Type)},
		},
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		r.logger.Error("Failed to relay event to Kafka", zap.String("event", string(e.Type)), zap.Error(err))
	}
}

func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}
