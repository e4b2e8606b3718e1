package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"socialmatch/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitBroker публикует события пользователей в topic exchange (routing key user.<id>)
// и разносит их по WebSocket-подключениям этого инстанса
type RabbitBroker struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
	log      *zap.Logger
}

func NewRabbitBroker(conf config.RabbitMQConfig, log *zap.Logger) (*RabbitBroker, error) {
	if conf.URL == "" {
		return nil, fmt.Errorf("rabbitmq url is not configured")
	}
	conn, err := amqp.Dial(conf.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		conf.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	log.Info("RabbitMQ initialized", zap.String("exchange", conf.Exchange))
	return &RabbitBroker{conn: conn, channel: ch, exchange: conf.Exchange, log: log}, nil
}

func routingKey(userID int64) string {
	return fmt.Sprintf("user.%d", userID)
}

func (b *RabbitBroker) Publish(ctx context.Context, msg PushMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	// канал amqp не потокобезопасен для публикации
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channel.PublishWithContext(ctx,
		b.exchange,
		routingKey(msg.UserID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// StartConsumer слушает очередь queueName и передает события в ws
func (b *RabbitBroker) StartConsumer(ctx context.Context, queueName string, ws *WSConnManager) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "user.*", b.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := ch.Consume(
		q.Name,
		"",
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					b.log.Warn("RabbitMQ delivery channel closed", zap.String("queue", q.Name))
					return
				}
				b.dispatch(d.Body, ws)
			}
		}
	}()
	return nil
}

func (b *RabbitBroker) dispatch(body []byte, ws *WSConnManager) {
	var msg PushMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		b.log.Error("failed to unmarshal push message", zap.Error(err))
		return
	}
	ws.Send(msg.UserID, body)
}

func (b *RabbitBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil {
		_ = b.channel.Close()
	}
	return b.conn.Close()
}
