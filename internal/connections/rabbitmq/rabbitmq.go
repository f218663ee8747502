package rabbitmq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-system/internal/common/config"
	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/common/retry"
)

const (
	NotificationsExchange = "notifications_fanout"
	NotificationsQueue    = "notifications.q"
	deadLetterExchange    = "dlx"
	deadLetterQueue       = "dlq"

	maxRetries = 10
	retryDelay = 2 * time.Second
)

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation
	mu   sync.Mutex // publishes are serialized while waiting for confirms
}

func (c *Client) Channel() *amqp.Channel { return c.ch }

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func URL(cfg config.MQ) string {
	scheme := "amqp"
	if cfg.TLS {
		scheme = "amqps"
	}
	vhost := cfg.VHost
	if vhost == "" || vhost == "/" {
		vhost = ""
	}
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.User, cfg.Pass),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + vhost,
	}
	return u.String()
}

func Dial(cfg config.MQ) (*Client, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.TLS {
		conn, err = amqp.DialTLS(URL(cfg), &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(URL(cfg))
	}
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &Client{conn: conn, ch: ch, acks: acks}, nil
}

// Connect dials until the broker answers, then declares the topology.
func Connect(ctx context.Context, cfg config.MQ, lg *logger.Logger) (*Client, error) {
	policy := retry.Fixed(maxRetries, retryDelay)
	policy.Log = lg
	c, err := retry.Value(ctx, policy, func(context.Context) (*Client, error) {
		c, err := Dial(cfg)
		if err != nil {
			return nil, err
		}
		if err := c.DeclareTopology(); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rabbitmq connect canceled: %w", err)
		}
		return nil, fmt.Errorf("rabbitmq unreachable after %d attempts: %w", maxRetries, err)
	}
	lg.Info("rabbitmq_connected", map[string]any{"host": cfg.Host, "port": cfg.Port})
	return c, nil
}

// DeclareTopology declares the notifications fanout and its durable queue,
// dead-lettering rejected messages to dlq.
func (c *Client) DeclareTopology() error {
	if c == nil || c.ch == nil {
		return errors.New("nil channel")
	}
	if err := c.ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.ch.ExchangeDeclare(deadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(NotificationsQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    deadLetterExchange,
		"x-dead-letter-routing-key": deadLetterQueue,
	}); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(deadLetterQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.ch.QueueBind(deadLetterQueue, deadLetterQueue, deadLetterExchange, false, nil); err != nil {
		return err
	}
	return c.ch.QueueBind(NotificationsQueue, "", NotificationsExchange, false, nil)
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Publish sends a message and waits for the broker's ack or nack.
func (c *Client) Publish(ctx context.Context, exchange, key string,
	body []byte, headers amqp.Table, contentType string, persistent bool) error {

	c.mu.Lock()
	defer c.mu.Unlock()

	mode := amqp.Transient
	if persistent {
		mode = amqp.Persistent
	}

	if err := c.ch.PublishWithContext(
		ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: mode,
			ContentType:  contentType,
			Timestamp:    time.Now().UTC(),
			Headers:      headers,
			Body:         body,
		},
	); err != nil {
		return err
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return c.ch.Consume(queue, consumer, false, false, false, false, nil)
}
