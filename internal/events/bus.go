// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/assistmove/internal/config"
	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/metrics"
	"github.com/tomtom215/assistmove/internal/models"
)

// Default topic names.
const (
	DefaultNotificationsTopic = "notifications"
	DefaultMessagesTopic      = "chat.messages"
)

// Transport names reported by Bus.Transport.
const (
	TransportMemory   = "gochannel"
	TransportNATS     = "nats"
	TransportEmbedded = "nats-embedded"
)

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("event bus closed")

// Bus is a Watermill publisher and subscriber pair.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	embedded   *server.Server
	transport  string

	notificationsTopic string
	messagesTopic      string

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus for the configured transport.
func NewBus(cfg *config.EventsConfig) (*Bus, error) {
	logger := logging.NewEventLogger()

	b := &Bus{
		notificationsTopic: orDefault(cfg.NotificationsTopic, DefaultNotificationsTopic),
		messagesTopic:      orDefault(cfg.MessagesTopic, DefaultMessagesTopic),
	}

	url := cfg.NATSURL
	if url == "" && cfg.EmbeddedNATS {
		ns, err := startEmbedded(cfg.EmbeddedPort)
		if err != nil {
			return nil, err
		}
		b.embedded = ns
		url = ns.ClientURL()
	}

	if url == "" {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		b.publisher, b.subscriber = ch, ch
		b.transport = TransportMemory
		return b, nil
	}

	pub, sub, err := newNATSPubSub(url, logger)
	if err != nil {
		if b.embedded != nil {
			b.embedded.Shutdown()
		}
		return nil, err
	}
	b.publisher, b.subscriber = pub, sub
	b.transport = TransportNATS
	if b.embedded != nil {
		b.transport = TransportEmbedded
	}
	return b, nil
}

func newNATSPubSub(url string, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	// Notifications are fire-and-forget; the offline queue is the durable
	// path, so core NATS is enough.
	js := wmNats.JetStreamConfig{Disabled: true}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   js,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: "assistmove",
		SubscribersCount: 1,
		CloseTimeout:     5 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        js,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return pub, sub, nil
}

// startEmbedded runs a NATS server inside the process. Port -1 picks a
// free port.
func startEmbedded(port int) (*server.Server, error) {
	if port == 0 {
		port = -1
	}
	ns, err := server.NewServer(&server.Options{
		ServerName: "assistmove-events",
		Host:       "127.0.0.1",
		Port:       port,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}
	logging.Info().Str("url", ns.ClientURL()).Msg("Embedded NATS server started")
	return ns, nil
}

// Transport names the active transport.
func (b *Bus) Transport() string { return b.transport }

// NotificationsTopic returns the topic the Relay consumes.
func (b *Bus) NotificationsTopic() string { return b.notificationsTopic }

// MessagesTopic returns the topic persisted messages are published to.
func (b *Bus) MessagesTopic() string { return b.messagesTopic }

// Publish marshals payload and publishes it to topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}, metadata map[string]string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	for k, v := range metadata {
		msg.Metadata.Set(k, v)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}

	err = b.publisher.Publish(topic, msg)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.EventsPublished.WithLabelValues(topic, outcome).Inc()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishMessage publishes a persisted chat message.
func (b *Bus) PublishMessage(ctx context.Context, msg *models.Message) error {
	return b.Publish(ctx, b.messagesTopic, msg, map[string]string{
		"conversation_key": msg.ConversationKey(),
		"sender_id":        strconv.FormatInt(msg.SenderID, 10),
	})
}

// PublishNotification publishes a notification for the Relay.
func (b *Bus) PublishNotification(ctx context.Context, n models.Notification) error {
	return b.Publish(ctx, b.notificationsTopic, n, map[string]string{
		"user_id": strconv.FormatInt(n.UserID, 10),
	})
}

// Subscribe returns the messages published to topic until ctx ends.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

// Close shuts down the transport and the embedded server, if any.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	// gochannel is one object for both roles.
	if b.transport != TransportMemory {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.embedded != nil {
		b.embedded.Shutdown()
		b.embedded.WaitForShutdown()
	}
	return errors.Join(errs...)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
