package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// Subjects.
const (
	SubjectJourneyPrefix = "motolog.journey."
	SubjectPointPrefix   = "motolog.points."
	SubjectStatus        = "motolog.status"
	SubjectLive          = "motolog.live"
	SubjectSamplesPrefix = "motolog.samples."
	SubjectSamplesAll    = "motolog.samples.>"
)

// Streams returns the JetStream streams motolog relies on. Status and live
// updates are fire-and-forget and use core NATS.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      "MOTOLOG_JOURNEYS",
			Subjects:  []string{SubjectJourneyPrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    30 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "MOTOLOG_POINTS",
			Subjects:  []string{SubjectPointPrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "MOTOLOG_SAMPLES",
			Subjects:  []string{SubjectSamplesAll},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := EnsureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

// EnsureStreams creates or updates every stream in Streams.
func EnsureStreams(js nats.JetStreamContext) error {
	for _, cfg := range Streams() {
		cfg := cfg
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist — try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

func (p *Publisher) PublishJourneyEvent(ctx context.Context, event *domain.JourneyEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectJourneyPrefix+string(event.Type), data, nats.Context(ctx))
	return err
}

func (p *Publisher) PublishPoint(ctx context.Context, pt *domain.TrackPoint) error {
	data, err := json.Marshal(pt)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectPointPrefix+pt.JourneyID, data, nats.Context(ctx))
	return err
}

func (p *Publisher) PublishStatus(ctx context.Context, event *domain.StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectStatus, data)
}

func (p *Publisher) PublishLive(ctx context.Context, live *domain.LiveStats) error {
	data, err := json.Marshal(live)
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectLive, data)
}

// PublishReading queues a device reading on motolog.samples.<device> for
// the NATS sample source.
func (p *Publisher) PublishReading(ctx context.Context, device string, r domain.Reading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if device == "" {
		device = "default"
	}
	_, err = p.js.Publish(SubjectSamplesPrefix+device, data, nats.Context(ctx))
	return err
}

// JetStream exposes the JetStream context, e.g. for a SampleSource.
func (p *Publisher) JetStream() nats.JetStreamContext {
	return p.js
}

// Conn exposes the underlying connection.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("motolog"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
