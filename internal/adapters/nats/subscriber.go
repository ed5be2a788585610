package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// SampleSource implements ports.SampleSource over the motolog.samples.>
// JetStream subjects. Devices or cmd/replay publish domain.Reading values.
type SampleSource struct {
	js      nats.JetStreamContext
	durable string
}

// NewSampleSource reads samples through js using a durable consumer.
func NewSampleSource(js nats.JetStreamContext, durable string) *SampleSource {
	if durable == "" {
		durable = "motolog-tracker"
	}
	return &SampleSource{js: js, durable: durable}
}

// DecodeReading parses a broker payload. A bare sample object is accepted
// as well as a {"sample":...} / {"failure":...} envelope. A sample without a
// timestamp is stamped with the time it was decoded.
func DecodeReading(data []byte) (domain.Reading, error) {
	var r domain.Reading
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.Reading{}, err
	}
	if r.Failure != nil && r.Failure.Kind == "" {
		r.Failure.Kind = domain.SensorErrorKindFromCode(r.Failure.Code)
	}
	if r.Sample == nil && r.Failure == nil {
		var s domain.Sample
		if err := json.Unmarshal(data, &s); err != nil {
			return domain.Reading{}, err
		}
		r.Sample = &s
	}
	if r.Sample != nil && r.Sample.Ts == 0 {
		r.Sample.Ts = time.Now().UnixMilli()
	}
	return r, nil
}

// Subscribe delivers readings until ctx is cancelled. The source options
// describe device behaviour and have no broker equivalent.
func (s *SampleSource) Subscribe(ctx context.Context, _ domain.SourceOptions) (<-chan domain.Reading, error) {
	msgs := make(chan *nats.Msg, 64)
	sub, err := s.js.ChanSubscribe(SubjectSamplesAll, msgs,
		nats.Durable(s.durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", SubjectSamplesAll, err)
	}

	out := make(chan domain.Reading)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				r, err := DecodeReading(msg.Data)
				if err != nil {
					slog.Warn("dropping malformed sample", "subject", msg.Subject, "error", err)
					// Redelivery cannot fix a malformed payload.
					_ = msg.Term()
					continue
				}
				select {
				case out <- r:
					_ = msg.Ack()
				case <-ctx.Done():
					_ = msg.Nak()
					return
				}
			}
		}
	}()

	return out, nil
}
