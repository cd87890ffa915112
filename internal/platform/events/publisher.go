// Package events provides a fire-and-forget JetStream publisher with a
// canonical envelope shared by producers and consumers.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Envelope wraps every published payload.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventName  string          `json:"event_name"`
	ActorID    string          `json:"actor_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// AsyncPublisher is the subset of nats.JetStreamContext used here.
type AsyncPublisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
}

// Publisher publishes envelopes to JetStream.
// A nil pointer or a Publisher without a stream is a no-op stub.
type Publisher struct {
	js  AsyncPublisher
	log *zap.Logger
	now func() time.Time
}

// New creates a Publisher. Pass js=nil for a stub.
func New(js AsyncPublisher, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{js: js, log: log, now: time.Now}
}

// Publish marshals payload into an envelope and publishes it asynchronously.
// Failures are logged and never surface to the caller. The returned event id
// is empty when nothing was published.
func (p *Publisher) Publish(subject, eventName, actorID string, payload any) string {
	if p == nil || p.js == nil {
		return ""
	}
	ev := Envelope{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		ActorID:    actorID,
		OccurredAt: p.now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			p.log.Warn("events: marshal payload failed", zap.String("event", eventName), zap.Error(err))
			return ""
		}
		ev.Data = data
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal envelope failed", zap.String("event", eventName), zap.Error(err))
		return ""
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
		return ""
	}
	p.log.Debug("events: published", zap.String("subject", subject), zap.String("event_id", ev.EventID))
	return ev.EventID
}

// Decode parses an envelope and unmarshals its data into dest.
func Decode(raw []byte, dest any) (Envelope, error) {
	var ev Envelope
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Envelope{}, err
	}
	if dest != nil && len(ev.Data) > 0 {
		if err := json.Unmarshal(ev.Data, dest); err != nil {
			return ev, err
		}
	}
	return ev, nil
}
