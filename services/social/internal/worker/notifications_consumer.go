package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/blog-platform/internal/platform/events"
	"github.com/example/blog-platform/internal/platform/idempotency"
	"github.com/example/blog-platform/services/social/internal/notify"
	"github.com/example/blog-platform/services/social/internal/store"
)

const durableName = "social_notify"

// errPoison marks a message that can never be processed and must not be redelivered.
var errPoison = errors.New("poison message")

// NotificationConsumer pulls social.notify.* events in batches and stores
// one notification per event id.
type NotificationConsumer struct {
	JS            nats.JetStreamContext
	Store         store.NotificationStore
	Dedup         idempotency.Store
	Log           *zap.Logger
	BatchSize     int
	BatchInterval time.Duration
}

// Run blocks until ctx is cancelled.
func (c *NotificationConsumer) Run(ctx context.Context) error {
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchInterval <= 0 {
		c.BatchInterval = 2 * time.Second
	}

	sub, err := c.JS.PullSubscribe(notify.SubjectPrefix+"*", durableName)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()
	c.Log.Info("notification consumer started", zap.String("durable", durableName))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(c.BatchSize, nats.MaxWait(c.BatchInterval))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.Log.Warn("notification fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, m := range msgs {
			c.settle(m, c.Process(ctx, m.Subject, m.Data))
		}
	}
}

func (c *NotificationConsumer) settle(m *nats.Msg, err error) {
	var ackErr error
	switch {
	case err == nil:
		ackErr = m.Ack()
	case errors.Is(err, errPoison):
		c.Log.Warn("dropping notification", zap.String("subject", m.Subject), zap.Error(err))
		ackErr = m.Term()
	default:
		c.Log.Warn("notification processing failed, will retry", zap.String("subject", m.Subject), zap.Error(err))
		ackErr = m.Nak()
	}
	if ackErr != nil {
		c.Log.Warn("notification ack failed", zap.String("subject", m.Subject), zap.Error(ackErr))
	}
}

// Process handles one delivery. Duplicates are acknowledged without effect;
// a failed write releases the event id so redelivery can succeed.
func (c *NotificationConsumer) Process(ctx context.Context, subject string, data []byte) error {
	var ev notify.Event
	env, err := events.Decode(data, &ev)
	if err != nil {
		return errors.Join(errPoison, err)
	}
	kind := strings.TrimPrefix(subject, notify.SubjectPrefix)
	if kind != store.NotificationLike && kind != store.NotificationReply {
		return errors.Join(errPoison, errors.New("unknown notification type "+kind))
	}
	if ev.Type != kind || env.EventID == "" || ev.NotifiedID == "" {
		return errors.Join(errPoison, errors.New("incomplete notification event"))
	}

	dup, err := c.Dedup.Check(ctx, env.EventID)
	if err != nil {
		return err
	}
	if dup {
		c.Log.Debug("duplicate notification skipped", zap.String("event_id", env.EventID))
		return nil
	}

	n, err := c.Store.Create(ctx, store.Notification{
		EventID:    env.EventID,
		Type:       ev.Type,
		NotifierID: ev.NotifierID,
		NotifiedID: ev.NotifiedID,
		PostID:     ev.PostID,
		CommentID:  ev.CommentID,
		CreatedAt:  env.OccurredAt,
	})
	if err != nil {
		if relErr := c.Dedup.Release(ctx, env.EventID); relErr != nil {
			c.Log.Warn("idempotency release failed", zap.String("event_id", env.EventID), zap.Error(relErr))
		}
		if errors.Is(err, store.ErrValidation) {
			return errors.Join(errPoison, err)
		}
		return err
	}
	c.Log.Debug("notification stored", zap.String("id", n.ID), zap.String("event_id", env.EventID))
	return nil
}
