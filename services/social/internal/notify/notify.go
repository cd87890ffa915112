// Package notify emits new-like and new-reply events toward the user who
// should hear about them. Delivery happens elsewhere.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/blog-platform/internal/platform/events"
	"github.com/example/blog-platform/internal/platform/natsconn"
)

const (
	SubjectPrefix = "social.notify."
	StreamName    = "SOCIAL_NOTIFY"
)

// Stream is the JetStream stream carrying notification events.
var Stream = natsconn.StreamSpec{Name: StreamName, Subject: SubjectPrefix + ">"}

// Event is the payload carried inside the events envelope.
type Event struct {
	Type       string `json:"type"`
	NotifierID string `json:"notifier_id"`
	NotifiedID string `json:"notified_id"`
	PostID     string `json:"post_id"`
	CommentID  string `json:"comment_id,omitempty"`
}

// Emitter is fire-and-forget: Emit never blocks on delivery and never fails.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// JetStream publishes events to social.notify.<type>.
type JetStream struct {
	pub *events.Publisher
	log *zap.Logger
}

func NewJetStream(pub *events.Publisher, log *zap.Logger) *JetStream {
	if log == nil {
		log = zap.NewNop()
	}
	return &JetStream{pub: pub, log: log}
}

// Emit skips events without a recipient and events addressed to their own notifier.
func (j *JetStream) Emit(_ context.Context, ev Event) {
	if ev.NotifiedID == "" || ev.NotifiedID == ev.NotifierID {
		return
	}
	id := j.pub.Publish(SubjectPrefix+ev.Type, ev.Type, ev.NotifierID, ev)
	if id != "" {
		j.log.Debug("notification emitted",
			zap.String("type", ev.Type),
			zap.String("event_id", id),
			zap.String("notified_id", ev.NotifiedID))
	}
}
