package reaction

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/blog-platform/services/social/internal/notify"
	"github.com/example/blog-platform/services/social/internal/store"
)

// Service persists reaction transitions. It holds no locks: the store's
// (user, post) uniqueness is the only guard, and a lost race is re-decided once.
type Service struct {
	Reactions store.ReactionStore
	Notify    notify.Emitter
	Log       *zap.Logger
}

func NewService(reactions store.ReactionStore, emitter notify.Emitter, log *zap.Logger) *Service {
	if emitter == nil {
		emitter = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Reactions: reactions, Notify: emitter, Log: log}
}

// Apply records userID's like (dislike=false) or dislike on postID and
// returns the recounted summary as seen by userID.
func (s *Service) Apply(ctx context.Context, userID, postID, authorID string, dislike bool) (Summary, error) {
	if userID == "" {
		return Summary{}, store.ErrUnauthorized
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		current, err := s.Reactions.Find(ctx, userID, postID)
		if err != nil {
			return Summary{}, err
		}
		var flag *bool
		if current != nil {
			flag = &current.Dislike
		}
		from := StateOf(flag)
		next, op := Decide(from, dislike)

		err = s.persist(ctx, op, userID, postID, next)
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			// another request for the same pair won; read again and re-decide
			s.Log.Debug("reaction race, retrying",
				zap.String("user_id", userID),
				zap.String("post_id", postID),
				zap.Stringer("op", op))
			lastErr = err
			continue
		}
		if err != nil {
			return Summary{}, err
		}

		s.Log.Debug("reaction applied",
			zap.String("user_id", userID),
			zap.String("post_id", postID),
			zap.Stringer("from", from),
			zap.Stringer("to", next))

		if ShouldNotifyLike(op, next, userID, authorID) {
			s.Notify.Emit(ctx, notify.Event{
				Type:       store.NotificationLike,
				NotifierID: userID,
				NotifiedID: authorID,
				PostID:     postID,
			})
		}
		return s.summarize(ctx, postID, next)
	}
	return Summary{}, fmt.Errorf("apply reaction: %w: %w", store.ErrStoreFailure, lastErr)
}

// Summary reads the current counters. userID may be empty for anonymous viewers.
func (s *Service) Summary(ctx context.Context, userID, postID string) (Summary, error) {
	mine := None
	if userID != "" {
		r, err := s.Reactions.Find(ctx, userID, postID)
		if err != nil {
			return Summary{}, err
		}
		if r != nil {
			mine = StateOf(&r.Dislike)
		}
	}
	return s.summarize(ctx, postID, mine)
}

func (s *Service) persist(ctx context.Context, op Op, userID, postID string, next State) error {
	switch op {
	case Create:
		return s.Reactions.Create(ctx, store.Reaction{UserID: userID, PostID: postID, Dislike: next == Disliked})
	case Update:
		return s.Reactions.Update(ctx, userID, postID, next == Disliked)
	case Delete:
		return s.Reactions.Delete(ctx, userID, postID)
	default:
		return nil
	}
}

func (s *Service) summarize(ctx context.Context, postID string, mine State) (Summary, error) {
	counts, err := s.Reactions.Counts(ctx, postID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Likes:        counts.Likes,
		Dislikes:     counts.Dislikes,
		LikedByMe:    mine == Liked,
		DislikedByMe: mine == Disliked,
	}, nil
}
