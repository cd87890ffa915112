package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/example/blog-platform/services/social/internal/reaction"
)

// ErrSuperseded is returned to a React caller whose action was overtaken by
// a newer action on the same post before the server answered.
var ErrSuperseded = errors.New("reaction superseded by a newer action")

// Remote is the authoritative side of the coordinator. *Client satisfies it.
type Remote interface {
	React(ctx context.Context, postID string, dislike bool) (reaction.Summary, error)
	Reactions(ctx context.Context, postID string) (reaction.Summary, error)
}

type postState struct {
	summary reaction.Summary
	// gen changes on every local write; a finishing action only touches the
	// cache when gen still holds the value it set.
	gen     uint64
	pending int
}

// Coordinator applies predicted reaction transitions to a local cache before
// the server confirms them, then commits or rolls back.
type Coordinator struct {
	remote         Remote
	log            *zap.Logger
	refetchTimeout time.Duration

	mu       sync.Mutex
	posts    map[string]*postState
	onChange func(postID string, s reaction.Summary)

	fetches  singleflight.Group
	inflight sync.WaitGroup
}

func NewCoordinator(remote Remote, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		remote:         remote,
		log:            log,
		refetchTimeout: 10 * time.Second,
		posts:          make(map[string]*postState),
	}
}

// OnChange registers fn to receive every change of the local view. fn may be
// called from background refetches and must not block.
func (c *Coordinator) OnChange(fn func(postID string, s reaction.Summary)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Set seeds the local view, typically from a page load.
func (c *Coordinator) Set(postID string, s reaction.Summary) {
	c.mu.Lock()
	st := c.stateLocked(postID)
	st.gen++
	st.summary = s
	fn := c.onChange
	c.mu.Unlock()
	emit(fn, postID, s)
}

// State returns the local view of postID.
func (c *Coordinator) State(postID string) (reaction.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.posts[postID]
	if !ok {
		return reaction.Summary{}, false
	}
	return st.summary, true
}

// React predicts the outcome of a like (dislike=false) or dislike, shows it
// immediately and then asks the server. On failure the view is restored to
// exactly what it was before the call. A refetch of the authoritative state
// is scheduled whatever the outcome.
func (c *Coordinator) React(ctx context.Context, postID string, dislike bool) (reaction.Summary, error) {
	c.mu.Lock()
	st := c.stateLocked(postID)
	snapshot := st.summary
	st.gen++
	gen := st.gen
	st.pending++
	st.summary = reaction.Predict(snapshot, dislike)
	predicted := st.summary
	fn := c.onChange
	c.mu.Unlock()
	emit(fn, postID, predicted)

	result, err := c.remote.React(ctx, postID, dislike)

	c.mu.Lock()
	st.pending--
	current := st.gen == gen
	if current {
		if err != nil {
			st.summary = snapshot
		} else {
			st.summary = result
		}
	}
	view := st.summary
	fn = c.onChange
	c.mu.Unlock()

	c.scheduleRefetch(postID)

	if !current {
		c.log.Debug("reaction superseded", zap.String("post_id", postID), zap.Error(err))
		return view, ErrSuperseded
	}
	emit(fn, postID, view)
	if err != nil {
		c.log.Warn("reaction rolled back", zap.String("post_id", postID), zap.Bool("dislike", dislike), zap.Error(err))
		return view, err
	}
	return view, nil
}

// maxRefetchRounds bounds how often a scheduled refetch retries after
// joining a fetch that overlapped a local action.
const maxRefetchRounds = 3

type fetchResult struct {
	summary reaction.Summary
	applied bool
}

// Refresh fetches the authoritative summary. Concurrent refreshes of the same
// post share one request. The result is applied only when no local action
// started or finished while it was in flight.
func (c *Coordinator) Refresh(ctx context.Context, postID string) (reaction.Summary, error) {
	res, err := c.refresh(ctx, postID)
	return res.summary, err
}

func (c *Coordinator) refresh(ctx context.Context, postID string) (fetchResult, error) {
	v, err, _ := c.fetches.Do(postID, func() (interface{}, error) {
		c.mu.Lock()
		st := c.stateLocked(postID)
		startGen, clean := st.gen, st.pending == 0
		c.mu.Unlock()

		s, err := c.remote.Reactions(ctx, postID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		applied := clean && st.gen == startGen && st.pending == 0
		if applied {
			st.gen++
			st.summary = s
		}
		fn := c.onChange
		c.mu.Unlock()
		if applied {
			emit(fn, postID, s)
		}
		return fetchResult{summary: s, applied: applied}, nil
	})
	if err != nil {
		return fetchResult{}, err
	}
	return v.(fetchResult), nil
}

// Wait blocks until every scheduled refetch has finished.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// scheduleRefetch reconciles postID in the background. A shared fetch that
// overlapped a local action is discarded, so when no action is pending any
// more the refetch goes round again; a pending action schedules its own.
func (c *Coordinator) scheduleRefetch(postID string) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.refetchTimeout)
		defer cancel()
		for round := 0; round < maxRefetchRounds; round++ {
			res, err := c.refresh(ctx, postID)
			if err != nil {
				c.log.Debug("reaction refetch failed", zap.String("post_id", postID), zap.Error(err))
				return
			}
			if res.applied || c.hasPending(postID) {
				return
			}
			c.log.Debug("reaction refetch overlapped a local action, fetching again", zap.String("post_id", postID), zap.Int("round", round))
		}
	}()
}

func (c *Coordinator) hasPending(postID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.posts[postID]
	return ok && st.pending > 0
}

func (c *Coordinator) stateLocked(postID string) *postState {
	st, ok := c.posts[postID]
	if !ok {
		st = &postState{}
		c.posts[postID] = st
	}
	return st
}

func emit(fn func(string, reaction.Summary), postID string, s reaction.Summary) {
	if fn != nil {
		fn(postID, s)
	}
}
