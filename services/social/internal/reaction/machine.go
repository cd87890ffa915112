// Package reaction implements mutually exclusive like/dislike voting on posts.
package reaction

// State is a user's standing on a post.
type State int

const (
	None State = iota
	Liked
	Disliked
)

func (s State) String() string {
	switch s {
	case Liked:
		return "like"
	case Disliked:
		return "dislike"
	default:
		return "none"
	}
}

// Op is the persistence operation a transition requires.
type Op int

const (
	NoOp Op = iota
	Create
	Update
	Delete
)

func (o Op) String() string {
	switch o {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "noop"
	}
}

// StateOf maps an optional stored dislike flag to a State.
func StateOf(current *bool) State {
	switch {
	case current == nil:
		return None
	case *current:
		return Disliked
	default:
		return Liked
	}
}

// Decide is the transition table. Repeating the current vote clears it,
// the opposite vote flips it in place, and any vote from None creates a row.
func Decide(current State, dislike bool) (next State, op Op) {
	requested := Liked
	if dislike {
		requested = Disliked
	}
	switch current {
	case None:
		return requested, Create
	case requested:
		return None, Delete
	default:
		return requested, Update
	}
}

// ShouldNotifyLike reports whether a transition earns the post author a
// "liked" notification: only a freshly created like by someone else.
func ShouldNotifyLike(op Op, next State, actorID, authorID string) bool {
	return op == Create && next == Liked && actorID != authorID
}

// Summary is the per-viewer reaction state of a post.
type Summary struct {
	Likes        int  `json:"likes"`
	Dislikes     int  `json:"dislikes"`
	LikedByMe    bool `json:"liked_by_me"`
	DislikedByMe bool `json:"disliked_by_me"`
}

// Mine is the viewer's State as recorded in the summary.
func (s Summary) Mine() State {
	switch {
	case s.LikedByMe:
		return Liked
	case s.DislikedByMe:
		return Disliked
	default:
		return None
	}
}

// Predict applies the transition for dislike to s without any I/O.
// Counters never go below zero.
func Predict(s Summary, dislike bool) Summary {
	from := s.Mine()
	to, _ := Decide(from, dislike)

	out := s
	switch from {
	case Liked:
		out.Likes--
	case Disliked:
		out.Dislikes--
	}
	switch to {
	case Liked:
		out.Likes++
	case Disliked:
		out.Dislikes++
	}
	out.Likes = max(out.Likes, 0)
	out.Dislikes = max(out.Dislikes, 0)
	out.LikedByMe = to == Liked
	out.DislikedByMe = to == Disliked
	return out
}
