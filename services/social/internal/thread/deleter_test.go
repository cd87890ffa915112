package thread

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/example/blog-platform/services/social/internal/store"
)

// flakyStore fails Delete for the ids in failDelete until cleared.
type flakyStore struct {
	*store.InMemoryCommentStore
	failDelete map[string]bool
	deleted    []string
}

func (f *flakyStore) Delete(ctx context.Context, id string) error {
	if f.failDelete[id] {
		return fmt.Errorf("delete: %w: connection reset", store.ErrStoreFailure)
	}
	if err := f.InMemoryCommentStore.Delete(ctx, id); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func seed(t *testing.T, cs store.CommentStore, rows ...store.Comment) {
	t.Helper()
	for _, c := range rows {
		if _, err := cs.Create(context.Background(), c); err != nil {
			t.Fatalf("seed %s: %v", c.ID, err)
		}
	}
}

func newFixture(t *testing.T) (*flakyStore, *Deleter) {
	t.Helper()
	fs := &flakyStore{InMemoryCommentStore: store.NewInMemoryCommentStore(), failDelete: map[string]bool{}}
	posts := store.NewInMemoryPostStore(store.Post{ID: "post-1", AuthorID: "owner"})
	seed(t, fs,
		comment("1", nil, 0),
		comment("2", ptr("1"), 1),
		comment("3", ptr("2"), 2),
		comment("4", ptr("1"), 3),
		comment("9", nil, 4),
	)
	return fs, NewDeleter(fs, posts, nil)
}

func TestDeleter_CascadesWholeSubtree(t *testing.T) {
	fs, d := newFixture(t)
	ctx := context.Background()

	removed, err := d.Delete(ctx, Actor{UserID: "user-1"}, "1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 4 {
		t.Fatalf("expected 4 removed, got %d", removed)
	}

	left, _ := fs.ListByPost(ctx, "post-1")
	if len(left) != 1 || left[0].ID != "9" {
		t.Fatalf("expected only the unrelated root to remain, got %+v", left)
	}
}

func TestDeleter_ChildrenBeforeParents(t *testing.T) {
	fs, d := newFixture(t)

	if _, err := d.Delete(context.Background(), Actor{UserID: "user-1"}, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	pos := map[string]int{}
	for i, id := range fs.deleted {
		pos[id] = i
	}
	if !(pos["3"] < pos["2"] && pos["2"] < pos["1"] && pos["4"] < pos["1"]) {
		t.Fatalf("expected post-order deletion, got %v", fs.deleted)
	}
}

func TestDeleter_ChainScenario(t *testing.T) {
	cs := store.NewInMemoryCommentStore()
	seed(t, cs, comment("1", nil, 0), comment("2", ptr("1"), 1), comment("3", ptr("2"), 2))
	d := NewDeleter(cs, store.NewInMemoryPostStore(), nil)
	ctx := context.Background()

	all, _ := cs.ListByPost(ctx, "post-1")
	forest := BuildForest(all, Options{})
	if len(forest) != 1 || Count(forest) != 3 {
		t.Fatalf("expected a single chain of 3, got %d roots / %d nodes", len(forest), Count(forest))
	}

	if _, err := d.Delete(ctx, Actor{Admin: true, UserID: "mod"}, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	left, _ := cs.ListByPost(ctx, "post-1")
	if len(left) != 0 {
		t.Fatalf("expected no comments left, got %d", len(left))
	}
}

func TestDeleter_AbortsOnStoreFailureAndRetrySucceeds(t *testing.T) {
	fs, d := newFixture(t)
	ctx := context.Background()
	fs.failDelete["2"] = true

	_, err := d.Delete(ctx, Actor{UserID: "user-1"}, "1")
	if !errors.Is(err, store.ErrStoreFailure) {
		t.Fatalf("expected ErrStoreFailure, got %v", err)
	}
	for _, id := range []string{"1", "2"} {
		if _, err := fs.Get(ctx, id); err != nil {
			t.Fatalf("comment %s must survive the aborted cascade: %v", id, err)
		}
	}

	delete(fs.failDelete, "2")
	if _, err := d.Delete(ctx, Actor{UserID: "user-1"}, "1"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	left, _ := fs.ListByPost(ctx, "post-1")
	if len(left) != 1 {
		t.Fatalf("expected retry to finish the subtree, %d left", len(left))
	}
}

func TestDeleter_Authorization(t *testing.T) {
	cases := []struct {
		name    string
		actor   Actor
		target  string
		wantErr error
	}{
		{"comment author", Actor{UserID: "user-3"}, "3", nil},
		{"post owner", Actor{UserID: "owner"}, "3", nil},
		{"thread starter", Actor{UserID: "user-1"}, "3", nil},
		{"administrator", Actor{UserID: "mod", Admin: true}, "2", nil},
		{"sibling author", Actor{UserID: "user-4"}, "2", store.ErrUnauthorized},
		{"stranger", Actor{UserID: "nobody"}, "1", store.ErrUnauthorized},
		{"anonymous", Actor{}, "1", store.ErrUnauthorized},
		{"missing comment", Actor{UserID: "owner"}, "nope", store.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, d := newFixture(t)
			_, err := d.Delete(context.Background(), tc.actor, tc.target)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestDeleter_UnauthorizedDeletesNothing(t *testing.T) {
	fs, d := newFixture(t)
	_, _ = d.Delete(context.Background(), Actor{UserID: "nobody"}, "1")
	if len(fs.deleted) != 0 {
		t.Fatalf("expected no deletes, got %v", fs.deleted)
	}
}

func TestDeleter_CancelledContextIsRetryable(t *testing.T) {
	fs, d := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Delete(ctx, Actor{UserID: "user-1"}, "1")
	if !errors.Is(err, store.ErrStoreFailure) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected a store failure wrapping context.Canceled, got %v", err)
	}
	if len(fs.deleted) != 0 {
		t.Fatalf("expected nothing deleted, got %v", fs.deleted)
	}
}
