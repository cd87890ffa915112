// Package thread builds comment reply trees from flat rows and removes
// whole subtrees bottom-up.
package thread

import (
	"sort"

	"github.com/example/blog-platform/services/social/internal/store"
)

// Node is a comment with its replies. Built per read, never persisted.
type Node struct {
	store.Comment
	// IsOP is set when the comment author also wrote the post.
	IsOP     bool    `json:"is_op"`
	Children []*Node `json:"children"`
}

// Options controls how BuildForest orders siblings and marks IsOP.
type Options struct {
	// Sort is store.SortNew, store.SortOld, or empty to keep input order.
	Sort         string
	PostAuthorID string
}

// BuildForest links comments into a forest in O(n).
//
// A comment whose parent is absent from the input, or whose parent chain
// loops back on itself, becomes a root; no input row is ever dropped.
// Duplicate ids keep the first occurrence.
func BuildForest(comments []store.Comment, opts Options) []*Node {
	index := make(map[string]*Node, len(comments))
	order := make([]*Node, 0, len(comments))
	for _, c := range comments {
		if _, dup := index[c.ID]; dup {
			continue
		}
		n := &Node{
			Comment:  c,
			IsOP:     opts.PostAuthorID != "" && c.AuthorID == opts.PostAuthorID,
			Children: []*Node{},
		}
		index[c.ID] = n
		order = append(order, n)
	}

	cut := cycleBreaks(order, index)

	roots := []*Node{}
	for _, n := range order {
		parent := parentOf(n, index)
		if parent == nil || cut[n] {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	if opts.Sort == store.SortNew || opts.Sort == store.SortOld {
		sortForest(roots, opts.Sort == store.SortOld)
	}
	return roots
}

// Count returns the number of nodes in the forest.
func Count(forest []*Node) int {
	total := 0
	Walk(forest, func(*Node) { total++ })
	return total
}

// Walk visits every node depth-first, parents before children.
func Walk(forest []*Node, fn func(*Node)) {
	for _, n := range forest {
		fn(n)
		Walk(n.Children, fn)
	}
}

func parentOf(n *Node, index map[string]*Node) *Node {
	if n.ParentID == nil {
		return nil
	}
	return index[*n.ParentID]
}

// cycleBreaks marks, for every parent loop in the input, the one node whose
// parent link closes the loop. Each node is walked at most once.
func cycleBreaks(order []*Node, index map[string]*Node) map[*Node]bool {
	const (
		unseen = iota
		onPath
		settled
	)
	state := make(map[*Node]int, len(order))
	cut := map[*Node]bool{}
	for _, start := range order {
		var path []*Node
		for n := start; n != nil && state[n] == unseen; {
			state[n] = onPath
			path = append(path, n)
			p := parentOf(n, index)
			if p != nil && state[p] == onPath {
				cut[n] = true
				break
			}
			n = p
		}
		for _, n := range path {
			state[n] = settled
		}
	}
	return cut
}

func sortForest(nodes []*Node, oldestFirst bool) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if oldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if oldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
	for _, n := range nodes {
		sortForest(n.Children, oldestFirst)
	}
}
