// Package thread rebuilds conversation trees from flat, unordered sets of
// protocol events, tolerating the several reply-link tag conventions in use
// across clients.
package thread

import (
	"errors"
	"sort"

	"github.com/nbd-wtf/go-nostr"
)

var ErrRootNotFound = errors.New("thread root event not found in set")

// Node is one event in a reconstructed reply tree. Children are ordered by
// ascending CreatedAt; Depth is distance from the root.
type Node struct {
	Event    *nostr.Event
	Children []*Node
	Depth    int
}

// Reconstruct builds the reply tree rooted at rootID from a flat event set.
// Events whose parent cannot be resolved within the set are dropped. Cyclic
// or self-referential links are broken, never followed: an event already on
// the current root-to-node path is not attached again.
func Reconstruct(events []*nostr.Event, rootID string) (*Node, error) {
	var root *nostr.Event
	for _, evt := range events {
		if evt.ID == rootID {
			root = evt
			break
		}
	}
	if root == nil {
		return nil, ErrRootNotFound
	}

	// resolve each event's parent once up front
	parents := make(map[string]string, len(events))
	for _, evt := range events {
		if links := ParseReplyLinks(evt); links != nil && links.ParentID != "" {
			parents[evt.ID] = links.ParentID
		}
	}

	onPath := map[string]bool{rootID: true}
	node := buildNode(root, 0, events, parents, onPath)
	return node, nil
}

func buildNode(evt *nostr.Event, depth int, events []*nostr.Event, parents map[string]string, onPath map[string]bool) *Node {
	node := &Node{Event: evt, Depth: depth}

	var children []*nostr.Event
	for _, candidate := range events {
		if parents[candidate.ID] != evt.ID {
			continue
		}
		if onPath[candidate.ID] {
			// malformed link citing an ancestor (or itself) as a child
			continue
		}
		children = append(children, candidate)
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].CreatedAt < children[j].CreatedAt
	})

	for _, child := range children {
		onPath[child.ID] = true
		node.Children = append(node.Children, buildNode(child, depth+1, events, parents, onPath))
		delete(onPath, child.ID)
	}
	return node
}

// Size counts the nodes in the subtree, including the receiver.
func (n *Node) Size() int {
	total := 1
	for _, child := range n.Children {
		total += child.Size()
	}
	return total
}

// Flatten returns the subtree's events in pre-order, for list rendering.
func (n *Node) Flatten() []*nostr.Event {
	out := []*nostr.Event{n.Event}
	for _, child := range n.Children {
		out = append(out, child.Flatten()...)
	}
	return out
}
