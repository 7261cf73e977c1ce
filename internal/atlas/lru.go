package atlas

import "github.com/ggand0/viewskater/internal/index"

// lruNode is a node in the recency list. Storing the key in the node
// gives O(1) removal from the owning map.
type lruNode struct {
	key  index.ImageID
	prev *lruNode
	next *lruNode
}

// lruList orders occupied slots by pane-visibility recency. Head is the
// most recently visible, tail the least. Not thread-safe; the owning
// loop serializes access.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
}

func (l *lruList) Len() int { return l.len }

// PushFront inserts a new node at the most-recently-used end.
func (l *lruList) PushFront(key index.ImageID) *lruNode {
	node := &lruNode{key: key}
	if l.head == nil {
		l.head = node
		l.tail = node
	} else {
		node.next = l.head
		l.head.prev = node
		l.head = node
	}
	l.len++
	return node
}

// MoveToFront marks an existing node most recently used.
func (l *lruList) MoveToFront(node *lruNode) {
	if node == nil || node == l.head {
		return
	}
	l.unlink(node)
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

// Remove unlinks a node from the list.
func (l *lruList) Remove(node *lruNode) {
	if node == nil {
		return
	}
	l.unlink(node)
}

// Oldest returns the least recently used key without removing it.
func (l *lruList) Oldest() (index.ImageID, bool) {
	if l.tail == nil {
		return index.ImageID{}, false
	}
	return l.tail.key, true
}

func (l *lruList) unlink(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}
