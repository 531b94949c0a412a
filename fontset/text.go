package fontset

import (
	"sync"
)

// TextBuffer is a headless document of text nodes. Observers are notified of every node that is appended or changed, and once of the content being loaded.
type TextBuffer struct {
	mu        sync.Mutex
	nodes     []TextChange
	loaded    bool
	observers []TextObserver
}

// Subscribe adds an observer of subsequent changes.
func (buf *TextBuffer) Subscribe(observer TextObserver) {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	buf.observers = append(buf.observers, observer)
}

// Walk calls f for every text node in document order.
func (buf *TextBuffer) Walk(f func(TextChange)) {
	buf.mu.Lock()
	nodes := append([]TextChange{}, buf.nodes...)
	buf.mu.Unlock()

	for _, node := range nodes {
		f(node)
	}
}

// Append adds a text node and returns its index.
func (buf *TextBuffer) Append(node TextChange) int {
	buf.mu.Lock()
	buf.nodes = append(buf.nodes, node)
	i := len(buf.nodes) - 1
	observers := buf.observers
	buf.mu.Unlock()

	for _, observer := range observers {
		observer.TextChanged(node)
	}
	return i
}

// Set replaces the text of the i-th node. It panics if i is out of range.
func (buf *TextBuffer) Set(i int, text string) {
	buf.mu.Lock()
	buf.nodes[i].Text = text
	node := buf.nodes[i]
	observers := buf.observers
	buf.mu.Unlock()

	for _, observer := range observers {
		observer.TextChanged(node)
	}
}

// Loaded marks the initial content as loaded. Only the first call notifies the observers.
func (buf *TextBuffer) Loaded() {
	buf.mu.Lock()
	if buf.loaded {
		buf.mu.Unlock()
		return
	}
	buf.loaded = true
	observers := buf.observers
	buf.mu.Unlock()

	for _, observer := range observers {
		observer.ContentLoaded()
	}
}

// Len returns the number of text nodes.
func (buf *TextBuffer) Len() int {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return len(buf.nodes)
}
