package store

import "sync"

// Feed is a latest-wins snapshot channel shared by the repository
// implementations. A slow reader only ever sees the newest snapshot.
type Feed struct {
	mu     sync.Mutex
	ch     chan []Document
	closed bool
	onStop func()
}

func NewFeed(onStop func()) *Feed {
	return &Feed{ch: make(chan []Document, 1), onStop: onStop}
}

func (f *Feed) Snapshots() <-chan []Document {
	return f.ch
}

// Push replaces any unread snapshot with docs. It is a no-op once closed.
func (f *Feed) Push(docs []Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- docs
}

func (f *Feed) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.ch)
	f.mu.Unlock()

	if f.onStop != nil {
		f.onStop()
	}
}
