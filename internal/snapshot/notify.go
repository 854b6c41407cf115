package snapshot

import "sync"

// watchers fans ETag changes out to catalog subscribers. Each subscriber
// holds at most one pending ETag; a newer one replaces it, so a slow reader
// skips intermediate catalogs but always sees the latest.
type watchers struct {
	mu  sync.Mutex
	chs map[chan string]struct{}
}

func newWatchers() watchers {
	return watchers{chs: make(map[chan string]struct{})}
}

// Subscribe returns a channel receiving the ETag of each new catalog and a
// func that closes it. The func may be called more than once.
func (w *watchers) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)
	w.mu.Lock()
	w.chs[ch] = struct{}{}
	w.mu.Unlock()

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.chs[ch]; ok {
			delete(w.chs, ch)
			close(ch)
		}
	}
}

func (w *watchers) publish(etag string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.chs {
		select {
		case <-ch:
		default:
		}
		ch <- etag
	}
}
