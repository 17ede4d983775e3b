package places

import (
	"context"
	"sync"
	"time"
)

// Searcher debounces place searches. Each Submit resets the timer and
// aborts the in-flight search of the previous query, so only the latest
// query delivers results.
type Searcher struct {
	client *Client
	delay  time.Duration

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewSearcher creates a new debounced searcher
func NewSearcher(client *Client, delay time.Duration) *Searcher {
	return &Searcher{
		client: client,
		delay:  delay,
	}
}

// Submit schedules a search for query. deliver is called at most once, and
// never for a search that was superseded before it finished.
func (s *Searcher) Submit(ctx context.Context, query string, deliver func([]Place, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersede()
	seq := s.seq

	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		if seq != s.seq {
			s.mu.Unlock()
			return
		}
		searchCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.mu.Unlock()

		defer cancel()
		results, err := s.client.Search(searchCtx, query)

		s.mu.Lock()
		current := seq == s.seq
		s.mu.Unlock()

		if !current || IsCancelled(err) {
			return
		}
		deliver(results, err)
	})
}

// Stop aborts any pending or in-flight search
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersede()
}

func (s *Searcher) supersede() {
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
