package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"locova/internal/domain/realtime"
)

// Tables is the set of tables a view listens to while attached
var Tables = []string{
	realtime.TableTrends,
	realtime.TableTrendLikes,
	realtime.TableTrendComments,
	realtime.TableTrendSaves,
	realtime.TableCommentLikes,
}

// View is a screen showing engagement data. RefreshSnapshot is the same
// entry point a manual refresh uses.
type View interface {
	RefreshSnapshot(ctx context.Context) error

	// OpenThread returns the trend whose comment thread is shown, if any
	OpenThread() (trendID string, ok bool)

	RefreshThread(ctx context.Context, trendID string) error
}

// Trigger turns backend change notifications into view refreshes
type Trigger struct {
	subscriber realtime.Subscriber
	window     time.Duration
	logger     *logrus.Logger
}

// NewTrigger creates a new trigger. Notifications arriving within window of
// the first pending one are coalesced into a single refresh.
func NewTrigger(subscriber realtime.Subscriber, window time.Duration, logger *logrus.Logger) *Trigger {
	return &Trigger{
		subscriber: subscriber,
		window:     window,
		logger:     logger,
	}
}

// Attachment is a view's live subscription set
type Attachment struct {
	ctx    context.Context
	view   View
	window time.Duration
	logger *logrus.Logger

	mu           sync.Mutex
	timer        *time.Timer
	threadDirty  bool
	unsubscribes []func()
	detached     bool
	done         chan struct{}
}

// Attach subscribes view to every table. The subscriptions live until
// Detach is called or ctx is done.
func (t *Trigger) Attach(ctx context.Context, view View) (*Attachment, error) {
	a := &Attachment{
		ctx:    ctx,
		view:   view,
		window: t.window,
		logger: t.logger,
		done:   make(chan struct{}),
	}

	for _, table := range Tables {
		unsubscribe, err := t.subscriber.Subscribe(table, a.onChange)
		if err != nil {
			a.Detach()
			return nil, fmt.Errorf("error subscribing to %s: %w", table, err)
		}
		a.mu.Lock()
		a.unsubscribes = append(a.unsubscribes, unsubscribe)
		a.mu.Unlock()
	}

	go func() {
		select {
		case <-ctx.Done():
			a.Detach()
		case <-a.done:
		}
	}()

	return a, nil
}

// Detach tears down every subscription and drops any pending refresh
func (a *Attachment) Detach() {
	a.mu.Lock()
	if a.detached {
		a.mu.Unlock()
		return
	}
	a.detached = true
	close(a.done)
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	unsubscribes := a.unsubscribes
	a.unsubscribes = nil
	a.mu.Unlock()

	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
}

func (a *Attachment) onChange(change realtime.Change) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detached {
		return
	}

	if trendID, ok := a.view.OpenThread(); ok {
		switch change.Table {
		case realtime.TableTrendComments:
			if change.EntityID == trendID {
				a.threadDirty = true
			}
		case realtime.TableCommentLikes:
			// Comment changes carry the comment id, not its trend
			a.threadDirty = true
		}
	}

	if a.timer == nil {
		a.timer = time.AfterFunc(a.window, a.fire)
	}
}

func (a *Attachment) fire() {
	a.mu.Lock()
	if a.detached {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	refreshThread := a.threadDirty
	a.threadDirty = false
	a.mu.Unlock()

	if err := a.view.RefreshSnapshot(a.ctx); err != nil {
		a.logger.WithError(err).Warn("Realtime snapshot refresh failed")
	}

	if !refreshThread {
		return
	}
	if trendID, ok := a.view.OpenThread(); ok {
		if err := a.view.RefreshThread(a.ctx, trendID); err != nil {
			a.logger.WithField("trend_id", trendID).WithError(err).Warn("Realtime thread refresh failed")
		}
	}
}
