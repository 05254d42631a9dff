// internal/mailctx/broadcaster.go
package mailctx

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/lioncrest/paneld/internal/logging"
)

// SubjectThreadChanged is the bus subject THREAD_CHANGED broadcasts are
// published to.
const SubjectThreadChanged = "panel.context.changed"

// NavigationEvent is a browser navigation signal for one tab.
type NavigationEvent struct {
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
}

// Broadcaster owns the process-wide ThreadContext and republishes
// changes to panel surfaces over the event bus.
//
// Change suppression: a navigation that resolves to the context already
// held produces no broadcast, so a panel never re-renders on no-op
// navigation. Racing resolutions are last-write-wins on the held
// context; additionally, every navigation cancels the superseded
// in-flight resolution, and a superseded resolution discards its own
// result instead of applying a stale collapse.
type Broadcaster struct {
	resolver ThreadResolver
	nc       *nats.Conn
	logger   *logging.Logger

	mu           sync.Mutex
	last         ThreadContext
	cancelUnsafe context.CancelFunc // cancels the in-flight resolution, guarded by mu
}

// NewBroadcaster creates a broadcaster with the zero context
// {threadId: null, accountIndex: 0}.
func NewBroadcaster(resolver ThreadResolver, nc *nats.Conn, logger *logging.Logger) (*Broadcaster, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if nc == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Broadcaster{
		resolver: resolver,
		nc:       nc,
		logger:   logger.Named("broadcaster"),
	}, nil
}

// Current returns the held context synchronously. A freshly opened
// panel pulls this without waiting on DOM inspection.
func (b *Broadcaster) Current() ThreadContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// HandleNavigation resolves the full context for a navigation event and
// broadcasts it if it differs from the held value.
//
// Every navigation supersedes the previous one: the in-flight
// resolution (if any) is cancelled, and a resolution that was itself
// cancelled never applies its result. DOM resolution only runs when the
// URL hints at a thread view. A resolution error or missing element
// collapses to "no thread open"; those are expected during page render,
// not faults.
func (b *Broadcaster) HandleNavigation(ctx context.Context, ev NavigationEvent) {
	eventID := uuid.New().String()
	ctx = logging.WithRequestID(ctx, eventID)
	ctx = logging.WithTabID(ctx, ev.TabID)

	hint := ParseURL(ev.URL)
	b.logger.Trace(ctx, "navigation event",
		zap.String("url", ev.URL),
		zap.Int("account_index", hint.AccountIndex),
		zap.Bool("thread_hint", hint.HasThread))

	resolveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.swapInflight(cancel)

	next := ThreadContext{AccountIndex: hint.AccountIndex}

	if hint.HasThread {
		threadID, err := b.resolver.ThreadID(resolveCtx, ev.TabID)
		if err != nil {
			// Injection failures and not-yet-rendered pages both mean
			// "no thread open" for now; a later navigation or render
			// will correct it.
			resolveFailures.Inc()
			b.logger.Debug(ctx, "thread resolution failed", zap.Error(err))
		}
		next.ThreadID = threadID
	}

	if resolveCtx.Err() != nil {
		b.logger.Trace(ctx, "navigation superseded, dropping result")
		return
	}

	b.apply(ctx, next)
}

// swapInflight cancels the previous in-flight resolution, if any, and
// records the new one's cancel func.
func (b *Broadcaster) swapInflight(cancel context.CancelFunc) {
	b.mu.Lock()
	prev := b.cancelUnsafe
	b.cancelUnsafe = cancel
	b.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// apply replaces the held context and broadcasts, unless unchanged.
// Whichever resolution applies last wins.
func (b *Broadcaster) apply(ctx context.Context, next ThreadContext) {
	b.mu.Lock()
	if b.last.Equal(next) {
		b.mu.Unlock()
		return
	}
	b.last = next
	b.mu.Unlock()

	payload, err := json.Marshal(next)
	if err != nil {
		b.logger.Error(ctx, "marshal thread context", zap.Error(err))
		return
	}
	if err := b.nc.Publish(SubjectThreadChanged, payload); err != nil {
		b.logger.Error(ctx, "publish context change", zap.Error(err))
		return
	}

	contextChanges.Inc()
	b.logger.Info(ctx, "context changed",
		zap.String("thread_id", next.ThreadID),
		zap.Int("account_index", next.AccountIndex))
}
