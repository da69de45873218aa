package supabase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"customer-portal-backend/internal/logger"
)

// ChangesChannel is the NOTIFY channel the documents trigger publishes the
// changed collection name on.
const ChangesChannel = "document_changes"

// Realtime delivers collection change notifications from Postgres.
type Realtime struct {
	listener *pq.Listener

	mu       sync.Mutex
	handlers []func(ctx context.Context, collection string)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRealtime(connectionString string) (*Realtime, error) {
	listener := pq.NewListener(connectionString, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Log.Warn("realtime listener event", "component", "realtime", "event", listenerEventName(ev), "error", err)
		}
	})
	if err := listener.Listen(ChangesChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", ChangesChannel, err)
	}

	return &Realtime{
		listener: listener,
		done:     make(chan struct{}),
	}, nil
}

// OnChange registers fn for every change notification. fn receives an empty
// collection after a reconnect, when changes may have been missed.
func (r *Realtime) OnChange(fn func(ctx context.Context, collection string)) {
	r.mu.Lock()
	r.handlers = append(r.handlers, fn)
	r.mu.Unlock()
}

// Start dispatches notifications until ctx is done or Close is called.
func (r *Realtime) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.run(ctx)
}

func (r *Realtime) run(ctx context.Context) {
	defer close(r.done)
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-r.listener.Notify:
			// nil after the connection was re-established
			collection := ""
			if n != nil {
				collection = n.Extra
			}
			r.dispatch(ctx, collection)
		case <-ping.C:
			if err := r.listener.Ping(); err != nil {
				logger.Log.Warn("realtime ping failed", "component", "realtime", "error", err)
			}
		}
	}
}

func (r *Realtime) dispatch(ctx context.Context, collection string) {
	r.mu.Lock()
	handlers := append([]func(context.Context, string){}, r.handlers...)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(ctx, collection)
	}
}

func (r *Realtime) Close() error {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	return r.listener.Close()
}

func listenerEventName(ev pq.ListenerEventType) string {
	switch ev {
	case pq.ListenerEventConnected:
		return "connected"
	case pq.ListenerEventDisconnected:
		return "disconnected"
	case pq.ListenerEventReconnected:
		return "reconnected"
	case pq.ListenerEventConnectionAttemptFailed:
		return "connection_attempt_failed"
	default:
		return "unknown"
	}
}
