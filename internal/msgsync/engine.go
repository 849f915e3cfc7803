// Package msgsync keeps a conversation's message list consistent across the
// local cache, the remote store and the live push channel. It produces a
// single deduplicated, chronologically sorted view and falls back to
// periodic polling whenever push delivery is not confirmed.
package msgsync

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
	"github.com/lmercier/hosting-ai-platform/internal/notify"
	"github.com/lmercier/hosting-ai-platform/internal/observability/metrics"
	"github.com/lmercier/hosting-ai-platform/internal/push"
	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

var tracer = otel.Tracer("host.internal.msgsync")

// Cache is the always-available conversation-local message store.
type Cache interface {
	Get(ctx context.Context, conversationID string) ([]chat.Message, error)
	Put(ctx context.Context, msg chat.Message) error
}

// Fetcher retrieves messages from the remote durable store.
type Fetcher interface {
	FetchMessages(ctx context.Context, conversationID string, forceFresh bool) ([]chat.Message, error)
}

// Options tune the engine's timers. Zero values fall back to the defaults
// below.
type Options struct {
	// PollInterval drives the fallback poller used while push delivery is
	// not confirmed.
	PollInterval time.Duration
	// ReconcileInterval drives the periodic full reload that runs regardless
	// of push status.
	ReconcileInterval time.Duration
	// DebounceDelay is the wait after a push insert before the confirmatory
	// full reload.
	DebounceDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 10 * time.Second
	}
	if o.ReconcileInterval <= 0 {
		o.ReconcileInterval = 30 * time.Second
	}
	if o.DebounceDelay <= 0 {
		o.DebounceDelay = time.Second
	}
	return o
}

// Snapshot is the engine's published state at one point in time.
type Snapshot struct {
	Messages      []chat.Message `json:"messages"`
	Status        push.Status    `json:"realtime_status"`
	PollingActive bool           `json:"polling_active"`
	Refreshing    bool           `json:"refreshing"`
	LastCount     int            `json:"count"`
}

// Engine owns the synchronized message state for one conversation. All state
// mutation happens under one mutex, so push callbacks, timer ticks and
// explicit refreshes serialize and each leaves the state sorted and
// deduplicated.
//
// The engine owns its own lifetime context: the poller, the reconciler and
// the push-consume loop derive from it, never from a caller's context, so
// they survive the HTTP request that opened the conversation. Close cancels
// the lifetime.
type Engine struct {
	conversationID string
	cache          Cache
	fetcher        Fetcher
	channel        push.Channel
	notifier       notify.Notifier
	metrics        *metrics.SyncMetrics
	logger         *logging.Logger
	opts           Options

	lifeCtx    context.Context
	lifeCancel context.CancelFunc

	startOnce sync.Once

	mu            sync.Mutex
	messages      []chat.Message
	status        push.Status
	refreshing    bool
	lastCount     int
	pollingActive bool
	pollCancel    context.CancelFunc
	debounce      *time.Timer
	sub           push.Subscription
	closed        bool
}

// NewEngine builds an engine for one conversation. channel and notifier may
// be nil; without a channel the engine runs on polling alone.
func NewEngine(conversationID string, cache Cache, fetcher Fetcher, channel push.Channel, notifier notify.Notifier, m *metrics.SyncMetrics, logger *logging.Logger, opts Options) *Engine {
	if conversationID == "" {
		panic("msgsync: conversation id cannot be empty")
	}
	if cache == nil {
		panic("msgsync: cache cannot be nil")
	}
	if fetcher == nil {
		panic("msgsync: fetcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	lifeCtx, lifeCancel := context.WithCancel(context.Background())
	return &Engine{
		conversationID: conversationID,
		cache:          cache,
		fetcher:        fetcher,
		channel:        channel,
		notifier:       notifier,
		metrics:        m,
		logger:         logger,
		opts:           opts.withDefaults(),
		lifeCtx:        lifeCtx,
		lifeCancel:     lifeCancel,
		status:         push.StatusConnecting,
	}
}

// Start performs the initial load, opens the push subscription and arms the
// periodic reconciliation timer. ctx scopes only the synchronous initial
// load and the subscription handshake; background work runs on the engine's
// own lifetime. Subsequent calls are no-ops.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		_ = e.Load(ctx, true, true)
		e.startReconcile()
		e.subscribe(ctx)
	})
}

func (e *Engine) subscribe(ctx context.Context) {
	if e.channel == nil {
		e.HandleStatus(push.StatusDisconnected)
		return
	}
	e.setStatus(push.StatusConnecting)
	sub, err := e.channel.Subscribe(ctx, e.conversationID)
	if err != nil {
		e.logger.Warn("push subscription failed, falling back to polling",
			"conversation_id", e.conversationID, "error", err)
		e.HandleStatus(push.StatusError)
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	e.sub = sub
	e.mu.Unlock()

	go e.consume(sub)
}

func (e *Engine) consume(sub push.Subscription) {
	events, status := sub.Events(), sub.Status()
	for events != nil || status != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.HandlePushEvent(e.lifeCtx, ev)
		case st, ok := <-status:
			if !ok {
				status = nil
				continue
			}
			e.HandleStatus(st)
		case <-e.lifeCtx.Done():
			return
		}
	}
}

// Load reads the local cache, attempts a remote fetch and publishes the
// merged, deduplicated, sorted result. A remote failure never fails the
// load: the engine records the fault and serves local data.
func (e *Engine) Load(ctx context.Context, showLoading, forceFresh bool) error {
	ctx, span := tracer.Start(ctx, "msgsync.load")
	defer span.End()
	span.SetAttributes(
		attribute.String("host.conversation_id", e.conversationID),
		attribute.Bool("host.force_fresh", forceFresh),
	)
	start := time.Now()

	if showLoading {
		e.setRefreshing(true)
		defer e.setRefreshing(false)
	}

	local, err := e.cache.Get(ctx, e.conversationID)
	if err != nil {
		// The cache is modeled as always available; degrade to empty.
		e.logger.Warn("local cache read failed", "conversation_id", e.conversationID, "error", err)
		local = nil
	}

	result := "ok"
	remote, err := e.fetcher.FetchMessages(ctx, e.conversationID, forceFresh)
	if err != nil {
		result = "remote_failed"
		span.RecordError(err)
		e.logger.Warn("remote fetch failed, serving local messages",
			"conversation_id", e.conversationID, "local_count", len(local), "error", err)
		remote = nil
	}

	merged := Merge(local, remote)

	e.mu.Lock()
	e.messages = merged
	e.lastCount = len(merged)
	e.mu.Unlock()

	e.metrics.ObserveLoad(result, time.Since(start).Seconds())
	return nil
}

// Merge combines local and remote messages into one deduplicated sequence
// sorted ascending by creation time. When both sides carry the same id the
// remote value wins (last write in combination order). Ties on CreatedAt
// preserve first-seen input order.
func Merge(local, remote []chat.Message) []chat.Message {
	order := make([]string, 0, len(local)+len(remote))
	byID := make(map[string]chat.Message, len(local)+len(remote))
	for _, list := range [][]chat.Message{local, remote} {
		for _, msg := range list {
			if msg.ID == "" {
				continue
			}
			if _, seen := byID[msg.ID]; !seen {
				order = append(order, msg.ID)
			}
			byID[msg.ID] = msg
		}
	}

	merged := make([]chat.Message, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged
}

// HandlePushEvent applies one insert notification. Events for other
// conversations and already-known ids are no-ops. New inserts are persisted
// to the local cache, inbound ones trigger the notifier, and a debounced
// reconciling reload is scheduled.
func (e *Engine) HandlePushEvent(ctx context.Context, ev push.Event) {
	msg := ev.New
	if msg.ConversationID != e.conversationID {
		e.metrics.ObservePushEvent("ignored")
		e.logger.Debug("push event for another conversation ignored",
			"conversation_id", e.conversationID, "event_conversation_id", msg.ConversationID)
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	for _, existing := range e.messages {
		if existing.ID == msg.ID {
			e.mu.Unlock()
			e.metrics.ObservePushEvent("duplicate")
			return
		}
	}
	e.messages = append(e.messages, msg)
	sort.SliceStable(e.messages, func(i, j int) bool {
		return e.messages[i].CreatedAt.Before(e.messages[j].CreatedAt)
	})
	e.lastCount = len(e.messages)
	e.mu.Unlock()

	e.metrics.ObservePushEvent("applied")

	if err := e.cache.Put(ctx, msg); err != nil {
		e.logger.Warn("failed to persist pushed message locally",
			"conversation_id", e.conversationID, "message_id", msg.ID, "error", err)
	}
	if msg.Inbound() && e.notifier != nil {
		e.notifier.NotifyInbound(ctx, msg)
	}

	e.scheduleDebouncedReload()
}

func (e *Engine) scheduleDebouncedReload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.debounce != nil {
		e.debounce.Stop()
	}
	e.debounce = time.AfterFunc(e.opts.DebounceDelay, func() {
		_ = e.Load(e.lifeCtx, false, true)
	})
}

// HandleStatus records a push channel transition and reconciles the polling
// fallback: anything other than a confirmed subscription keeps polling
// alive, a confirmed subscription stops it.
func (e *Engine) HandleStatus(st push.Status) {
	e.mu.Lock()
	e.status = st
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}

	if st == push.StatusSubscribed {
		e.StopPolling()
		return
	}
	e.StartPolling()
}

// StartPolling begins the fixed-interval fallback loop on the engine's
// lifetime. Idempotent: any previous poller is cancelled before the new one
// starts.
func (e *Engine) StartPolling() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.pollCancel != nil {
		e.pollCancel()
	}
	pollCtx, cancel := context.WithCancel(e.lifeCtx)
	e.pollCancel = cancel
	wasActive := e.pollingActive
	e.pollingActive = true
	e.mu.Unlock()

	if !wasActive {
		e.metrics.PollingStarted()
		e.logger.Info("fallback polling started", "conversation_id", e.conversationID, "interval", e.opts.PollInterval)
	}

	go func() {
		ticker := time.NewTicker(e.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				_ = e.Load(pollCtx, false, true)
			}
		}
	}()
}

// StopPolling cancels the fallback loop if it is running.
func (e *Engine) StopPolling() {
	e.mu.Lock()
	cancel := e.pollCancel
	e.pollCancel = nil
	wasActive := e.pollingActive
	e.pollingActive = false
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasActive {
		e.metrics.PollingStopped()
		e.logger.Info("fallback polling stopped", "conversation_id", e.conversationID)
	}
}

func (e *Engine) startReconcile() {
	go func() {
		ticker := time.NewTicker(e.opts.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-e.lifeCtx.Done():
				return
			case <-ticker.C:
				_ = e.Load(e.lifeCtx, false, true)
			}
		}
	}()
}

// ForceRefresh reloads with the loading indicator shown and a fresh remote
// fetch forced.
func (e *Engine) ForceRefresh(ctx context.Context) error {
	return e.Load(ctx, true, true)
}

// Snapshot returns a copy of the published state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	msgs := make([]chat.Message, len(e.messages))
	copy(msgs, e.messages)
	return Snapshot{
		Messages:      msgs,
		Status:        e.status,
		PollingActive: e.pollingActive,
		Refreshing:    e.refreshing,
		LastCount:     e.lastCount,
	}
}

// ConversationID returns the conversation this engine serves.
func (e *Engine) ConversationID() string {
	return e.conversationID
}

// Close tears the engine down: push subscription released, poller,
// reconciler and debounce timer cancelled. Safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	sub := e.sub
	e.sub = nil
	pollCancel := e.pollCancel
	e.pollCancel = nil
	wasPolling := e.pollingActive
	e.pollingActive = false
	debounce := e.debounce
	e.debounce = nil
	e.mu.Unlock()

	e.lifeCancel()
	if debounce != nil {
		debounce.Stop()
	}
	if pollCancel != nil {
		pollCancel()
	}
	if wasPolling {
		e.metrics.PollingStopped()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	e.logger.Debug("sync engine closed", "conversation_id", e.conversationID)
}

func (e *Engine) setStatus(st push.Status) {
	e.mu.Lock()
	e.status = st
	e.mu.Unlock()
}

func (e *Engine) setRefreshing(v bool) {
	e.mu.Lock()
	e.refreshing = v
	e.mu.Unlock()
}
