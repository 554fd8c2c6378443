// Package hydrate assembles per-turn agent context from the hub and local
// drop directories, and runs the inbound message policy (connect codes,
// first-time welcome, capture).
//
// An Aggregator owns its caches and welcomed-sender set; nothing is global.
// The cache mutex only guards slot reads and the final assignment. Two
// callers that both see a stale slot will both refresh, and the last write
// wins.
package hydrate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opoerator/drophub/internal/drop"
	"github.com/opoerator/drophub/internal/hub"
	"github.com/opoerator/drophub/internal/identity"
)

const (
	sessionsLimit = 5
	digestsLimit  = 3
)

// Remote is the subset of the hub client the aggregator uses.
type Remote interface {
	FetchByFallbackID(ctx context.Context, limits hub.Limits) *hub.HydrationResponse
	FetchByIdentity(ctx context.Context, id identity.Identity, limits hub.Limits) *hub.HydrationResponse
	VerifyCode(ctx context.Context, req hub.VerifyRequest) *hub.VerifyResult
	IngestDrop(ctx context.Context, req hub.IngestRequest) *hub.IngestResult
	IsFirstTimeSender(ctx context.Context, id identity.Identity) bool
}

// LinkRecorder persists successful connect-code links.
type LinkRecorder interface {
	RecordLink(ctx context.Context, id identity.Identity, userID, channel string) error
}

// Options configures an Aggregator.
type Options struct {
	// Remote is nil when the hub is not configured.
	Remote Remote

	DropPaths      []string
	CheckpointPath string
	MaxDropAge     time.Duration
	MaxDrops       int
	CacheTTL       time.Duration

	CaptureEnabled  bool
	CaptureChannels []string // empty means every channel

	// Links is optional.
	Links LinkRecorder

	Logger  *slog.Logger
	Now     func() time.Time
	Scanner *drop.Scanner
}

// Context is one hydration snapshot. Timestamp is only used for cache
// freshness.
type Context struct {
	Drops     []drop.Drop    `json:"drops"`
	Sessions  []drop.Session `json:"sessions"`
	Digests   []drop.Digest  `json:"digests"`
	Timestamp time.Time      `json:"timestamp"`
}

func newContext() *Context {
	return &Context{
		Drops:    []drop.Drop{},
		Sessions: []drop.Session{},
		Digests:  []drop.Digest{},
	}
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
	scanner  *drop.Scanner
	channels map[string]bool

	mu         sync.Mutex
	global     *Context
	byIdentity map[string]*Context
	welcomed   map[string]bool
}

// New returns an Aggregator for opts.
func New(opts Options) *Aggregator {
	a := &Aggregator{
		opts:       opts,
		logger:     opts.Logger,
		now:        opts.Now,
		scanner:    opts.Scanner,
		byIdentity: make(map[string]*Context),
		welcomed:   make(map[string]bool),
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.scanner == nil {
		a.scanner = drop.NewScanner(a.logger)
	}
	if len(opts.CaptureChannels) > 0 {
		a.channels = make(map[string]bool, len(opts.CaptureChannels))
		for _, ch := range opts.CaptureChannels {
			a.channels[ch] = true
		}
	}
	return a
}

// Configured reports whether a hub is available.
func (a *Aggregator) Configured() bool { return a.opts.Remote != nil }

func (a *Aggregator) limits() hub.Limits {
	return hub.Limits{Drops: a.maxDrops(), Sessions: sessionsLimit, Digests: digestsLimit}
}

func (a *Aggregator) maxDrops() int {
	if a.opts.MaxDrops < 0 {
		return 0
	}
	return a.opts.MaxDrops
}

func (a *Aggregator) fresh(c *Context) bool {
	return c != nil && a.now().Sub(c.Timestamp) < a.opts.CacheTTL
}

// Hydrate returns the identity-agnostic context: the fallback account's
// hub context followed by local drops, capped at MaxDrops.
func (a *Aggregator) Hydrate(ctx context.Context) *Context {
	a.mu.Lock()
	cached := a.global
	a.mu.Unlock()
	if a.fresh(cached) {
		return cached
	}

	hc := newContext()
	if a.opts.Remote != nil {
		if resp := a.opts.Remote.FetchByFallbackID(ctx, a.limits()); resp != nil {
			fill(hc, resp)
		}
	}
	if len(a.opts.DropPaths) > 0 {
		local := a.scanner.Scan(a.opts.DropPaths, a.opts.MaxDropAge, a.maxDrops())
		hc.Drops = append(hc.Drops, local...)
	}
	if len(hc.Drops) > a.maxDrops() {
		hc.Drops = hc.Drops[:a.maxDrops()]
	}
	hc.Timestamp = a.now()

	a.mu.Lock()
	a.global = hc
	a.mu.Unlock()

	a.logger.Debug("hydrated", "scope", "global", "drops", len(hc.Drops),
		"sessions", len(hc.Sessions), "digests", len(hc.Digests))
	return hc
}

// HydrateForIdentity returns the context linked to id. An unmatched
// identity gets an empty context. Local directories are never scanned.
func (a *Aggregator) HydrateForIdentity(ctx context.Context, id identity.Identity) *Context {
	key := id.Key()
	a.mu.Lock()
	cached := a.byIdentity[key]
	a.mu.Unlock()
	if a.fresh(cached) {
		return cached
	}

	hc := newContext()
	if a.opts.Remote != nil {
		if resp := a.opts.Remote.FetchByIdentity(ctx, id, a.limits()); resp != nil && resp.Matched {
			fill(hc, resp)
		}
	}
	if len(hc.Drops) > a.maxDrops() {
		hc.Drops = hc.Drops[:a.maxDrops()]
	}
	hc.Timestamp = a.now()

	a.mu.Lock()
	a.byIdentity[key] = hc
	a.mu.Unlock()

	a.logger.Debug("hydrated", "scope", id.Kind, "drops", len(hc.Drops))
	return hc
}

// HydrateSession resolves sessionKey to an identity and hydrates it, or
// falls back to the global context when no identity can be extracted.
func (a *Aggregator) HydrateSession(ctx context.Context, sessionKey string) *Context {
	if id, ok := identity.Extract(sessionKey); ok {
		return a.HydrateForIdentity(ctx, id)
	}
	return a.Hydrate(ctx)
}

func fill(hc *Context, resp *hub.HydrationResponse) {
	hc.Drops = append(hc.Drops, resp.Drops...)
	hc.Sessions = append(hc.Sessions, resp.Sessions...)
	hc.Digests = append(hc.Digests, resp.Digests...)
}

// Close discards the caches and the welcomed set.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.global = nil
	a.byIdentity = make(map[string]*Context)
	a.welcomed = make(map[string]bool)
}
