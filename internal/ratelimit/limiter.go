package ratelimit

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// Class names a category of endpoint sharing one quota policy.
type Class string

const (
	// ClassGlobal is the default quota applied to every route, keyed by IP.
	ClassGlobal Class = "global"
	// ClassSessionCreate covers session creation, keyed by IP.
	ClassSessionCreate Class = "session-create"
	// ClassSessionAccess covers session validation and teardown, keyed by address.
	ClassSessionAccess Class = "session-access"
	// ClassDocument covers all per-session document routes, keyed by address.
	ClassDocument Class = "document"
)

// Policy is one fixed counting window: at most Limit requests per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a quota check. RetryAfter is meaningful only
// when Allowed is false and reports whole seconds until the window resets,
// rounded up.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store counts requests per (class, key) window. Implementations must make
// the increment-and-read atomic with respect to concurrent callers of the
// same key. The in-memory store suits a single process; a shared counting
// store can replace it without interface changes.
type Store interface {
	Incr(class Class, key string, now time.Time, window time.Duration) (count int, reset time.Time)
}

var errMissingPolicies = errors.New("at least one policy is required")

// LimiterConfig describes the policies and dependencies of a Limiter.
type LimiterConfig struct {
	Policies map[Class]Policy
	Store    Store
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Limiter enforces per-(class, key) fixed-window quotas ahead of handlers.
type Limiter struct {
	policies map[Class]Policy
	store    Store
	clock    func() time.Time
	logger   *zap.Logger
}

// NewLimiter constructs a Limiter. A nil store defaults to the in-memory one.
func NewLimiter(cfg LimiterConfig) (*Limiter, error) {
	if len(cfg.Policies) == 0 {
		return nil, errMissingPolicies
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{policies: cfg.Policies, store: store, clock: clock, logger: logger}, nil
}

// Check counts one request against the (class, key) window and decides
// whether it may proceed. Unknown classes are allowed through; quota gaps
// must fail open rather than blocking traffic.
func (l *Limiter) Check(class Class, key string) Decision {
	policy, ok := l.policies[class]
	if !ok {
		return Decision{Allowed: true}
	}

	now := l.clock()
	count, reset := l.store.Incr(class, key, now, policy.Window)
	if count > policy.Limit {
		retryAfter := reset.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		if remainder := retryAfter % time.Second; remainder != 0 {
			retryAfter += time.Second - remainder
		}
		l.logger.Warn("rate limit exceeded",
			zap.String("class", string(class)),
			zap.String("key", key),
			zap.Int("count", count),
			zap.Int("limit", policy.Limit))
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
	}

	return Decision{Allowed: true, Remaining: policy.Limit - count}
}
