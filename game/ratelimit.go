package game

import "time"

const (
	rateWindow      = time.Second
	cooldownHorizon = 5 * time.Minute
)

type rateWindowState struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts events in fixed one second windows, per connection
// and per source address. It is owned by the hotel goroutine.
type RateLimiter struct {
	defaultLimit int
	byConn       map[string]*rateWindowState
	byAddr       map[string]*rateWindowState
	cooldowns    map[string]time.Time
}

func NewRateLimiter(defaultLimit int) *RateLimiter {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &RateLimiter{
		defaultLimit: defaultLimit,
		byConn:       make(map[string]*rateWindowState),
		byAddr:       make(map[string]*rateWindowState),
		cooldowns:    make(map[string]time.Time),
	}
}

// Allow counts one event against both windows. limit <= 0 means the
// default. A connection over its limit does not use up its address budget.
func (l *RateLimiter) Allow(connID, addr string, limit int, now time.Time) bool {
	if limit <= 0 {
		limit = l.defaultLimit
	}
	if !hit(l.byConn, connID, limit, now) {
		return false
	}
	if addr == "" {
		return true
	}
	return hit(l.byAddr, addr, limit, now)
}

func hit(windows map[string]*rateWindowState, key string, limit int, now time.Time) bool {
	w, ok := windows[key]
	if !ok || now.After(w.resetAt) {
		w = &rateWindowState{resetAt: now.Add(rateWindow)}
		windows[key] = w
	}
	w.count++
	return w.count <= limit
}

// Cooldown reports whether at least interval passed since the last
// accepted call for key, and records now if so.
func (l *RateLimiter) Cooldown(key string, interval time.Duration, now time.Time) bool {
	if last, ok := l.cooldowns[key]; ok && now.Sub(last) < interval {
		return false
	}
	l.cooldowns[key] = now
	return true
}

// Sweep drops windows whose reset time has passed and cooldowns older than
// the horizon. Nothing still in effect is touched.
func (l *RateLimiter) Sweep(now time.Time) {
	for k, w := range l.byConn {
		if now.After(w.resetAt) {
			delete(l.byConn, k)
		}
	}
	for k, w := range l.byAddr {
		if now.After(w.resetAt) {
			delete(l.byAddr, k)
		}
	}
	for k, at := range l.cooldowns {
		if now.Sub(at) > cooldownHorizon {
			delete(l.cooldowns, k)
		}
	}
}

// Forget drops everything held for a connection.
func (l *RateLimiter) Forget(connID string) {
	delete(l.byConn, connID)
	delete(l.cooldowns, connID)
}

func (l *RateLimiter) Len() int {
	return len(l.byConn) + len(l.byAddr) + len(l.cooldowns)
}
