// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/avalon/internal/util"
)

// maxLockout caps the exponential lockout backoff.
const maxLockout = 24 * time.Hour

// LoginProtection combines per-IP rate limiting of login requests with
// per-username lockout after repeated failures.
type LoginProtection struct {
	ipLimiters *limiterCache[string]

	failedAttempts map[string]*loginAttempt
	attemptsMu     sync.RWMutex

	maxFailedAttempts int
	lockoutDuration   time.Duration // doubles with each lockout
	attemptWindow     time.Duration

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// loginAttempt tracks failed login attempts for one username.
type loginAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is requests per second per IP (default: 0.5 = 1 request per 2 seconds)
	IPRateLimit float64
	// IPBurst is the maximum burst size for IP rate limiting (default: 5)
	IPBurst int
	// MaxFailedAttempts before lockout (default: 5)
	MaxFailedAttempts int
	// LockoutDuration is base lockout time, doubles with each lockout (default: 15 minutes)
	LockoutDuration time.Duration
	// AttemptWindow is the time window for counting failed attempts (default: 15 minutes)
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a login protection instance and starts its
// cleanup loop. Call Stop to end the loop.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}

	lp := &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		failedAttempts:    make(map[string]*loginAttempt),
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
		now:               time.Now,
		stop:              make(chan struct{}),
	}

	go lp.cleanup()

	return lp
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (lp *LoginProtection) Stop() {
	lp.stopOnce.Do(func() { close(lp.stop) })
}

func attemptKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CheckIPRateLimit reports whether a login from ip is allowed.
func (lp *LoginProtection) CheckIPRateLimit(ip string) bool {
	return lp.ipLimiters.get(ip).Allow()
}

// IsAccountLocked reports whether username is locked and for how long.
func (lp *LoginProtection) IsAccountLocked(username string) (bool, time.Duration) {
	lp.attemptsMu.RLock()
	attempt, exists := lp.failedAttempts[attemptKey(username)]
	var lockedUntil time.Time
	if exists {
		lockedUntil = attempt.lockedUntil
	}
	lp.attemptsMu.RUnlock()

	if !exists {
		return false, 0
	}

	now := lp.now()
	if now.Before(lockedUntil) {
		return true, lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailedAttempt records a failed login.
// Returns (true, lockDuration) if the account is now locked.
func (lp *LoginProtection) RecordFailedAttempt(username string) (bool, time.Duration) {
	key := attemptKey(username)

	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	now := lp.now()
	attempt, exists := lp.failedAttempts[key]

	if !exists {
		lp.failedAttempts[key] = &loginAttempt{count: 1, firstFailed: now}
		slog.Debug("login attempt recorded", "username", key, "count", 1)
		return lp.lockIfExceeded(key, lp.failedAttempts[key], now)
	}

	// If the attempt window has passed, reset the counter
	if now.Sub(attempt.firstFailed) > lp.attemptWindow {
		attempt.count = 1
		attempt.firstFailed = now
		slog.Debug("login attempt window reset", "username", key, "count", 1)
		return lp.lockIfExceeded(key, attempt, now)
	}

	attempt.count++
	slog.Debug("login attempt recorded", "username", key, "count", attempt.count)

	return lp.lockIfExceeded(key, attempt, now)
}

func (lp *LoginProtection) lockIfExceeded(key string, attempt *loginAttempt, now time.Time) (bool, time.Duration) {
	if attempt.count < lp.maxFailedAttempts {
		return false, 0
	}

	lockDuration := lp.lockoutDuration
	for i := 0; i < attempt.lockouts; i++ {
		lockDuration *= 2
		if lockDuration > maxLockout {
			lockDuration = maxLockout
			break
		}
	}

	attempt.lockedUntil = now.Add(lockDuration)
	attempt.lockouts++
	attempt.count = 0

	slog.Warn("account locked due to failed attempts",
		"username", key,
		"lockouts", attempt.lockouts,
		"duration", lockDuration,
	)

	return true, lockDuration
}

// RecordSuccessfulLogin clears failed attempt tracking for username.
func (lp *LoginProtection) RecordSuccessfulLogin(username string) {
	key := attemptKey(username)

	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	delete(lp.failedAttempts, key)
}

// GetRemainingAttempts returns the number of attempts left before lockout.
func (lp *LoginProtection) GetRemainingAttempts(username string) int {
	lp.attemptsMu.RLock()
	attempt, exists := lp.failedAttempts[attemptKey(username)]
	var count int
	var firstFailed time.Time
	if exists {
		count, firstFailed = attempt.count, attempt.firstFailed
	}
	lp.attemptsMu.RUnlock()

	if !exists || lp.now().Sub(firstFailed) > lp.attemptWindow {
		return lp.maxFailedAttempts
	}

	remaining := lp.maxFailedAttempts - count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// cleanup periodically removes stale entries.
func (lp *LoginProtection) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-lp.stop:
			return
		case <-ticker.C:
			lp.cleanupStaleEntries()
		}
	}
}

func (lp *LoginProtection) cleanupStaleEntries() {
	now := lp.now()

	if lp.ipLimiters.clearIfExceeds(maxLimiterEntries) {
		slog.Info("cleared login IP rate limiters due to size")
	}

	lp.attemptsMu.Lock()
	for key, attempt := range lp.failedAttempts {
		if now.After(attempt.lockedUntil) && now.Sub(attempt.firstFailed) > lp.attemptWindow {
			delete(lp.failedAttempts, key)
		}
	}
	lp.attemptsMu.Unlock()
}

// Middleware rate limits login POSTs per client IP.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := util.ClientIP(r)
			if !lp.CheckIPRateLimit(ip) {
				slog.Warn("login rate limit exceeded", "ip", ip)
				WriteError(w, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
