// Package cache provides caching implementations for Sentinel rule lookups.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/sentinel"
)

// Compile-time interface check.
var _ sentinel.RuleCache = (*Memory)(nil)

// Memory is an in-memory cache with TTL-based expiration.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	tenantID  string
	rules     []sentinel.AccessRule
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached rules for an operation.
func (m *Memory) Get(_ context.Context, k sentinel.RuleKey) ([]sentinel.AccessRule, bool) {
	key := cacheKey(k)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.rules, true
}

// Set stores the rules resolved for an operation.
func (m *Memory) Set(_ context.Context, k sentinel.RuleKey, rules []sentinel.AccessRule) {
	key := cacheKey(k)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		tenantID:  k.TenantID,
		rules:     rules,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// InvalidateTenant removes all cached rules for a tenant, across every app.
func (m *Memory) InvalidateTenant(_ context.Context, tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if e.tenantID == tenantID {
			delete(m.entries, k)
		}
	}
}

// Len returns the number of entries, including expired ones not yet evicted.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func cacheKey(k sentinel.RuleKey) string {
	return k.AppID + "\x00" + k.TenantID + "\x00" + k.Operation
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
