// Package memory provides an in-memory implementation of the Sentinel
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/id"
	"github.com/xraph/sentinel/rule"
	"github.com/xraph/sentinel/store"
)

// Compile-time interface checks.
var (
	_ rule.Store  = (*Store)(nil)
	_ audit.Store = (*Store)(nil)
	_ store.Store = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Sentinel entities.
type Store struct {
	mu sync.RWMutex

	rules   map[string]*rule.Definition
	entries map[string]*audit.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		rules:   make(map[string]*rule.Definition),
		entries: make(map[string]*audit.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Rule Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRule(_ context.Context, d *rule.Definition) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[d.ID.String()] = copyRule(d)
	return nil
}

func (s *Store) GetRule(_ context.Context, ruleID id.RuleID) (*rule.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.rules[ruleID.String()]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", ruleID, rule.ErrNotFound)
	}
	return copyRule(d), nil
}

func (s *Store) UpdateRule(_ context.Context, d *rule.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[d.ID.String()]; !ok {
		return fmt.Errorf("rule %s: %w", d.ID, rule.ErrNotFound)
	}
	d.UpdatedAt = time.Now().UTC()
	s.rules[d.ID.String()] = copyRule(d)
	return nil
}

func (s *Store) DeleteRule(_ context.Context, ruleID id.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[ruleID.String()]; !ok {
		return fmt.Errorf("rule %s: %w", ruleID, rule.ErrNotFound)
	}
	delete(s.rules, ruleID.String())
	return nil
}

func (s *Store) ListRules(_ context.Context, filter *rule.ListFilter) ([]*rule.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*rule.Definition, 0, len(s.rules))
	for _, d := range s.rules {
		if filter != nil {
			if filter.TenantID != "" && d.TenantID != filter.TenantID {
				continue
			}
			if filter.Operation != "" && d.Operation != filter.Operation {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(d.Operation), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyRule(d))
	}
	sort.Slice(result, func(i, j int) bool { return newer(result[i].CreatedAt, result[j].CreatedAt, result[i].ID.String(), result[j].ID.String()) })
	var p pagOpts
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, p), nil
}

func (s *Store) CountRules(ctx context.Context, filter *rule.ListFilter) (int64, error) {
	var f rule.ListFilter
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = 0, 0
	list, err := s.ListRules(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) DeleteRulesByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, d := range s.rules {
		if d.TenantID == tenantID {
			delete(s.rules, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(_ context.Context, e *audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID.String()] = copyEntry(e)
	return nil
}

func (s *Store) GetAuditEntry(_ context.Context, entryID id.AuditID) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("audit entry %s: %w", entryID, audit.ErrNotFound)
	}
	return copyEntry(e), nil
}

func (s *Store) ListAuditEntries(_ context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*audit.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter != nil {
			if filter.TenantID != "" && e.TenantID != filter.TenantID {
				continue
			}
			if filter.Principal != "" && e.Principal != filter.Principal {
				continue
			}
			if filter.Operation != "" && e.Operation != filter.Operation {
				continue
			}
			if filter.Decision != "" && e.Decision != filter.Decision {
				continue
			}
			if filter.After != nil && e.CreatedAt.Before(*filter.After) {
				continue
			}
			if filter.Before != nil && e.CreatedAt.After(*filter.Before) {
				continue
			}
		}
		result = append(result, copyEntry(e))
	}
	sort.Slice(result, func(i, j int) bool { return newer(result[i].CreatedAt, result[j].CreatedAt, result[i].ID.String(), result[j].ID.String()) })
	var p pagOpts
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, p), nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	var f audit.QueryFilter
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = 0, 0
	list, err := s.ListAuditEntries(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) PurgeAuditEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.entries {
		if e.CreatedAt.Before(before) {
			delete(s.entries, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteAuditEntriesByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if e.TenantID == tenantID {
			delete(s.entries, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyRule(d *rule.Definition) *rule.Definition {
	c := *d
	if d.Groups != nil {
		c.Groups = make([][]string, len(d.Groups))
		for i, g := range d.Groups {
			c.Groups[i] = append([]string(nil), g...)
		}
	}
	if d.Metadata != nil {
		c.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func copyEntry(e *audit.Entry) *audit.Entry {
	c := *e
	c.Authorities = append([]string(nil), e.Authorities...)
	return &c
}

// newer orders by creation time descending, then by ID descending.
func newer(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

type pagOpts struct{ limit, offset int }

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset > 0 && p.offset >= len(items) {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
