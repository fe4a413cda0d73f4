package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/id"
	"github.com/xraph/sentinel/rule"
)

func TestRuleCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	d := &rule.Definition{
		ID:        id.NewRuleID(),
		TenantID:  "t1",
		AppID:     "app1",
		Operation: "BusinessService.someAdminMethod",
		Groups:    [][]string{{"ROLE_ADMIN"}},
	}

	// Create
	if err := s.CreateRule(ctx, d); err != nil {
		t.Fatal(err)
	}
	if d.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	// Get
	got, err := s.GetRule(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Operation != d.Operation {
		t.Fatalf("expected %s, got %s", d.Operation, got.Operation)
	}

	// Returned copies are detached from the store.
	got.Groups[0][0] = "ROLE_HACKED"
	again, _ := s.GetRule(ctx, d.ID)
	if again.Groups[0][0] != "ROLE_ADMIN" {
		t.Fatal("store returned a shared slice")
	}

	// Update
	d.Groups = [][]string{{"ROLE_ADMIN", "ROLE_ROOT"}}
	if err := s.UpdateRule(ctx, d); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetRule(ctx, d.ID)
	if len(got.Groups[0]) != 2 {
		t.Fatalf("expected 2 authorities after update, got %v", got.Groups)
	}

	// Delete
	if err := s.DeleteRule(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRule(ctx, d.ID); !errors.Is(err, rule.ErrNotFound) {
		t.Fatalf("expected rule.ErrNotFound, got %v", err)
	}
	if err := s.DeleteRule(ctx, d.ID); !errors.Is(err, rule.ErrNotFound) {
		t.Fatalf("expected rule.ErrNotFound deleting twice, got %v", err)
	}
}

func TestUpdateMissingRule(t *testing.T) {
	s := New()
	err := s.UpdateRule(context.Background(), &rule.Definition{ID: id.NewRuleID()})
	if !errors.Is(err, rule.ErrNotFound) {
		t.Fatalf("expected rule.ErrNotFound, got %v", err)
	}
}

func TestListRulesFilterAndPagination(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Now().Add(-time.Hour)
	for i, op := range []string{"Svc.a", "Svc.b", "Svc.c", "Other.d"} {
		_ = s.CreateRule(ctx, &rule.Definition{
			ID:        id.NewRuleID(),
			TenantID:  "t1",
			Operation: op,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	_ = s.CreateRule(ctx, &rule.Definition{ID: id.NewRuleID(), TenantID: "t2", Operation: "Svc.a"})

	all, err := s.ListRules(ctx, &rule.ListFilter{TenantID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 rules for t1, got %d", len(all))
	}
	if all[0].Operation != "Other.d" {
		t.Fatalf("expected newest first, got %s", all[0].Operation)
	}

	svc, _ := s.ListRules(ctx, &rule.ListFilter{TenantID: "t1", Search: "svc."})
	if len(svc) != 3 {
		t.Fatalf("expected 3 search matches, got %d", len(svc))
	}

	page, _ := s.ListRules(ctx, &rule.ListFilter{TenantID: "t1", Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].Operation != "Svc.c" {
		t.Fatalf("unexpected page %v", page)
	}

	n, err := s.CountRules(ctx, &rule.ListFilter{TenantID: "t1", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("expected count 4 ignoring limit, got %d", n)
	}

	if err := s.DeleteRulesByTenant(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	n, _ = s.CountRules(ctx, nil)
	if n != 1 {
		t.Fatalf("expected 1 rule left, got %d", n)
	}
}

func TestAuditEntries(t *testing.T) {
	ctx := context.Background()
	s := New()

	old := &audit.Entry{
		ID:        id.NewAuditID(),
		TenantID:  "t1",
		Principal: "alice",
		Operation: "Svc.a",
		Decision:  "allow",
		Allowed:   true,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	recent := &audit.Entry{
		ID:        id.NewAuditID(),
		TenantID:  "t1",
		Principal: "bob",
		Operation: "Svc.a",
		Decision:  "deny",
	}
	for _, e := range []*audit.Entry{old, recent} {
		if err := s.CreateAuditEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetAuditEntry(ctx, recent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Principal != "bob" {
		t.Fatalf("expected bob, got %s", got.Principal)
	}

	denied, _ := s.ListAuditEntries(ctx, &audit.QueryFilter{Decision: "deny"})
	if len(denied) != 1 {
		t.Fatalf("expected 1 denied entry, got %d", len(denied))
	}

	since := time.Now().Add(-time.Hour)
	n, _ := s.CountAuditEntries(ctx, &audit.QueryFilter{After: &since})
	if n != 1 {
		t.Fatalf("expected 1 entry after cutoff, got %d", n)
	}

	purged, err := s.PurgeAuditEntries(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	if _, err := s.GetAuditEntry(ctx, old.ID); !errors.Is(err, audit.ErrNotFound) {
		t.Fatalf("expected audit.ErrNotFound, got %v", err)
	}

	_ = s.DeleteAuditEntriesByTenant(ctx, "t1")
	n, _ = s.CountAuditEntries(ctx, nil)
	if n != 0 {
		t.Fatalf("expected empty audit log, got %d", n)
	}
}
