package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/rule"
)

func TestRuleFilter(t *testing.T) {
	if f := ruleFilter(nil); len(f) != 0 {
		t.Fatalf("expected empty filter, got %v", f)
	}
	f := ruleFilter(&rule.ListFilter{TenantID: "t1", Search: "reports.*"})
	if f["tenant_id"] != "t1" {
		t.Fatalf("missing tenant filter: %v", f)
	}
	op, ok := f["operation"].(bson.M)
	if !ok || op["$regex"] != `reports\.\*` {
		t.Fatalf("expected escaped regex, got %v", f["operation"])
	}
}

func TestAuditFilterTimeRange(t *testing.T) {
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	before := after.Add(24 * time.Hour)
	f := auditFilter(&audit.QueryFilter{Decision: "deny", After: &after, Before: &before})
	if f["decision"] != "deny" {
		t.Fatalf("missing decision filter: %v", f)
	}
	created, ok := f["created_at"].(bson.M)
	if !ok || created["$gte"] != after || created["$lte"] != before {
		t.Fatalf("unexpected time range %v", f["created_at"])
	}
}

func TestMigrationIndexesCoverCollections(t *testing.T) {
	idx := migrationIndexes()
	for _, col := range []string{colRules, colAuditEntries} {
		if len(idx[col]) == 0 {
			t.Fatalf("no indexes for %s", col)
		}
	}
}
