package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Sentinel store (SQLite).
var Migrations = migrate.NewGroup("sentinel")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_rules",
			Version: "20260901000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS sentinel_rules (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    app_id          TEXT NOT NULL DEFAULT '',
    operation       TEXT NOT NULL,
    groups          TEXT NOT NULL DEFAULT '[]',
    description     TEXT NOT NULL DEFAULT '',
    metadata        TEXT NOT NULL DEFAULT '{}',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sentinel_rules_tenant ON sentinel_rules (tenant_id);
CREATE INDEX IF NOT EXISTS idx_sentinel_rules_operation ON sentinel_rules (tenant_id, operation);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS sentinel_rules`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_audit_entries",
			Version: "20260901000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS sentinel_audit_entries (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    app_id          TEXT NOT NULL DEFAULT '',
    principal       TEXT NOT NULL,
    operation       TEXT NOT NULL,
    authorities     TEXT NOT NULL DEFAULT '[]',
    allowed         INTEGER NOT NULL DEFAULT 0,
    decision        TEXT NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    eval_time_ns    INTEGER NOT NULL DEFAULT 0,
    metadata        TEXT NOT NULL DEFAULT '{}',
    created_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sentinel_audit_tenant ON sentinel_audit_entries (tenant_id);
CREATE INDEX IF NOT EXISTS idx_sentinel_audit_principal ON sentinel_audit_entries (tenant_id, principal);
CREATE INDEX IF NOT EXISTS idx_sentinel_audit_operation ON sentinel_audit_entries (tenant_id, operation);
CREATE INDEX IF NOT EXISTS idx_sentinel_audit_decision ON sentinel_audit_entries (tenant_id, decision);
CREATE INDEX IF NOT EXISTS idx_sentinel_audit_created ON sentinel_audit_entries (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS sentinel_audit_entries`)
				return err
			},
		},
	)
}
