package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Sentinel store (PostgreSQL).
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
    groups          JSONB NOT NULL DEFAULT '[]',
    description     TEXT NOT NULL DEFAULT '',
    metadata        JSONB,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    authorities     JSONB NOT NULL DEFAULT '[]',
    allowed         BOOLEAN NOT NULL DEFAULT FALSE,
    decision        TEXT NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    eval_time_ns    BIGINT NOT NULL DEFAULT 0,
    metadata        JSONB,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sentinel_audit_tenant ON sentinel_audit_entries (tenant_id);
CREATE INDEX IF NOT EXISTS idx_sentinel_audit_principal ON sentinel_audit_entries (tenant_id, principal);
CREATE INDEX IF NOT EXISTS idx_sentinel_audit_operation ON sentinel_audit_entries (tenant_id, operation);
CREATE INDEX IF NOT EXISTS idx_sentinel_audit_decision ON sentinel_audit_entries (tenant_id, decision);
CREATE INDEX IF NOT EXISTS idx_sentinel_audit_created ON sentinel_audit_entries (created_at DESC);
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
