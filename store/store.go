// Package store defines the aggregate persistence interface. Each subsystem
// (rule, audit) defines its own store interface. The composite Store
// composes them. Backends: Postgres, SQLite, MongoDB and Memory.
package store

import (
	"context"

	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/rule"
)

// Store is the aggregate persistence interface.
// A single backend implements every subsystem store.
type Store interface {
	rule.Store
	audit.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
