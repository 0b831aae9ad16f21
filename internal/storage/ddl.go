package storage

import (
	"context"
	"fmt"
	"sync"

	"carprep/internal/ddl"
)

var (
	ddlMu    sync.RWMutex
	dialects = map[string]ddl.Dialect{}
)

// RegisterDDL registers (or replaces) the SQL dialect used to bootstrap tables
// for a storage kind.
func RegisterDDL(kind string, d ddl.Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	dialects[kind] = d
}

// CreateTableSQL renders the idempotent CREATE TABLE statement for td in the
// dialect registered for kind.
func CreateTableSQL(kind string, td ddl.TableDef) (string, error) {
	ddlMu.RLock()
	d, ok := dialects[kind]
	ddlMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no DDL dialect registered for storage.kind=%q", kind)
	}
	return ddl.BuildCreateTableSQL(td, d)
}

// EnsureTable creates td through repo unless it already exists.
func EnsureTable(ctx context.Context, kind string, repo Repository, td ddl.TableDef) error {
	stmt, err := CreateTableSQL(kind, td)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure table %s: %w", td.FQN, err)
	}
	return nil
}
