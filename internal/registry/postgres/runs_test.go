package postgres

import (
	"context"
	"strings"
	"testing"
)

func TestRunQueriesRejectOverwrite(t *testing.T) {
	if !strings.Contains(insertRunQuery, "ON CONFLICT (run_id) DO NOTHING") {
		t.Fatalf("expected conflict clause in insert query")
	}
	if strings.Contains(strings.ToUpper(insertRunQuery), "DO UPDATE") {
		t.Fatalf("insert query must never update an existing run")
	}
	if !strings.Contains(selectRunQuery, "run_id = $1") {
		t.Fatalf("expected run_id predicate in select query")
	}
	if !strings.Contains(createRunsTableQuery, "run_id TEXT PRIMARY KEY") {
		t.Fatalf("expected run_id primary key")
	}
}

func TestNilRunStore(t *testing.T) {
	if NewRunStore(nil) != nil {
		t.Fatalf("expected nil store for nil db")
	}
	var store *RunStore
	if _, err := store.Get(context.Background(), "run-1"); err == nil {
		t.Fatalf("expected error from nil store")
	}
}
