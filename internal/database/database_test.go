package database

import (
	"path/filepath"
	"testing"
)

func TestRebind(t *testing.T) {
	query := "UPDATE runs SET status = ? WHERE id = ?"

	if got := Rebind(SQLite, query); got != query {
		t.Errorf("sqlite query should be unchanged, got %q", got)
	}
	want := "UPDATE runs SET status = $1 WHERE id = $2"
	if got := Rebind(Postgres, query); got != want {
		t.Errorf("Rebind() = %q, want %q", got, want)
	}
}

func TestConnectFallsBackToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.db")

	if err := Connect(func(string) string { return "" }, path); err != nil {
		t.Fatalf("Connect() unexpected error = %v", err)
	}
	defer Close()

	if Current != SQLite {
		t.Errorf("expected sqlite dialect, got %q", Current)
	}
	if err := RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() unexpected error = %v", err)
	}
	// migrations are idempotent
	if err := RunMigrations(); err != nil {
		t.Fatalf("second RunMigrations() unexpected error = %v", err)
	}
}

func TestConnectPartialPostgresConfig(t *testing.T) {
	getenv := func(key string) string {
		if key == "POSTGRES_USER" {
			return "suite"
		}
		return ""
	}
	if err := Connect(getenv, filepath.Join(t.TempDir(), "results.db")); err == nil {
		Close()
		t.Fatal("expected partial postgres config to fail")
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}
