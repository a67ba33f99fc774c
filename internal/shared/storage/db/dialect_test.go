package db

import "testing"

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		driver  string
		dsn     string
		dialect Dialect
		wantErr bool
	}{
		{name: "postgres", url: "postgres://u:p@localhost/study", driver: "pgx", dsn: "postgres://u:p@localhost/study", dialect: Postgres},
		{name: "postgresql", url: "postgresql://localhost/study", driver: "pgx", dsn: "postgresql://localhost/study", dialect: Postgres},
		{name: "sqlite path", url: "sqlite://./data/study.db", driver: "sqlite3", dsn: "./data/study.db", dialect: SQLite},
		{name: "sqlite memory", url: "sqlite::memory:", driver: "sqlite3", dsn: ":memory:", dialect: SQLite},
		{name: "file uri", url: "file:study.db?cache=shared", driver: "sqlite3", dsn: "file:study.db?cache=shared", dialect: SQLite},
		{name: "empty", url: " ", wantErr: true},
		{name: "unknown", url: "mysql://localhost", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Driver != tt.driver || got.DSN != tt.dsn || got.Dialect != tt.dialect {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	query := "UPDATE documents SET title = ? WHERE id = ? AND owner_id = ?"
	if got := Postgres.Rebind(query); got != "UPDATE documents SET title = $1 WHERE id = $2 AND owner_id = $3" {
		t.Fatalf("unexpected postgres rebind: %s", got)
	}
	if got := SQLite.Rebind(query); got != query {
		t.Fatalf("expected sqlite query unchanged, got %s", got)
	}
}
