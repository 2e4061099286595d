package db

import (
	"testing"

	"backoffice/pkg/config"
)

func TestRuntimeConnString_PrefersDatabaseURL(t *testing.T) {
	cfg := config.Config{DatabaseURL: "postgres://u:p@db:5432/x", DB: config.DBConfig{Host: "other"}}
	if got := runtimeConnString(cfg); got != cfg.DatabaseURL {
		t.Fatalf("expected DATABASE_URL, got %q", got)
	}
}

func TestMigrationConnString_PrefersDirectURL(t *testing.T) {
	cfg := config.Config{DatabaseURL: "postgres://pooler", DirectURL: "postgres://direct"}
	if got := migrationConnString(cfg); got != "postgres://direct" {
		t.Fatalf("expected DIRECT_URL, got %q", got)
	}
}

func TestDSN_Defaults(t *testing.T) {
	got := dsn(config.DBConfig{User: "u", Password: "p", Port: "5432", Name: "backoffice"})
	want := "postgres://u:p@localhost:5432/backoffice?sslmode=disable"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
