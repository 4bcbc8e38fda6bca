package db

import (
	"context"
	"testing"

	"github.com/angelmondragon/packfinderz-storefront/pkg/config"
)

func TestNewSQLiteClient(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, config.SnapshotDriverSQLite, config.DBConfig{DSN: "file:dbclient?mode=memory&cache=shared", MaxOpenConns: 1}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if client.DB() == nil {
		t.Fatal("expected gorm handle")
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New(context.Background(), "mysql", config.DBConfig{DSN: "x"}, nil); err == nil {
		t.Fatal("expected unknown driver to fail")
	}
	if _, err := New(context.Background(), config.SnapshotDriverSQLite, config.DBConfig{}, nil); err == nil {
		t.Fatal("expected missing dsn to fail")
	}
}
