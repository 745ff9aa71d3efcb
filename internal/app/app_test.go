package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T, addr string) (*App, *gorm.DB, redis.UniversalClient) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &App{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Server:          &http.Server{Addr: addr, Handler: http.NotFoundHandler()},
		DB:              db,
		Redis:           rdb,
		ShutdownTimeout: 2 * time.Second,
	}, db, rdb
}

func TestRunShutsDownStoresOnCancel(t *testing.T) {
	a, db, rdb := newTestApp(t, "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := sqlDB.Ping(); err == nil {
		t.Fatal("expected database to be closed")
	}
	if err := rdb.Ping(context.Background()).Err(); err == nil {
		t.Fatal("expected redis client to be closed")
	}
}

func TestRunReturnsListenError(t *testing.T) {
	a, _, _ := newTestApp(t, "256.0.0.1:bad")

	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
}

func TestOrDefault(t *testing.T) {
	if got := orDefault(0, time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := orDefault(3*time.Second, time.Second); got != 3*time.Second {
		t.Fatalf("expected configured value, got %v", got)
	}
}
