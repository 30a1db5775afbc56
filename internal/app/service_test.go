package app

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reelcraft/reelcraft/internal/config"
	"github.com/reelcraft/reelcraft/internal/provider"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type stubService struct {
	name     string
	startErr error
	block    bool
	stopped  atomic.Bool
}

func (s *stubService) Name() string { return s.name }

func (s *stubService) Start(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return nil
	}
	return s.startErr
}

func (s *stubService) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func TestRunnerStopsAllServicesWhenOneFails(t *testing.T) {
	boom := errors.New("listen failed")
	failing := &stubService{name: "http", startErr: boom}
	blocking := &stubService{name: "worker", block: true}

	err := NewRunner(failing, blocking).Run(context.Background(), time.Second, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("want start error, got %v", err)
	}
	if !failing.stopped.Load() || !blocking.stopped.Load() {
		t.Fatalf("every service should be stopped")
	}
}

func TestRunnerReturnsNilOnCancel(t *testing.T) {
	blocking := &stubService{name: "http", block: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewRunner(blocking).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancel should end cleanly, got %v", err)
	}
	if !blocking.stopped.Load() {
		t.Fatalf("service should be stopped")
	}
}

func TestBuildRunnerSkipsWorkerWhenQueueDisabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:app_runner?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: "0", Mode: "debug"}}
	container := provider.NewContainerWithDB(cfg, db, nil)

	runner, err := buildRunnerWithContainer(cfg, container, ModeAll)
	if err != nil {
		t.Fatalf("build runner failed: %v", err)
	}
	if len(runner.services) != 1 || runner.services[0].Name() != "http" {
		t.Fatalf("want only http service, got %d services", len(runner.services))
	}

	if _, err = buildRunnerWithContainer(cfg, container, ModeWorker); err == nil {
		t.Fatalf("worker mode without queue should fail")
	}
}

func TestBuildRunnerRejectsUnknownMode(t *testing.T) {
	cfg := &config.Config{}
	_, err := buildRunnerWithContainer(cfg, nil, "cron")
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("want unknown mode error, got %v", err)
	}
}

func TestRunnerStopsOthersWhenServiceExitsCleanly(t *testing.T) {
	done := &stubService{name: "oneshot"}
	blocking := &stubService{name: "worker", block: true}

	if err := NewRunner(blocking, done).Run(context.Background(), time.Second, nil); err != nil {
		t.Fatalf("clean exit should not error, got %v", err)
	}
	if !blocking.stopped.Load() || !done.stopped.Load() {
		t.Fatalf("every service should be stopped")
	}
}
