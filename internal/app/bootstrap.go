package app

import (
	"errors"

	"github.com/reelcraft/reelcraft/internal/cache"
	"github.com/reelcraft/reelcraft/internal/config"
	"github.com/reelcraft/reelcraft/internal/logger"
	"github.com/reelcraft/reelcraft/internal/provider"
	"github.com/reelcraft/reelcraft/internal/router"
	"github.com/reelcraft/reelcraft/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	container := provider.NewContainer(cfg)
	runner, err := buildRunnerWithContainer(cfg, container, mode)
	if err != nil {
		return nil, nil, err
	}
	return runner, container, nil
}

func buildRunnerWithContainer(cfg *config.Config, container *provider.Container, mode string) (*Runner, error) {
	if err := validateMode(mode); err != nil {
		return nil, err
	}
	var services []Service

	// HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// Worker 服务；all 模式下队列关闭时只跳过
	if mode == ModeAll || mode == ModeWorker {
		switch {
		case cfg.Queue.Enabled:
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		case mode == ModeWorker:
			return nil, errors.New("worker mode requires queue.enabled")
		default:
			logger.Warnw("app_worker_skipped", "reason", "queue_disabled")
		}
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.QueueClient.Close(); err != nil {
			opts.Logger.Warnw("app_queue_client_close_failed", "error", err)
		}
		if err := cache.Close(); err != nil {
			opts.Logger.Warnw("app_redis_close_failed", "error", err)
		}
	}()

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
