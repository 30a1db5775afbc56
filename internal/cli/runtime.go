package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/reelcraft/reelcraft/internal/cache"
	"github.com/reelcraft/reelcraft/internal/cartapi"
	"github.com/reelcraft/reelcraft/internal/cartsync"
	"github.com/reelcraft/reelcraft/internal/cartsync/localcache"
	"github.com/reelcraft/reelcraft/internal/cartsync/transport"
	"github.com/reelcraft/reelcraft/internal/config"
	"github.com/reelcraft/reelcraft/internal/logger"
	"github.com/reelcraft/reelcraft/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const stateDirName = "reelcraft"

// errSignInRequired 未登录
var errSignInRequired = errors.New("sign in required: run `cartctl login`")

// runtime 单次命令的依赖
type runtime struct {
	cfg      *config.Config
	out      io.Writer
	log      *zap.SugaredLogger
	stateDir string
	sessions *session.Store
	doer     *transport.RetryClient
	api      *transport.APIClient
}

func (rt *runtime) init(cmd *cobra.Command, opts *RootOptions) error {
	logger.Init(logger.ModeCLI, logger.Options{})
	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(opts.BaseURL); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := strings.TrimSpace(opts.StateDir); v != "" {
		cfg.Client.StateDir = v
	}
	logger.Init(logger.ModeCLI, cfg.Log.ToLoggerOptions())

	rt.cfg = cfg
	rt.out = cmd.OutOrStdout()
	rt.log = logger.Named("cartctl")

	rt.stateDir, err = resolveStateDir(cfg.Client.StateDir)
	if err != nil {
		return err
	}
	storage, err := localcache.NewFileStorage(rt.stateDir)
	if err != nil {
		return err
	}
	rt.sessions = session.NewStore(storage, session.WithLogger(logger.Named("session")))

	httpClient := &http.Client{Timeout: cfg.Client.RequestTimeout()}
	policy := transport.Policy{Attempts: cfg.Client.Retry.Attempts, InitialDelay: cfg.Client.Retry.InitialDelay()}
	rt.doer = transport.NewRetryClient(httpClient, policy, nil, logger.Named("transport"))
	rt.api, err = transport.NewAPIClient(cfg.Client.BaseURL, rt.doer, rt.sessions)
	return err
}

func resolveStateDir(dir string) (string, error) {
	if dir = strings.TrimSpace(dir); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir failed: %w", err)
	}
	return filepath.Join(base, stateDirName), nil
}

// cartStorage 按 client.cache.driver 选择快照存储
func (rt *runtime) cartStorage() (localcache.Storage, error) {
	cacheCfg := rt.cfg.Client.Cache
	switch strings.ToLower(strings.TrimSpace(cacheCfg.Driver)) {
	case "", "file":
		dir := strings.TrimSpace(cacheCfg.Dir)
		if dir == "" {
			dir = filepath.Join(rt.stateDir, "cache")
		}
		return localcache.NewFileStorage(dir)
	case "redis":
		if err := cache.InitRedis(&rt.cfg.Redis); err != nil {
			return nil, err
		}
		client := cache.Client()
		if client == nil {
			return nil, errors.New("client.cache.driver=redis requires redis.enabled")
		}
		return localcache.NewRedisStorage(client, cache.BuildKey("cartctl")), nil
	case "memory":
		return localcache.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown client.cache.driver %q", cacheCfg.Driver)
	}
}

// cartCache 当前用户的购物车快照；未登录时返回 nil
func (rt *runtime) cartCache(ctx context.Context) (*localcache.Cache[cartapi.Cart], error) {
	cred, ok := rt.sessions.Current(ctx)
	if !ok {
		return nil, nil
	}
	storage, err := rt.cartStorage()
	if err != nil {
		return nil, err
	}
	return localcache.New[cartapi.Cart](storage, "cart:"+cred.UserID,
		localcache.WithTTL(rt.cfg.Client.Cache.TTL()),
		localcache.WithLogger(logger.Named("localcache")),
	), nil
}

// newEngine 创建本次命令使用的同步引擎
func (rt *runtime) newEngine(ctx context.Context, catalog *cartsync.Catalog) (*cartsync.Engine, error) {
	snapshots, err := rt.cartCache(ctx)
	if err != nil {
		return nil, err
	}
	carts, err := transport.NewCartClient(rt.cfg.Client.BaseURL, rt.doer, rt.sessions)
	if err != nil {
		return nil, err
	}
	var products cartsync.ProductLookup
	if catalog != nil {
		products = catalog
	}
	notifier := &printNotifier{out: rt.out}
	return cartsync.New(cartsync.Config{
		API:     carts,
		Session: rt.sessions,
		Navigator: cartsync.NavigatorFunc(func() {
			notifier.println("Sign in required. Run `cartctl login --email <email>` first.")
		}),
		Notifier:      notifier,
		Products:      products,
		Cache:         snapshots,
		Logger:        logger.Named("cartsync"),
		DebounceDelay: rt.cfg.Client.Debounce(),
	})
}

// printNotifier 把用户提示写到命令输出
type printNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func (n *printNotifier) println(line string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, line)
}

// Success 成功提示
func (n *printNotifier) Success(message string) {
	n.println("ok: " + message)
}

// Failure 失败提示
func (n *printNotifier) Failure(message string, err error) {
	if err != nil {
		n.println(fmt.Sprintf("error: %s (%v)", message, err))
		return
	}
	n.println("error: " + message)
}

// friendlyError 未登录类错误统一提示
func friendlyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, cartsync.ErrUnauthenticated) || errors.Is(err, transport.ErrNoToken) {
		return errSignInRequired
	}
	return err
}
