package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/WallFeed/internal/api"
	"github.com/LJTian/WallFeed/internal/config"
	"github.com/LJTian/WallFeed/internal/feed"
	"github.com/LJTian/WallFeed/internal/ingest"
	"github.com/LJTian/WallFeed/internal/logger"
	"github.com/LJTian/WallFeed/internal/scheduler"
	"github.com/LJTian/WallFeed/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}
	if err := logger.Init(cfg.LogLevel, cfg.Debug); err != nil {
		panic("init logger: " + err.Error())
	}
	defer logger.Sync()
	log := logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisAddr := ""
	if cfg.FeedTransport == config.TransportRedis {
		redisAddr = cfg.RedisAddr
	}
	store, err := storage.NewStore(cfg.PostgresDSN, redisAddr)
	if err != nil {
		log.Fatal("init store failed", zap.Error(err))
	}

	// 预置超级用户，未配置 token 时刷新接口对所有人返回 401
	if cfg.AdminToken != "" {
		if _, err := store.EnsureOperator(cfg.AdminName, cfg.AdminToken, true); err != nil {
			log.Fatal("ensure admin operator failed", zap.Error(err))
		}
	} else {
		log.Warn("ADMIN_TOKEN not set, force refresh endpoint is unusable")
	}

	var (
		mailbox  feed.Mailbox
		commands feed.Commands
	)
	switch cfg.FeedTransport {
	case config.TransportRedis:
		mailbox = feed.NewRedisMailbox(store.Redis, cfg.FeedRedisPrefix)
		commands = feed.NewRedisCommands(store.Redis, cfg.FeedRedisPrefix)
		log.Info("feed transport: redis, expecting a separate worker process", zap.String("prefix", cfg.FeedRedisPrefix))
	default:
		mem := feed.NewMemoryMailbox()
		cmds := feed.NewMemoryCommands()
		mailbox, commands = mem, cmds

		w, err := ingest.FromConfig(cfg, mem, cmds)
		if err != nil {
			log.Fatal("init ingest worker failed", zap.Error(err))
		}
		go func() {
			// 启动失败时整个进程退出，交给外部监管重启
			if err := w.Run(ctx); err != nil {
				log.Fatal("ingest worker failed", zap.Error(err))
			}
		}()
	}

	cache := feed.NewCache(mailbox, commands)

	if cfg.ForceRefreshCron != "" {
		s, err := scheduler.New(cfg.ForceRefreshCron, cache)
		if err != nil {
			log.Fatal("init scheduler failed", zap.Error(err))
		}
		s.Start()
		defer s.Stop()
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.SiteBasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}
	api.NewServer(cache, store).RegisterRoutes(r)

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting api server", zap.String("addr", srv.Addr), zap.String("transport", cfg.FeedTransport))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server exit", zap.Error(err))
	}
}
