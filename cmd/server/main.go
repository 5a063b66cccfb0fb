package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/user/moviedex/internal/config"
	"github.com/user/moviedex/internal/handler"
	"github.com/user/moviedex/internal/repository"
	"github.com/user/moviedex/internal/router"
	"github.com/user/moviedex/internal/service"
	"github.com/user/moviedex/web"
)

var Version = "v0.0.0"

func main() {
	log.SetHandler(text.New(os.Stderr))

	app := &cli.App{
		Name:    "moviedex",
		Usage:   "movie discovery web app backed by TMDB",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address, overrides PORT",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file to load",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"debug"},
				Usage:   "debug log level",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("服务异常退出")
	}
}

func run(c *cli.Context) error {
	// 加载环境变量
	if err := godotenv.Load(c.String("env-file")); err != nil {
		log.Info("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg := config.Load()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if c.Bool("verbose") {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	// 偏好存储：配置了数据库则持久化到 Postgres，否则使用进程内存
	var kv repository.KVStore
	if cfg.DatabaseURL != "" {
		sqlDB, err := repository.InitDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		kv, err = repository.NewGormKV(sqlDB)
		if err != nil {
			return err
		}
		log.Info("偏好存储: Postgres")
	} else {
		kv = repository.NewMemoryKV()
		log.Warn("未配置 DATABASE_URL，偏好仅保存在内存中")
	}

	if cfg.TMDBToken == "" && cfg.TMDBAPIKey == "" {
		log.Warn("未配置 TMDB_TOKEN 或 TMDB_API_KEY，目录请求将会失败")
	}
	tmdb := service.NewTMDBService(cfg)

	states, err := service.NewStateRegistry(tmdb, kv, cfg.SessionCacheSize, cfg.SessionIdle)
	if err != nil {
		return err
	}

	// 定时清理空闲的状态容器
	bgCtx, stopBg := context.WithCancel(context.Background())
	defer stopBg()
	service.NewCleanupService(states, cfg.SessionIdle/4).Start(bgCtx)

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := handler.NewHandler(cfg, states)
	r := router.NewEngine(h, web.FS, tmdb)

	addr := ":" + cfg.Port
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	srv := &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   cfg.HTTPTimeout + 10*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("服务器启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("正在关闭服务器...")

	// 5 秒超时上下文用于关闭过程
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("服务器已退出")
	return nil
}
