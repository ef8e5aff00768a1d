package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/gobike-dashboard/internal/api"
	"github.com/jengzang/gobike-dashboard/internal/config"
	"github.com/jengzang/gobike-dashboard/internal/database"
	"github.com/jengzang/gobike-dashboard/internal/dataset"
	"github.com/jengzang/gobike-dashboard/internal/middleware"
	"github.com/jengzang/gobike-dashboard/internal/pipeline"
	"github.com/jengzang/gobike-dashboard/internal/repository"
	"github.com/jengzang/gobike-dashboard/internal/service"
)

func main() {
	issueToken := flag.String("issue-token", "", "print an admin JWT for the given subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of a token issued with -issue-token")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if *issueToken != "" {
		if !cfg.AdminEnabled() {
			log.Fatal("JWT_SECRET is not set; admin endpoints are disabled")
		}
		token, err := middleware.GenerateToken(*issueToken, middleware.RoleAdmin, cfg.JWTSecret, *tokenTTL)
		if err != nil {
			log.Fatal("Failed to issue token:", err)
		}
		fmt.Println(token)
		return
	}

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 数据来源: 清洗后的 CSV 或 SQLite 快照
	var loader service.Loader
	switch cfg.DataSource {
	case config.SourceSQLite:
		db, err := database.Open(database.Config{Path: cfg.DBPath})
		if err != nil {
			log.Fatal("Failed to open database:", err)
		}
		defer db.Close()
		loader = service.SourceLoader(repository.NewTripRepository(db), config.SourceSQLite, cfg.DBPath)
	default:
		loader = service.CSVLoader(cfg.DataPath)
	}

	svc := service.NewDashboardService(loader, pipeline.Options{
		TopStations: cfg.TopStations,
		LabelWidth:  cfg.StationLabelWidth,
	})

	// A missing dataset is not fatal: the API answers 503 until a reload succeeds
	if _, err := svc.Reload(ctx, "startup"); err != nil {
		log.Printf("[Server] Starting without a dataset: %v", err)
	}

	if cfg.WatchData && cfg.DataSource == config.SourceCSV {
		watcher, err := dataset.NewFileWatcher(cfg.DataPath, dataset.DefaultDebounce)
		if err != nil {
			log.Fatal("Failed to watch dataset:", err)
		}
		go func() {
			if err := svc.WatchFile(ctx, watcher); err != nil {
				log.Printf("[Server] Dataset watcher stopped: %v", err)
			}
		}()
		log.Printf("[Server] Watching %s for changes", cfg.DataPath)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Stop()

	// 初始化路由
	router := api.SetupRouter(cfg, api.NewHandlers(svc), limiter)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Server] Shutdown error: %v", err)
		}
	}()

	// 启动服务器
	log.Printf("[Server] Listening on http://%s", cfg.Addr())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Failed to start server:", err)
	}
	log.Println("[Server] Stopped")
}
