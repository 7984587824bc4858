package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/haoyun/waytrack/internal/api/handlers"
	"github.com/haoyun/waytrack/internal/archive"
	"github.com/haoyun/waytrack/internal/config"
	"github.com/haoyun/waytrack/internal/recorder"
	"github.com/haoyun/waytrack/internal/source"
	"github.com/haoyun/waytrack/internal/storage"
	"github.com/haoyun/waytrack/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting Waytrack", zap.String("port", cfg.ServerPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 打开嵌入式存储
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		logger.Fatal("Failed to init storage schema", zap.Error(err))
	}
	logger.Info("Storage ready", zap.String("path", cfg.DatabasePath))

	// 行程归档
	tripArchive := archive.New(logger, store, cfg.TripsKey)

	// 位置源（设备上行驱动）
	locSource := source.NewPushSource()

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run()

	// 录制服务
	rec := recorder.New(cfg, logger, locSource, tripArchive)

	// 新连接先收到当前录制状态
	wsHub.SetInitDataProvider(func() interface{} {
		return rec.Status()
	})

	// 订阅状态更新并广播到 WebSocket
	go func() {
		statusCh := rec.Subscribe()
		for status := range statusCh {
			wsHub.BroadcastStatusUpdate(status)
		}
	}()

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(logger, tripArchive, rec, locSource, wsHub)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 注册路由
	handler.RegisterRoutes(router)

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 仍在录制的行程收尾归档
	rec.Shutdown(ctx)

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
