package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/haoyun/waytrack/internal/archive"
	"github.com/haoyun/waytrack/internal/recorder"
	"github.com/haoyun/waytrack/internal/source"
	"github.com/haoyun/waytrack/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger   *zap.Logger
	archive  *archive.Archive
	recorder *recorder.Recorder
	source   *source.PushSource
	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	arch *archive.Archive,
	rec *recorder.Recorder,
	src *source.PushSource,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:   logger,
		archive:  arch,
		recorder: rec,
		source:   src,
		wsHub:    wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 本地单用户服务，允许所有来源
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// API 路由
	api := r.Group("/api")
	{
		// 录制器
		api.POST("/recorder/start", h.StartRecording)
		api.POST("/recorder/stop", h.StopRecording)
		api.GET("/recorder/status", h.GetRecorderStatus)

		// 设备上行
		api.POST("/location", h.PushLocation)

		// 行程归档
		api.GET("/trips", h.ListTrips)
		api.GET("/trips/:id", h.GetTrip)
		api.GET("/trips/:id/region", h.GetTripRegion)
		api.DELETE("/trips/:id", h.RemoveTrip)
		api.DELETE("/trips", h.ClearTrips)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)
	r.GET("/ws/device", h.HandleDeviceSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket 浏览器端 WebSocket：接收录制状态与归档事件广播
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
