package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haoyun/waytrack/internal/models"
)

// PushLocation 设备单点上行
// POST /api/location
func (h *Handler) PushLocation(c *gin.Context) {
	var sample models.LocationSample
	if err := c.BindJSON(&sample); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location sample"})
		return
	}

	if msg := validateSample(&sample); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	h.source.Publish(sample)
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// HandleDeviceSocket 设备 WebSocket 上行：每帧一个 JSON 采样点
// GET /ws/device
func (h *Handler) HandleDeviceSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade device websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("Device connected", zap.String("remote", conn.RemoteAddr().String()))

	for {
		var sample models.LocationSample
		if err := conn.ReadJSON(&sample); err != nil {
			h.logger.Info("Device disconnected", zap.Error(err))
			return
		}

		if msg := validateSample(&sample); msg != "" {
			h.logger.Warn("Dropping invalid sample from device", zap.String("reason", msg))
			continue
		}

		h.source.Publish(sample)
	}
}

// validateSample 校验并补全采样点，返回非空字符串表示拒绝原因
// 坐标必须有限且在经纬度值域内；核心算法不接受非有限输入，在边界挡掉
func validateSample(s *models.LocationSample) string {
	if math.IsNaN(s.Latitude) || math.IsInf(s.Latitude, 0) ||
		math.IsNaN(s.Longitude) || math.IsInf(s.Longitude, 0) {
		return "Coordinates must be finite"
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return "Latitude out of range"
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return "Longitude out of range"
	}
	if s.SpeedMps != nil && (math.IsNaN(*s.SpeedMps) || math.IsInf(*s.SpeedMps, 0)) {
		return "Speed must be finite"
	}
	// 设备未带时间戳时补服务端时钟
	if s.TimestampMs == 0 {
		s.TimestampMs = time.Now().UnixMilli()
	}
	return ""
}
