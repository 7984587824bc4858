package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haoyun/waytrack/internal/recorder"
)

// StartRecording 开始录制
// POST /api/recorder/start
// 位置源没有可用定位时返回 409，由用户获得定位后重试，不在服务端轮询等待
func (h *Handler) StartRecording(c *gin.Context) {
	if err := h.recorder.Start(c.Request.Context()); err != nil {
		if errors.Is(err, recorder.ErrNoFix) {
			c.JSON(http.StatusConflict, gin.H{"error": "No fix available"})
			return
		}
		h.logger.Error("Failed to start recording", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.recorder.Status()})
}

// StopRecording 结束录制并归档
// POST /api/recorder/stop
// 空闲时停止是静默 no-op；归档失败时行程按约定丢弃，但内存中的数值仍返回给前端展示
func (h *Handler) StopRecording(c *gin.Context) {
	trip, err := h.recorder.Stop(c.Request.Context())
	if trip == nil && err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Recorder already idle"})
		return
	}
	if err != nil {
		h.logger.Error("Trip not persisted", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"data":   trip,
			"notice": "Trip could not be saved to storage",
		})
		return
	}

	h.wsHub.BroadcastTripSaved(trip)
	c.JSON(http.StatusOK, gin.H{"data": trip})
}

// GetRecorderStatus 获取录制状态
// GET /api/recorder/status
func (h *Handler) GetRecorderStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.recorder.Status()})
}
