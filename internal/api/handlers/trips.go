package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haoyun/waytrack/internal/archive"
	"github.com/haoyun/waytrack/internal/geo"
	"github.com/haoyun/waytrack/internal/models"
)

// ListTrips 获取行程列表（按开始时间倒序）
// GET /api/trips
// 存储读失败或存量数据损坏时返回空列表加提示，历史页面不因一次损坏而不可用
func (h *Handler) ListTrips(c *gin.Context) {
	trips, err := h.archive.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list trips", zap.Error(err))

		notice := "Failed to read stored trips"
		if errors.Is(err, archive.ErrMalformedRecord) {
			notice = "Stored trips are corrupted"
		}
		c.JSON(http.StatusOK, gin.H{"data": []models.Trip{}, "notice": notice})
		return
	}

	// 展示顺序由这里决定，存储层不保证顺序
	sort.Slice(trips, func(i, j int) bool {
		return trips[i].StartTimeMs > trips[j].StartTimeMs
	})

	c.JSON(http.StatusOK, gin.H{"data": trips})
}

// GetTrip 获取行程详情
// GET /api/trips/:id
func (h *Handler) GetTrip(c *gin.Context) {
	trip, ok := h.findTrip(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trip})
}

// GetTripRegion 获取回放行程用的地图视口
// GET /api/trips/:id/region
func (h *Handler) GetTripRegion(c *gin.Context) {
	trip, ok := h.findTrip(c)
	if !ok {
		return
	}
	// 空轨迹时 region 为 null，前端自行兜底
	c.JSON(http.StatusOK, gin.H{"data": geo.FrameRegion(trip.Path)})
}

// RemoveTrip 删除单条行程
// DELETE /api/trips/:id
// id 不存在也返回成功（删除是幂等的）
func (h *Handler) RemoveTrip(c *gin.Context) {
	if err := h.archive.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Error("Failed to remove trip", zap.String("trip_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove trip"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trip removed"})
}

// ClearTrips 清空全部行程
// DELETE /api/trips
func (h *Handler) ClearTrips(c *gin.Context) {
	if err := h.archive.Clear(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear trips", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear trips"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All trips cleared"})
}

// findTrip 按路径参数定位行程，找不到时直接写响应并返回 false
func (h *Handler) findTrip(c *gin.Context) (*models.Trip, bool) {
	trips, err := h.archive.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list trips", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stored trips"})
		return nil, false
	}

	id := c.Param("id")
	for i := range trips {
		if trips[i].ID == id {
			return &trips[i], true
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
	return nil, false
}
