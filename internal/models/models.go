package models

import "time"

// LocationSample 单次定位采样
// TimestampMs 为设备时钟的毫秒时间戳，SpeedMps 为设备上报的瞬时速度（未知时为 nil）
type LocationSample struct {
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	TimestampMs int64    `json:"timestamp_ms"`
	SpeedMps    *float64 `json:"speed_mps,omitempty"` // m/s
}

// Trip 行程记录（归档后不可变）
type Trip struct {
	ID              string           `json:"id"`
	StartTimeMs     int64            `json:"start_time_ms"`
	EndTimeMs       int64            `json:"end_time_ms"`
	Path            []LocationSample `json:"path"`
	DistanceMeters  float64          `json:"distance_meters"`
	DurationSeconds float64          `json:"duration_seconds"`
	AverageSpeedMps float64          `json:"average_speed_mps"`
}

// StartTime 行程开始时间
func (t *Trip) StartTime() time.Time {
	return time.UnixMilli(t.StartTimeMs)
}

// EndTime 行程结束时间
func (t *Trip) EndTime() time.Time {
	return time.UnixMilli(t.EndTimeMs)
}

// Region 地图视口（中心点 + 每轴跨度，单位为度）
type Region struct {
	CenterLatitude  float64 `json:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude"`
	LatitudeDelta   float64 `json:"latitude_delta"`
	LongitudeDelta  float64 `json:"longitude_delta"`
}
