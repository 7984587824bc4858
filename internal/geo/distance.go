package geo

import (
	"math"

	"github.com/haoyun/waytrack/internal/models"
)

// EarthRadiusMeters 地球平均半径（米）
const EarthRadiusMeters = 6371000.0

// Haversine 计算两点间大圆距离（米），输入为度
// 对中间量做 [0,1] 截断，避免浮点溢出导致反三角函数定义域错误
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLng/2)*math.Sin(dLng/2)

	// 截断到 [0,1]，对跖点与极近点在浮点下可能越界
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Distance 计算两个采样点间的大圆距离（米）
func Distance(a, b models.LocationSample) float64 {
	return Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}
