package geo

import "github.com/haoyun/waytrack/internal/models"

const (
	// regionPadding 视口边界相对轨迹包络的放大系数（20% 留白）
	regionPadding = 1.2
	// minSpanDegrees 每轴最小跨度（约 100 米），避免单点/直线轨迹出现零尺寸视口
	minSpanDegrees = 0.001
)

// FrameRegion 计算包住整条轨迹的地图视口
// 空轨迹返回 nil，由调用方自行处理（不虚构默认视口）
func FrameRegion(path []models.LocationSample) *models.Region {
	if len(path) == 0 {
		return nil
	}

	minLat, maxLat := path[0].Latitude, path[0].Latitude
	minLng, maxLng := path[0].Longitude, path[0].Longitude

	for _, p := range path[1:] {
		if p.Latitude < minLat {
			minLat = p.Latitude
		}
		if p.Latitude > maxLat {
			maxLat = p.Latitude
		}
		if p.Longitude < minLng {
			minLng = p.Longitude
		}
		if p.Longitude > maxLng {
			maxLng = p.Longitude
		}
	}

	latDelta := (maxLat - minLat) * regionPadding
	lngDelta := (maxLng - minLng) * regionPadding
	if latDelta < minSpanDegrees {
		latDelta = minSpanDegrees
	}
	if lngDelta < minSpanDegrees {
		lngDelta = minSpanDegrees
	}

	return &models.Region{
		CenterLatitude:  (minLat + maxLat) / 2,
		CenterLongitude: (minLng + maxLng) / 2,
		LatitudeDelta:   latDelta,
		LongitudeDelta:  lngDelta,
	}
}
