package recorder

import (
	"math"

	"github.com/haoyun/waytrack/internal/geo"
	"github.com/haoyun/waytrack/internal/models"
)

// speedJitterFloorMeters 两次定位间的位移抖动下限
// 静止时 GPS 漂移会产生非零的设备速度，位移超过该下限才用位移推算速度
const speedJitterFloorMeters = 0.5

// Session 单次录制会话的瞬态状态
// 进程内只存在一份，由 Recorder 独占持有，整个生命周期保持同一实例，
// 采样回调始终通过持有者解引用到当前状态而不是订阅时的快照
type Session struct {
	Active                   bool
	StartTimeMs              int64
	Path                     []models.LocationSample
	CumulativeDistanceMeters float64
	CurrentSpeedMps          float64
}

// Start 以一个当前定位作为种子进入录制状态
func (s *Session) Start(fix models.LocationSample, startTimeMs int64) {
	s.Active = true
	s.StartTimeMs = startTimeMs
	s.Path = []models.LocationSample{fix}
	s.CumulativeDistanceMeters = 0
	s.CurrentSpeedMps = 0
	if fix.SpeedMps != nil {
		s.CurrentSpeedMps = math.Max(0, *fix.SpeedMps)
	}
}

// Reset 清空回到空闲状态
func (s *Session) Reset() {
	s.Active = false
	s.StartTimeMs = 0
	s.Path = nil
	s.CumulativeDistanceMeters = 0
	s.CurrentSpeedMps = 0
}

// Ingest 消费一个采样点，原地更新轨迹、累计距离与当前速度
func (s *Session) Ingest(sample models.LocationSample) {
	if len(s.Path) == 0 {
		s.Path = append(s.Path, sample)
		if sample.SpeedMps != nil {
			s.CurrentSpeedMps = math.Max(0, *sample.SpeedMps)
		}
		return
	}

	prev := s.Path[len(s.Path)-1]
	s.Path = append(s.Path, sample)

	increment := geo.Distance(prev, sample)
	elapsed := float64(sample.TimestampMs-prev.TimestampMs) / 1000

	// 抖动产生的微小位移同样计入累计距离（产品取舍：宁可略高不漏计）
	s.CumulativeDistanceMeters += increment

	switch {
	case elapsed > 0 && increment > speedJitterFloorMeters:
		// 真实位移优先：由位移推算速度，抑制静止漂移噪声
		s.CurrentSpeedMps = increment / elapsed
	case sample.SpeedMps != nil:
		// 位移可忽略或时钟未推进时回退到设备上报速度
		s.CurrentSpeedMps = math.Max(0, *sample.SpeedMps)
	}
	// 两者都不可用时保持上一次的速度
}
