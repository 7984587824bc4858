package recorder

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/haoyun/waytrack/internal/config"
	"github.com/haoyun/waytrack/internal/models"
	"github.com/haoyun/waytrack/internal/source"
)

// ErrNoFix 启动录制时位置源还没有任何定位
var ErrNoFix = errors.New("no fix available")

// TripStore 完成行程的落库入口
type TripStore interface {
	Append(ctx context.Context, trip models.Trip) error
}

// Status 录制器状态快照，供前端展示与 WebSocket 广播
type Status struct {
	Active          bool    `json:"active"`
	StartTimeMs     int64   `json:"start_time_ms,omitempty"`
	SampleCount     int     `json:"sample_count"`
	DistanceMeters  float64 `json:"distance_meters"`
	CurrentSpeedMps float64 `json:"current_speed_mps"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
}

// Recorder 行程录制服务
// 独占持有唯一的 Session 实例，按单写者约定串行化归档写入
type Recorder struct {
	cfg     *config.Config
	logger  *zap.Logger
	source  source.Source
	archive TripStore

	mu          sync.Mutex
	session     *Session
	machine     *Machine
	unsubscribe func()
	subscribers []chan Status

	now func() time.Time
}

// New 创建录制服务
func New(cfg *config.Config, logger *zap.Logger, src source.Source, archive TripStore) *Recorder {
	r := &Recorder{
		cfg:     cfg,
		logger:  logger,
		source:  src,
		archive: archive,
		session: &Session{},
		now:     time.Now,
	}

	r.machine = NewMachine(func(from, to string) {
		logger.Info("Recorder state changed", zap.String("from", from), zap.String("to", to))
	})

	return r
}

// Start 开始录制
// 前置条件：位置源必须已有一个足够新鲜的定位，否则返回 ErrNoFix（由用户重试，不自动轮询）
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.machine.Can(EventStart) {
		return errors.New("recorder already recording")
	}

	fix, ok := r.source.CurrentFix()
	if !ok {
		return ErrNoFix
	}

	now := r.now()
	if r.cfg.StaleFixMaxAge > 0 {
		age := now.Sub(time.UnixMilli(fix.TimestampMs))
		if age > r.cfg.StaleFixMaxAge {
			r.logger.Warn("Last fix too old to start recording",
				zap.Duration("age", age),
				zap.Duration("max_age", r.cfg.StaleFixMaxAge))
			return ErrNoFix
		}
	}

	if err := r.machine.Trigger(EventStart); err != nil {
		return err
	}

	r.session.Start(fix, now.UnixMilli())
	r.unsubscribe = r.source.Subscribe(r.handleSample)

	r.logger.Info("Started trip recording",
		zap.Int64("start_time_ms", r.session.StartTimeMs),
		zap.Float64("lat", fix.Latitude),
		zap.Float64("lng", fix.Longitude))

	r.broadcast(r.statusLocked())
	return nil
}

// Stop 结束录制并归档行程
// 空闲时停止是静默守卫：返回 (nil, nil)，不产生行程也不报错
// 无论归档成功与否会话都会复位；落库失败的行程随错误返回给调用方展示，不做排队重试
func (r *Recorder) Stop(ctx context.Context) (*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.machine.Current() != StateRecording || r.session.StartTimeMs == 0 {
		return nil, nil
	}

	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}

	if err := r.machine.Trigger(EventStop); err != nil {
		return nil, err
	}

	endTimeMs := r.now().UnixMilli()
	duration := float64(endTimeMs-r.session.StartTimeMs) / 1000

	avgSpeed := 0.0
	if duration > 0 {
		avgSpeed = r.session.CumulativeDistanceMeters / duration
	}

	path := make([]models.LocationSample, len(r.session.Path))
	copy(path, r.session.Path)

	trip := models.Trip{
		ID:              strconv.FormatInt(endTimeMs, 10),
		StartTimeMs:     r.session.StartTimeMs,
		EndTimeMs:       endTimeMs,
		Path:            path,
		DistanceMeters:  r.session.CumulativeDistanceMeters,
		DurationSeconds: duration,
		AverageSpeedMps: avgSpeed,
	}

	r.session.Reset()
	r.broadcast(r.statusLocked())

	if err := r.archive.Append(ctx, trip); err != nil {
		r.logger.Error("Failed to archive trip, trip discarded",
			zap.String("trip_id", trip.ID), zap.Error(err))
		return &trip, err
	}

	r.logger.Info("Completed trip",
		zap.String("trip_id", trip.ID),
		zap.Float64("distance_m", trip.DistanceMeters),
		zap.Float64("duration_s", trip.DurationSeconds),
		zap.Int("samples", len(trip.Path)))

	return &trip, nil
}

// Status 获取状态快照
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

// Subscribe 订阅状态更新
func (r *Recorder) Subscribe() <-chan Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Status, 16)
	r.subscribers = append(r.subscribers, ch)
	return ch
}

// Shutdown 进程退出前的收尾：仍在录制则结束并归档当前行程
func (r *Recorder) Shutdown(ctx context.Context) {
	trip, err := r.Stop(ctx)
	if err != nil {
		r.logger.Error("Failed to archive trip on shutdown", zap.Error(err))
		return
	}
	if trip != nil {
		r.logger.Info("Archived in-flight trip on shutdown", zap.String("trip_id", trip.ID))
	}
}

// handleSample 采样回调，仅在录制中消费
// 经持有者解引用读取会话状态，订阅时不捕获任何状态副本
func (r *Recorder) handleSample(sample models.LocationSample) {
	r.mu.Lock()
	if !r.session.Active {
		r.mu.Unlock()
		return
	}

	r.session.Ingest(sample)
	st := r.statusLocked()
	r.mu.Unlock()

	r.broadcastUnlocked(st)
}

func (r *Recorder) statusLocked() Status {
	st := Status{
		Active:          r.session.Active,
		StartTimeMs:     r.session.StartTimeMs,
		SampleCount:     len(r.session.Path),
		DistanceMeters:  r.session.CumulativeDistanceMeters,
		CurrentSpeedMps: r.session.CurrentSpeedMps,
	}
	if st.Active {
		st.ElapsedSeconds = float64(r.now().UnixMilli()-st.StartTimeMs) / 1000
	}
	return st
}

// broadcast 持锁状态下使用（subscribers 切片受 mu 保护）
func (r *Recorder) broadcast(st Status) {
	for _, ch := range r.subscribers {
		select {
		case ch <- st:
		default:
			// 慢消费者直接丢弃本次快照
		}
	}
}

func (r *Recorder) broadcastUnlocked(st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast(st)
}
