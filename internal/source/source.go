package source

import (
	"sync"

	"github.com/haoyun/waytrack/internal/models"
)

// Source 位置源
// 可同步查询最近一次定位（供开始录制的前置检查），并提供订阅/退订的采样流
type Source interface {
	CurrentFix() (models.LocationSample, bool)
	Subscribe(fn func(models.LocationSample)) (unsubscribe func())
}

// PushSource 由设备上行接口推送驱动的位置源
// HTTP/WebSocket 上行处理器调用 Publish，订阅者在锁外被回调
type PushSource struct {
	mu      sync.RWMutex
	lastFix models.LocationSample
	hasFix  bool
	nextID  int
	subs    map[int]func(models.LocationSample)
}

// NewPushSource 创建位置源
func NewPushSource() *PushSource {
	return &PushSource{subs: make(map[int]func(models.LocationSample))}
}

// Publish 推送一个采样点：更新最近定位并分发给所有订阅者
func (p *PushSource) Publish(sample models.LocationSample) {
	p.mu.Lock()
	p.lastFix = sample
	p.hasFix = true
	fns := make([]func(models.LocationSample), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	// 锁外回调，订阅者内部可以安全地再次调用本源
	for _, fn := range fns {
		fn(sample)
	}
}

// CurrentFix 最近一次定位
func (p *PushSource) CurrentFix() (models.LocationSample, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastFix, p.hasFix
}

// Subscribe 订阅采样流，返回的函数用于退订（幂等）
func (p *PushSource) Subscribe(fn func(models.LocationSample)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}
