package recorder

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
)

// 会话状态常量
const (
	StateIdle      = "idle"
	StateRecording = "recording"
)

// 事件常量
const (
	EventStart = "start"
	EventStop  = "stop"
)

// Machine 会话状态机
// 无终止状态：stop 之后回到 idle，会话可复用
type Machine struct {
	mu           sync.RWMutex
	fsm          *fsm.FSM
	onTransition func(from, to string)
}

// NewMachine 创建状态机，初始为 idle
func NewMachine(onTransition func(from, to string)) *Machine {
	m := &Machine{onTransition: onTransition}

	m.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventStart, Src: []string{StateIdle}, Dst: StateRecording},
			{Name: EventStop, Src: []string{StateRecording}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onTransition != nil && e.Src != e.Dst {
					m.onTransition(e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// Current 获取当前状态
func (m *Machine) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// Can 检查是否可以转换
func (m *Machine) Can(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}

// Trigger 触发事件
func (m *Machine) Trigger(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}
	return nil
}
