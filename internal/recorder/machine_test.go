package recorder

import "testing"

func TestMachineLifecycle(t *testing.T) {
	var transitions [][2]string
	m := NewMachine(func(from, to string) {
		transitions = append(transitions, [2]string{from, to})
	})

	if m.Current() != StateIdle {
		t.Fatalf("initial state = %s, want idle", m.Current())
	}
	if !m.Can(EventStart) || m.Can(EventStop) {
		t.Fatalf("unexpected transitions from idle")
	}

	if err := m.Trigger(EventStart); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.Current() != StateRecording {
		t.Fatalf("state after start = %s", m.Current())
	}

	if err := m.Trigger(EventStart); err == nil {
		t.Fatal("expected error starting while recording")
	}

	if err := m.Trigger(EventStop); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if m.Current() != StateIdle {
		t.Fatalf("state after stop = %s", m.Current())
	}

	// 会话可复用：回到 idle 后可以再次 start
	if err := m.Trigger(EventStart); err != nil {
		t.Fatalf("restart: %v", err)
	}

	want := [][2]string{
		{StateIdle, StateRecording},
		{StateRecording, StateIdle},
		{StateIdle, StateRecording},
	}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestMachineStopFromIdleRejected(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Trigger(EventStop); err == nil {
		t.Fatal("expected error stopping from idle")
	}
	if m.Current() != StateIdle {
		t.Fatalf("state changed on rejected event: %s", m.Current())
	}
}
