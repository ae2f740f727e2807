package ensemble

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Future is a one-shot Process: it registers under its own PID, completes
// on the first user message it receives, and deregisters itself. It backs
// Context.RequestReply (spec §4.3, §4.8), grounded on hollywood's
// actor-engine.go Request/Future pair, with a uuid token in place of a
// local counter so future ids never collide with ordinary actor ids.
type Future struct {
	pid    PID
	system *System

	once   sync.Once
	doneCh chan struct{}
	result any
	err    error
	timer  *time.Timer
}

func newFuture(system *System, timeout time.Duration) *Future {
	pid := PID{Address: system.address, ID: "future-" + uuid.NewString()}
	f := &Future{pid: pid, system: system, doneCh: make(chan struct{})}
	system.registry.TryAdd(pid.ID, f)
	if timeout > 0 {
		f.timer = time.AfterFunc(timeout, func() { f.complete(nil, ErrTimeout) })
	}
	return f
}

// SendUser implements Process: the first reply wins.
func (f *Future) SendUser(message any, _ PID) {
	if r, ok := message.(DeadLetterResponse); ok {
		_ = r
		f.complete(nil, ErrDeadLetter)
		return
	}
	f.complete(message, nil)
}

// SendSystem implements Process; a Terminated notice means the target died
// without ever replying.
func (f *Future) SendSystem(message any) {
	if _, ok := message.(Terminated); ok {
		f.complete(nil, ErrDeadLetter)
	}
}

func (f *Future) complete(value any, err error) {
	f.once.Do(func() {
		f.result, f.err = value, err
		if f.timer != nil {
			f.timer.Stop()
		}
		f.system.registry.Remove(f.pid)
		close(f.doneCh)
	})
}

func (f *Future) wait() (any, error) {
	<-f.doneCh
	return f.result, f.err
}
