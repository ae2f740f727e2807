package ensemble

import (
	"sync"
	"time"
)

// DeadLetterProcess is the Process every unresolved PID resolves to (spec
// §4.6): a message sent to a stopped or never-registered address lands
// here instead of panicking the sender. Every delivery is published on the
// EventStream, throttled so a burst of misdirected traffic cannot flood
// observers, and — when the original sender is known — answered with a
// DeadLetterResponse so request_reply fails fast instead of timing out.
type DeadLetterProcess struct {
	system *System

	mu            sync.Mutex
	windowStart   time.Time
	count         int
	throttleLimit int
	window        time.Duration
}

func newDeadLetterProcess(system *System) *DeadLetterProcess {
	return &DeadLetterProcess{
		system:        system,
		throttleLimit: 10,
		window:        time.Second,
	}
}

// SendUser implements Process for callers that only have a Process handle
// and no specific target PID (e.g. a bare registry.Get(pid).SendUser call).
func (d *DeadLetterProcess) SendUser(message any, sender PID) {
	d.deliver(PID{}, message, sender)
}

// SendSystem implements Process; system messages aimed at a dead address
// are simply dropped, since there is no lifecycle to advance and, via this
// bare seam, no target PID to report back to anyone. Watch is the one
// system message that needs the target — see deliverSystem below, reached
// through System.deliverSystemOrDeadLetter, not through this method.
func (d *DeadLetterProcess) SendSystem(message any) {}

// deliverSystem is the target-aware counterpart to deliver below, used by
// System.deliverSystemOrDeadLetter once Get has already fallen back to
// DeadLetter: it still knows which address was being addressed, so a Watch
// arriving here can answer the watcher immediately instead of leaving it
// hanging (spec §4.5, scenario S6). The reason distinguishes a foreign
// system address (AddressTerminated), a locally known id that already
// stopped (Stopped), and an id this registry never saw (NotFound).
func (d *DeadLetterProcess) deliverSystem(target PID, message any) {
	w, ok := message.(Watch)
	if !ok {
		return
	}
	reason := TerminatedNotFound
	switch {
	case target.Address != d.system.address:
		reason = TerminatedAddressTerminated
	case d.system.registry.WasKnown(target.ID):
		reason = TerminatedStopped
	}
	d.system.registry.Get(w.Watcher).SendSystem(Terminated{Who: target, Reason: reason})
}

// deliver is the precise entry point used by System.deliverOrDeadLetter,
// which still knows the PID that failed to resolve.
func (d *DeadLetterProcess) deliver(target PID, message any, sender PID) {
	if _, ok := message.(DeadLetterResponse); ok {
		// Never bounce a dead-letter response off itself.
		return
	}
	if d.shouldPublish() {
		d.system.eventStream.publish(DeadLetterEvent{
			Target:  target,
			Message: message,
			Sender:  sender,
			At:      time.Now(),
		})
	}
	if !sender.IsZero() {
		d.system.registry.Get(sender).SendUser(DeadLetterResponse{Target: target}, PID{})
	}
}

func (d *DeadLetterProcess) shouldPublish() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	if now.Sub(d.windowStart) > d.window {
		d.windowStart = now
		d.count = 0
	}
	d.count++
	return d.count <= d.throttleLimit
}
