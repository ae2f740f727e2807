package ensemble

import "time"

// --- User-level lifecycle messages ---
//
// Started is always the first user message an actor observes, Stopped
// always the last (spec §3 invariants).

// Started is delivered once, before any other user message.
type Started struct{}

// Restarting is delivered to the current actor instance right before its
// children are stopped and it is replaced by a fresh instance.
type Restarting struct{}

// Stopping is delivered to the current actor instance before its children
// are stopped, as the first step of orderly shutdown.
type Stopping struct{}

// Stopped is the final user message an actor instance ever receives.
type Stopped struct{}

// ReceiveTimeout is injected when no message arrives within the armed
// receive-timeout duration. It implements NotInfluencesReceiveTimeout so it
// never re-arms its own timer.
type ReceiveTimeout struct{}

// NotInfluencesReceiveTimeout is implemented by messages that must not
// reset an armed receive-timeout timer (spec §4.3).
type NotInfluencesReceiveTimeout interface {
	notInfluencesReceiveTimeout()
}

func (ReceiveTimeout) notInfluencesReceiveTimeout() {}

// PoisonPill is enqueued as a user message; the target drains every
// earlier user message, then stops (spec §4.3 poison/poison_async).
type PoisonPill struct{}

// Terminated is delivered to a watcher when the watched address stops.
type Terminated struct {
	Who    PID
	Reason TerminatedReason
}

// TerminatedReason explains why a Terminated notice was produced.
type TerminatedReason int

const (
	// TerminatedStopped means the target ran its normal stop sequence.
	TerminatedStopped TerminatedReason = iota
	// TerminatedAddressTerminated means the target's system address as a
	// whole became unreachable (remote node down).
	TerminatedAddressTerminated
	// TerminatedNotFound means the address was never a live process.
	TerminatedNotFound
)

func (r TerminatedReason) String() string {
	switch r {
	case TerminatedStopped:
		return "Stopped"
	case TerminatedAddressTerminated:
		return "AddressTerminated"
	case TerminatedNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// DeadLetterResponse is sent by DeadLetterProcess to the sender of a
// request that could not be delivered, so request_reply fails fast.
type DeadLetterResponse struct {
	Target PID
}

// --- System messages (spec §4.3) ---

// Watch registers the watcher's interest in this process's termination.
type Watch struct{ Watcher PID }

// Unwatch removes a previously registered Watch.
type Unwatch struct{ Watcher PID }

// Stop requests orderly shutdown of the target and its subtree.
type Stop struct{}

// Restart requests that the target dispose its actor instance and
// reincarnate it via its Producer, replaying any stash.
type Restart struct{}

// SuspendMailbox stops user-message dispatch for the mailbox; system
// messages keep draining.
type SuspendMailbox struct{}

// ResumeMailbox clears a prior SuspendMailbox.
type ResumeMailbox struct{}

// Failure is sent by a failing child's context to its parent (or to the
// root strategy if the parent is absent).
type Failure struct {
	Who     PID
	Reason  any
	Stats   *RestartStatistics
	Message any
	Stack   []byte
}

// continuation is posted to self by ReenterAfter once the awaited task
// completes; it restores the original message as "current" before running.
type continuation struct {
	run     func()
	message any
}

// DeadLetterEvent is published on the EventStream whenever DeadLetterProcess
// receives a user message (spec §4.7), subject to throttling.
type DeadLetterEvent struct {
	Target  PID
	Message any
	Sender  PID
	At      time.Time
}

// ActorRestartedEvent is published by the built-in supervisor strategies for
// each failure they handle below their retry limit, carrying the failure
// reason and the restart count. They leave Stack nil; the panic's stack
// trace is carried on the Failure message.
type ActorRestartedEvent struct {
	Who       PID
	Reason    any
	Stack     []byte
	Restarts  int
	At        time.Time
}

// ActorEscalatedEvent is published when a child's failures exceed the retry
// limit of a OneForOneStrategy or AllForOneStrategy; those strategies then
// stop the child (AllForOne: every sibling) rather than escalating.
type ActorEscalatedEvent struct {
	Who PID
	At  time.Time
}
