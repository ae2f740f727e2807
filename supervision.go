package ensemble

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Directive is the outcome a SupervisorStrategy picks for a failing child.
type Directive int

const (
	// DirectiveResume lets the child process its next message as if
	// nothing happened.
	DirectiveResume Directive = iota
	// DirectiveRestart disposes the current instance and reincarnates it.
	DirectiveRestart
	// DirectiveStop terminates the child.
	DirectiveStop
	// DirectiveEscalate forwards a new Failure to this actor's own parent.
	DirectiveEscalate
)

// RestartStatistics is a rolling counter of failures within a time window,
// owned by the failing child's context (spec §3, §4.4).
type RestartStatistics struct {
	mu            sync.Mutex
	failureCount  int
	lastFailureAt time.Time
}

// NewRestartStatistics returns a zeroed RestartStatistics.
func NewRestartStatistics() *RestartStatistics {
	return &RestartStatistics{}
}

// Fail records a failure now and returns the updated count.
func (rs *RestartStatistics) Fail() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.failureCount++
	rs.lastFailureAt = time.Now()
	return rs.failureCount
}

// FailureCount returns the failures recorded so far.
func (rs *RestartStatistics) FailureCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.failureCount
}

// LastFailureAt returns the timestamp of the most recent recorded failure.
func (rs *RestartStatistics) LastFailureAt() time.Time {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastFailureAt
}

// Reset clears the window, used after a stable period (ExponentialBackoff)
// or whenever a strategy decides the child has recovered.
func (rs *RestartStatistics) Reset() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.failureCount = 0
	rs.lastFailureAt = time.Time{}
}

// SupervisorStrategy evaluates a child's failure and decides what happens
// next. HandleFailure is invoked on the parent's ActorContext.
type SupervisorStrategy interface {
	HandleFailure(parent *ActorContext, child PID, stats *RestartStatistics, reason any, message any)
}

// applyDirective carries out d against child on behalf of parent.
func applyDirective(parent *ActorContext, child PID, d Directive) {
	switch d {
	case DirectiveResume:
		parent.system.registry.Get(child).SendSystem(ResumeMailbox{})
	case DirectiveRestart:
		parent.system.registry.Get(child).SendSystem(Restart{})
	case DirectiveStop:
		parent.system.registry.Get(child).SendSystem(Stop{})
	case DirectiveEscalate:
		parent.escalate(child)
	}
}

// --- OneForOne ---

// OneForOneStrategy applies its directive only to the failing child.
// MaxRetries failures within Within cause the child to be stopped instead
// of restarted again.
type OneForOneStrategy struct {
	MaxRetries int
	Within     time.Duration
	Decide     func(reason any) Directive
}

// NewOneForOneStrategy returns a strategy that restarts up to maxRetries
// times within the window, then stops the child.
func NewOneForOneStrategy(maxRetries int, within time.Duration) *OneForOneStrategy {
	return &OneForOneStrategy{MaxRetries: maxRetries, Within: within}
}

func (s *OneForOneStrategy) HandleFailure(parent *ActorContext, child PID, stats *RestartStatistics, reason, message any) {
	if s.withinWindowExceeded(stats) {
		parent.system.logger.Warn().Str("child", child.String()).Msg("one-for-one: max retries exceeded, stopping child")
		parent.system.eventStream.publish(ActorEscalatedEvent{Who: child, At: time.Now()})
		applyDirective(parent, child, DirectiveStop)
		return
	}
	n := stats.Fail()
	d := DirectiveRestart
	if s.Decide != nil {
		d = s.Decide(reason)
	}
	parent.system.eventStream.publish(ActorRestartedEvent{Who: child, Reason: reason, Restarts: n, At: time.Now()})
	applyDirective(parent, child, d)
}

func (s *OneForOneStrategy) withinWindowExceeded(stats *RestartStatistics) bool {
	if s.MaxRetries <= 0 {
		return false
	}
	if s.Within > 0 && !stats.LastFailureAt().IsZero() && time.Since(stats.LastFailureAt()) > s.Within {
		stats.Reset()
	}
	return stats.FailureCount() >= s.MaxRetries
}

// --- AllForOne ---

// AllForOneStrategy applies its directive to every sibling of the failing
// child, not just the child itself.
type AllForOneStrategy struct {
	MaxRetries int
	Within     time.Duration
	Decide     func(reason any) Directive
}

// NewAllForOneStrategy returns a strategy that restarts every sibling up to
// maxRetries times within the window, then stops every sibling.
func NewAllForOneStrategy(maxRetries int, within time.Duration) *AllForOneStrategy {
	return &AllForOneStrategy{MaxRetries: maxRetries, Within: within}
}

func (s *AllForOneStrategy) HandleFailure(parent *ActorContext, child PID, stats *RestartStatistics, reason, message any) {
	exceeded := s.MaxRetries > 0 && func() bool {
		if s.Within > 0 && !stats.LastFailureAt().IsZero() && time.Since(stats.LastFailureAt()) > s.Within {
			stats.Reset()
		}
		return stats.FailureCount() >= s.MaxRetries
	}()
	if exceeded {
		parent.system.eventStream.publish(ActorEscalatedEvent{Who: child, At: time.Now()})
		for _, sibling := range parent.Children() {
			applyDirective(parent, sibling, DirectiveStop)
		}
		return
	}
	n := stats.Fail()
	d := DirectiveRestart
	if s.Decide != nil {
		d = s.Decide(reason)
	}
	parent.system.eventStream.publish(ActorRestartedEvent{Who: child, Reason: reason, Restarts: n, At: time.Now()})
	for _, sibling := range parent.Children() {
		applyDirective(parent, sibling, d)
	}
}

// --- ExponentialBackoff ---

// ExponentialBackoffStrategy restarts the child but delays the resume by
// MinBackoff * 2^failures with jitter, capped at MaxBackoff. A failure-free
// ResetAfter period clears the statistics.
type ExponentialBackoffStrategy struct {
	MinBackoff time.Duration
	MaxBackoff time.Duration
	ResetAfter time.Duration
}

// NewExponentialBackoffStrategy builds a strategy with the given bounds.
func NewExponentialBackoffStrategy(minBackoff, maxBackoff, resetAfter time.Duration) *ExponentialBackoffStrategy {
	return &ExponentialBackoffStrategy{MinBackoff: minBackoff, MaxBackoff: maxBackoff, ResetAfter: resetAfter}
}

func (s *ExponentialBackoffStrategy) HandleFailure(parent *ActorContext, child PID, stats *RestartStatistics, reason, message any) {
	if s.ResetAfter > 0 && !stats.LastFailureAt().IsZero() && time.Since(stats.LastFailureAt()) > s.ResetAfter {
		stats.Reset()
	}
	n := stats.Fail()

	backoff := time.Duration(float64(s.MinBackoff) * math.Pow(2, float64(n-1)))
	if s.MaxBackoff > 0 && backoff > s.MaxBackoff {
		backoff = s.MaxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(backoff/4 + 1)))
	delay := backoff + jitter

	parent.system.eventStream.publish(ActorRestartedEvent{Who: child, Reason: reason, Restarts: n, At: time.Now()})

	// The child's mailbox is already suspended (onFailure suspends it before
	// the Failure message reaches us); holding off the Restart message itself
	// is what delays the resume, since restart() only resumes once the
	// restart protocol completes.
	proc := parent.system.registry.Get(child)
	if delay > 0 {
		time.AfterFunc(delay, func() { proc.SendSystem(Restart{}) })
	} else {
		proc.SendSystem(Restart{})
	}
}

// --- AlwaysRestart / Default ---

// AlwaysRestartStrategy restarts the child unconditionally.
type AlwaysRestartStrategy struct{}

func (AlwaysRestartStrategy) HandleFailure(parent *ActorContext, child PID, stats *RestartStatistics, reason, message any) {
	n := stats.Fail()
	parent.system.eventStream.publish(ActorRestartedEvent{Who: child, Reason: reason, Restarts: n, At: time.Now()})
	applyDirective(parent, child, DirectiveRestart)
}

// DefaultStrategy is an alias for AlwaysRestartStrategy, used when Props
// names no supervisor strategy.
var DefaultStrategy SupervisorStrategy = AlwaysRestartStrategy{}
