package ensemble

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// System is the composition root: it owns the ProcessRegistry, EventStream,
// DeadLetterProcess, and the guardian cache that anchors every top-level
// actor. One System corresponds to one local address (spec §3's "system"
// component of a PID); remote systems are reached through remote.RemoteProcess,
// never through this type directly.
type System struct {
	address string
	logger  zerolog.Logger

	registry          *ProcessRegistry
	eventStream       *EventStream
	deadLetterProcess *DeadLetterProcess

	defaultGuardianStrategy SupervisorStrategy
	guardianMu              sync.Mutex
	guardians               map[SupervisorStrategy]*LocalProcess

	shutdownOnce sync.Once
}

// SystemOption configures a System at construction time.
type SystemOption func(*System)

// WithAddress names the local system; it is the address component every
// PID spawned by this System carries (default "local").
func WithAddress(address string) SystemOption {
	return func(s *System) { s.address = address }
}

// WithLogger overrides the default stderr zerolog logger.
func WithLogger(logger zerolog.Logger) SystemOption {
	return func(s *System) { s.logger = logger }
}

// WithDefaultGuardianStrategy overrides the strategy guarding top-level
// actors spawned without an explicit WithGuardianStrategy in their Props.
func WithDefaultGuardianStrategy(strategy SupervisorStrategy) SystemOption {
	return func(s *System) { s.defaultGuardianStrategy = strategy }
}

// NewSystem builds a ready-to-use System. It starts no background
// goroutines of its own; goroutines only appear once actors are spawned.
func NewSystem(opts ...SystemOption) *System {
	s := &System{
		address:                 "local",
		logger:                  zerolog.New(os.Stderr).With().Timestamp().Logger(),
		defaultGuardianStrategy: DefaultStrategy,
		guardians:               make(map[SupervisorStrategy]*LocalProcess),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.eventStream = newEventStream(s)
	s.deadLetterProcess = newDeadLetterProcess(s)
	s.registry = newProcessRegistry(s.address, s.deadLetterProcess)
	return s
}

// Address returns the local system address every PID spawned here carries.
func (s *System) Address() string { return s.address }

// EventStream returns the system's event bus.
func (s *System) EventStream() *EventStream { return s.eventStream }

// DeadLetters returns the sink every unresolved address routes through.
func (s *System) DeadLetters() *DeadLetterProcess { return s.deadLetterProcess }

// deliverOrDeadLetter resolves target and sends message, routing through
// DeadLetterProcess with full target/sender context on a miss — unlike a
// bare registry.Get(target).SendUser(...), which loses target once the
// Process interface is reached.
func (s *System) deliverOrDeadLetter(target PID, message any, sender PID) {
	proc := s.registry.Get(target)
	if proc == Process(s.deadLetterProcess) {
		s.deadLetterProcess.deliver(target, message, sender)
		return
	}
	proc.SendUser(message, sender)
}

// Registry exposes the process registry to out-of-core collaborators. Its
// Get resolves only PIDs carrying this System's own address; a PID with any
// other system address resolves to DeadLetter, whatever was added under its
// id.
func (s *System) Registry() *ProcessRegistry { return s.registry }

// DeliverUser resolves target through the registry and delivers message as
// a user-level send, routing to DeadLetter on a miss — the same path local
// Context.Send uses, exposed for inbound remote traffic (spec §6).
func (s *System) DeliverUser(target PID, message any, sender PID) {
	s.deliverOrDeadLetter(target, message, sender)
}

// deliverSystemOrDeadLetter resolves target and sends message, routing
// through DeadLetterProcess's target-aware path on a miss — the system-
// message analog of deliverOrDeadLetter above, needed because a bare
// Process.SendSystem(message) carries no target for DeadLetter to answer
// a Watch with (spec §4.5).
func (s *System) deliverSystemOrDeadLetter(target PID, message any) {
	proc := s.registry.Get(target)
	if proc == Process(s.deadLetterProcess) {
		s.deadLetterProcess.deliverSystem(target, message)
		return
	}
	proc.SendSystem(message)
}

// DeliverSystem resolves target and delivers message as a system-level
// send. Used by the remote subpackage to hand an inbound system message
// (e.g. a remote Watch) to the local actor it names.
func (s *System) DeliverSystem(target PID, message any) {
	s.deliverSystemOrDeadLetter(target, message)
}

// Shutdown stops every top-level guardian and waits (up to timeout) for the
// registry to fully drain, mirroring the teacher's poll-based
// Engine.Shutdown. A zero or negative timeout waits forever.
func (s *System) Shutdown(timeout time.Duration) {
	s.shutdownOnce.Do(func() {
		s.guardianMu.Lock()
		guardians := make([]*LocalProcess, 0, len(s.guardians))
		for _, g := range s.guardians {
			guardians = append(guardians, g)
		}
		s.guardianMu.Unlock()

		for _, g := range guardians {
			g.SendSystem(Stop{})
		}

		deadline := time.Time{}
		if timeout > 0 {
			deadline = time.Now().Add(timeout)
		}
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			if s.registry.Len() == 0 {
				return
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				s.logger.Warn().Msg("shutdown timed out with processes still registered")
				return
			}
			<-ticker.C
		}
	})
}
