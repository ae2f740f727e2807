package ensemble

import "errors"

// Sentinel error kinds from spec §7. Use errors.Is against these; wrapped
// call sites add context with fmt.Errorf("...: %w", ErrTimeout).
var (
	// ErrTimeout is returned by a Future that expired before a reply.
	ErrTimeout = errors.New("ensemble: future timed out")

	// ErrDeadLetter means a message was routed to a stopped/unknown address.
	ErrDeadLetter = errors.New("ensemble: message routed to dead letter")

	// ErrTypeMismatch means a reply did not satisfy a typed request's
	// expected type.
	ErrTypeMismatch = errors.New("ensemble: reply type mismatch")

	// ErrInvalidSpawn covers props misuse: duplicate child name, or a
	// guardian strategy used outside the root.
	ErrInvalidSpawn = errors.New("ensemble: invalid spawn")

	// ErrSupervisorEscalated means a child's failure count exceeded its
	// supervisor strategy's bounds and was escalated.
	ErrSupervisorEscalated = errors.New("ensemble: supervisor escalated failure")

	// ErrShutdown means the operation was attempted after the system was
	// shut down.
	ErrShutdown = errors.New("ensemble: system is shut down")
)

// ActorFailure wraps a panic/error raised inside an actor's Receive. The
// invoker never lets this escape up the dispatcher's call stack — it is
// converted into a Failure system message for the parent's supervisor.
type ActorFailure struct {
	Who   PID
	Cause any
	Stack []byte
}

func (f *ActorFailure) Error() string {
	return "ensemble: actor failure"
}
