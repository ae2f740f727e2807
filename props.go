package ensemble

// Actor is the interface every user-defined behavior implements. Receive
// runs with exclusive access to the actor's state — the mailbox guarantees
// no two invocations of the same actor's Receive ever overlap.
type Actor interface {
	Receive(ctx Context)
}

// Disposable is honored at stop/restart time: if an actor instance
// implements it, Dispose runs before the instance is discarded.
type Disposable interface {
	Dispose()
}

// Producer creates a fresh Actor instance. It is called once at spawn and
// again on every restart (same address, new instance).
type Producer func() Actor

// ReceiveFunc is the shape of the innermost receive call a middleware chain
// ultimately invokes.
type ReceiveFunc func(ctx Context)

// SenderFunc is the shape of the innermost send call a sender-middleware
// chain ultimately invokes.
type SenderFunc func(ctx Context, target PID, message any)

// ReceiverMiddleware wraps a ReceiveFunc to intercept inbound messages.
type ReceiverMiddleware func(next ReceiveFunc) ReceiveFunc

// SenderMiddleware wraps a SenderFunc to intercept outbound messages.
type SenderMiddleware func(next SenderFunc) SenderFunc

// ContextDecorator wraps a Context to add capabilities without touching the
// core ActorContext implementation.
type ContextDecorator func(Context) Context

// BackpressurePolicy governs a bounded mailbox's behavior once its user
// queue is full (spec §5).
type BackpressurePolicy int

const (
	// BlockSender blocks the enqueuing goroutine until space is free.
	BlockSender BackpressurePolicy = iota
	// DropNewest discards the message being enqueued.
	DropNewest
	// DropOldest discards the oldest queued message to make room.
	DropOldest
	// Fail rejects the message being enqueued and routes it to DeadLetter,
	// as DropNewest does; no error is returned to the sender.
	Fail
)

// MailboxConfig configures a LocalProcess's Mailbox.
type MailboxConfig struct {
	// Throughput bounds how many user messages one dispatcher turn drains
	// before yielding and re-scheduling (default 300, spec §4.2).
	Throughput int
	// Capacity bounds the user queue; 0 means unbounded.
	Capacity int
	// Backpressure governs behavior once Capacity is reached.
	Backpressure BackpressurePolicy
}

// DefaultMailboxConfig returns the spec's default: unbounded queue,
// throughput of 300 messages per dispatcher turn.
func DefaultMailboxConfig() MailboxConfig {
	return MailboxConfig{Throughput: 300}
}

// Props configures how an actor is produced, mailed, dispatched, and
// supervised. The recognized options mirror spec §6.
type Props struct {
	producer Producer

	mailboxConfig MailboxConfig
	dispatcher    Dispatcher

	supervisorStrategy SupervisorStrategy
	guardianStrategy   SupervisorStrategy // only legal from the root

	senderMiddleware   []SenderMiddleware
	receiverMiddleware []ReceiverMiddleware
	contextDecorators  []ContextDecorator
}

// PropsOption configures a Props at construction time.
type PropsOption func(*Props)

// NewProps builds a Props around the given Producer. Producer must not be
// nil — this mirrors the teacher's NewProps panic-on-nil contract.
func NewProps(producer Producer, opts ...PropsOption) *Props {
	if producer == nil {
		panic("ensemble: producer cannot be nil")
	}
	p := &Props{
		producer:      producer,
		mailboxConfig: DefaultMailboxConfig(),
		dispatcher:    defaultDispatcher,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithMailboxConfig overrides the mailbox's throughput/capacity/backpressure.
func WithMailboxConfig(cfg MailboxConfig) PropsOption {
	return func(p *Props) { p.mailboxConfig = cfg }
}

// WithDispatcher overrides the dispatcher used to schedule mailbox turns.
func WithDispatcher(d Dispatcher) PropsOption {
	return func(p *Props) { p.dispatcher = d }
}

// WithSupervisorStrategy sets the strategy this actor applies to its own
// children's failures.
func WithSupervisorStrategy(s SupervisorStrategy) PropsOption {
	return func(p *Props) { p.supervisorStrategy = s }
}

// WithGuardianStrategy marks these Props as a top-level guardian strategy.
// Using such Props to spawn a child of an existing actor is InvalidSpawn.
func WithGuardianStrategy(s SupervisorStrategy) PropsOption {
	return func(p *Props) { p.guardianStrategy = s }
}

// WithSenderMiddleware appends to the ordered sender-middleware chain.
func WithSenderMiddleware(mw ...SenderMiddleware) PropsOption {
	return func(p *Props) { p.senderMiddleware = append(p.senderMiddleware, mw...) }
}

// WithReceiverMiddleware appends to the ordered receiver-middleware chain.
func WithReceiverMiddleware(mw ...ReceiverMiddleware) PropsOption {
	return func(p *Props) { p.receiverMiddleware = append(p.receiverMiddleware, mw...) }
}

// WithContextDecorator appends to the ordered context-decorator chain.
func WithContextDecorator(d ...ContextDecorator) PropsOption {
	return func(p *Props) { p.contextDecorators = append(p.contextDecorators, d...) }
}

// Produce creates a new actor instance using the configured Producer.
func (p *Props) Produce() Actor {
	return p.producer()
}
