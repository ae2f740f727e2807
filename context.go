package ensemble

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/emirpasic/gods/stacks/linkedliststack"
)

// Context is the capability surface exposed to actor code (spec §4.3).
// ActorContext is the only implementation; ContextDecorators wrap it to add
// cross-cutting capabilities without touching the core.
type Context interface {
	Self() PID
	Parent() (PID, bool)
	Sender() PID
	Message() any
	Children() []PID
	System() *System

	Spawn(props *Props) PID
	SpawnNamed(props *Props, name string) (PID, error)
	SpawnPrefix(props *Props, prefix string) PID

	Send(target PID, message any)
	Request(target PID, message any, sender PID)
	RequestReply(target PID, message any, timeout time.Duration) (any, error)
	Forward(target PID)
	Respond(message any)

	Stash()

	Watch(target PID)
	Unwatch(target PID)

	Stop(target PID)
	StopAsync(target PID) <-chan struct{}
	Poison(target PID)
	PoisonAsync(target PID) <-chan struct{}

	SetReceiveTimeout(d time.Duration)
	CancelReceiveTimeout()

	ReenterAfter(task <-chan AsyncResult, continuation func(result any, err error))
}

// AsyncResult is what a task passed to ReenterAfter must eventually send.
type AsyncResult struct {
	Value any
	Err   error
}

// lifecycleState is ordinal; transitions only ever move forward (spec §3).
type lifecycleState int32

const (
	stateAlive lifecycleState = iota
	stateRestarting
	stateStopping
	stateStopped
)

// ActorContext is per-actor state that outlives actor restarts: identity,
// lifecycle, children, watchers, restart statistics, stash, and the
// receive-timeout timer. It is destroyed only after the final Stopped.
type ActorContext struct {
	self   PID
	props  *Props
	system *System
	process *LocalProcess

	hasParent bool
	parentPID PID
	parent    *ActorContext

	actor Actor
	state lifecycleState

	children map[string]PID
	watchers map[string]PID

	restartStats *RestartStatistics
	stash        *linkedliststack.Stack

	receiveTimeout      time.Duration
	receiveTimeoutTimer *time.Timer

	message        any
	sender         PID
	isSystemMsg    bool

	decorated Context

	stopWaiters []chan struct{}

	supervisorStrategy SupervisorStrategy

	isGuardian     bool
	senderChain    SenderFunc
	outboundSender PID
}

func newActorContext(self PID, props *Props, system *System, parent *ActorContext) *ActorContext {
	ctx := &ActorContext{
		self:         self,
		props:        props,
		system:       system,
		children:     make(map[string]PID),
		watchers:     make(map[string]PID),
		restartStats: NewRestartStatistics(),
		state:        stateAlive,
	}
	if parent != nil {
		ctx.hasParent = true
		ctx.parentPID = parent.self
		ctx.parent = parent
	}
	strategy := props.supervisorStrategy
	if strategy == nil {
		strategy = DefaultStrategy
	}
	ctx.supervisorStrategy = strategy
	ctx.actor = props.Produce()
	ctx.decorated = ctx.applyDecorators()
	return ctx
}

func (ctx *ActorContext) applyDecorators() Context {
	var c Context = ctx
	for _, d := range ctx.props.contextDecorators {
		c = d(c)
	}
	return c
}

// --- Context interface ---

func (ctx *ActorContext) Self() PID   { return ctx.self }
func (ctx *ActorContext) Sender() PID { return ctx.sender }
func (ctx *ActorContext) Message() any { return ctx.message }
func (ctx *ActorContext) System() *System { return ctx.system }

func (ctx *ActorContext) Parent() (PID, bool) {
	return ctx.parentPID, ctx.hasParent
}

func (ctx *ActorContext) Children() []PID {
	out := make([]PID, 0, len(ctx.children))
	for _, pid := range ctx.children {
		out = append(out, pid)
	}
	return out
}

func (ctx *ActorContext) Spawn(props *Props) PID {
	pid, err := ctx.SpawnNamed(props, ctx.system.registry.NextID())
	if err != nil {
		panic(err)
	}
	return pid
}

func (ctx *ActorContext) SpawnPrefix(props *Props, prefix string) PID {
	pid, err := ctx.SpawnNamed(props, prefix+ctx.system.registry.NextID())
	if err != nil {
		panic(err)
	}
	return pid
}

func (ctx *ActorContext) SpawnNamed(props *Props, name string) (PID, error) {
	if props.guardianStrategy != nil && !ctx.isGuardian {
		return PID{}, fmt.Errorf("%w: guardian strategy may only be used from the root", ErrInvalidSpawn)
	}
	if _, exists := ctx.children[name]; exists {
		return PID{}, fmt.Errorf("%w: child %q already exists", ErrInvalidSpawn, name)
	}
	child := ctx.self.Child(name)
	lp := newLocalProcess(child, props, ctx.system, ctx)
	if !ctx.system.registry.TryAdd(child.ID, lp) {
		return PID{}, fmt.Errorf("%w: id %q already registered", ErrInvalidSpawn, child.ID)
	}
	ctx.children[name] = child
	lp.SendSystem(Started{})
	return child, nil
}

func (ctx *ActorContext) Send(target PID, message any) {
	ctx.dispatchSend(target, message, PID{})
}

func (ctx *ActorContext) Request(target PID, message any, sender PID) {
	ctx.dispatchSend(target, message, sender)
}

// dispatchSend runs message through the sender-middleware chain (built once
// and cached) before the terminal stage resolves target through the
// registry, routing to DeadLetterProcess on a miss.
func (ctx *ActorContext) dispatchSend(target PID, message any, sender PID) {
	ctx.outboundSender = sender
	ctx.composedSender()(ctx.decorated, target, message)
}

func (ctx *ActorContext) composedSender() SenderFunc {
	if ctx.senderChain == nil {
		var final SenderFunc = func(_ Context, t PID, m any) {
			ctx.system.deliverOrDeadLetter(t, m, ctx.outboundSender)
		}
		ctx.senderChain = ChainSender(ctx.props.senderMiddleware, final)
	}
	return ctx.senderChain
}

func (ctx *ActorContext) RequestReply(target PID, message any, timeout time.Duration) (any, error) {
	f := newFuture(ctx.system, timeout)
	ctx.system.deliverOrDeadLetter(target, message, f.pid)
	return f.wait()
}

// RequestReplyAs is a typed convenience wrapper over Context.RequestReply;
// a reply of the wrong type fails with ErrTypeMismatch (spec §4.3).
func RequestReplyAs[T any](ctx Context, target PID, message any, timeout time.Duration) (T, error) {
	var zero T
	reply, err := ctx.RequestReply(target, message, timeout)
	if err != nil {
		return zero, err
	}
	v, ok := reply.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T", ErrTypeMismatch, reply)
	}
	return v, nil
}

func (ctx *ActorContext) Forward(target PID) {
	if ctx.isSystemMsg {
		ctx.system.logger.Error().Str("self", ctx.self.String()).Msg("system messages cannot be forwarded")
		return
	}
	ctx.dispatchSend(target, ctx.message, ctx.sender)
}

func (ctx *ActorContext) Respond(message any) {
	if ctx.sender.IsZero() {
		ctx.system.logger.Warn().Str("self", ctx.self.String()).Msg("respond with no sender, dropping")
		return
	}
	ctx.dispatchSend(ctx.sender, message, ctx.self)
}

func (ctx *ActorContext) Stash() {
	if ctx.stash == nil {
		ctx.stash = linkedliststack.New()
	}
	ctx.stash.Push(ctx.message)
}

func (ctx *ActorContext) Watch(target PID) {
	ctx.system.deliverSystemOrDeadLetter(target, Watch{Watcher: ctx.self})
}

func (ctx *ActorContext) Unwatch(target PID) {
	ctx.system.registry.Get(target).SendSystem(Unwatch{Watcher: ctx.self})
}

func (ctx *ActorContext) Stop(target PID) {
	ctx.system.registry.Get(target).SendSystem(Stop{})
}

func (ctx *ActorContext) StopAsync(target PID) <-chan struct{} {
	done := make(chan struct{})
	ctx.watchUntilTerminated(target, done)
	ctx.Stop(target)
	return done
}

func (ctx *ActorContext) Poison(target PID) {
	ctx.system.deliverOrDeadLetter(target, PoisonPill{}, PID{})
}

func (ctx *ActorContext) PoisonAsync(target PID) <-chan struct{} {
	done := make(chan struct{})
	ctx.watchUntilTerminated(target, done)
	ctx.Poison(target)
	return done
}

// watchUntilTerminated spawns a tiny one-shot watcher actor so async
// stop/poison can resolve without involving the caller's own mailbox.
func (ctx *ActorContext) watchUntilTerminated(target PID, done chan struct{}) {
	props := NewProps(func() Actor { return &waitForTerminationActor{done: done, target: target} })
	ctx.system.spawnRootInternal(props, ctx.system.registry.NextID())
}

type waitForTerminationActor struct {
	done   chan struct{}
	target PID
}

func (a *waitForTerminationActor) Receive(c Context) {
	switch c.Message().(type) {
	case Started:
		c.Watch(a.target)
	case Terminated:
		close(a.done)
		c.Stop(c.Self())
	}
}

func (ctx *ActorContext) SetReceiveTimeout(d time.Duration) {
	if d <= 0 {
		panic("ensemble: receive timeout duration must be greater than zero")
	}
	if d == ctx.receiveTimeout {
		return // open question (a): a second call with the same duration is a no-op
	}
	ctx.receiveTimeout = d
	if ctx.receiveTimeoutTimer == nil {
		ctx.receiveTimeoutTimer = time.AfterFunc(d, ctx.fireReceiveTimeout)
	} else {
		ctx.receiveTimeoutTimer.Reset(d)
	}
}

func (ctx *ActorContext) CancelReceiveTimeout() {
	if ctx.receiveTimeoutTimer != nil {
		ctx.receiveTimeoutTimer.Stop()
		ctx.receiveTimeoutTimer = nil
	}
	ctx.receiveTimeout = 0
}

func (ctx *ActorContext) fireReceiveTimeout() {
	proc := ctx.system.registry.Get(ctx.self)
	proc.SendUser(ReceiveTimeout{}, PID{})
}

func (ctx *ActorContext) ReenterAfter(task <-chan AsyncResult, cont func(result any, err error)) {
	savedMessage := ctx.message
	self := ctx.self
	system := ctx.system
	go func() {
		result := <-task
		system.registry.Get(self).SendSystem(&continuation{
			message: savedMessage,
			run:     func() { cont(result.Value, result.Err) },
		})
	}()
}

// --- dispatch entry points, called only from the mailbox's single turn ---

func (ctx *ActorContext) invokeSystem(msg any) {
	switch m := msg.(type) {
	case *continuation:
		ctx.message = m.message
		ctx.isSystemMsg = false
		ctx.safeInvoke(func() { m.run() })
	case Started:
		ctx.deliverUser(Started{}, PID{})
	case Watch:
		ctx.handleWatch(m)
	case Unwatch:
		if ctx.watchers != nil {
			delete(ctx.watchers, m.Watcher.String())
		}
	case Stop:
		ctx.handleStop()
	case Restart:
		ctx.handleRestart()
	case Terminated:
		ctx.handleChildTerminated(m)
	case Failure:
		ctx.handleFailure(m)
	case SuspendMailbox:
		ctx.process.mailbox.suspend()
	case ResumeMailbox:
		ctx.process.mailbox.resume()
	default:
		ctx.system.logger.Error().Interface("message", msg).Msg("unknown system message, dropping")
	}
}

func (ctx *ActorContext) invokeUser(e envelope) {
	if _, ok := e.message.(PoisonPill); ok {
		ctx.handleStop()
		return
	}
	if ctx.state >= stateRestarting {
		ctx.system.deliverOrDeadLetter(ctx.self, e.message, e.sender)
		return
	}
	ctx.deliverUser(e.message, e.sender)
}

// deliverUser always runs the actor's Receive, bypassing the lifecycle
// gate — used both for ordinary mailbox delivery and for the lifecycle
// messages (Started/Restarting/Stopping/Stopped) the context injects
// directly.
func (ctx *ActorContext) deliverUser(message any, sender PID) {
	ctx.message = message
	ctx.sender = sender
	ctx.isSystemMsg = false

	influences := true
	if ctx.receiveTimeout > 0 {
		if _, ok := message.(NotInfluencesReceiveTimeout); ok {
			influences = false
		}
		if influences {
			ctx.receiveTimeoutTimer.Stop()
		}
	}

	ctx.safeInvoke(func() { ctx.runReceive() })

	if ctx.receiveTimeout > 0 && influences && ctx.receiveTimeoutTimer != nil {
		ctx.receiveTimeoutTimer.Reset(ctx.receiveTimeout)
	}
}

func (ctx *ActorContext) runReceive() {
	var recv ReceiveFunc = func(c Context) { ctx.actor.Receive(c) }
	for i := len(ctx.props.receiverMiddleware) - 1; i >= 0; i-- {
		recv = ctx.props.receiverMiddleware[i](recv)
	}
	recv(ctx.decorated)
}

// safeInvoke runs fn, converting any panic into a Failure system message
// for the parent's supervisor (spec §4.4). Middleware exceptions are treated the same
// way as actor failures (spec §7).
func (ctx *ActorContext) safeInvoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			ctx.onFailure(r, stack)
		}
	}()
	fn()
}

func (ctx *ActorContext) onFailure(reason any, stack []byte) {
	ctx.system.logger.Error().
		Str("self", ctx.self.String()).
		Interface("reason", reason).
		Msg("actor panicked")

	ctx.process.mailbox.suspend()

	failure := Failure{
		Who:     ctx.self,
		Reason:  reason,
		Stats:   ctx.restartStats,
		Message: ctx.message,
		Stack:   stack,
	}
	if ctx.parent != nil {
		ctx.parent.system.registry.Get(ctx.parentPID).SendSystem(failure)
	} else {
		ctx.handleRootFailure(failure)
	}
}

func (ctx *ActorContext) handleRootFailure(failure Failure) {
	ctx.system.rootStrategy().HandleFailure(ctx, failure.Who, failure.Stats, failure.Reason, failure.Message)
}

func (ctx *ActorContext) escalate(_ PID) {
	failure := Failure{Who: ctx.self, Reason: "escalated", Stats: ctx.restartStats}
	if ctx.parent != nil {
		ctx.parent.system.registry.Get(ctx.parentPID).SendSystem(failure)
	} else {
		ctx.handleRootFailure(failure)
	}
}

func (ctx *ActorContext) handleWatch(w Watch) {
	if ctx.state >= stateStopping {
		ctx.system.registry.Get(w.Watcher).SendSystem(Terminated{Who: ctx.self, Reason: TerminatedStopped})
		return
	}
	ctx.watchers[w.Watcher.String()] = w.Watcher
}

func (ctx *ActorContext) handleRestart() {
	ctx.state = stateRestarting
	ctx.CancelReceiveTimeout()
	ctx.deliverUser(Restarting{}, PID{})
	ctx.stopAllChildren()
	ctx.tryAdvance()
}

func (ctx *ActorContext) handleStop() {
	if ctx.state >= stateStopping {
		return
	}
	ctx.state = stateStopping
	ctx.CancelReceiveTimeout()
	ctx.deliverUser(Stopping{}, PID{})
	ctx.stopAllChildren()
	ctx.tryAdvance()
}

func (ctx *ActorContext) handleChildTerminated(t Terminated) {
	for name, pid := range ctx.children {
		if pid == t.Who {
			delete(ctx.children, name)
			break
		}
	}
	ctx.deliverUser(t, PID{})
	ctx.tryAdvance()
}

func (ctx *ActorContext) handleFailure(f Failure) {
	if strategy, ok := ctx.actor.(SupervisorStrategy); ok {
		strategy.HandleFailure(ctx, f.Who, f.Stats, f.Reason, f.Message)
		return
	}
	ctx.supervisorStrategy.HandleFailure(ctx, f.Who, f.Stats, f.Reason, f.Message)
}

func (ctx *ActorContext) stopAllChildren() {
	for _, pid := range ctx.children {
		ctx.system.registry.Get(pid).SendSystem(Stop{})
	}
}

func (ctx *ActorContext) tryAdvance() {
	if len(ctx.children) > 0 {
		return
	}
	switch ctx.state {
	case stateRestarting:
		ctx.restart()
	case stateStopping:
		ctx.finalizeStop()
	}
}

func (ctx *ActorContext) restart() {
	if d, ok := ctx.actor.(Disposable); ok {
		d.Dispose()
	}
	ctx.actor = ctx.props.Produce()
	ctx.state = stateAlive
	ctx.process.mailbox.resume()
	ctx.deliverUser(Started{}, PID{})
	ctx.drainStashInPushOrder()
}

// drainStashInPushOrder replays stashed messages in the order they were
// pushed (spec invariant 4). The stash is a LIFO stack (grounded on
// ypdxcn-protoactor-go's actor_context.go, which uses the same
// emirpasic/gods linkedliststack) so it is fully drained into a slice
// first and walked back-to-front to restore push order.
func (ctx *ActorContext) drainStashInPushOrder() {
	if ctx.stash == nil {
		return
	}
	var reversed []any
	for !ctx.stash.Empty() {
		v, _ := ctx.stash.Pop()
		reversed = append(reversed, v)
	}
	for i := len(reversed) - 1; i >= 0; i-- {
		ctx.deliverUser(reversed[i], PID{})
	}
}

func (ctx *ActorContext) finalizeStop() {
	ctx.system.registry.Remove(ctx.self)
	ctx.deliverUser(Stopped{}, PID{})

	terminated := Terminated{Who: ctx.self, Reason: TerminatedStopped}
	for _, w := range ctx.watchers {
		ctx.system.registry.Get(w).SendSystem(terminated)
	}
	if ctx.parent != nil {
		ctx.system.registry.Get(ctx.parentPID).SendSystem(terminated)
	}
	if d, ok := ctx.actor.(Disposable); ok {
		d.Dispose()
	}
	ctx.state = stateStopped
}
