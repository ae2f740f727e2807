package ensemble

import (
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
)

// Dispatcher schedules mailbox work items onto worker goroutines. The
// default implementation just spawns a goroutine per turn; a pooled
// dispatcher can be substituted via Props.
type Dispatcher interface {
	Schedule(task func())
}

// goroutineDispatcher is the default Dispatcher: every scheduled turn gets
// its own goroutine. Simple, and — because the mailbox's own idle/scheduled
// flag already guarantees at most one turn per actor runs at a time — safe.
type goroutineDispatcher struct{}

func (goroutineDispatcher) Schedule(task func()) { go task() }

var defaultDispatcher Dispatcher = goroutineDispatcher{}

// invoker is the subset of ActorContext the mailbox drives.
type invoker interface {
	invokeSystem(msg any)
	invokeUser(e envelope)
}

const (
	mailboxIdle int32 = iota
	mailboxScheduled
)

// Mailbox holds the system and user FIFO queues for one actor. At most one
// dispatcher turn runs against a given mailbox at a time (single-consumer
// rail, spec §3); enqueuers never block each other.
type Mailbox struct {
	systemMu sync.Mutex
	systemQ  deque.Deque[any]

	userMu sync.Mutex
	userQ  deque.Deque[envelope]

	status    int32 // mailboxIdle | mailboxScheduled
	suspended int32 // 0 or 1, via atomic

	throughput   int
	capacity     int
	backpressure BackpressurePolicy
	capTokens    chan struct{} // non-nil only when capacity > 0

	invoker    invoker
	dispatcher Dispatcher

	onReject func(envelope) // called for dropped/failed user messages
}

func newMailbox(cfg MailboxConfig) *Mailbox {
	throughput := cfg.Throughput
	if throughput <= 0 {
		throughput = 300
	}
	mb := &Mailbox{
		throughput:   throughput,
		capacity:     cfg.Capacity,
		backpressure: cfg.Backpressure,
	}
	if cfg.Capacity > 0 {
		mb.capTokens = make(chan struct{}, cfg.Capacity)
		for i := 0; i < cfg.Capacity; i++ {
			mb.capTokens <- struct{}{}
		}
	}
	return mb
}

// start wires the mailbox to the invoker and dispatcher that will drive it,
// and kicks scheduling if messages were somehow already queued.
func (mb *Mailbox) start(inv invoker, d Dispatcher) {
	mb.invoker = inv
	mb.dispatcher = d
	mb.trySchedule()
}

func (mb *Mailbox) postSystem(msg any) {
	mb.systemMu.Lock()
	mb.systemQ.PushBack(msg)
	mb.systemMu.Unlock()
	mb.trySchedule()
}

func (mb *Mailbox) postUser(e envelope) {
	if mb.capTokens != nil {
		switch mb.backpressure {
		case BlockSender:
			<-mb.capTokens
		case DropNewest:
			select {
			case <-mb.capTokens:
			default:
				if mb.onReject != nil {
					mb.onReject(e)
				}
				return
			}
		case DropOldest:
			select {
			case <-mb.capTokens:
			default:
				mb.dropOldest()
			}
		case Fail:
			select {
			case <-mb.capTokens:
			default:
				if mb.onReject != nil {
					mb.onReject(e)
				}
				return
			}
		}
	}
	mb.userMu.Lock()
	mb.userQ.PushBack(e)
	mb.userMu.Unlock()
	mb.trySchedule()
}

func (mb *Mailbox) dropOldest() {
	mb.userMu.Lock()
	var dropped envelope
	had := false
	if mb.userQ.Len() > 0 {
		dropped = mb.userQ.PopFront()
		had = true
	}
	mb.userMu.Unlock()
	if had {
		if mb.onReject != nil {
			mb.onReject(dropped)
		}
		// the dropped message's capacity slot passes to the message being
		// enqueued, so no token is returned here.
	}
}

func (mb *Mailbox) suspend() { atomic.StoreInt32(&mb.suspended, 1) }
func (mb *Mailbox) resume()  { atomic.StoreInt32(&mb.suspended, 0); mb.trySchedule() }
func (mb *Mailbox) isSuspended() bool {
	return atomic.LoadInt32(&mb.suspended) == 1
}

func (mb *Mailbox) popSystem() (any, bool) {
	mb.systemMu.Lock()
	defer mb.systemMu.Unlock()
	if mb.systemQ.Len() == 0 {
		return nil, false
	}
	return mb.systemQ.PopFront(), true
}

func (mb *Mailbox) popUser() (envelope, bool) {
	mb.userMu.Lock()
	defer mb.userMu.Unlock()
	if mb.userQ.Len() == 0 {
		return envelope{}, false
	}
	return mb.userQ.PopFront(), true
}

func (mb *Mailbox) systemEmpty() bool {
	mb.systemMu.Lock()
	defer mb.systemMu.Unlock()
	return mb.systemQ.Len() == 0
}

func (mb *Mailbox) userEmpty() bool {
	mb.userMu.Lock()
	defer mb.userMu.Unlock()
	return mb.userQ.Len() == 0
}

func (mb *Mailbox) hasWork() bool {
	if !mb.systemEmpty() {
		return true
	}
	return !mb.isSuspended() && !mb.userEmpty()
}

// trySchedule transitions idle -> scheduled and, on success, submits one
// work item to the dispatcher. Any post that loses the CAS knows a turn is
// already in flight and will see its message.
func (mb *Mailbox) trySchedule() {
	if mb.dispatcher == nil {
		return // not started yet; start() will schedule once wired
	}
	if atomic.CompareAndSwapInt32(&mb.status, mailboxIdle, mailboxScheduled) {
		mb.dispatcher.Schedule(mb.run)
	}
}

// releaseToken returns a capacity slot to the pool after a user message has
// been fully processed.
func (mb *Mailbox) releaseToken() {
	if mb.capTokens != nil {
		select {
		case mb.capTokens <- struct{}{}:
		default:
		}
	}
}

// run is one dispatcher turn: drain all system messages, then up to
// throughput user messages (unless suspended), then yield. If work remains,
// the turn reschedules itself rather than looping forever, so no single
// actor can starve the dispatcher's worker pool.
func (mb *Mailbox) run() {
	mb.drainSystem()

	if !mb.isSuspended() {
		processed := 0
		for processed < mb.throughput {
			e, ok := mb.popUser()
			if !ok {
				break
			}
			mb.invoker.invokeUser(e)
			mb.releaseToken()
			processed++
			mb.drainSystem()
			if mb.isSuspended() {
				break
			}
		}
	}

	atomic.StoreInt32(&mb.status, mailboxIdle)
	if mb.hasWork() {
		mb.trySchedule()
	}
}

func (mb *Mailbox) drainSystem() {
	for {
		msg, ok := mb.popSystem()
		if !ok {
			return
		}
		mb.invoker.invokeSystem(msg)
	}
}
