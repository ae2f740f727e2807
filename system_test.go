package ensemble

import (
	"sync/atomic"
	"testing"
	"time"
)

// recorder is a small test-only Actor that forwards every message it
// receives onto a channel, letting tests assert ordering deterministically
// instead of sleeping and hoping.
type recorder struct {
	events chan any
}

func newRecorder() *recorder {
	return &recorder{events: make(chan any, 64)}
}

func (r *recorder) Receive(c Context) {
	r.events <- c.Message()
}

func expectNext(t *testing.T, ch chan any, want any, d time.Duration) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	case <-time.After(d):
		t.Fatalf("timed out waiting for %#v", want)
	}
}

func expectNone(t *testing.T, ch chan any, d time.Duration) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("expected no further message, got %#v", got)
	case <-time.After(d):
	}
}

// --- S1 Echo ---

type pingPongActor struct{}

type Ping struct{ Text string }
type Pong struct{ Text string }

func (pingPongActor) Receive(c Context) {
	if p, ok := c.Message().(Ping); ok {
		c.Respond(Pong{Text: p.Text})
	}
}

func TestS1_Echo(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	pid := sys.Spawn(NewProps(func() Actor { return pingPongActor{} }))

	reply, err := requestReplyFromRoot(sys, pid, Ping{Text: "x"}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pong, ok := reply.(Pong)
	if !ok || pong.Text != "x" {
		t.Fatalf("reply = %#v, want Pong{x}", reply)
	}
}

// requestReplyFromRoot performs a request/reply without an enclosing actor
// context, the way external caller code uses the runtime (spec §4.3 via a
// bare Future).
func requestReplyFromRoot(sys *System, target PID, message any, timeout time.Duration) (any, error) {
	f := newFuture(sys, timeout)
	sys.DeliverUser(target, message, f.pid)
	return f.wait()
}

// --- S4 Dead letter ---

func TestS4_DeadLetterOnUnknownAddress(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	ghost := NewPID(sys.Address(), "sys/ghost")
	start := time.Now()
	_, err := requestReplyFromRoot(sys, ghost, Ping{Text: "x"}, time.Second)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected an error for a request to an unregistered address")
	}
	if elapsed > 100*time.Millisecond {
		t.Fatalf("dead-letter response took %v, want <= 100ms", elapsed)
	}
}

// --- S6 Watch on already-stopped ---

func TestS6_WatchAlreadyStopped(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	target := sys.Spawn(NewProps(func() Actor { return guardianActor{} }))
	watcherRec := newRecorder()
	watcher := sys.Spawn(NewProps(func() Actor { return watcherRec }))
	expectNext(t, watcherRec.events, Started{}, time.Second)

	sys.registry.Get(target).SendSystem(Stop{})
	waitForStop(t, sys, target)

	// Watch goes through the same target-aware seam inbound remote traffic
	// uses (System.DeliverSystem), since by now target has been removed
	// from the registry and a bare registry.Get(target).SendSystem(...)
	// would reach the stateless DeadLetter singleton with no target to
	// report back (spec §4.5).
	sys.DeliverSystem(target, Watch{Watcher: watcher})

	select {
	case ev := <-watcherRec.events:
		term, ok := ev.(Terminated)
		if !ok || term.Who != target || term.Reason != TerminatedStopped {
			t.Fatalf("got %#v, want Terminated{%v, Stopped}", ev, target)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher never received Terminated for an already-stopped target")
	}
}

// TestWatch_NeverExistedAddressRepliesNotFound covers the DeadLetter branch
// distinct from TestS6_WatchAlreadyStopped: an id this registry never saw
// must answer TerminatedNotFound, not TerminatedStopped.
func TestWatch_NeverExistedAddressRepliesNotFound(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	watcherRec := newRecorder()
	watcher := sys.Spawn(NewProps(func() Actor { return watcherRec }))
	expectNext(t, watcherRec.events, Started{}, time.Second)

	ghost := NewPID(sys.Address(), "never-spawned")
	sys.DeliverSystem(ghost, Watch{Watcher: watcher})

	select {
	case ev := <-watcherRec.events:
		term, ok := ev.(Terminated)
		if !ok || term.Who != ghost || term.Reason != TerminatedNotFound {
			t.Fatalf("got %#v, want Terminated{%v, NotFound}", ev, ghost)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher never received Terminated for a never-spawned target")
	}
}

// TestWatch_ForeignSystemAddressRepliesAddressTerminated covers the third
// DeadLetter reason: a PID whose system address isn't this System's own.
func TestWatch_ForeignSystemAddressRepliesAddressTerminated(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	watcherRec := newRecorder()
	watcher := sys.Spawn(NewProps(func() Actor { return watcherRec }))
	expectNext(t, watcherRec.events, Started{}, time.Second)

	remote := NewPID("other-node", "worker")
	sys.DeliverSystem(remote, Watch{Watcher: watcher})

	select {
	case ev := <-watcherRec.events:
		term, ok := ev.(Terminated)
		if !ok || term.Who != remote || term.Reason != TerminatedAddressTerminated {
			t.Fatalf("got %#v, want Terminated{%v, AddressTerminated}", ev, remote)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher never received Terminated for a foreign-system target")
	}
}

func waitForStop(t *testing.T, sys *System, pid PID) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sys.registry.Get(pid) == Process(sys.deadLetterProcess) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("actor %v never fully stopped", pid)
}

// --- S5 Poison ordering ---

func TestS5_PoisonOrdering(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	rec := newRecorder()
	pid := sys.Spawn(NewProps(func() Actor { return rec }))

	expectNext(t, rec.events, Started{}, time.Second)

	sys.DeliverUser(pid, "M1", PID{})
	sys.DeliverUser(pid, "M2", PID{})
	sys.DeliverUser(pid, PoisonPill{}, PID{})
	// M3 arrives after PoisonPill is enqueued but is sent as an ordinary
	// user message, so it is processed only if the mailbox still accepts
	// user traffic; post-poison it must land on DeadLetter instead.
	time.Sleep(50 * time.Millisecond)
	sys.DeliverUser(pid, "M3", PID{})

	expectNext(t, rec.events, "M1", time.Second)
	expectNext(t, rec.events, "M2", time.Second)
	expectNext(t, rec.events, Stopping{}, time.Second)
	expectNext(t, rec.events, Stopped{}, time.Second)
	expectNone(t, rec.events, 100*time.Millisecond)
}

// --- S2 Supervised restart + S3 Stash round-trip ---

type flakyChild struct {
	rec    *recorder
	failed bool
}

func (c *flakyChild) Receive(ctx Context) {
	c.rec.events <- ctx.Message()
	if msg, ok := ctx.Message().(string); ok && msg == "boom" && !c.failed {
		c.failed = true
		panic("boom")
	}
}

func TestS2_SupervisedRestartStopsAfterMaxRetries(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	parentDone := make(chan Terminated, 1)
	childSpawned := make(chan PID, 1)
	parentRec := &terminationWatcher{done: parentDone}

	parentProps := NewProps(func() Actor {
		return &restartingParent{
			spawned: childSpawned,
			watcher: parentRec,
		}
	}, WithSupervisorStrategy(NewOneForOneStrategy(3, time.Minute)))

	parent := sys.Spawn(parentProps)

	var childPID PID
	select {
	case childPID = <-childSpawned:
	case <-time.After(time.Second):
		t.Fatal("parent never spawned its child")
	}

	for i := 0; i < 4; i++ {
		sys.DeliverUser(childPID, "boom", PID{})
		time.Sleep(50 * time.Millisecond)
	}

	select {
	case term := <-parentDone:
		if term.Who != childPID || term.Reason != TerminatedStopped {
			t.Fatalf("got %#v", term)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("parent never observed child Terminated after exceeding max retries")
	}
	_ = parent
}

// restartingParent spawns its child in Started, hands the child's PID back to
// the test over spawned, and forwards the Terminated notices it receives for
// its children to watcher for test assertions.
type restartingParent struct {
	spawned chan PID
	watcher *terminationWatcher
}

func (p *restartingParent) Receive(ctx Context) {
	switch m := ctx.Message().(type) {
	case Started:
		child := ctx.Spawn(NewProps(func() Actor {
			return &flakyChild{rec: newRecorder()}
		}))
		p.spawned <- child
	case Terminated:
		p.watcher.done <- m
	}
}

type terminationWatcher struct {
	done chan Terminated
}

func TestS3_StashRoundTripOnRestart(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	events := make(chan any, 32)
	var produced int32
	childPID := sys.Spawn(NewProps(func() Actor {
		isFirst := atomic.CompareAndSwapInt32(&produced, 0, 1)
		return &stashingChild{events: events, shouldStash: isFirst}
	}))

	expectNext(t, events, Started{}, time.Second)

	sys.DeliverUser(childPID, "A", PID{})
	sys.DeliverUser(childPID, "B", PID{})
	sys.DeliverUser(childPID, "C", PID{})
	time.Sleep(50 * time.Millisecond)

	sys.registry.Get(childPID).SendSystem(Restart{})

	expectNext(t, events, "A", time.Second) // observed once, stashed
	expectNext(t, events, "B", time.Second)
	expectNext(t, events, "C", time.Second)
	expectNext(t, events, Restarting{}, time.Second)
	expectNext(t, events, Started{}, time.Second)
	expectNext(t, events, "A", time.Second)
	expectNext(t, events, "B", time.Second)
	expectNext(t, events, "C", time.Second)
}

// stashingChild stashes every A/B/C message on its first incarnation only;
// it records every message it observes so the test can assert the full
// Started, A, B, C, Restarting, Started, A, B, C sequence spec invariant 4
// requires. shouldStash is false on the post-restart instance, since the
// replayed A/B/C arrive as ordinary deliveries that must not be re-stashed.
type stashingChild struct {
	events      chan any
	shouldStash bool
}

func (c *stashingChild) Receive(ctx Context) {
	c.events <- ctx.Message()
	if c.shouldStash {
		if _, ok := ctx.Message().(string); ok {
			ctx.Stash()
		}
	}
}
