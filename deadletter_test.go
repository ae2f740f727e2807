package ensemble

import (
	"testing"
	"time"
)

func TestDeadLetter_ThrottlesPublication(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	var published int
	sys.EventStream().Subscribe(func(event any) {
		if _, ok := event.(DeadLetterEvent); ok {
			published++
		}
	})

	ghost := NewPID(sys.Address(), "ghost")
	for i := 0; i < 50; i++ {
		sys.DeliverUser(ghost, "x", PID{})
	}

	if published == 0 {
		t.Fatal("expected at least one DeadLetterEvent to be published")
	}
	if published >= 50 {
		t.Fatalf("published = %d, throttle should have capped well below the raw send count", published)
	}
}

func TestDeadLetter_RespondsToRequester(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	f := newFuture(sys, time.Second)
	ghost := NewPID(sys.Address(), "ghost")
	sys.DeliverUser(ghost, "x", f.pid)

	_, err := f.wait()
	if err == nil {
		t.Fatal("a request to a dead address must fail the requester instead of hanging until timeout")
	}
}

func TestDeadLetter_NeverBouncesItsOwnResponse(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	var published int
	sys.EventStream().Subscribe(func(event any) {
		if _, ok := event.(DeadLetterEvent); ok {
			published++
		}
	})

	sys.deadLetterProcess.SendUser(DeadLetterResponse{Target: NewPID(sys.Address(), "ghost")}, PID{})
	time.Sleep(10 * time.Millisecond)

	if published != 0 {
		t.Fatalf("published = %d, a DeadLetterResponse must never itself trigger a dead-letter event", published)
	}
}
