package ensemble

import (
	"errors"
	"testing"
	"time"
)

func TestProps_NewPropsPanicsOnNilProducer(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewProps(nil) must panic")
		}
	}()
	NewProps(nil)
}

func TestSpawn_DuplicateChildNameFails(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	parentDone := make(chan error, 2)
	props := NewProps(func() Actor {
		return &duplicateSpawner{done: parentDone}
	})
	sys.Spawn(props)

	select {
	case err := <-parentDone:
		if !errors.Is(err, ErrInvalidSpawn) {
			t.Fatalf("second SpawnNamed with the same name: err = %v, want ErrInvalidSpawn", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the duplicate-name spawn result")
	}
}

type duplicateSpawner struct {
	done chan error
}

func (d *duplicateSpawner) Receive(ctx Context) {
	if _, ok := ctx.Message().(Started); !ok {
		return
	}
	child := NewProps(func() Actor { return guardianActor{} })
	if _, err := ctx.SpawnNamed(child, "worker"); err != nil {
		d.done <- err
		return
	}
	_, err := ctx.SpawnNamed(child, "worker")
	d.done <- err
}

func TestSpawn_GuardianStrategyRejectedOutsideRoot(t *testing.T) {
	sys := NewSystem()
	defer sys.Shutdown(time.Second)

	result := make(chan error, 1)
	props := NewProps(func() Actor {
		return &guardianMisuseSpawner{done: result}
	})
	sys.Spawn(props)

	select {
	case err := <-result:
		if !errors.Is(err, ErrInvalidSpawn) {
			t.Fatalf("err = %v, want ErrInvalidSpawn", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

type guardianMisuseSpawner struct {
	done chan error
}

func (g *guardianMisuseSpawner) Receive(ctx Context) {
	if _, ok := ctx.Message().(Started); !ok {
		return
	}
	child := NewProps(func() Actor { return guardianActor{} }, WithGuardianStrategy(DefaultStrategy))
	_, err := ctx.SpawnNamed(child, "bad-child")
	g.done <- err
}

func TestMiddleware_ChainRunsOutermostFirst(t *testing.T) {
	var order []string
	mw1 := func(next ReceiveFunc) ReceiveFunc {
		return func(c Context) { order = append(order, "mw1-before"); next(c); order = append(order, "mw1-after") }
	}
	mw2 := func(next ReceiveFunc) ReceiveFunc {
		return func(c Context) { order = append(order, "mw2-before"); next(c); order = append(order, "mw2-after") }
	}
	final := func(c Context) { order = append(order, "final") }

	chained := ChainReceiver([]ReceiverMiddleware{mw1, mw2}, final)
	chained(nil)

	want := []string{"mw1-before", "mw2-before", "final", "mw2-after", "mw1-after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
