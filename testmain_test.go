package ensemble

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain gates every package-level test run on goleak, the way the pack's
// actor-mailbox library (markInTheAbyss-go-actor) verifies its own
// dispatcher goroutines exit cleanly. Mailbox turns are spawned with "go
// task()" per run, so a test that leaves an actor's mailbox scheduled would
// otherwise leak silently.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// goroutines whose top frame is time.Sleep are not reported as leaks.
		goleak.IgnoreTopFunction("time.Sleep"),
	)
}
