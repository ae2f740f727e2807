package ensemble

// Process is the uniform seam every addressable entity implements: a local
// actor's mailbox, a remote delegate, the dead-letter sink, or a Future.
// The EventStream is not a Process and has no PID. The registry holds the only strong reference; PIDs are
// weak logical keys (spec §3).
type Process interface {
	// SendUser delivers a user message from sender (the zero PID if none).
	SendUser(message any, sender PID)
	// SendSystem delivers a system message; system messages always
	// overtake queued user messages at the mailbox.
	SendSystem(message any)
}

// LocalProcess is the Process variant backed by a local Mailbox and
// ActorContext — the only variant this module runs end to end. Remote,
// dead-letter, and future variants live in their own files.
type LocalProcess struct {
	pid     PID
	mailbox *Mailbox
	ctx     *ActorContext
}

func newLocalProcess(pid PID, props *Props, system *System, parent *ActorContext) *LocalProcess {
	ctx := newActorContext(pid, props, system, parent)
	mb := newMailbox(props.mailboxConfig)
	mb.onReject = func(e envelope) {
		system.deadLetterProcess.deliver(pid, e.message, e.sender)
	}
	lp := &LocalProcess{pid: pid, mailbox: mb, ctx: ctx}
	ctx.process = lp
	mb.start(ctx, props.dispatcher)
	return lp
}

// SendUser implements Process.
func (lp *LocalProcess) SendUser(message any, sender PID) {
	lp.mailbox.postUser(envelope{message: message, sender: sender})
}

// SendSystem implements Process.
func (lp *LocalProcess) SendSystem(message any) {
	lp.mailbox.postSystem(message)
}

// envelope wraps a user message with its sender, mirroring the teacher's
// messageEnvelope.
type envelope struct {
	message any
	sender  PID
}
