package ensemble

// guardianActor is the body every Root guardian runs: it never receives
// user messages itself, it only exists so its children share a supervisor
// strategy and a common point of failure containment (spec §4.6).
type guardianActor struct{}

func (guardianActor) Receive(ctx Context) {}

// guardianFor returns the guardian process whose own supervisorStrategy is
// strategy, creating it on first use. nil maps to the system's configured
// default. Guardians are cached by strategy value so repeated top-level
// Spawn calls passing the same strategy share one parent, matching the
// "Guardians/Root" grouping named in the system overview.
func (s *System) guardianFor(strategy SupervisorStrategy) *LocalProcess {
	if strategy == nil {
		strategy = s.defaultGuardianStrategy
	}
	s.guardianMu.Lock()
	defer s.guardianMu.Unlock()
	if lp, ok := s.guardians[strategy]; ok {
		return lp
	}
	id := s.registry.NextID()
	pid := PID{Address: s.address, ID: "guardian-" + id}
	props := NewProps(func() Actor { return guardianActor{} }, WithSupervisorStrategy(strategy))
	lp := newLocalProcess(pid, props, s, nil)
	lp.ctx.isGuardian = true
	s.registry.TryAdd(pid.ID, lp)
	lp.SendSystem(Started{})
	s.guardians[strategy] = lp
	return lp
}

// Spawn starts a top-level actor under the guardian matching props'
// guardian strategy (or the system default), assigning it a generated id.
func (s *System) Spawn(props *Props) PID {
	pid, err := s.SpawnNamed(props, s.registry.NextID())
	if err != nil {
		panic(err)
	}
	return pid
}

// SpawnNamed is Spawn with a caller-chosen id.
func (s *System) SpawnNamed(props *Props, name string) (PID, error) {
	guardian := s.guardianFor(props.guardianStrategy)
	return guardian.ctx.SpawnNamed(props, name)
}

// spawnRootInternal spawns an internal helper actor (e.g. the one-shot
// watcher behind StopAsync/PoisonAsync) under the default guardian.
func (s *System) spawnRootInternal(props *Props, name string) PID {
	guardian := s.guardianFor(nil)
	pid, err := guardian.ctx.SpawnNamed(props, name)
	if err != nil {
		// name collisions on an internally generated id indicate a bug in
		// the id generator, not a recoverable runtime condition.
		panic(err)
	}
	return pid
}

// rootGuardianFailureStrategy is applied when a guardian itself fails: it
// cannot escalate further, so it logs and stops rather than looping.
type rootGuardianFailureStrategy struct{}

func (rootGuardianFailureStrategy) HandleFailure(parent *ActorContext, child PID, stats *RestartStatistics, reason, message any) {
	parent.system.logger.Error().
		Str("guardian", child.String()).
		Interface("reason", reason).
		Msg("guardian failed, stopping rather than restarting")
	applyDirective(parent, child, DirectiveStop)
}

func (s *System) rootStrategy() SupervisorStrategy {
	return rootGuardianFailureStrategy{}
}
