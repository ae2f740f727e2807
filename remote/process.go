package remote

import (
	"context"
	"sync"

	"github.com/lguibr/ensemble"
	"google.golang.org/grpc"
)

// EndpointManager owns one outbound gRPC connection (and one Tell stream)
// per remote system address, lazily dialed on first send. It hands out
// RemoteProcess values through ProcessFor; it does not add them to any
// System's registry.
type EndpointManager struct {
	localSystem string
	codec       MessageCodec
	dialOpts    []grpc.DialOption

	mu        sync.Mutex
	endpoints map[string]*endpoint
}

type endpoint struct {
	mu     sync.Mutex
	conn   *grpc.ClientConn
	stream *tellClient
}

// NewEndpointManager builds a manager for outbound traffic originating from
// localSystem. Pass grpc.WithTransportCredentials(insecure.NewCredentials())
// (or real TLS credentials) via dialOpts — this package takes no position
// on transport security.
func NewEndpointManager(localSystem string, dialOpts ...grpc.DialOption) *EndpointManager {
	return &EndpointManager{
		localSystem: localSystem,
		codec:       GobCodec{},
		dialOpts:    dialOpts,
		endpoints:   make(map[string]*endpoint),
	}
}

// WithMessageCodec overrides the default GobCodec.
func (m *EndpointManager) WithMessageCodec(c MessageCodec) *EndpointManager {
	m.codec = c
	return m
}

// ProcessFor returns an ensemble.Process that delivers to target, a PID
// whose system address lives at remoteAddr (e.g.
// "host:port"). All RemoteProcess instances for the same remote system
// share one underlying connection/stream through this manager.
func (m *EndpointManager) ProcessFor(target ensemble.PID, remoteAddr string) *RemoteProcess {
	return &RemoteProcess{
		manager:      m,
		remoteSystem: target.Address,
		remoteAddr:   remoteAddr,
		targetID:     target.ID,
	}
}

func (m *EndpointManager) endpointFor(remoteSystem, remoteAddr string) (*endpoint, error) {
	m.mu.Lock()
	ep, ok := m.endpoints[remoteSystem]
	if !ok {
		ep = &endpoint{}
		m.endpoints[remoteSystem] = ep
	}
	m.mu.Unlock()

	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.stream != nil {
		return ep, nil
	}
	conn, err := grpc.Dial(remoteAddr, m.dialOpts...)
	if err != nil {
		return nil, err
	}
	stream, err := newTellClient(context.Background(), conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	ep.conn = conn
	ep.stream = stream
	return ep, nil
}

// send writes one envelope on the endpoint's persistent stream, preserving
// per-sender FIFO (spec §4.2) because every send from this process to this
// remote system serializes through the same stream.
func (m *EndpointManager) send(remoteSystem, remoteAddr string, e *Envelope) error {
	ep, err := m.endpointFor(remoteSystem, remoteAddr)
	if err != nil {
		return err
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.stream.Send(e)
}

// Close tears down every outbound connection this manager opened.
func (m *EndpointManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ep := range m.endpoints {
		ep.mu.Lock()
		if ep.conn != nil {
			ep.conn.Close()
		}
		ep.mu.Unlock()
	}
	m.endpoints = make(map[string]*endpoint)
}

// RemoteProcess is the ensemble.Process variant that forwards to a remote
// system over gRPC instead of a local Mailbox (spec §3's "RemoteProcess
// delegates to endpoint writer"). It drops the message, without logging,
// when encoding or the transport fails — the core's contract is at-most-once delivery (spec §1 non-goals), not a
// guaranteed retry.
type RemoteProcess struct {
	manager      *EndpointManager
	remoteSystem string
	remoteAddr   string
	targetID     string
}

var _ ensemble.Process = (*RemoteProcess)(nil)

func (r *RemoteProcess) SendUser(message any, sender ensemble.PID) {
	r.send(message, sender, KindUser)
}

func (r *RemoteProcess) SendSystem(message any) {
	r.send(message, ensemble.PID{}, KindSystem)
}

func (r *RemoteProcess) send(message any, sender ensemble.PID, kind MessageKind) {
	payload, err := r.manager.codec.Encode(message)
	if err != nil {
		return
	}
	env := &Envelope{
		TargetSystem: r.remoteSystem,
		TargetID:     r.targetID,
		SenderSystem: sender.Address,
		SenderID:     sender.ID,
		Kind:         kind,
		Payload:      payload,
	}
	_ = r.manager.send(r.remoteSystem, r.remoteAddr, env)
}
