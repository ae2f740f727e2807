package remote

import (
	"context"
	"net"

	"github.com/lguibr/ensemble"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

// EndpointReader is the inbound half of the remote seam: a gRPC server that
// decodes Envelopes and hands them to the local System's registry,
// completing the "RemoteProcess delegates to endpoint writer" contract from
// the other side of the wire.
type EndpointReader struct {
	system *ensemble.System
	codec  MessageCodec
	logger zerolog.Logger

	grpcServer *grpc.Server
}

// NewEndpointReader builds a reader that delivers decoded envelopes into
// system. Pass logger.With() output or a no-op logger if the embedding
// application doesn't want remote-layer logs.
func NewEndpointReader(system *ensemble.System, logger zerolog.Logger) *EndpointReader {
	return &EndpointReader{system: system, codec: GobCodec{}, logger: logger}
}

// WithMessageCodec overrides the default GobCodec; it must match whatever
// MessageCodec the sending EndpointManager uses.
func (r *EndpointReader) WithMessageCodec(c MessageCodec) *EndpointReader {
	r.codec = c
	return r
}

// Serve starts a gRPC server on lis and blocks until it stops. Call in its
// own goroutine.
func (r *EndpointReader) Serve(lis net.Listener) error {
	r.grpcServer = grpc.NewServer()
	r.grpcServer.RegisterService(&ServiceDesc, r)
	return r.grpcServer.Serve(lis)
}

// Stop gracefully stops the gRPC server, if one was started.
func (r *EndpointReader) Stop() {
	if r.grpcServer != nil {
		r.grpcServer.GracefulStop()
	}
}

// Tell implements TellServer: one call per envelope received on the Tell
// stream. Decode failures are logged and dropped, matching the core's
// at-most-once, never-panic-the-transport delivery contract (spec §1
// non-goals, §7); an envelope whose target is not registered locally is
// routed to DeadLetter, like any local send.
func (r *EndpointReader) Tell(_ context.Context, e *Envelope) error {
	message, err := r.codec.Decode(e.Payload)
	if err != nil {
		r.logger.Error().Err(err).Str("target", e.TargetID).Msg("remote: failed to decode envelope payload")
		return nil
	}
	target := ensemble.NewPID(r.system.Address(), e.TargetID)
	sender := ensemble.NewPID(e.SenderSystem, e.SenderID)

	switch e.Kind {
	case KindUser:
		r.system.DeliverUser(target, message, sender)
	case KindSystem:
		r.system.DeliverSystem(target, message)
	}
	return nil
}
