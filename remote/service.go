package remote

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(rawCodec{})
}

const serviceName = "ensemble.remote.Messaging"

// TellServer is implemented by whatever accepts inbound envelopes on the
// receiving system — EndpointReader in server.go, in this package, but any type
// satisfying it can stand in for tests.
type TellServer interface {
	Tell(ctx context.Context, e *Envelope) error
}

// ServiceDesc is the grpc.ServiceDesc for the Messaging service. It is
// written by hand in place of protoc-gen-go-grpc output: see wire.go for
// why a generated stub buys nothing for an envelope this simple.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TellServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Tell",
			Handler:       tellStreamHandler,
			ClientStreams: true,
		},
	},
	Metadata: "ensemble/remote/messaging.proto",
}

func tellStreamHandler(srv any, stream grpc.ServerStream) error {
	s := srv.(TellServer)
	for {
		var e Envelope
		if err := stream.RecvMsg(&e); err != nil {
			if err == io.EOF {
				return stream.SendMsg(&ack{})
			}
			return err
		}
		if err := s.Tell(stream.Context(), &e); err != nil {
			return err
		}
	}
}

// tellClient wraps the raw grpc.ClientStream with Envelope-typed Send.
type tellClient struct {
	grpc.ClientStream
}

func newTellClient(ctx context.Context, cc *grpc.ClientConn) (*tellClient, error) {
	stream, err := cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+serviceName+"/Tell",
		grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	return &tellClient{ClientStream: stream}, nil
}

func (c *tellClient) Send(e *Envelope) error {
	return c.ClientStream.SendMsg(e)
}

func (c *tellClient) CloseAndRecv() error {
	if err := c.ClientStream.CloseSend(); err != nil {
		return err
	}
	var a ack
	return c.ClientStream.RecvMsg(&a)
}
