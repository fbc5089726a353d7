package client

import (
	"context"

	"google.golang.org/grpc"

	"github.com/vellumledger/go-vellum/wire"
)

// grpcTransport implements transport against a gRPC connection using
// the CBOR codec.
type grpcTransport struct {
	conn grpc.ClientConnInterface
}

func (t *grpcTransport) invoke(ctx context.Context, method string, req, res any) error {
	return t.conn.Invoke(ctx, method, req, res, grpc.CallContentSubtype(wire.CodecName))
}

func (t *grpcTransport) Submit(ctx context.Context, req *wire.SubmitRequest) (*wire.SubmitResponse, error) {
	res := new(wire.SubmitResponse)
	if err := t.invoke(ctx, wire.SubmitMethod, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *grpcTransport) LedgerEnd(ctx context.Context, req *wire.LedgerEndRequest) (*wire.LedgerEndResponse, error) {
	res := new(wire.LedgerEndResponse)
	if err := t.invoke(ctx, wire.LedgerEndMethod, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *grpcTransport) NodeIdentity(ctx context.Context, req *wire.NodeIdentityRequest) (*wire.NodeIdentityResponse, error) {
	res := new(wire.NodeIdentityResponse)
	if err := t.invoke(ctx, wire.NodeIdentityMethod, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *grpcTransport) Version(ctx context.Context, req *wire.VersionRequest) (*wire.VersionResponse, error) {
	res := new(wire.VersionResponse)
	if err := t.invoke(ctx, wire.VersionMethod, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *grpcTransport) PreferredPackage(ctx context.Context, req *wire.PreferredPackageRequest) (*wire.PreferredPackageResponse, error) {
	res := new(wire.PreferredPackageResponse)
	if err := t.invoke(ctx, wire.PreferredPackageMethod, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *grpcTransport) CompletionStream(ctx context.Context, req *wire.CompletionStreamRequest) (stream[wire.CompletionStreamResponse], error) {
	return openServerStream[wire.CompletionStreamResponse](ctx, t.conn, "CompletionStream", wire.CompletionStreamMethod, req)
}

func (t *grpcTransport) ActiveContracts(ctx context.Context, req *wire.ActiveContractsRequest) (stream[wire.ActiveContractsResponse], error) {
	return openServerStream[wire.ActiveContractsResponse](ctx, t.conn, "GetActiveContracts", wire.ActiveContractsMethod, req)
}

func (t *grpcTransport) Updates(ctx context.Context, req *wire.UpdatesRequest) (stream[wire.UpdatesResponse], error) {
	return openServerStream[wire.UpdatesResponse](ctx, t.conn, "GetUpdates", wire.UpdatesMethod, req)
}

// openServerStream starts a server stream, sends the single request,
// and half-closes.
func openServerStream[T any](ctx context.Context, conn grpc.ClientConnInterface, name, method string, req any) (stream[T], error) {
	desc := &grpc.StreamDesc{StreamName: name, ServerStreams: true}
	cs, err := conn.NewStream(ctx, desc, method, grpc.CallContentSubtype(wire.CodecName))
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return &serverStream[T]{cs: cs}, nil
}

type serverStream[T any] struct {
	cs grpc.ClientStream
}

func (s *serverStream[T]) Recv() (*T, error) {
	msg := new(T)
	if err := s.cs.RecvMsg(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

var _ transport = (*grpcTransport)(nil)
