package client

import (
	"context"

	"github.com/vellumledger/go-vellum/wire"
)

// stream is a server-stream receiver. Recv blocks until the next
// element, the end of the stream (io.EOF), or a transport error.
type stream[T any] interface {
	Recv() (*T, error)
}

// transport is the node RPC surface the client builds on. The gRPC
// implementation lives in grpc.go; tests substitute in-memory fakes.
type transport interface {
	Submit(ctx context.Context, req *wire.SubmitRequest) (*wire.SubmitResponse, error)
	CompletionStream(ctx context.Context, req *wire.CompletionStreamRequest) (stream[wire.CompletionStreamResponse], error)
	ActiveContracts(ctx context.Context, req *wire.ActiveContractsRequest) (stream[wire.ActiveContractsResponse], error)
	Updates(ctx context.Context, req *wire.UpdatesRequest) (stream[wire.UpdatesResponse], error)
	LedgerEnd(ctx context.Context, req *wire.LedgerEndRequest) (*wire.LedgerEndResponse, error)
	NodeIdentity(ctx context.Context, req *wire.NodeIdentityRequest) (*wire.NodeIdentityResponse, error)
	Version(ctx context.Context, req *wire.VersionRequest) (*wire.VersionResponse, error)
	PreferredPackage(ctx context.Context, req *wire.PreferredPackageRequest) (*wire.PreferredPackageResponse, error)
}
