package ledgertest

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vellumledger/go-vellum/wire"
)

// Start serves the node on a loopback listener with a SERVING health
// check, stopping when the test ends. It returns the listen address.
func Start(t *testing.T, n *Node) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	server := grpc.NewServer()
	n.register(server)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	t.Cleanup(func() {
		// Stop, not GracefulStop: subscribers hold streams open for the
		// test's lifetime.
		server.Stop()
		_ = listener.Close()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
			t.Log("node server did not stop in time")
		}
	})

	return listener.Addr().String()
}

func (n *Node) register(s *grpc.Server) {
	s.RegisterService(&commandServiceDesc, n)
	s.RegisterService(&completionServiceDesc, n)
	s.RegisterService(&stateServiceDesc, n)
	s.RegisterService(&updateServiceDesc, n)
	s.RegisterService(&nodeServiceDesc, n)
	s.RegisterService(&packageServiceDesc, n)
}

// nodeServer is the handler surface the service descriptors bind to.
type nodeServer interface {
	submit(context.Context, *wire.SubmitRequest) (*wire.SubmitResponse, error)
	ledgerEnd(context.Context, *wire.LedgerEndRequest) (*wire.LedgerEndResponse, error)
	identity(context.Context, *wire.NodeIdentityRequest) (*wire.NodeIdentityResponse, error)
	nodeVersion(context.Context, *wire.VersionRequest) (*wire.VersionResponse, error)
	preferredPackage(context.Context, *wire.PreferredPackageRequest) (*wire.PreferredPackageResponse, error)
	completionStream(*wire.CompletionStreamRequest, grpc.ServerStream) error
	activeContracts(*wire.ActiveContractsRequest, grpc.ServerStream) error
	updates(*wire.UpdatesRequest, grpc.ServerStream) error
}

// serviceName extracts "pkg.Service" from a "/pkg.Service/Method" full
// method string.
func serviceName(fullMethod string) string {
	trimmed := strings.TrimPrefix(fullMethod, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

var commandServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName(wire.SubmitMethod),
	HandlerType: (*nodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
	},
}

var completionServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName(wire.CompletionStreamMethod),
	HandlerType: (*nodeServer)(nil),
	Streams: []grpc.StreamDesc{
		{StreamName: "CompletionStream", Handler: completionStreamHandler, ServerStreams: true},
	},
}

var stateServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName(wire.LedgerEndMethod),
	HandlerType: (*nodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetLedgerEnd", Handler: ledgerEndHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "GetActiveContracts", Handler: activeContractsHandler, ServerStreams: true},
	},
}

var updateServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName(wire.UpdatesMethod),
	HandlerType: (*nodeServer)(nil),
	Streams: []grpc.StreamDesc{
		{StreamName: "GetUpdates", Handler: updatesHandler, ServerStreams: true},
	},
}

var nodeServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName(wire.NodeIdentityMethod),
	HandlerType: (*nodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetIdentity", Handler: identityHandler},
		{MethodName: "GetVersion", Handler: versionHandler},
	},
}

var packageServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName(wire.PreferredPackageMethod),
	HandlerType: (*nodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetPreferredPackage", Handler: preferredPackageHandler},
	},
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.SubmitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(nodeServer).submit(ctx, in)
}

func ledgerEndHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.LedgerEndRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(nodeServer).ledgerEnd(ctx, in)
}

func identityHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.NodeIdentityRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(nodeServer).identity(ctx, in)
}

func versionHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.VersionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(nodeServer).nodeVersion(ctx, in)
}

func preferredPackageHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.PreferredPackageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(nodeServer).preferredPackage(ctx, in)
}

func completionStreamHandler(srv any, stream grpc.ServerStream) error {
	in := new(wire.CompletionStreamRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(nodeServer).completionStream(in, stream)
}

func activeContractsHandler(srv any, stream grpc.ServerStream) error {
	in := new(wire.ActiveContractsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(nodeServer).activeContracts(in, stream)
}

func updatesHandler(srv any, stream grpc.ServerStream) error {
	in := new(wire.UpdatesRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(nodeServer).updates(in, stream)
}
