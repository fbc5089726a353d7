// Package ledgertest runs a scriptable ledger node on a loopback
// listener for client tests. The node speaks the real wire protocol,
// CBOR over gRPC, so tests cover the full client path including the
// codec and the health gate.
package ledgertest

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vellumledger/go-vellum/wire"
)

// Node is a scriptable fake node. Configure it before starting the
// server; emit completions and updates while the test runs. Safe for
// concurrent use.
type Node struct {
	mu sync.Mutex

	nodeID   string
	version  string
	features wire.FeaturesDescriptor
	end      string
	packages map[string]string

	submitHook func(*wire.SubmitRequest) error
	submits    []*wire.SubmitRequest
	authHeader []string

	completionLog  []*wire.CompletionStreamResponse
	completionSubs []chan *wire.CompletionStreamResponse

	snapshotBatches [][]wire.CreatedEvent
	snapshotEnd     string

	updateLog  []*wire.UpdatesResponse
	updateSubs []chan *wire.UpdatesResponse
}

// NewNode returns a node with a minimal working default: identity
// "node-test", an empty ledger at offset "0", and every feature
// advertised.
func NewNode() *Node {
	return &Node{
		nodeID:  "node-test",
		version: "0.0.0-test",
		features: wire.FeaturesDescriptor{
			MinLedgerTime:         true,
			DomainRouting:         true,
			OffsetDeduplication:   true,
			CompletionCheckpoints: true,
		},
		end:         "0",
		snapshotEnd: "0",
		packages:    make(map[string]string),
	}
}

// SetIdentity overrides the node identity.
func (n *Node) SetIdentity(nodeID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodeID = nodeID
}

// SetFeatures overrides the advertised feature set.
func (n *Node) SetFeatures(f wire.FeaturesDescriptor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.features = f
}

// SetEnd sets the offset reported as the ledger end.
func (n *Node) SetEnd(offset string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.end = offset
}

// RegisterPackage binds a package alias for GetPreferredPackage.
func (n *Node) RegisterPackage(alias, packageID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.packages[alias] = packageID
}

// OnSubmit installs a hook deciding each submission's fate. A nil
// return accepts; a non-nil error is returned to the caller as the RPC
// error. The request is recorded either way.
func (n *Node) OnSubmit(hook func(*wire.SubmitRequest) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitHook = hook
}

// Submissions returns every submit request received so far.
func (n *Node) Submissions() []*wire.SubmitRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*wire.SubmitRequest(nil), n.submits...)
}

// AuthHeaders returns the authorization metadata seen on submits, one
// entry per request, empty string when a request carried none.
func (n *Node) AuthHeaders() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.authHeader...)
}

// SetSnapshot scripts the active-contract snapshot: one batch per call
// argument slice, then an end marker at the given offset.
func (n *Node) SetSnapshot(end string, batches ...[]wire.CreatedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshotBatches = batches
	n.snapshotEnd = end
}

// EmitCompletion appends a completion to the node's log and delivers it
// to every live subscriber.
func (n *Node) EmitCompletion(c *wire.Completion) {
	n.broadcastCompletion(&wire.CompletionStreamResponse{Completion: c})
}

// EmitCompletionCheckpoint appends a checkpoint to the completion
// stream.
func (n *Node) EmitCompletionCheckpoint(offset string) {
	n.broadcastCompletion(&wire.CompletionStreamResponse{Checkpoint: &wire.Checkpoint{Offset: offset}})
}

// EmitTransaction appends a transaction to the update log and delivers
// it to every live subscriber.
func (n *Node) EmitTransaction(tx *wire.Transaction) {
	n.broadcastUpdate(&wire.UpdatesResponse{Transaction: tx})
}

// EmitUpdateCheckpoint appends a checkpoint to the update stream.
func (n *Node) EmitUpdateCheckpoint(offset string) {
	n.broadcastUpdate(&wire.UpdatesResponse{Checkpoint: &wire.Checkpoint{Offset: offset}})
}

// DropStreams disconnects every live completion and update subscriber,
// as a node restart would. Subscribers reconnecting afterwards replay
// the log from their resumption offset.
func (n *Node) DropStreams() {
	n.mu.Lock()
	completionSubs := n.completionSubs
	n.completionSubs = nil
	updateSubs := n.updateSubs
	n.updateSubs = nil
	n.mu.Unlock()
	for _, ch := range completionSubs {
		close(ch)
	}
	for _, ch := range updateSubs {
		close(ch)
	}
}

func (n *Node) broadcastCompletion(msg *wire.CompletionStreamResponse) {
	n.mu.Lock()
	n.completionLog = append(n.completionLog, msg)
	subs := append([]chan *wire.CompletionStreamResponse(nil), n.completionSubs...)
	n.mu.Unlock()
	for _, ch := range subs {
		ch <- msg
	}
}

func (n *Node) broadcastUpdate(msg *wire.UpdatesResponse) {
	n.mu.Lock()
	n.updateLog = append(n.updateLog, msg)
	subs := append([]chan *wire.UpdatesResponse(nil), n.updateSubs...)
	n.mu.Unlock()
	for _, ch := range subs {
		ch <- msg
	}
}

func (n *Node) submit(ctx context.Context, req *wire.SubmitRequest) (*wire.SubmitResponse, error) {
	if req.Commands == nil {
		return nil, status.Error(codes.InvalidArgument, "commands required")
	}
	auth := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("authorization"); len(values) > 0 {
			auth = values[0]
		}
	}
	n.mu.Lock()
	n.submits = append(n.submits, req)
	n.authHeader = append(n.authHeader, auth)
	hook := n.submitHook
	n.mu.Unlock()
	if hook != nil {
		if err := hook(req); err != nil {
			return nil, err
		}
	}
	return &wire.SubmitResponse{}, nil
}

func (n *Node) ledgerEnd(context.Context, *wire.LedgerEndRequest) (*wire.LedgerEndResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return &wire.LedgerEndResponse{Offset: n.end}, nil
}

func (n *Node) identity(context.Context, *wire.NodeIdentityRequest) (*wire.NodeIdentityResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return &wire.NodeIdentityResponse{NodeID: n.nodeID}, nil
}

func (n *Node) nodeVersion(context.Context, *wire.VersionRequest) (*wire.VersionResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	features := n.features
	return &wire.VersionResponse{Version: n.version, Features: &features}, nil
}

func (n *Node) preferredPackage(_ context.Context, req *wire.PreferredPackageRequest) (*wire.PreferredPackageResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, ok := n.packages[req.PackageName]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown package %q", req.PackageName)
	}
	return &wire.PreferredPackageResponse{PackageID: id}, nil
}

func (n *Node) completionStream(req *wire.CompletionStreamRequest, stream grpc.ServerStream) error {
	ch := make(chan *wire.CompletionStreamResponse, 64)
	n.mu.Lock()
	backlog := replayCompletions(n.completionLog, req.BeginExclusive)
	n.completionSubs = append(n.completionSubs, ch)
	n.mu.Unlock()
	defer n.dropCompletionSub(ch)

	for _, msg := range backlog {
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
	}
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

func (n *Node) activeContracts(_ *wire.ActiveContractsRequest, stream grpc.ServerStream) error {
	n.mu.Lock()
	batches := n.snapshotBatches
	end := n.snapshotEnd
	n.mu.Unlock()

	for _, batch := range batches {
		msg := &wire.ActiveContractsResponse{Batch: &wire.ActiveContractBatch{Created: batch}}
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
	}
	return stream.SendMsg(&wire.ActiveContractsResponse{End: &wire.SnapshotEnd{Offset: end}})
}

func (n *Node) updates(req *wire.UpdatesRequest, stream grpc.ServerStream) error {
	ch := make(chan *wire.UpdatesResponse, 64)
	n.mu.Lock()
	backlog := replayUpdates(n.updateLog, req.BeginExclusive)
	n.updateSubs = append(n.updateSubs, ch)
	n.mu.Unlock()
	defer n.dropUpdateSub(ch)

	for _, msg := range backlog {
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
	}
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

func (n *Node) dropCompletionSub(ch chan *wire.CompletionStreamResponse) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, sub := range n.completionSubs {
		if sub == ch {
			n.completionSubs = append(n.completionSubs[:i], n.completionSubs[i+1:]...)
			return
		}
	}
}

func (n *Node) dropUpdateSub(ch chan *wire.UpdatesResponse) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, sub := range n.updateSubs {
		if sub == ch {
			n.updateSubs = append(n.updateSubs[:i], n.updateSubs[i+1:]...)
			return
		}
	}
}

// replayCompletions returns the log entries strictly after the entry
// whose offset equals begin. An unknown begin replays the whole log; an
// empty begin replays nothing, matching a subscription from the current
// end.
func replayCompletions(log []*wire.CompletionStreamResponse, begin string) []*wire.CompletionStreamResponse {
	if begin == "" {
		return nil
	}
	for i := len(log) - 1; i >= 0; i-- {
		if completionOffset(log[i]) == begin {
			return append([]*wire.CompletionStreamResponse(nil), log[i+1:]...)
		}
	}
	return append([]*wire.CompletionStreamResponse(nil), log...)
}

func replayUpdates(log []*wire.UpdatesResponse, begin string) []*wire.UpdatesResponse {
	if begin == "" {
		return nil
	}
	for i := len(log) - 1; i >= 0; i-- {
		if updateOffset(log[i]) == begin {
			return append([]*wire.UpdatesResponse(nil), log[i+1:]...)
		}
	}
	return append([]*wire.UpdatesResponse(nil), log...)
}

func completionOffset(msg *wire.CompletionStreamResponse) string {
	switch {
	case msg.Completion != nil:
		return msg.Completion.Offset
	case msg.Checkpoint != nil:
		return msg.Checkpoint.Offset
	default:
		return ""
	}
}

func updateOffset(msg *wire.UpdatesResponse) string {
	switch {
	case msg.Transaction != nil:
		return msg.Transaction.Offset
	case msg.Checkpoint != nil:
		return msg.Checkpoint.Offset
	default:
		return ""
	}
}
