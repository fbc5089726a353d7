package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype the codec registers under. Calls must
// opt in with grpc.CallContentSubtype(CodecName).
const CodecName = "cbor"

// Full method names of the node's services.
const (
	SubmitMethod           = "/vellum.api.v1.CommandService/Submit"
	CompletionStreamMethod = "/vellum.api.v1.CompletionService/CompletionStream"
	ActiveContractsMethod  = "/vellum.api.v1.StateService/GetActiveContracts"
	LedgerEndMethod        = "/vellum.api.v1.StateService/GetLedgerEnd"
	UpdatesMethod          = "/vellum.api.v1.UpdateService/GetUpdates"
	NodeIdentityMethod     = "/vellum.api.v1.NodeService/GetIdentity"
	VersionMethod          = "/vellum.api.v1.NodeService/GetVersion"
	PreferredPackageMethod = "/vellum.api.v1.PackageService/GetPreferredPackage"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{Sort: cbor.SortCoreDeterministic}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: decoder mode: %v", err))
	}
	encoding.RegisterCodec(codec{})
}

// codec carries wire messages as deterministic CBOR. Decoding is strict:
// an unknown field is an error, so a node speaking a newer schema fails
// the call instead of being half-understood.
type codec struct{}

func (codec) Name() string { return CodecName }

func (codec) Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Marshal encodes a wire message with the codec's deterministic encoder.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes a wire message with the codec's strict decoder.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
