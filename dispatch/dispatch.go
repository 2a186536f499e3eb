// Package dispatch classifies a verified, locally-addressed envelope into
// exactly one duty action: the "duty classifier" (spec §4.6). The
// classifier is purely functional over its input facts — it holds no
// state and performs no I/O.
package dispatch

// MessageKind narrows an envelope's payload to the categories the
// classifier cares about.
type MessageKind int

const (
	// OtherMessage is any payload kind not named below.
	OtherMessage MessageKind = iota
	// DataCmd is a data-plane command (e.g. store/delete a chunk).
	DataCmd
	// DataQuery is a data-plane read.
	DataQuery
	// ChunkCmd is a chunk-level store/delete directed at an adult.
	ChunkCmd
	// TransferCmd moves value between accounts.
	TransferCmd
)

// Action is the single duty a dispatched envelope triggers.
type Action int

const (
	// UnknownMessage means none of the duty predicates matched; the
	// caller should report an unknown-message error back to the origin.
	UnknownMessage Action = iota
	// Relay means the envelope is not addressed to us at all (spec §4.5
	// relay rule); the caller forwards it toward its destination instead
	// of running any duty.
	Relay
	// PushToClient delivers the payload on a locally-handled client
	// stream.
	PushToClient
	// Accumulate means the message is a share from a remote section and
	// must be combined with peers before further action (routed to the
	// signature aggregator).
	Accumulate
	// RunAsPaymentElder means this node should charge for and forward a
	// data command/query as the payment section.
	RunAsPaymentElder
	// RunAsMetadataElder means this node should persist the index and
	// forward to adults.
	RunAsMetadataElder
	// RunAsAdult means this node should store or delete the referenced
	// chunk.
	RunAsAdult
	// RunAsTransfersElder means this node should execute the transfer.
	RunAsTransfersElder
)

func (a Action) String() string {
	switch a {
	case UnknownMessage:
		return "unknown-message"
	case Relay:
		return "relay"
	case PushToClient:
		return "push-to-client"
	case Accumulate:
		return "accumulate"
	case RunAsPaymentElder:
		return "run-as-payment-elder"
	case RunAsMetadataElder:
		return "run-as-metadata-elder"
	case RunAsAdult:
		return "run-as-adult"
	case RunAsTransfersElder:
		return "run-as-transfers-elder"
	default:
		return "unknown-action"
	}
}

// Input is the complete set of facts the classifier is evaluated over:
// (envelope, self_role, prefix_match) flattened into booleans and the
// message kind, so Classify itself stays a pure, branch-only function.
type Input struct {
	// DstIsClientHandledByUs is true when the destination is a client
	// address whose stream this node owns.
	DstIsClientHandledByUs bool
	// DstIsUs is true when the envelope is addressed to this node or
	// section at all. It is checked first: when false, Classify returns
	// Relay without consulting any other fact.
	DstIsUs bool

	// SenderIsRemoteSectionNeedingAccumulation is true when the sender is
	// another section and this message must be combined with peer shares
	// before it can be acted on.
	SenderIsRemoteSectionNeedingAccumulation bool
	// SenderIsSingleGatewayElder is true when the sender is one elder
	// acting in the gateway duty (not yet an accumulated section result).
	SenderIsSingleGatewayElder bool
	// SenderIsPaymentSectionAccumulated is true when the sender is the
	// payment section's already-combined result.
	SenderIsPaymentSectionAccumulated bool
	// SenderIsMetadataSectionAccumulated is true when the sender is the
	// metadata section's already-combined result.
	SenderIsMetadataSectionAccumulated bool

	// Kind is the payload's message kind.
	Kind MessageKind
	// SelfIsAdult is true when this node currently holds the adult role.
	SelfIsAdult bool
}

// Classify evaluates the duty predicate table in order and returns the
// first matching action (spec §4.6). Predicates are evaluated in the
// documented order; the first match wins. The relay-or-handle decision
// (spec §4.5) comes first: an envelope not addressed to us at all is
// never classified into a duty, only relayed.
func Classify(in Input) Action {
	switch {
	case !in.DstIsUs:
		return Relay
	case in.DstIsClientHandledByUs:
		return PushToClient
	case in.SenderIsRemoteSectionNeedingAccumulation:
		return Accumulate
	case in.SenderIsSingleGatewayElder && (in.Kind == DataCmd || in.Kind == DataQuery):
		return RunAsPaymentElder
	case in.SenderIsPaymentSectionAccumulated && in.Kind == DataCmd:
		return RunAsMetadataElder
	case in.SenderIsMetadataSectionAccumulated && in.Kind == ChunkCmd && in.SelfIsAdult:
		return RunAsAdult
	case in.SenderIsSingleGatewayElder && in.Kind == TransferCmd:
		return RunAsTransfersElder
	default:
		return UnknownMessage
	}
}
