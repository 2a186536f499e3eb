package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyClientPushTakesPriority(t *testing.T) {
	in := Input{
		DstIsUs:                true,
		DstIsClientHandledByUs: true,
		SenderIsRemoteSectionNeedingAccumulation: true,
	}
	require.Equal(t, PushToClient, Classify(in))
}

func TestClassifyAccumulate(t *testing.T) {
	in := Input{DstIsUs: true, SenderIsRemoteSectionNeedingAccumulation: true}
	require.Equal(t, Accumulate, Classify(in))
}

func TestClassifyPaymentElder(t *testing.T) {
	in := Input{DstIsUs: true, SenderIsSingleGatewayElder: true, Kind: DataCmd}
	require.Equal(t, RunAsPaymentElder, Classify(in))

	in.Kind = DataQuery
	require.Equal(t, RunAsPaymentElder, Classify(in))
}

func TestClassifyMetadataElder(t *testing.T) {
	in := Input{DstIsUs: true, SenderIsPaymentSectionAccumulated: true, Kind: DataCmd}
	require.Equal(t, RunAsMetadataElder, Classify(in))
}

func TestClassifyAdultRequiresSelfAdult(t *testing.T) {
	in := Input{DstIsUs: true, SenderIsMetadataSectionAccumulated: true, Kind: ChunkCmd, SelfIsAdult: true}
	require.Equal(t, RunAsAdult, Classify(in))

	in.SelfIsAdult = false
	require.Equal(t, UnknownMessage, Classify(in))
}

func TestClassifyTransfersElder(t *testing.T) {
	in := Input{DstIsUs: true, SenderIsSingleGatewayElder: true, Kind: TransferCmd}
	require.Equal(t, RunAsTransfersElder, Classify(in))
}

func TestClassifyFallsBackToUnknown(t *testing.T) {
	require.Equal(t, UnknownMessage, Classify(Input{DstIsUs: true}))
}

func TestClassifyOrderGatewayDataCmdBeatsTransfer(t *testing.T) {
	// A single gateway elder sending a data cmd must hit payment, not
	// fall through to the transfer-only rule further down the table.
	in := Input{DstIsUs: true, SenderIsSingleGatewayElder: true, Kind: DataCmd}
	require.Equal(t, RunAsPaymentElder, Classify(in))
}

func TestClassifyRelaysWhenNotAddressedToUs(t *testing.T) {
	// Even facts that would otherwise match a duty predicate must not be
	// classified locally when the destination isn't ours (spec §4.5): the
	// relay-or-handle decision comes before the duty classifier.
	in := Input{
		DstIsClientHandledByUs:    true,
		SenderIsSingleGatewayElder: true,
		Kind:                       DataCmd,
	}
	require.Equal(t, Relay, Classify(in))
}
