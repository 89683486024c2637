package consensusevents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emerald-consensus/emerald/types"
)

func TestNewGetValueCarriesDeadlineAndReadyReplyChannel(t *testing.T) {
	deadline := time.Now().Add(2 * time.Second)
	ev := NewGetValue(types.Height(5), types.Round(1), deadline)

	require.Equal(t, GetValue, ev.Kind)
	require.Equal(t, types.Height(5), ev.GetValueRequest.Height)
	require.Equal(t, types.Round(1), ev.GetValueRequest.Round)
	require.Equal(t, deadline, ev.GetValueRequest.Deadline)
	require.NotNil(t, ev.Reply)

	ev.Reply <- Reply{GetValueReply: &GetValueReply{}}
	reply := <-ev.Reply
	require.NotNil(t, reply.GetValueReply)
}

func TestNewReceivedProposalPartCarriesFromAndReplyChannel(t *testing.T) {
	part := &types.ProposalPart{Height: types.Height(3), Round: types.Round(0)}
	from := types.Address{0x01}
	ev := NewReceivedProposalPart(part, from)

	require.Equal(t, ReceivedProposalPart, ev.Kind)
	require.Same(t, part, ev.ReceivedProposalPartRequest.Part)
	require.Equal(t, from, ev.ReceivedProposalPartRequest.From)
	require.NotNil(t, ev.Reply)
}

func TestNewProcessSyncedValueCarriesRawBytesNotDecodedPayload(t *testing.T) {
	proposer := types.Address{0x02}
	raw := []byte{0xde, 0xad, 0xbe, 0xef}
	ev := NewProcessSyncedValue(types.Height(7), types.Round(2), proposer, raw)

	require.Equal(t, ProcessSyncedValue, ev.Kind)
	require.Equal(t, proposer, ev.ProcessSyncedRequest.Proposer)
	require.Equal(t, raw, ev.ProcessSyncedRequest.ValueBytes)
}

func TestNewConsensusReadyHasTypedReplyChannel(t *testing.T) {
	ev := NewConsensusReady()
	require.Equal(t, ConsensusReady, ev.Kind)

	want := &ConsensusReadyReply{StartHeight: types.Height(42)}
	ev.Reply <- Reply{ConsensusReadyReply: want}
	reply := <-ev.Reply
	require.Equal(t, types.Height(42), reply.ConsensusReadyReply.StartHeight)
}

func TestEventConstructorsAllocateDistinctReplyChannels(t *testing.T) {
	a := NewGetDecidedValue(types.Height(1))
	b := NewGetDecidedValue(types.Height(1))
	require.NotEqual(t, a.Reply, b.Reply)
}
