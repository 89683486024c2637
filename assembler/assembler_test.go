package assembler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emerald-consensus/emerald/codec"
	"github.com/emerald-consensus/emerald/types"
)

func samplePayload() *types.ExecutionPayload {
	return &types.ExecutionPayload{
		Header: types.BlockHeader{Number: 9, GasUsed: 1},
		Body:   types.BlockBody{Transactions: [][]byte{[]byte("abcdefghijklmnopqrstuvwxyz")}},
	}
}

func splitParts(raw []byte, chunkSize int, height types.Height, round types.Round) []*types.ProposalPart {
	var parts []*types.ProposalPart
	for i := 0; i*chunkSize < len(raw); i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(raw) {
			end = len(raw)
		}
		parts = append(parts, &types.ProposalPart{
			Height:    height,
			Round:     round,
			PartIndex: uint32(i),
			Bytes:     raw[start:end],
		})
	}
	parts[len(parts)-1].IsLast = true
	return parts
}

func TestAssemblesInOrder(t *testing.T) {
	payload := samplePayload()
	raw := codec.EncodePayload(payload)
	parts := splitParts(raw, 16, 9, 0)

	a := New()
	var got *types.ExecutionPayload
	for _, p := range parts {
		result, done, err := a.AddPart(p)
		require.NoError(t, err)
		if done {
			got = result
		}
	}
	require.NotNil(t, got)
	require.Equal(t, payload, got)
}

func TestAssemblesOutOfOrder(t *testing.T) {
	payload := samplePayload()
	raw := codec.EncodePayload(payload)
	parts := splitParts(raw, 16, 9, 0)

	reordered := append([]*types.ProposalPart{}, parts...)
	reordered[0], reordered[len(reordered)-1] = reordered[len(reordered)-1], reordered[0]

	a := New()
	var got *types.ExecutionPayload
	for _, p := range reordered {
		result, done, err := a.AddPart(p)
		require.NoError(t, err)
		if done {
			got = result
		}
	}
	require.NotNil(t, got)
	require.Equal(t, payload, got)
}

func TestDuplicatePartIndexIdenticalBytesSucceeds(t *testing.T) {
	a := New()
	part := &types.ProposalPart{Height: 1, Round: 0, PartIndex: 0, Bytes: []byte("x")}
	_, _, err := a.AddPart(part)
	require.NoError(t, err)
	_, _, err = a.AddPart(&types.ProposalPart{Height: 1, Round: 0, PartIndex: 0, Bytes: []byte("x")})
	require.NoError(t, err)
}

func TestDuplicatePartIndexMismatchedBytesErrors(t *testing.T) {
	a := New()
	part := &types.ProposalPart{Height: 1, Round: 0, PartIndex: 0, Bytes: []byte("x")}
	_, _, err := a.AddPart(part)
	require.NoError(t, err)
	_, _, err = a.AddPart(&types.ProposalPart{Height: 1, Round: 0, PartIndex: 0, Bytes: []byte("y")})
	require.Error(t, err)
}

func TestPartAfterSlotClosedIsDropped(t *testing.T) {
	payload := samplePayload()
	raw := codec.EncodePayload(payload)
	parts := splitParts(raw, 16, 9, 0)

	a := New()
	var got *types.ExecutionPayload
	for _, p := range parts {
		result, done, err := a.AddPart(p)
		require.NoError(t, err)
		if done {
			got = result
		}
	}
	require.NotNil(t, got)

	result, done, err := a.AddPart(parts[0])
	require.NoError(t, err)
	require.False(t, done)
	require.Nil(t, result)
	require.NotContains(t, a.buffers, key{height: 9, round: 0})
}

func TestIncompleteReturnsNotDone(t *testing.T) {
	payload := samplePayload()
	raw := codec.EncodePayload(payload)
	parts := splitParts(raw, 16, 9, 0)

	a := New()
	_, done, err := a.AddPart(parts[0])
	require.NoError(t, err)
	require.False(t, done)
}

func TestDiscardHeightDropsAllRounds(t *testing.T) {
	a := New()
	_, _, err := a.AddPart(&types.ProposalPart{Height: 2, Round: 0, PartIndex: 0, Bytes: []byte("a")})
	require.NoError(t, err)
	_, _, err = a.AddPart(&types.ProposalPart{Height: 2, Round: 1, PartIndex: 0, Bytes: []byte("b")})
	require.NoError(t, err)

	a.DiscardHeight(2)
	require.Empty(t, a.buffers)
}
