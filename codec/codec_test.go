package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emerald-consensus/emerald/types"
)

func samplePayload() *types.ExecutionPayload {
	p := &types.ExecutionPayload{
		Header: types.BlockHeader{
			Number:    42,
			GasLimit:  30_000_000,
			GasUsed:   21_000,
			Timestamp: 1_700_000_000,
			ExtraData: []byte("emerald"),
		},
		Body: types.BlockBody{
			Transactions: [][]byte{[]byte("tx1"), []byte("tx2")},
			Withdrawals: []types.Withdrawal{
				{Index: 1, ValidatorIndex: 2, AmountGwei: 32_000_000_000},
			},
		},
	}
	p.Header.ParentHash[0] = 0xAB
	p.Header.BlockHash[0] = 0xCD
	return p
}

func TestPayloadRoundTrip(t *testing.T) {
	p := samplePayload()
	encoded := EncodePayload(p)
	decoded, err := DecodePayload(encoded)
	require.NoError(t, err)
	require.Equal(t, p, decoded)
}

func TestPayloadHashIsDeterministic(t *testing.T) {
	p := samplePayload()
	h1 := HashPayload(p)
	h2 := HashPayload(p)
	require.Equal(t, h1, h2)
}

func TestPayloadHashChangesWithContent(t *testing.T) {
	p1 := samplePayload()
	p2 := samplePayload()
	p2.Header.GasUsed++
	require.NotEqual(t, HashPayload(p1), HashPayload(p2))
}

func TestProposalPartRoundTrip(t *testing.T) {
	part := &types.ProposalPart{
		Height:    10,
		Round:     1,
		PartIndex: 3,
		Bytes:     []byte("partial payload bytes"),
		IsLast:    true,
	}
	decoded, err := DecodeProposalPart(EncodeProposalPart(part))
	require.NoError(t, err)
	require.Equal(t, part, decoded)
}

func TestCertificateRoundTrip(t *testing.T) {
	cert := &types.CommitCertificate{
		Height: 7,
		Round:  2,
		Bytes:  []byte{0x01, 0x02, 0x03},
	}
	decoded, err := DecodeCertificate(EncodeCertificate(cert))
	require.NoError(t, err)
	require.Equal(t, cert, decoded)
}

func TestDecodePayloadRejectsTrailingBytes(t *testing.T) {
	p := samplePayload()
	encoded := append(EncodePayload(p), 0xFF)
	_, err := DecodePayload(encoded)
	require.Error(t, err)
}

func TestDecodeHeaderRejectsShortBuffer(t *testing.T) {
	_, _, err := DecodeHeader([]byte{0x01, 0x02})
	require.Error(t, err)
}
