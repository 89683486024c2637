// Package codec implements the canonical binary encoding for execution
// payloads and proposal parts, and the keccak256 hash derived from it.
//
// There is no SSZ or generic binary-codec library in the dependency
// surface available to this module, so encoding is hand-written here,
// the same way the upstream Engine-API client libraries hand-write
// their own per-type (de)serialization rather than reaching for a
// generated or reflective codec.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/emerald-consensus/emerald/crypto"
	"github.com/emerald-consensus/emerald/types"
)

func putUint64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

func putUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func putBytes(dst []byte, b []byte) []byte {
	dst = putUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

func takeUint64(src []byte) (uint64, []byte, error) {
	if len(src) < 8 {
		return 0, nil, fmt.Errorf("codec: short buffer reading uint64")
	}
	return binary.BigEndian.Uint64(src[:8]), src[8:], nil
}

func takeUint32(src []byte) (uint32, []byte, error) {
	if len(src) < 4 {
		return 0, nil, fmt.Errorf("codec: short buffer reading uint32")
	}
	return binary.BigEndian.Uint32(src[:4]), src[4:], nil
}

func takeBytes(src []byte) ([]byte, []byte, error) {
	n, rest, err := takeUint32(src)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, fmt.Errorf("codec: short buffer reading %d bytes", n)
	}
	if n == 0 {
		return nil, rest, nil
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, rest[n:], nil
}

func takeFixed(src []byte, n int) ([]byte, []byte, error) {
	if len(src) < n {
		return nil, nil, fmt.Errorf("codec: short buffer reading %d fixed bytes", n)
	}
	out := make([]byte, n)
	copy(out, src[:n])
	return out, src[n:], nil
}

// EncodeHeader encodes a BlockHeader to canonical bytes.
func EncodeHeader(h *types.BlockHeader) []byte {
	dst := make([]byte, 0, 256)
	dst = append(dst, h.ParentHash[:]...)
	dst = append(dst, h.StateRoot[:]...)
	dst = append(dst, h.ReceiptsRoot[:]...)
	dst = append(dst, h.LogsBloom[:]...)
	dst = putUint64(dst, h.Number)
	dst = putUint64(dst, h.GasLimit)
	dst = putUint64(dst, h.GasUsed)
	dst = putUint64(dst, h.Timestamp)
	dst = putBytes(dst, h.ExtraData)
	dst = append(dst, h.BaseFeePerGas[:]...)
	dst = append(dst, h.BlockHash[:]...)
	dst = putUint64(dst, h.BlobGasUsed)
	dst = putUint64(dst, h.ExcessBlobGas)
	dst = append(dst, h.PrevRandao[:]...)
	dst = append(dst, h.FeeRecipient[:]...)
	return dst
}

// DecodeHeader decodes a BlockHeader from src, returning the unconsumed
// remainder.
func DecodeHeader(src []byte) (*types.BlockHeader, []byte, error) {
	h := &types.BlockHeader{}
	var err error
	var b []byte

	if b, src, err = takeFixed(src, 32); err != nil {
		return nil, nil, err
	}
	copy(h.ParentHash[:], b)
	if b, src, err = takeFixed(src, 32); err != nil {
		return nil, nil, err
	}
	copy(h.StateRoot[:], b)
	if b, src, err = takeFixed(src, 32); err != nil {
		return nil, nil, err
	}
	copy(h.ReceiptsRoot[:], b)
	if b, src, err = takeFixed(src, 256); err != nil {
		return nil, nil, err
	}
	copy(h.LogsBloom[:], b)
	if h.Number, src, err = takeUint64(src); err != nil {
		return nil, nil, err
	}
	if h.GasLimit, src, err = takeUint64(src); err != nil {
		return nil, nil, err
	}
	if h.GasUsed, src, err = takeUint64(src); err != nil {
		return nil, nil, err
	}
	if h.Timestamp, src, err = takeUint64(src); err != nil {
		return nil, nil, err
	}
	if h.ExtraData, src, err = takeBytes(src); err != nil {
		return nil, nil, err
	}
	if b, src, err = takeFixed(src, 32); err != nil {
		return nil, nil, err
	}
	copy(h.BaseFeePerGas[:], b)
	if b, src, err = takeFixed(src, 32); err != nil {
		return nil, nil, err
	}
	copy(h.BlockHash[:], b)
	if h.BlobGasUsed, src, err = takeUint64(src); err != nil {
		return nil, nil, err
	}
	if h.ExcessBlobGas, src, err = takeUint64(src); err != nil {
		return nil, nil, err
	}
	if b, src, err = takeFixed(src, 32); err != nil {
		return nil, nil, err
	}
	copy(h.PrevRandao[:], b)
	if b, src, err = takeFixed(src, 20); err != nil {
		return nil, nil, err
	}
	copy(h.FeeRecipient[:], b)

	return h, src, nil
}

// EncodeBody encodes a BlockBody to canonical bytes.
func EncodeBody(b *types.BlockBody) []byte {
	dst := make([]byte, 0, 256)
	dst = putUint32(dst, uint32(len(b.Transactions)))
	for _, tx := range b.Transactions {
		dst = putBytes(dst, tx)
	}
	dst = putUint32(dst, uint32(len(b.Withdrawals)))
	for _, w := range b.Withdrawals {
		dst = putUint64(dst, w.Index)
		dst = putUint64(dst, w.ValidatorIndex)
		dst = append(dst, w.Address[:]...)
		dst = putUint64(dst, w.AmountGwei)
	}
	return dst
}

// DecodeBody decodes a BlockBody from src, returning the unconsumed
// remainder.
func DecodeBody(src []byte) (*types.BlockBody, []byte, error) {
	body := &types.BlockBody{}

	txCount, src, err := takeUint32(src)
	if err != nil {
		return nil, nil, err
	}
	if txCount > 0 {
		body.Transactions = make([][]byte, 0, txCount)
	}
	for i := uint32(0); i < txCount; i++ {
		var tx []byte
		if tx, src, err = takeBytes(src); err != nil {
			return nil, nil, err
		}
		body.Transactions = append(body.Transactions, tx)
	}

	wCount, src, err := takeUint32(src)
	if err != nil {
		return nil, nil, err
	}
	if wCount > 0 {
		body.Withdrawals = make([]types.Withdrawal, 0, wCount)
	}
	for i := uint32(0); i < wCount; i++ {
		var w types.Withdrawal
		if w.Index, src, err = takeUint64(src); err != nil {
			return nil, nil, err
		}
		if w.ValidatorIndex, src, err = takeUint64(src); err != nil {
			return nil, nil, err
		}
		var addr []byte
		if addr, src, err = takeFixed(src, 20); err != nil {
			return nil, nil, err
		}
		copy(w.Address[:], addr)
		if w.AmountGwei, src, err = takeUint64(src); err != nil {
			return nil, nil, err
		}
		body.Withdrawals = append(body.Withdrawals, w)
	}

	return body, src, nil
}

// EncodePayload encodes an ExecutionPayload (header + body).
func EncodePayload(p *types.ExecutionPayload) []byte {
	dst := EncodeHeader(&p.Header)
	dst = append(dst, EncodeBody(&p.Body)...)
	return dst
}

// DecodePayload decodes an ExecutionPayload from src.
func DecodePayload(src []byte) (*types.ExecutionPayload, error) {
	header, rest, err := DecodeHeader(src)
	if err != nil {
		return nil, fmt.Errorf("decode payload header: %w", err)
	}
	body, rest, err := DecodeBody(rest)
	if err != nil {
		return nil, fmt.Errorf("decode payload body: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode payload: %d trailing bytes", len(rest))
	}
	return &types.ExecutionPayload{Header: *header, Body: *body}, nil
}

// HashPayload returns the keccak256 hash of a payload's canonical
// encoding, the identity the adapter uses as the block hash in
// forkchoiceUpdated and in the store.
func HashPayload(p *types.ExecutionPayload) types.Hash {
	sum := crypto.Keccak256(EncodePayload(p))
	var h types.Hash
	copy(h[:], sum)
	return h
}

// EncodeProposalPart encodes a ProposalPart to canonical bytes.
func EncodeProposalPart(p *types.ProposalPart) []byte {
	dst := make([]byte, 0, 64+len(p.Bytes))
	dst = putUint64(dst, uint64(p.Height))
	dst = putUint64(dst, uint64(p.Round))
	dst = putUint32(dst, p.PartIndex)
	dst = putBytes(dst, p.Bytes)
	if p.IsLast {
		dst = append(dst, 1)
	} else {
		dst = append(dst, 0)
	}
	return dst
}

// DecodeProposalPart decodes a ProposalPart from src.
func DecodeProposalPart(src []byte) (*types.ProposalPart, error) {
	p := &types.ProposalPart{}
	var h, r uint64
	var err error

	if h, src, err = takeUint64(src); err != nil {
		return nil, err
	}
	p.Height = types.Height(h)
	if r, src, err = takeUint64(src); err != nil {
		return nil, err
	}
	p.Round = types.Round(r)
	if p.PartIndex, src, err = takeUint32(src); err != nil {
		return nil, err
	}
	if p.Bytes, src, err = takeBytes(src); err != nil {
		return nil, err
	}
	if len(src) != 1 {
		return nil, fmt.Errorf("codec: malformed proposal part trailer")
	}
	p.IsLast = src[0] == 1
	return p, nil
}

// EncodeCertificate encodes a CommitCertificate. Its Bytes field is
// opaque to this codec and passed through unmodified.
func EncodeCertificate(c *types.CommitCertificate) []byte {
	dst := make([]byte, 0, 32+len(c.Bytes))
	dst = putUint64(dst, uint64(c.Height))
	dst = putUint64(dst, uint64(c.Round))
	dst = putBytes(dst, c.Bytes)
	return dst
}

// DecodeCertificate decodes a CommitCertificate from src.
func DecodeCertificate(src []byte) (*types.CommitCertificate, error) {
	c := &types.CommitCertificate{}
	var h, r uint64
	var err error

	if h, src, err = takeUint64(src); err != nil {
		return nil, err
	}
	c.Height = types.Height(h)
	if r, src, err = takeUint64(src); err != nil {
		return nil, err
	}
	c.Round = types.Round(r)
	if c.Bytes, src, err = takeBytes(src); err != nil {
		return nil, err
	}
	if len(src) != 0 {
		return nil, fmt.Errorf("codec: %d trailing bytes after certificate", len(src))
	}
	return c, nil
}
