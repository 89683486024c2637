package engineclient

import (
	"bytes"
	"fmt"

	"github.com/emerald-consensus/emerald/types"
)

func toWirePayload(p *types.ExecutionPayload) wirePayload {
	w := wirePayload{
		ParentHash:    p.Header.ParentHash[:],
		FeeRecipient:  p.Header.FeeRecipient[:],
		StateRoot:     p.Header.StateRoot[:],
		ReceiptsRoot:  p.Header.ReceiptsRoot[:],
		LogsBloom:     p.Header.LogsBloom[:],
		PrevRandao:    p.Header.PrevRandao[:],
		BlockNumber:   quantity(p.Header.Number),
		GasLimit:      quantity(p.Header.GasLimit),
		GasUsed:       quantity(p.Header.GasUsed),
		Timestamp:     quantity(p.Header.Timestamp),
		ExtraData:     p.Header.ExtraData,
		BaseFeePerGas: p.Header.BaseFeePerGas[:],
		BlockHash:     p.Header.BlockHash[:],
		BlobGasUsed:   quantity(p.Header.BlobGasUsed),
		ExcessBlobGas: quantity(p.Header.ExcessBlobGas),
	}
	for _, tx := range p.Body.Transactions {
		w.Transactions = append(w.Transactions, hexBytes(tx))
	}
	for _, wd := range p.Body.Withdrawals {
		w.Withdrawals = append(w.Withdrawals, wireWithdrawal{
			Index:          quantity(wd.Index),
			ValidatorIndex: quantity(wd.ValidatorIndex),
			Address:        wd.Address[:],
			Amount:         quantity(wd.AmountGwei),
		})
	}
	return w
}

func fromWirePayload(w *wirePayload) (*types.ExecutionPayload, error) {
	p := &types.ExecutionPayload{}
	if err := copyFixed(p.Header.ParentHash[:], w.ParentHash); err != nil {
		return nil, fmt.Errorf("parentHash: %w", err)
	}
	if err := copyFixed(p.Header.FeeRecipient[:], w.FeeRecipient); err != nil {
		return nil, fmt.Errorf("feeRecipient: %w", err)
	}
	if err := copyFixed(p.Header.StateRoot[:], w.StateRoot); err != nil {
		return nil, fmt.Errorf("stateRoot: %w", err)
	}
	if err := copyFixed(p.Header.ReceiptsRoot[:], w.ReceiptsRoot); err != nil {
		return nil, fmt.Errorf("receiptsRoot: %w", err)
	}
	if err := copyFixed(p.Header.LogsBloom[:], w.LogsBloom); err != nil {
		return nil, fmt.Errorf("logsBloom: %w", err)
	}
	if err := copyFixed(p.Header.PrevRandao[:], w.PrevRandao); err != nil {
		return nil, fmt.Errorf("prevRandao: %w", err)
	}
	baseFee := make([]byte, 32)
	copy(baseFee[32-len(w.BaseFeePerGas):], w.BaseFeePerGas)
	copy(p.Header.BaseFeePerGas[:], baseFee)
	if err := copyFixed(p.Header.BlockHash[:], w.BlockHash); err != nil {
		return nil, fmt.Errorf("blockHash: %w", err)
	}

	p.Header.Number = uint64(w.BlockNumber)
	p.Header.GasLimit = uint64(w.GasLimit)
	p.Header.GasUsed = uint64(w.GasUsed)
	p.Header.Timestamp = uint64(w.Timestamp)
	p.Header.ExtraData = w.ExtraData
	p.Header.BlobGasUsed = uint64(w.BlobGasUsed)
	p.Header.ExcessBlobGas = uint64(w.ExcessBlobGas)

	for _, tx := range w.Transactions {
		p.Body.Transactions = append(p.Body.Transactions, []byte(tx))
	}
	for _, wd := range w.Withdrawals {
		var wdOut types.Withdrawal
		wdOut.Index = uint64(wd.Index)
		wdOut.ValidatorIndex = uint64(wd.ValidatorIndex)
		if err := copyFixed(wdOut.Address[:], wd.Address); err != nil {
			return nil, fmt.Errorf("withdrawal address: %w", err)
		}
		wdOut.AmountGwei = uint64(wd.Amount)
		p.Body.Withdrawals = append(p.Body.Withdrawals, wdOut)
	}

	return p, nil
}

func copyFixed(dst []byte, src hexBytes) error {
	if len(src) == 0 {
		return nil
	}
	if len(src) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

func hashesEqual(a hexBytes, b types.Hash) bool {
	return bytes.Equal(a, b[:])
}
