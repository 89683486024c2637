package engineclient

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/emerald-consensus/emerald/types"
)

// ForkchoiceState is the CL's view of head/safe/finalized for the EL.
type ForkchoiceState struct {
	Head      types.Hash
	Safe      types.Hash
	Finalized types.Hash
}

// PayloadAttributes requests the EL to begin building a new payload on
// top of the forkchoice head.
type PayloadAttributes struct {
	Timestamp             uint64
	PrevRandao             types.Hash
	SuggestedFeeRecipient types.Address
	Withdrawals           []types.Withdrawal
	ParentBeaconBlockRoot types.Hash
}

// PayloadStatus is the validation outcome the EL reports for a payload.
type PayloadStatus struct {
	Status          string
	LatestValidHash *types.Hash
	ValidationError string
}

// ForkchoiceUpdated drives engine_forkchoiceUpdatedV3, optionally
// requesting payload building via attributes. It returns the payload id
// to retrieve with GetPayload when attributes is non-nil.
func (c *Client) ForkchoiceUpdated(ctx context.Context, state ForkchoiceState, attrs *PayloadAttributes) (payloadID []byte, status PayloadStatus, err error) {
	wireState := wireForkchoiceState{
		HeadBlockHash:      state.Head[:],
		SafeBlockHash:      state.Safe[:],
		FinalizedBlockHash: state.Finalized[:],
	}

	params := []interface{}{wireState}
	if attrs != nil {
		wa := wirePayloadAttributes{
			Timestamp:             quantity(attrs.Timestamp),
			PrevRandao:            attrs.PrevRandao[:],
			SuggestedFeeRecipient: attrs.SuggestedFeeRecipient[:],
			ParentBeaconBlockRoot: attrs.ParentBeaconBlockRoot[:],
		}
		for _, wd := range attrs.Withdrawals {
			wa.Withdrawals = append(wa.Withdrawals, wireWithdrawal{
				Index:          quantity(wd.Index),
				ValidatorIndex: quantity(wd.ValidatorIndex),
				Address:        wd.Address[:],
				Amount:         quantity(wd.AmountGwei),
			})
		}
		params = append(params, wa)
	}

	var resp wireForkchoiceUpdatedResponse
	if err = c.engineCall(ctx, &resp, methodForkchoiceUpdatedV3, params...); err != nil {
		return nil, PayloadStatus{}, fmt.Errorf("forkchoiceUpdated: %w", err)
	}
	if resp.PayloadID != nil {
		payloadID = *resp.PayloadID
	}
	status = toPayloadStatus(resp.PayloadStatus)
	return payloadID, status, nil
}

// GetPayload retrieves a payload previously requested via
// ForkchoiceUpdated, identified by payloadID.
func (c *Client) GetPayload(ctx context.Context, payloadID []byte) (*types.ExecutionPayload, error) {
	var w wirePayload
	if err := c.engineCall(ctx, &w, methodGetPayloadV3, hexBytes(payloadID)); err != nil {
		return nil, fmt.Errorf("getPayload: %w", err)
	}
	return fromWirePayload(&w)
}

// NewPayload submits a payload for validation via engine_newPayloadV3.
// Per the Engine-API contract a SYNCING response means the EL cannot
// validate yet; this method retries with exponential backoff while the
// EL responds SYNCING or ACCEPTED, until it responds with any other
// status or the retry budget is exhausted. A transport or RPC error is
// returned at once, without retry.
func (c *Client) NewPayload(ctx context.Context, payload *types.ExecutionPayload, versionedHashes []types.Hash, parentBeaconBlockRoot types.Hash) (PayloadStatus, error) {
	w := toWirePayload(payload)

	var vHashes []hexBytes
	for _, h := range versionedHashes {
		vHashes = append(vHashes, hexBytes(h[:]))
	}

	var status PayloadStatus
	op := func() error {
		var wireStatus wirePayloadStatus
		if err := c.engineCall(ctx, &wireStatus, methodNewPayloadV3, w, vHashes, hexBytes(parentBeaconBlockRoot[:])); err != nil {
			return backoff.Permanent(fmt.Errorf("newPayload: %w", err))
		}
		status = toPayloadStatus(wireStatus)
		if status.Status == StatusSyncing || status.Status == StatusAccepted {
			return fmt.Errorf("newPayload: execution layer syncing")
		}
		return nil
	}

	if err := backoff.Retry(op, c.retry.newBackOff()); err != nil {
		if status.Status == StatusSyncing || status.Status == StatusAccepted {
			return status, fmt.Errorf("newPayload: execution layer did not leave SYNCING within retry budget: %w", err)
		}
		return PayloadStatus{}, err
	}
	return status, nil
}

func toPayloadStatus(w wirePayloadStatus) PayloadStatus {
	status := PayloadStatus{Status: w.Status}
	if len(w.LatestValidHash) == 32 {
		var h types.Hash
		copy(h[:], w.LatestValidHash)
		status.LatestValidHash = &h
	}
	if w.ValidationError != nil {
		status.ValidationError = *w.ValidationError
	}
	return status
}

// BlockRef is the minimal identity of an EL block returned by
// eth_getBlockByNumber, used by the sync-readiness guard.
type BlockRef struct {
	Number uint64
	Hash   types.Hash
}

// GetBlockByNumber retrieves a block's identity. tag may be a height
// encoded as a hex quantity string, or "latest".
func (c *Client) GetBlockByNumber(ctx context.Context, tag string) (*BlockRef, error) {
	var w wireBlockHeader
	if err := c.Call(ctx, &w, methodGetBlockByNumber, tag, false); err != nil {
		return nil, fmt.Errorf("getBlockByNumber: %w", err)
	}
	ref := &BlockRef{Number: uint64(w.Number)}
	copy(ref.Hash[:], w.Hash)
	return ref, nil
}

// AwaitReady waits initialDelay, then polls GetBlockByNumber("latest")
// every 500ms until the EL reports a head with a non-zero hash or timeout
// elapses. Only the hash is checked; head stability and the EL's own
// syncing status are not.
func (c *Client) AwaitReady(ctx context.Context, initialDelay, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	time.Sleep(initialDelay)
	for {
		ref, err := c.GetBlockByNumber(ctx, "latest")
		if err == nil && !ref.Hash.IsZero() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("execution layer did not become ready within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// GetPayloadBodiesByRange fetches transaction/withdrawal bodies for a
// contiguous height range, used to serve catch-up requests.
func (c *Client) GetPayloadBodiesByRange(ctx context.Context, start, count uint64) ([]*types.BlockBody, error) {
	var result []*wirePayloadBody
	if err := c.engineCall(ctx, &result, methodGetPayloadBodiesByRangeV1, quantity(start), quantity(count)); err != nil {
		return nil, fmt.Errorf("getPayloadBodiesByRange: %w", err)
	}
	bodies := make([]*types.BlockBody, len(result))
	for i, w := range result {
		if w == nil {
			continue
		}
		body := &types.BlockBody{}
		for _, tx := range w.Transactions {
			body.Transactions = append(body.Transactions, []byte(tx))
		}
		for _, wd := range w.Withdrawals {
			var wdOut types.Withdrawal
			wdOut.Index = uint64(wd.Index)
			wdOut.ValidatorIndex = uint64(wd.ValidatorIndex)
			copy(wdOut.Address[:], wd.Address)
			wdOut.AmountGwei = uint64(wd.Amount)
			body.Withdrawals = append(body.Withdrawals, wdOut)
		}
		bodies[i] = body
	}
	return bodies, nil
}
