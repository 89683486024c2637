package adapter

import (
	"context"
	"fmt"

	"github.com/emerald-consensus/emerald/codec"
	"github.com/emerald-consensus/emerald/consensusevents"
	"github.com/emerald-consensus/emerald/types"
)

// handleGetDecidedValue implements §4.6.2: serve a previously decided
// value for peer catch-up, falling back to the execution layer's own
// payload-bodies range once the local body has been pruned but the
// header and certificate are still retained.
func (a *Adapter) handleGetDecidedValue(ctx context.Context, req *consensusevents.GetDecidedValueRequest) *consensusevents.GetDecidedValueReply {
	a.mu.Lock()
	committed := a.committedHeight
	a.mu.Unlock()

	earliestCert := earliestRetained(committed, a.cfg.CertificatePruneWindow)
	if req.Height < earliestCert || req.Height > committed {
		return &consensusevents.GetDecidedValueReply{Found: false}
	}

	header, err := a.store.LoadHeader(req.Height)
	if err != nil || header == nil {
		return &consensusevents.GetDecidedValueReply{Found: false, Err: err}
	}
	cert, err := a.store.LoadCertificate(req.Height)
	if err != nil || cert == nil {
		return &consensusevents.GetDecidedValueReply{Found: false, Err: err}
	}

	earliestBody := earliestRetained(committed, a.cfg.BodyPruneWindow)
	if req.Height >= earliestBody {
		body, err := a.store.LoadBody(req.Height)
		if err != nil {
			return &consensusevents.GetDecidedValueReply{Found: false, Err: err}
		}
		if body == nil {
			return &consensusevents.GetDecidedValueReply{Found: false}
		}
		return a.replyDecidedValue(req.Height, header, body, cert)
	}

	bodies, err := a.engine.GetPayloadBodiesByRange(ctx, uint64(req.Height), 1)
	if err != nil || len(bodies) == 0 || bodies[0] == nil {
		return &consensusevents.GetDecidedValueReply{Found: false, Err: err}
	}
	return a.replyDecidedValue(req.Height, header, bodies[0], cert)
}

func (a *Adapter) replyDecidedValue(height types.Height, header *types.BlockHeader, body *types.BlockBody, cert *types.CommitCertificate) *consensusevents.GetDecidedValueReply {
	payload := &types.ExecutionPayload{Header: *header, Body: *body}
	valueBytes := codec.EncodePayload(payload)
	return &consensusevents.GetDecidedValueReply{
		Found: true,
		Value: &types.DecidedValue{
			Height:    height,
			Header:    *header,
			Body:      *body,
			BlockHash: header.BlockHash,
		},
		Cert: cert,
		Err:  decodeRoundTripCheck(valueBytes),
	}
}

// decodeRoundTripCheck re-decodes the just-encoded value as a cheap
// sanity check before it leaves the process; a failure here means the
// store holds a header/body pair the codec itself cannot re-parse.
func decodeRoundTripCheck(valueBytes []byte) error {
	if _, err := codec.DecodePayload(valueBytes); err != nil {
		return fmt.Errorf("re-encoded decided value failed round-trip: %w", err)
	}
	return nil
}

// earliestRetained returns the lowest height still within a window of
// size window below committed. A window of 0 means unbounded
// retention (everything from height 1 is still retained).
func earliestRetained(committed types.Height, window uint64) types.Height {
	if window == 0 || uint64(committed) <= window {
		return 1
	}
	return types.Height(uint64(committed) - window + 1)
}
