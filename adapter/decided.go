package adapter

import (
	"context"
	"fmt"

	"github.com/emerald-consensus/emerald/codec"
	"github.com/emerald-consensus/emerald/consensusevents"
	"github.com/emerald-consensus/emerald/engineclient"
	"github.com/emerald-consensus/emerald/types"
)

// handleDecided implements §4.6's Decided row and the §4.6.1 newPayload
// retry loop: import the staged payload into the execution layer,
// advance canonical head, persist the commit in a single store batch,
// and run the independent body/certificate pruners.
func (a *Adapter) handleDecided(ctx context.Context, req *consensusevents.DecidedRequest) *consensusevents.DecidedReply {
	payload, err := a.store.LoadUndecided(req.Height, req.Round)
	if err != nil {
		wrapped := fmt.Errorf("load staged proposal at height %d round %d: %w", req.Height, req.Round, err)
		a.Fatal(wrapped)
		return &consensusevents.DecidedReply{Err: wrapped}
	}
	if payload == nil {
		err := fmt.Errorf("decided height %d round %d has no staged proposal: fatal, consensus and adapter state have diverged", req.Height, req.Round)
		a.Fatal(err)
		return &consensusevents.DecidedReply{Err: err}
	}

	blockHash := codec.HashPayload(payload)

	a.metrics.StartDecision(uint64(req.Height))

	statusAny, err := a.observeCall(ctx, "newPayload", func() (interface{}, error) {
		return a.engine.NewPayload(ctx, payload, nil, types.Hash{})
	})
	if err != nil {
		wrapped := fmt.Errorf("newPayload at height %d: %w", req.Height, err)
		a.Fatal(wrapped)
		return &consensusevents.DecidedReply{Err: wrapped}
	}
	status := statusAny.(engineclient.PayloadStatus)
	if status.Status != engineclient.StatusValid {
		err := fmt.Errorf("newPayload at height %d did not reach VALID: status %s: %s", req.Height, status.Status, status.ValidationError)
		a.Fatal(err)
		return &consensusevents.DecidedReply{Err: err}
	}

	if _, err := a.observeCall(ctx, "forkchoiceUpdated", func() (interface{}, error) {
		_, s, e := a.engine.ForkchoiceUpdated(ctx, engineclient.ForkchoiceState{Head: blockHash, Safe: blockHash, Finalized: blockHash}, nil)
		return s, e
	}); err != nil {
		wrapped := fmt.Errorf("forkchoiceUpdated at height %d: %w", req.Height, err)
		a.Fatal(wrapped)
		return &consensusevents.DecidedReply{Err: wrapped}
	}

	header := payload.Header
	header.BlockHash = blockHash
	if err := a.store.SaveDecided(&header, &payload.Body, req.Cert); err != nil {
		wrapped := fmt.Errorf("persist decided height %d: %w", req.Height, err)
		a.Fatal(wrapped)
		return &consensusevents.DecidedReply{Err: wrapped}
	}

	a.mu.Lock()
	a.committedHeight = req.Height
	a.committedRound = req.Round
	a.headHash = blockHash
	a.mu.Unlock()

	a.assembler.DiscardHeight(req.Height)
	a.runPruners(req.Height)

	a.metrics.SetHeight(uint64(req.Height))
	a.metrics.SetRound(uint64(req.Round))
	a.metrics.EndDecision(uint64(req.Height))

	return &consensusevents.DecidedReply{}
}

// runPruners removes bodies and certificates below their respective
// retention windows, independent of each other per §4.3.
func (a *Adapter) runPruners(committed types.Height) {
	if a.cfg.BodyPruneWindow > 0 && uint64(committed) > a.cfg.BodyPruneWindow {
		keepFrom := earliestRetained(committed, a.cfg.BodyPruneWindow)
		if err := a.store.PruneBodiesBelow(keepFrom); err != nil {
			a.log.Error("prune bodies failed", "err", err)
		} else {
			a.metrics.AddPrunedBodies(1)
		}
	}
	if a.cfg.CertificatePruneWindow > 0 && uint64(committed) > a.cfg.CertificatePruneWindow {
		keepFrom := earliestRetained(committed, a.cfg.CertificatePruneWindow)
		if err := a.store.PruneCertificatesBelow(keepFrom); err != nil {
			a.log.Error("prune certificates failed", "err", err)
		} else {
			a.metrics.AddPrunedCerts(1)
		}
	}
}

// Fatal logs a fatal condition and halts the adapter's event loop at
// its next suspension point. Matches §7's taxonomy: fatal conditions
// never call os.Exit from library code.
func (a *Adapter) Fatal(err error) {
	a.log.Error("fatal adapter condition", "err", err)
	a.shutdownOnce.Do(func() { close(a.shutdown) })
}
