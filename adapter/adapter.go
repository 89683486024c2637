// Package adapter implements the App Adapter: the event-driven state
// machine that owns current height/round, drives the Engine client,
// codec, store, registry, and assembler, and answers consensus-library
// events and Admin/status queries.
//
// Grounded on the teacher's EngineV2.run() single-consumer select loop
// (consensus/pbft/engine_v2.go) generalized from a peer-message/request
// channel pair to the single consensusevents.Event channel this package
// consumes, and on ABCIAdapter's thin-adapter-over-client shape
// (consensus/pbft/abci_adapter.go) generalized from an ABCI client to
// the Engine client.
package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emerald-consensus/emerald/assembler"
	"github.com/emerald-consensus/emerald/codec"
	"github.com/emerald-consensus/emerald/consensusevents"
	"github.com/emerald-consensus/emerald/engineclient"
	"github.com/emerald-consensus/emerald/metrics"
	"github.com/emerald-consensus/emerald/registry"
	"github.com/emerald-consensus/emerald/store"
	"github.com/emerald-consensus/emerald/types"
)

// Config holds the adapter's operating parameters, independent of how
// they were loaded (see package config for the on-disk representation).
type Config struct {
	ChainID                string
	FeeRecipient           types.Address
	CertificatePruneWindow uint64
	BodyPruneWindow        uint64
}

// Adapter is the App Adapter: single-consumer event loop over
// consensusevents.Event, serializing all access to height/round/head
// state and the undecided-proposal slots.
type Adapter struct {
	cfg Config

	engine    *engineclient.Client
	store     store.Store
	assembler *assembler.Assembler
	registry  *registry.Reader
	metrics   *metrics.Metrics
	log       *slog.Logger

	events chan *consensusevents.Event

	mu              sync.Mutex
	committedHeight types.Height
	committedRound  types.Round
	headHash        types.Hash

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New builds an Adapter ready to Run.
func New(cfg Config, engine *engineclient.Client, st store.Store, asm *assembler.Assembler, reg *registry.Reader, m *metrics.Metrics, log *slog.Logger) *Adapter {
	return &Adapter{
		cfg:       cfg,
		engine:    engine,
		store:     st,
		assembler: asm,
		registry:  reg,
		metrics:   m,
		log:       log.With("component", "adapter"),
		events:    make(chan *consensusevents.Event, 1),
		shutdown:  make(chan struct{}),
	}
}

// Submit hands one event to the adapter, blocking until the loop's
// single in-flight slot is free. This is the adapter's only externally
// visible entry point for the consensus library's event stream.
func (a *Adapter) Submit(ctx context.Context, ev *consensusevents.Event) error {
	select {
	case a.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes events until ctx is cancelled, processing exactly one
// event (and its reply) at a time before receiving the next.
func (a *Adapter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.log.Info("adapter stopping", "reason", ctx.Err())
			return
		case <-a.shutdown:
			a.log.Info("adapter stopping after fatal condition")
			return
		case ev := <-a.events:
			a.dispatch(ctx, ev)
		}
	}
}

func (a *Adapter) dispatch(ctx context.Context, ev *consensusevents.Event) {
	var reply consensusevents.Reply
	switch ev.Kind {
	case consensusevents.ConsensusReady:
		reply.ConsensusReadyReply = a.handleConsensusReady(ctx)
	case consensusevents.GetValue:
		reply.GetValueReply = a.handleGetValue(ctx, ev.GetValueRequest)
	case consensusevents.ReceivedProposalPart:
		reply.ReceivedProposalPartReply = a.handleReceivedProposalPart(ev.ReceivedProposalPartRequest)
	case consensusevents.GetValidatorSet:
		reply.GetValidatorSetReply = a.handleGetValidatorSet(ctx, ev.GetValidatorSetRequest)
	case consensusevents.Decided:
		reply.DecidedReply = a.handleDecided(ctx, ev.DecidedRequest)
	case consensusevents.GetDecidedValue:
		reply.GetDecidedValueReply = a.handleGetDecidedValue(ctx, ev.GetDecidedValueRequest)
	case consensusevents.ProcessSyncedValue:
		reply.ProcessSyncedReply = a.handleProcessSyncedValue(ev.ProcessSyncedRequest)
	default:
		a.log.Error("unknown event kind", "kind", ev.Kind)
	}

	if ev.Reply != nil {
		ev.Reply <- reply
	}
}

func (a *Adapter) handleConsensusReady(ctx context.Context) *consensusevents.ConsensusReadyReply {
	ref, err := a.engine.GetBlockByNumber(ctx, "latest")
	if err != nil {
		return &consensusevents.ConsensusReadyReply{Err: fmt.Errorf("anchor to EL head: %w", err)}
	}

	a.mu.Lock()
	a.committedHeight = types.Height(ref.Number)
	a.headHash = ref.Hash
	a.mu.Unlock()

	a.metrics.SetHeight(uint64(ref.Number))

	vs, err := a.registry.ValidatorSet(ctx, 0)
	if err != nil {
		return &consensusevents.ConsensusReadyReply{Err: fmt.Errorf("read starting validator set: %w", err)}
	}

	a.log.Info("anchored to execution layer head", "height", ref.Number)
	return &consensusevents.ConsensusReadyReply{
		StartHeight:  types.Height(ref.Number) + 1,
		ValidatorSet: vs,
	}
}

// handleGetValue builds a new proposal value following §4.6: request
// payload construction via forkchoiceUpdated with attributes, fetch it,
// stage it under (height, round), and reply. A deadline miss is not an
// error: a nil value is itself a valid proposal signal to the
// consensus library.
func (a *Adapter) handleGetValue(ctx context.Context, req *consensusevents.GetValueRequest) *consensusevents.GetValueReply {
	if !req.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
		defer cancel()
	}

	a.mu.Lock()
	head := a.headHash
	a.mu.Unlock()

	attrs := &engineclient.PayloadAttributes{
		Timestamp:             uint64(time.Now().Unix()),
		SuggestedFeeRecipient: a.cfg.FeeRecipient,
	}

	fcuResult, err := a.observeCall(ctx, "forkchoiceUpdated", func() (interface{}, error) {
		id, status, err := a.engine.ForkchoiceUpdated(ctx, engineclient.ForkchoiceState{Head: head, Safe: head, Finalized: head}, attrs)
		return idStatus{id, status}, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return &consensusevents.GetValueReply{}
		}
		return &consensusevents.GetValueReply{Err: fmt.Errorf("forkchoiceUpdated for proposal: %w", err)}
	}
	pid := fcuResult.(idStatus).id

	payloadAny, err := a.observeCall(ctx, "getPayload", func() (interface{}, error) {
		return a.engine.GetPayload(ctx, pid)
	})
	if err != nil {
		if ctx.Err() != nil {
			return &consensusevents.GetValueReply{}
		}
		return &consensusevents.GetValueReply{Err: fmt.Errorf("getPayload for proposal: %w", err)}
	}
	payload := payloadAny.(*types.ExecutionPayload)

	if err := a.store.SaveUndecided(req.Height, req.Round, payload); err != nil {
		return &consensusevents.GetValueReply{Err: fmt.Errorf("stage proposal at height %d round %d: %w", req.Height, req.Round, err)}
	}

	return &consensusevents.GetValueReply{Payload: payload}
}

func (a *Adapter) handleReceivedProposalPart(req *consensusevents.ReceivedProposalPartRequest) *consensusevents.ReceivedProposalPartReply {
	payload, done, err := a.assembler.AddPart(req.Part)
	if err != nil {
		return &consensusevents.ReceivedProposalPartReply{Valid: false, Err: err}
	}
	if !done {
		a.metrics.SetBufferedParts(1)
		return &consensusevents.ReceivedProposalPartReply{Valid: true}
	}

	if err := a.store.SaveUndecided(req.Part.Height, req.Part.Round, payload); err != nil {
		return &consensusevents.ReceivedProposalPartReply{Valid: false, Err: fmt.Errorf("stage assembled proposal at height %d round %d: %w", req.Part.Height, req.Part.Round, err)}
	}

	return &consensusevents.ReceivedProposalPartReply{Valid: true, Done: true, Payload: payload}
}

func (a *Adapter) handleGetValidatorSet(ctx context.Context, req *consensusevents.GetValidatorSetRequest) *consensusevents.GetValidatorSetReply {
	vs, err := a.registry.ValidatorSet(ctx, req.Height)
	if err != nil {
		return &consensusevents.GetValidatorSetReply{Err: fmt.Errorf("read validator set at height %d: %w", req.Height, err)}
	}
	return &consensusevents.GetValidatorSetReply{ValidatorSet: vs}
}

func (a *Adapter) handleProcessSyncedValue(req *consensusevents.ProcessSyncedValueRequest) *consensusevents.ProcessSyncedValueReply {
	payload, err := codec.DecodePayload(req.ValueBytes)
	if err != nil {
		return &consensusevents.ProcessSyncedValueReply{Err: fmt.Errorf("decode synced value: %w", err)}
	}

	if err := a.store.SaveUndecided(req.Height, req.Round, payload); err != nil {
		return &consensusevents.ProcessSyncedValueReply{Err: fmt.Errorf("stage synced value at height %d round %d: %w", req.Height, req.Round, err)}
	}

	return &consensusevents.ProcessSyncedValueReply{Payload: payload}
}

func heightFromUint64(h uint64) types.Height { return types.Height(h) }

type idStatus struct {
	id     []byte
	status engineclient.PayloadStatus
}

// observeCall runs fn, recording its duration and error against the
// named Engine/EL call for metrics.
func (a *Adapter) observeCall(ctx context.Context, name string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	result, err := fn()
	a.metrics.ObserveEngineCall(name, time.Since(start), err)
	return result, err
}
