// Package consensusevents defines the channel-event contract the
// (external, out-of-scope) BFT consensus library drives the App
// Adapter with: one event at a time, each carrying a reply channel the
// adapter answers before the library sends the next event.
//
// Grounded on the teacher's consensus/pbft Message/MessageType shape
// (consensus/pbft/messages.go), generalized from a peer-wire message
// type to an in-process event-with-reply-handle type, and on
// EngineV2.run()'s single-consumer select loop (consensus/pbft/engine_v2.go),
// which this package's Kind enum and reply-channel pattern are built to
// be driven by.
package consensusevents

import (
	"time"

	"github.com/emerald-consensus/emerald/types"
)

// Kind identifies the shape of an Event's payload and reply.
type Kind int

const (
	// ConsensusReady fires once at startup, before the library begins
	// driving heights, so the adapter can anchor to the EL's head and
	// report the starting height and validator set.
	ConsensusReady Kind = iota
	// GetValue asks the adapter to build and return a new value to
	// propose for (Height, Round).
	GetValue
	// ReceivedProposalPart delivers one streamed proposal part.
	ReceivedProposalPart
	// GetValidatorSet asks for the validator set effective at Height.
	GetValidatorSet
	// Decided reports that (Height, Round) committed with cert.
	Decided
	// GetDecidedValue asks the adapter to serve a previously decided
	// value, for peer catch-up.
	GetDecidedValue
	// ProcessSyncedValue delivers a value obtained out-of-band (e.g.
	// from a peer during catch-up) for the adapter to validate/persist.
	ProcessSyncedValue
)

func (k Kind) String() string {
	switch k {
	case ConsensusReady:
		return "CONSENSUS_READY"
	case GetValue:
		return "GET_VALUE"
	case ReceivedProposalPart:
		return "RECEIVED_PROPOSAL_PART"
	case GetValidatorSet:
		return "GET_VALIDATOR_SET"
	case Decided:
		return "DECIDED"
	case GetDecidedValue:
		return "GET_DECIDED_VALUE"
	case ProcessSyncedValue:
		return "PROCESS_SYNCED_VALUE"
	default:
		return "UNKNOWN"
	}
}

// GetValueRequest is the payload of a GetValue event. Deadline bounds
// how long the adapter may spend building a value; on expiry the
// adapter aborts pending Engine calls and replies with a nil Payload,
// which is itself a valid BFT signal rather than an error.
type GetValueRequest struct {
	Height   types.Height
	Round    types.Round
	Deadline time.Time
}

// GetValueReply answers a GetValue event. A nil Payload with a nil Err
// means the deadline expired before a value was ready.
type GetValueReply struct {
	Payload *types.ExecutionPayload
	Err     error
}

// DecidedRequest is the payload of a Decided event.
type DecidedRequest struct {
	Height types.Height
	Round  types.Round
	Cert   *types.CommitCertificate
}

// DecidedReply answers a Decided event, acknowledging persistence.
type DecidedReply struct {
	Err error
}

// GetValidatorSetRequest is the payload of a GetValidatorSet event.
type GetValidatorSetRequest struct {
	Height types.Height
}

// GetValidatorSetReply answers a GetValidatorSet event.
type GetValidatorSetReply struct {
	ValidatorSet *types.ValidatorSet
	Err          error
}

// GetDecidedValueRequest is the payload of a GetDecidedValue event.
type GetDecidedValueRequest struct {
	Height types.Height
}

// GetDecidedValueReply answers a GetDecidedValue event. Found is false
// when the adapter has no record of Height (pruned or never decided).
type GetDecidedValueReply struct {
	Value *types.DecidedValue
	Cert  *types.CommitCertificate
	Found bool
	Err   error
}

// ProcessSyncedValueRequest is the payload of a ProcessSyncedValue
// event: an encoded value obtained out-of-band from Proposer during
// catch-up. The adapter decodes ValueBytes via the codec package and
// stages it without consulting the EL; the subsequent Decided event
// drives the actual newPayload/forkchoiceUpdated import.
type ProcessSyncedValueRequest struct {
	Height     types.Height
	Round      types.Round
	Proposer   types.Address
	ValueBytes []byte
}

// ProcessSyncedValueReply answers a ProcessSyncedValue event with the
// decoded value, marked valid on arrival since the subsequent commit
// certificate attests to its validity.
type ProcessSyncedValueReply struct {
	Payload *types.ExecutionPayload
	Err     error
}

// ReceivedProposalPartRequest is the payload of a ReceivedProposalPart
// event: one chunk of a streamed proposal from From.
type ReceivedProposalPartRequest struct {
	Part *types.ProposalPart
	From types.Address
}

// ReceivedProposalPartReply answers a ReceivedProposalPart event. Valid
// is true once the part was accepted into the assembler; Done is true
// once the slot closed and Payload holds the reassembled value.
type ReceivedProposalPartReply struct {
	Valid   bool
	Done    bool
	Payload *types.ExecutionPayload
	Err     error
}

// Event is one unit of work the consensus library hands to the adapter.
// Exactly one of the Request fields is populated, matching Kind; the
// adapter must send exactly one value on Reply before returning to its
// receive loop.
type Event struct {
	Kind Kind

	GetValueRequest             *GetValueRequest
	ReceivedProposalPartRequest *ReceivedProposalPartRequest
	DecidedRequest              *DecidedRequest
	GetValidatorSetRequest      *GetValidatorSetRequest
	GetDecidedValueRequest      *GetDecidedValueRequest
	ProcessSyncedRequest        *ProcessSyncedValueRequest

	Reply chan Reply
}

// ConsensusReadyReply answers a ConsensusReady event with the anchored
// starting height and its validator set.
type ConsensusReadyReply struct {
	StartHeight  types.Height
	ValidatorSet *types.ValidatorSet
	Err          error
}

// Reply carries exactly one of the typed reply payloads, matching the
// originating Event's Kind.
type Reply struct {
	ConsensusReadyReply       *ConsensusReadyReply
	GetValueReply             *GetValueReply
	ReceivedProposalPartReply *ReceivedProposalPartReply
	DecidedReply              *DecidedReply
	GetValidatorSetReply      *GetValidatorSetReply
	GetDecidedValueReply      *GetDecidedValueReply
	ProcessSyncedReply        *ProcessSyncedValueReply
}

// NewGetValue builds a GetValue event with a ready reply channel.
func NewGetValue(height types.Height, round types.Round, deadline time.Time) *Event {
	return &Event{
		Kind:            GetValue,
		GetValueRequest: &GetValueRequest{Height: height, Round: round, Deadline: deadline},
		Reply:           make(chan Reply, 1),
	}
}

// NewReceivedProposalPart builds a ReceivedProposalPart event with a
// ready reply channel.
func NewReceivedProposalPart(part *types.ProposalPart, from types.Address) *Event {
	return &Event{
		Kind:                        ReceivedProposalPart,
		ReceivedProposalPartRequest: &ReceivedProposalPartRequest{Part: part, From: from},
		Reply:                       make(chan Reply, 1),
	}
}

// NewDecided builds a Decided event with a ready reply channel.
func NewDecided(height types.Height, round types.Round, cert *types.CommitCertificate) *Event {
	return &Event{
		Kind:           Decided,
		DecidedRequest: &DecidedRequest{Height: height, Round: round, Cert: cert},
		Reply:          make(chan Reply, 1),
	}
}

// NewGetValidatorSet builds a GetValidatorSet event with a ready reply
// channel.
func NewGetValidatorSet(height types.Height) *Event {
	return &Event{
		Kind:                   GetValidatorSet,
		GetValidatorSetRequest: &GetValidatorSetRequest{Height: height},
		Reply:                  make(chan Reply, 1),
	}
}

// NewGetDecidedValue builds a GetDecidedValue event with a ready reply
// channel.
func NewGetDecidedValue(height types.Height) *Event {
	return &Event{
		Kind:                   GetDecidedValue,
		GetDecidedValueRequest: &GetDecidedValueRequest{Height: height},
		Reply:                  make(chan Reply, 1),
	}
}

// NewProcessSyncedValue builds a ProcessSyncedValue event with a ready
// reply channel.
func NewProcessSyncedValue(height types.Height, round types.Round, proposer types.Address, valueBytes []byte) *Event {
	return &Event{
		Kind: ProcessSyncedValue,
		ProcessSyncedRequest: &ProcessSyncedValueRequest{
			Height: height, Round: round, Proposer: proposer, ValueBytes: valueBytes,
		},
		Reply: make(chan Reply, 1),
	}
}

// NewConsensusReady builds a ConsensusReady event with a ready reply
// channel.
func NewConsensusReady() *Event {
	return &Event{Kind: ConsensusReady, Reply: make(chan Reply, 1)}
}
