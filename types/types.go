// Package types defines the core data model shared by every Emerald component:
// heights, rounds, validators, execution payload headers/bodies, and the
// commit certificates that attest to them.
package types

import "fmt"

// Height is a 1-based, monotonically increasing block height. Height 0 is
// reserved for the EL's bootstrap/genesis block; the first consensus
// decision is height 1.
type Height uint64

// Round resets to 0 at the start of every height and increases on
// timeout/retry within a height.
type Round uint64

// Power is a validator's voting weight.
type Power uint64

// Address is the 20-byte account address derived from a validator's
// public key.
type Address [20]byte

func (a Address) String() string {
	return fmt.Sprintf("%x", a[:])
}

// Hash is a 32-byte keccak256 digest, used both for EL block hashes and
// for the assembled-payload hash the adapter threads through §4.6.
type Hash [32]byte

func (h Hash) String() string {
	return fmt.Sprintf("%x", h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Validator is one (id, power) entry in a ValidatorSet. ID is the
// uncompressed secp256k1 public key; Addr is the account address the
// registry reports for it, which need not be derived from ID.
type Validator struct {
	ID    []byte
	Addr  Address
	Power Power
}

// ValidatorSet is the ordered validator list for a given height, in
// on-chain registration order.
type ValidatorSet struct {
	Height      Height
	Validators  []Validator
	TotalPower  Power
}

// QuorumPower returns the minimum power required for a commit certificate
// to be valid: floor(2*total/3) + 1.
func (vs *ValidatorSet) QuorumPower() Power {
	return Power(2*uint64(vs.TotalPower)/3) + 1
}

// BlockHeader is the execution-payload envelope with transactions and
// withdrawals stripped.
type BlockHeader struct {
	ParentHash    Hash
	StateRoot     Hash
	ReceiptsRoot  Hash
	LogsBloom     [256]byte
	Number        uint64
	GasLimit      uint64
	GasUsed       uint64
	Timestamp     uint64
	ExtraData     []byte
	BaseFeePerGas [32]byte
	BlockHash     Hash
	BlobGasUsed   uint64
	ExcessBlobGas uint64
	PrevRandao    Hash
	FeeRecipient  Address
}

// BlockBody is the stripped transactions and withdrawals lists.
type BlockBody struct {
	Transactions [][]byte
	Withdrawals  []Withdrawal
}

// Withdrawal mirrors the Engine-API withdrawal object.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        Address
	AmountGwei     uint64
}

// ExecutionPayload is a full header+body, the unit hashed and exchanged
// with the EL and reassembled from streamed proposal parts.
type ExecutionPayload struct {
	Header BlockHeader
	Body   BlockBody
}

// DecidedValue is the payload a height has reached commit on.
type DecidedValue struct {
	Height      Height
	Header      BlockHeader
	Body        BlockBody
	BlockHash   Hash
}

// CommitCertificate is an opaque binary blob produced by the consensus
// library, aggregating >=2/3 of the height's validator power. Emerald
// never inspects its contents; it only stores and returns it.
type CommitCertificate struct {
	Height Height
	Round  Round
	Bytes  []byte
}

// ProposalPart is one chunk of a streamed proposal.
type ProposalPart struct {
	Height    Height
	Round     Round
	PartIndex uint32
	Bytes     []byte
	IsLast    bool
}
