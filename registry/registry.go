// Package registry reads the on-chain validator registry: a fixed-address
// UUPS-upgradeable contract the execution layer exposes validator
// identities and voting power through.
//
// The registry is read, never written: genesis allocation of the
// contract's storage is a deploy-time concern outside this module. The
// ABI selectors here are hand-derived (keccak256 of the function
// signature, as Solidity computes them) rather than generated from a
// contract-binding tool, since no ABI-binding generator appears in any
// example repo's go.mod — this follows the corpus's general preference
// for hand-written wire code (see the payload codec and the hand-rolled
// proto.Message types) over generated bindings.
package registry

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/emerald-consensus/emerald/crypto"
	"github.com/emerald-consensus/emerald/types"
)

// RegistryAddress is the fixed address of the validator registry proxy,
// matching the genesis account the execution layer reserves for it.
var RegistryAddress = types.Address{18: 0x20, 19: 0x00}

const (
	sigGetValidatorCount   = "getValidatorCount()"
	sigGetValidatorByIndex = "getValidatorByIndex(uint256)"
	sigIsValidator         = "isValidator(address)"
	sigGetTotalPower       = "getTotalPower()"
	sigHasRole             = "hasRole(bytes32,address)"
)

func selector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

// caller is the subset of the engine client's surface the registry
// reader needs: a standard eth_call.
type caller interface {
	Call(ctx context.Context, out interface{}, method string, params ...interface{}) error
}

// Reader reads validator sets from the on-chain registry contract,
// caching the result per height since the set only changes across
// explicit contract transactions, not every block.
type Reader struct {
	client caller
	cache  map[types.Height]*types.ValidatorSet
}

// New builds a Reader over the given RPC caller.
func New(client caller) *Reader {
	return &Reader{client: client, cache: make(map[types.Height]*types.ValidatorSet)}
}

// callArgs is the eth_call transaction object.
type callArgs struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

func (r *Reader) call(ctx context.Context, height types.Height, data []byte) ([]byte, error) {
	args := callArgs{
		To:   "0x" + hex.EncodeToString(RegistryAddress[:]),
		Data: "0x" + hex.EncodeToString(data),
	}
	var resultHex string
	blockTag := "latest"
	if height > 0 {
		blockTag = fmt.Sprintf("0x%x", uint64(height))
	}
	if err := r.client.Call(ctx, &resultHex, "eth_call", args, blockTag); err != nil {
		return nil, err
	}
	return decodeHexString(resultHex)
}

func decodeHexString(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex result: %w", err)
	}
	return out, nil
}

func encodeUint256(v uint64) []byte {
	buf := make([]byte, 32)
	binary.BigEndian.PutUint64(buf[24:], v)
	return buf
}

func decodeUint256(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func encodeAddress(addr types.Address) []byte {
	buf := make([]byte, 32)
	copy(buf[32-len(addr):], addr[:])
	return buf
}

func decodeAddress(word []byte) types.Address {
	var addr types.Address
	copy(addr[:], word[32-len(addr):])
	return addr
}

func decodeBool(word []byte) bool {
	return word[len(word)-1] != 0
}

// ValidatorSet fetches and caches the validator set as of height. A
// height of 0 means the latest set.
func (r *Reader) ValidatorSet(ctx context.Context, height types.Height) (*types.ValidatorSet, error) {
	if cached, ok := r.cache[height]; ok {
		return cached, nil
	}

	countData, err := r.call(ctx, height, selector(sigGetValidatorCount))
	if err != nil {
		return nil, fmt.Errorf("getValidatorCount: %w", err)
	}
	if len(countData) < 32 {
		return nil, fmt.Errorf("getValidatorCount: short result")
	}
	count := decodeUint256(countData[:32]).Uint64()

	vs := &types.ValidatorSet{Height: height}
	for i := uint64(0); i < count; i++ {
		data := append(append([]byte{}, selector(sigGetValidatorByIndex)...), encodeUint256(i)...)
		out, err := r.call(ctx, height, data)
		if err != nil {
			return nil, fmt.Errorf("getValidatorByIndex(%d): %w", i, err)
		}
		v, err := decodeValidatorAt(out)
		if err != nil {
			return nil, fmt.Errorf("getValidatorByIndex(%d): %w", i, err)
		}
		vs.Validators = append(vs.Validators, *v)
	}

	totalData, err := r.call(ctx, height, selector(sigGetTotalPower))
	if err != nil {
		return nil, fmt.Errorf("getTotalPower: %w", err)
	}
	if len(totalData) >= 32 {
		vs.TotalPower = types.Power(decodeUint256(totalData[:32]).Uint64())
	}

	r.cache[height] = vs
	return vs, nil
}

// IsValidator reports whether addr is a member of the validator set as of
// height.
func (r *Reader) IsValidator(ctx context.Context, height types.Height, addr types.Address) (bool, error) {
	data := append(append([]byte{}, selector(sigIsValidator)...), encodeAddress(addr)...)
	out, err := r.call(ctx, height, data)
	if err != nil {
		return false, fmt.Errorf("isValidator: %w", err)
	}
	if len(out) < 32 {
		return false, fmt.Errorf("isValidator: short result")
	}
	return decodeBool(out[:32]), nil
}

// HasRole reports whether addr has been granted role, following the
// AccessControl hasRole(bytes32,address) convention.
func (r *Reader) HasRole(ctx context.Context, height types.Height, role [32]byte, addr types.Address) (bool, error) {
	data := append(append([]byte{}, selector(sigHasRole)...), role[:]...)
	data = append(data, encodeAddress(addr)...)
	out, err := r.call(ctx, height, data)
	if err != nil {
		return false, fmt.Errorf("hasRole: %w", err)
	}
	if len(out) < 32 {
		return false, fmt.Errorf("hasRole: short result")
	}
	return decodeBool(out[:32]), nil
}

// decodeValidatorAt decodes Solidity's ABI encoding of
// (bytes pubkey, uint256 power, address addr): a head word holding the
// offset to the dynamic bytes field, followed by the uint256 power and the
// address word, followed at the offset by the bytes length and its
// contents. addr is taken from the contract's own response rather than
// derived from pubkey, since the registry may support key rotation or a
// different address scheme than the local derivation.
func decodeValidatorAt(data []byte) (*types.Validator, error) {
	if len(data) < 96 {
		return nil, fmt.Errorf("short abi-encoded tuple")
	}
	offset := decodeUint256(data[:32]).Uint64()
	power := decodeUint256(data[32:64]).Uint64()
	addr := decodeAddress(data[64:96])

	if uint64(len(data)) < offset+32 {
		return nil, fmt.Errorf("offset out of range")
	}
	length := decodeUint256(data[offset : offset+32]).Uint64()
	start := offset + 32
	if uint64(len(data)) < start+length {
		return nil, fmt.Errorf("bytes field out of range")
	}
	pubkey := make([]byte, length)
	copy(pubkey, data[start:start+length])

	return &types.Validator{ID: pubkey, Addr: addr, Power: types.Power(power)}, nil
}
