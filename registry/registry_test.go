package registry

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emerald-consensus/emerald/crypto"
	"github.com/emerald-consensus/emerald/types"
)

type stubCaller struct {
	responses map[string]string
}

func (s *stubCaller) Call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	args := params[0].(callArgs)
	resp, ok := s.responses[args.Data]
	if !ok {
		return nil
	}
	ptr := out.(*string)
	*ptr = resp
	return nil
}

func abiUint256(v uint64) string {
	return hex.EncodeToString(encodeUint256(v))
}

func TestValidatorSetDecodesSingleValidator(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	pubkey := kp.PublicKeyBytes()

	countSel := "0x" + hex.EncodeToString(selector(sigGetValidatorCount))
	atSel := "0x" + hex.EncodeToString(append(selector(sigGetValidatorByIndex), encodeUint256(0)...))
	totalSel := "0x" + hex.EncodeToString(selector(sigGetTotalPower))

	// registry's reported address need not equal the pubkey-derived one
	// (key rotation, a different address scheme, etc).
	var contractAddr types.Address
	contractAddr[19] = 0x42

	// ABI encoding of (bytes pubkey, uint256 power, address addr):
	// offset=0x60 (3 head words), power, addr, length, data padded to 32.
	padded := len(pubkey)
	if padded%32 != 0 {
		padded += 32 - padded%32
	}
	dataHex := abiUint256(96) + abiUint256(100) + hex.EncodeToString(encodeAddress(contractAddr)) +
		abiUint256(uint64(len(pubkey))) + hex.EncodeToString(pubkey) + hex.EncodeToString(make([]byte, padded-len(pubkey)))

	caller := &stubCaller{responses: map[string]string{
		countSel: "0x" + abiUint256(1),
		atSel:    "0x" + dataHex,
		totalSel: "0x" + abiUint256(100),
	}}

	reader := New(caller)
	vs, err := reader.ValidatorSet(context.Background(), types.Height(0))
	require.NoError(t, err)
	require.Len(t, vs.Validators, 1)
	require.Equal(t, types.Power(100), vs.Validators[0].Power)
	require.Equal(t, types.Power(100), vs.TotalPower)
	require.Equal(t, contractAddr, vs.Validators[0].Addr)

	derivedAddr, err := crypto.AddressFromPublicKey(pubkey)
	require.NoError(t, err)
	require.NotEqual(t, derivedAddr, vs.Validators[0].Addr)
}

func TestValidatorSetIsCached(t *testing.T) {
	countSel := "0x" + hex.EncodeToString(selector(sigGetValidatorCount))
	totalSel := "0x" + hex.EncodeToString(selector(sigGetTotalPower))
	caller := &stubCaller{responses: map[string]string{
		countSel: "0x" + abiUint256(0),
		totalSel: "0x" + abiUint256(0),
	}}

	reader := New(caller)
	vs1, err := reader.ValidatorSet(context.Background(), types.Height(5))
	require.NoError(t, err)
	vs2, err := reader.ValidatorSet(context.Background(), types.Height(5))
	require.NoError(t, err)
	require.Same(t, vs1, vs2)
}

func TestIsValidator(t *testing.T) {
	var addr types.Address
	addr[19] = 0x7
	other := types.Address{}
	other[19] = 0x8

	sel := "0x" + hex.EncodeToString(append(selector(sigIsValidator), encodeAddress(addr)...))
	otherSel := "0x" + hex.EncodeToString(append(selector(sigIsValidator), encodeAddress(other)...))
	caller := &stubCaller{responses: map[string]string{
		sel:      "0x" + hex.EncodeToString(encodeUint256(1)),
		otherSel: "0x" + hex.EncodeToString(encodeUint256(0)),
	}}

	reader := New(caller)
	ok, err := reader.IsValidator(context.Background(), types.Height(0), addr)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = reader.IsValidator(context.Background(), types.Height(0), other)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasRole(t *testing.T) {
	var role [32]byte
	role[31] = 0x1
	var addr types.Address
	addr[19] = 0x9

	data := append(append([]byte{}, selector(sigHasRole)...), role[:]...)
	data = append(data, encodeAddress(addr)...)
	sel := "0x" + hex.EncodeToString(data)

	caller := &stubCaller{responses: map[string]string{
		sel: "0x" + hex.EncodeToString(encodeUint256(1)),
	}}

	reader := New(caller)
	ok, err := reader.HasRole(context.Background(), types.Height(0), role, addr)
	require.NoError(t, err)
	require.True(t, ok)
}
