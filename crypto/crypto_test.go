package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("emerald consensus payload")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	ok, err := VerifyWithPublicKey(kp.PublicKeyBytes(), msg, sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	sig, err := kp.Sign([]byte("original"))
	require.NoError(t, err)

	ok, err := VerifyWithPublicKey(kp.PublicKeyBytes(), []byte("tampered"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAddressFromPublicKeyIsDeterministic(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	a1, err := AddressFromPublicKey(kp.PublicKeyBytes())
	require.NoError(t, err)
	a2, err := AddressFromPublicKey(kp.PublicKeyBytes())
	require.NoError(t, err)
	require.Equal(t, a1, a2)
}

func TestAddressFromPublicKeyRejectsWrongLength(t *testing.T) {
	_, err := AddressFromPublicKey([]byte{0x04, 0x01, 0x02})
	require.Error(t, err)
}

func TestDefaultSigner(t *testing.T) {
	signer, err := NewDefaultSigner()
	require.NoError(t, err)

	msg := []byte("hello")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)

	ok, err := VerifyWithPublicKey(signer.PublicKey(), msg, sig)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, [20]byte{}, signer.Address())
}

func TestPublicKeyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	pub, err := PublicKeyFromBytes(kp.PublicKeyBytes())
	require.NoError(t, err)
	require.True(t, kp.Public.IsEqual(pub))
}
