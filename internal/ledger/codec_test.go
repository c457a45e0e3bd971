package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultledger/vaultledger/internal/cryptox"
	"github.com/vaultledger/vaultledger/internal/shared"
)

func TestAccountCodec(t *testing.T) {
	cipher, err := cryptox.NewSymmetricCipher([]byte("0123456789abcdef"))
	require.NoError(t, err)
	codec := NewAccountCodec(cipher)

	stored, err := codec.Serialize("0123456789")
	require.NoError(t, err)
	assert.NotContains(t, stored, "0123456789")

	plain, err := codec.Deserialize(stored)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", plain)

	other, err := cryptox.NewSymmetricCipher([]byte("fedcba9876543210"))
	require.NoError(t, err)
	_, err = NewAccountCodec(other).Deserialize(stored)
	assert.ErrorIs(t, err, shared.ErrProcess)
	assert.NotErrorIs(t, err, shared.ErrData)
}
