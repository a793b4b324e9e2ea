package solana

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthorityKeyBase64(t *testing.T) {
	account := types.NewAccount()
	encoded := base64.StdEncoding.EncodeToString(account.PrivateKey)

	parsed, err := ParseAuthorityKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey, parsed.PublicKey)
}

func TestParseAuthorityKeyJSONArray(t *testing.T) {
	account := types.NewAccount()
	ints := make([]int, len(account.PrivateKey))
	for i, b := range account.PrivateKey {
		ints[i] = int(b)
	}
	encoded, err := json.Marshal(ints)
	require.NoError(t, err)

	parsed, err := ParseAuthorityKey(string(encoded))
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey, parsed.PublicKey)
}

func TestParseAuthorityKeyInvalid(t *testing.T) {
	for name, encoded := range map[string]string{
		"empty":             "",
		"garbage":           "!!not-a-key!!",
		"byte out of range": "[1,2,300]",
		"wrong length":      base64.StdEncoding.EncodeToString([]byte{1, 2, 3}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAuthorityKey(encoded)
			assert.Error(t, err)
		})
	}
}
