package solana

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/blocto/solana-go-sdk/types"
)

// ParseAuthorityKey restores the issuer authority keypair from configuration.
// Two encodings are accepted: a base64-encoded 64-byte ed25519 secret key, or
// the solana-keygen JSON array form ([u8;64]).
func ParseAuthorityKey(encoded string) (types.Account, error) {
	if encoded == "" {
		return types.Account{}, fmt.Errorf("issuer authority key is empty")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		var ints []int
		if jsonErr := json.Unmarshal([]byte(encoded), &ints); jsonErr != nil {
			return types.Account{}, fmt.Errorf("issuer authority key is neither base64 nor a keypair JSON array")
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return types.Account{}, fmt.Errorf("issuer authority key: byte %d out of range", i)
			}
			raw[i] = byte(v)
		}
	}

	account, err := types.AccountFromBytes(raw)
	if err != nil {
		return types.Account{}, fmt.Errorf("restore issuer authority: %w", err)
	}
	return account, nil
}
