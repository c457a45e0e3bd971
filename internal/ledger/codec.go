package ledger

import (
	"github.com/vaultledger/vaultledger/internal/cryptox"
	"github.com/vaultledger/vaultledger/internal/shared"
)

// AccountCodec converts the account column at the storage boundary.
type AccountCodec struct {
	cipher *cryptox.SymmetricCipher
}

// NewAccountCodec wraps the process AES cipher.
func NewAccountCodec(cipher *cryptox.SymmetricCipher) *AccountCodec {
	return &AccountCodec{cipher: cipher}
}

// Serialize encrypts a plaintext account for storage.
func (c *AccountCodec) Serialize(account string) (string, error) {
	return c.cipher.Encrypt(account)
}

// Deserialize decrypts a stored account. Failures are ErrProcess only; the
// cipher's ErrData is not chained.
func (c *AccountCodec) Deserialize(stored string) (string, error) {
	account, err := c.cipher.Decrypt(stored)
	if err != nil {
		return "", shared.Wrap(shared.ErrProcess, "ledger: stored account unreadable ("+err.Error()+")", nil)
	}
	return account, nil
}

func (c *AccountCodec) encodeEntry(e Entry) (Entry, error) {
	stored, err := c.Serialize(e.Account)
	if err != nil {
		return Entry{}, err
	}
	e.Account = stored
	return e, nil
}

func (c *AccountCodec) decodeEntry(e Entry) (Entry, error) {
	plain, err := c.Deserialize(e.Account)
	if err != nil {
		return Entry{}, err
	}
	e.Account = plain
	return e, nil
}
