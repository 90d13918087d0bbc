package domain

import "fmt"

// SaltLength is the byte length of credential salts.
const SaltLength = 32

// Credential protects the wallet mnemonic. PasswordHash allows rejecting a
// password without touching EncryptedMnemonic.
type Credential struct {
	PasswordHash      string
	Salt              []byte
	EncryptedMnemonic []byte
}

func (c Credential) IsEmpty() bool {
	return len(c.PasswordHash) <= 0 && len(c.Salt) <= 0 && len(c.EncryptedMnemonic) <= 0
}

func (c Credential) Validate() error {
	if len(c.PasswordHash) <= 0 {
		return fmt.Errorf("missing password hash")
	}
	if len(c.Salt) != SaltLength {
		return fmt.Errorf("invalid salt length %d, expected %d", len(c.Salt), SaltLength)
	}
	if len(c.EncryptedMnemonic) <= 0 {
		return fmt.Errorf("missing encrypted mnemonic")
	}
	return nil
}
