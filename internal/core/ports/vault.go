package ports

// Vault derives password based keys and protects the wallet mnemonic.
type Vault interface {
	GenerateSalt(length int) ([]byte, error)
	DeriveKey(password string, salt []byte) ([]byte, error)
	HashPassword(password string, salt []byte) (string, error)
	VerifyPassword(password string, salt []byte, hash string) (bool, error)
	Encrypt(plaintext []byte, password string, salt []byte) ([]byte, error)
	Decrypt(ciphertext []byte, password string, salt []byte) ([]byte, error)
}
