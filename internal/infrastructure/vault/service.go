package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/blocknetdx/xlited/internal/core/ports"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

const (
	keyLen  = 32
	hashLen = 64

	DefaultScryptN          = 1 << 15
	DefaultScryptR          = 8
	DefaultScryptP          = 1
	DefaultPBKDF2Iterations = 100000
)

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrMissingPlaintext = errors.New("missing plaintext")
	ErrMissingSalt      = errors.New("missing salt")
	ErrInvalidSalt      = errors.New("invalid salt length")
	ErrMalformedCipher  = errors.New("malformed ciphertext")
)

type Config struct {
	ScryptN          int
	ScryptR          int
	ScryptP          int
	PBKDF2Iterations int
}

func (c Config) withDefaults() Config {
	if c.ScryptN <= 0 {
		c.ScryptN = DefaultScryptN
	}
	if c.ScryptR <= 0 {
		c.ScryptR = DefaultScryptR
	}
	if c.ScryptP <= 0 {
		c.ScryptP = DefaultScryptP
	}
	if c.PBKDF2Iterations <= 0 {
		c.PBKDF2Iterations = DefaultPBKDF2Iterations
	}
	return c
}

type service struct {
	cfg Config
}

func NewService(cfg Config) (ports.Vault, error) {
	cfg = cfg.withDefaults()
	// scrypt requires N to be a power of two greater than 1.
	if cfg.ScryptN < 2 || cfg.ScryptN&(cfg.ScryptN-1) != 0 {
		return nil, fmt.Errorf("scrypt cost %d must be a power of 2", cfg.ScryptN)
	}
	return &service{cfg}, nil
}

func (s *service) GenerateSalt(length int) ([]byte, error) {
	if length <= 0 {
		return nil, ErrInvalidSalt
	}
	salt := make([]byte, length)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches the password into a 32 byte key. An empty password is
// still derived.
func (s *service) DeriveKey(password string, salt []byte) ([]byte, error) {
	if len(salt) <= 0 {
		return nil, ErrMissingSalt
	}
	key, err := scrypt.Key(
		[]byte(password), salt, s.cfg.ScryptN, s.cfg.ScryptR, s.cfg.ScryptP, keyLen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

func (s *service) HashPassword(password string, salt []byte) (string, error) {
	if len(salt) <= 0 {
		return "", ErrMissingSalt
	}
	hash := pbkdf2.Key([]byte(password), salt, s.cfg.PBKDF2Iterations, hashLen, sha512.New)
	return hex.EncodeToString(hash), nil
}

func (s *service) VerifyPassword(password string, salt []byte, hash string) (bool, error) {
	currentHash, err := s.HashPassword(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(currentHash), []byte(hash)) == 1, nil
}

func (s *service) Encrypt(plaintext []byte, password string, salt []byte) ([]byte, error) {
	// Due to https://github.com/golang/go/issues/7168.
	// This call makes sure that memory is freed in case the GC doesn't do that
	// right after the encryption/decryption.
	defer debug.FreeOSMemory()

	if len(plaintext) <= 0 {
		return nil, ErrMissingPlaintext
	}

	gcm, err := s.newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *service) Decrypt(ciphertext []byte, password string, salt []byte) ([]byte, error) {
	defer debug.FreeOSMemory()

	gcm, err := s.newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrMalformedCipher
	}

	// #nosec G407
	nonce, data := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	return plaintext, nil
}

func (s *service) newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key, err := s.DeriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blockCipher)
}
