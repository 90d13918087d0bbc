package vault_test

import (
	"bytes"
	"testing"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/blocknetdx/xlited/internal/core/ports"
	"github.com/blocknetdx/xlited/internal/infrastructure/vault"
	"github.com/stretchr/testify/require"
)

const mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon zebra"

func newVault(t *testing.T) ports.Vault {
	svc, err := vault.NewService(vault.Config{ScryptN: 1 << 4, PBKDF2Iterations: 16})
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	_, err := vault.NewService(vault.Config{ScryptN: 100})
	require.Error(t, err)

	svc, err := vault.NewService(vault.Config{})
	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestGenerateSalt(t *testing.T) {
	svc := newVault(t)

	salt, err := svc.GenerateSalt(domain.SaltLength)
	require.NoError(t, err)
	require.Len(t, salt, domain.SaltLength)

	other, err := svc.GenerateSalt(domain.SaltLength)
	require.NoError(t, err)
	require.False(t, bytes.Equal(salt, other))

	_, err = svc.GenerateSalt(0)
	require.ErrorIs(t, err, vault.ErrInvalidSalt)
}

func TestDeriveKey(t *testing.T) {
	svc := newVault(t)
	salt, err := svc.GenerateSalt(domain.SaltLength)
	require.NoError(t, err)
	otherSalt, err := svc.GenerateSalt(domain.SaltLength)
	require.NoError(t, err)

	key, err := svc.DeriveKey("Passw0rd!", salt)
	require.NoError(t, err)
	require.Len(t, key, 32)

	sameKey, err := svc.DeriveKey("Passw0rd!", salt)
	require.NoError(t, err)
	require.Equal(t, key, sameKey)

	keyOtherPwd, err := svc.DeriveKey("Passw0rd?", salt)
	require.NoError(t, err)
	require.NotEqual(t, key, keyOtherPwd)

	keyOtherSalt, err := svc.DeriveKey("Passw0rd!", otherSalt)
	require.NoError(t, err)
	require.NotEqual(t, key, keyOtherSalt)

	emptyPwdKey, err := svc.DeriveKey("", salt)
	require.NoError(t, err)
	require.Len(t, emptyPwdKey, 32)

	_, err = svc.DeriveKey("Passw0rd!", nil)
	require.ErrorIs(t, err, vault.ErrMissingSalt)
}

func TestPasswordHash(t *testing.T) {
	svc := newVault(t)
	salt, err := svc.GenerateSalt(domain.SaltLength)
	require.NoError(t, err)

	hash, err := svc.HashPassword("Passw0rd!", salt)
	require.NoError(t, err)
	require.Len(t, hash, 128)

	ok, err := svc.VerifyPassword("Passw0rd!", salt, hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.VerifyPassword("passw0rd!", salt, hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEncryptDecrypt(t *testing.T) {
	svc := newVault(t)
	salt, err := svc.GenerateSalt(domain.SaltLength)
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "mnemonic", plaintext: mnemonic},
		{name: "printable ascii", plaintext: " !\"#$%&'()*+,-./0123456789:;<=>?@ABCXYZ[\\]^_`abcxyz{|}~"},
		{name: "single char", plaintext: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := svc.Encrypt([]byte(tt.plaintext), "Passw0rd!", salt)
			require.NoError(t, err)
			if len(tt.plaintext) > 8 {
				require.NotContains(t, string(ciphertext), tt.plaintext)
			}

			plaintext, err := svc.Decrypt(ciphertext, "Passw0rd!", salt)
			require.NoError(t, err)
			require.Equal(t, tt.plaintext, string(plaintext))

			_, err = svc.Decrypt(ciphertext, "WrongPassw0rd!", salt)
			require.ErrorIs(t, err, vault.ErrInvalidPassword)

			otherSalt, err := svc.GenerateSalt(domain.SaltLength)
			require.NoError(t, err)
			_, err = svc.Decrypt(ciphertext, "Passw0rd!", otherSalt)
			require.ErrorIs(t, err, vault.ErrInvalidPassword)
		})
	}
}

func TestEncryptDecryptFailures(t *testing.T) {
	svc := newVault(t)
	salt, err := svc.GenerateSalt(domain.SaltLength)
	require.NoError(t, err)

	_, err = svc.Encrypt(nil, "Passw0rd!", salt)
	require.ErrorIs(t, err, vault.ErrMissingPlaintext)

	_, err = svc.Encrypt([]byte(mnemonic), "Passw0rd!", nil)
	require.ErrorIs(t, err, vault.ErrMissingSalt)

	_, err = svc.Decrypt([]byte("short"), "Passw0rd!", salt)
	require.ErrorIs(t, err, vault.ErrMalformedCipher)
}
