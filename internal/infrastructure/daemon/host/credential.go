package hostdaemon

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/blocknetdx/xlited/internal/core/domain"
)

const credentialFilename = "wallet.json"

type credentialData struct {
	PasswordHash      string `json:"password_hash"`
	Salt              string `json:"salt"`
	EncryptedMnemonic string `json:"encrypted_mnemonic"`
}

func (d credentialData) isEmpty() bool {
	return d == credentialData{}
}

func (d credentialData) decode() (*domain.Credential, error) {
	salt, err := hex.DecodeString(d.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt format: %s", err)
	}
	encryptedMnemonic, err := hex.DecodeString(d.EncryptedMnemonic)
	if err != nil {
		return nil, fmt.Errorf("invalid encrypted mnemonic format: %s", err)
	}
	return &domain.Credential{
		PasswordHash:      d.PasswordHash,
		Salt:              salt,
		EncryptedMnemonic: encryptedMnemonic,
	}, nil
}

func newCredentialData(c domain.Credential) credentialData {
	return credentialData{
		PasswordHash:      c.PasswordHash,
		Salt:              hex.EncodeToString(c.Salt),
		EncryptedMnemonic: hex.EncodeToString(c.EncryptedMnemonic),
	}
}

// readCredential returns an empty credential if the file doesn't exist yet.
func readCredential(filePath string) (*domain.Credential, error) {
	file, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.Credential{}, nil
		}
		return nil, fmt.Errorf("failed to open credential file: %s", err)
	}
	if len(file) <= 0 {
		return &domain.Credential{}, nil
	}

	data := credentialData{}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("failed to read credential file: %s", err)
	}
	if data.isEmpty() {
		return &domain.Credential{}, nil
	}
	return data.decode()
}

func writeCredential(filePath string, credential domain.Credential) error {
	buf, err := json.Marshal(newCredentialData(credential))
	if err != nil {
		return err
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, buf, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, filePath)
}
