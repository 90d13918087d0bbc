package fileunlocker

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/blocknetdx/xlited/internal/core/ports"
)

type service struct {
	filePath string
}

func NewService(filePath string) (ports.Unlocker, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("invalid password file: %w", err)
	}
	return &service{filePath: filePath}, nil
}

// GetPassword reads the file on every call, so the password can be
// rotated without restarting.
func (s *service) GetPassword(_ context.Context) (string, error) {
	buf, err := os.ReadFile(s.filePath)
	if err != nil {
		return "", err
	}

	password := bytes.TrimRight(buf, "\r\n ")
	if len(password) <= 0 {
		return "", fmt.Errorf("password file %s is empty", s.filePath)
	}
	return string(password), nil
}
