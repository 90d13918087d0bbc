package envunlocker

import (
	"context"
	"fmt"

	"github.com/blocknetdx/xlited/internal/core/ports"
)

type service struct {
	password string
}

// NewService returns an unlocker serving the password found in the
// environment at startup.
func NewService(password string) (ports.Unlocker, error) {
	if len(password) <= 0 {
		return nil, fmt.Errorf("missing wallet password in env")
	}
	return &service{password}, nil
}

func (s *service) GetPassword(_ context.Context) (string, error) {
	return s.password, nil
}
