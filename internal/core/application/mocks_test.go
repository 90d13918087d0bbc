package application_test

import (
	"context"
	"time"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type mockedDaemon struct {
	mock.Mock
}

func (m *mockedDaemon) RPCEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockedDaemon) GetBalance(ctx context.Context) (*domain.Balance, error) {
	args := m.Called(ctx)

	var res *domain.Balance
	if a := args.Get(0); a != nil {
		res = a.(*domain.Balance)
	}
	return res, args.Error(1)
}

func (m *mockedDaemon) GetTransactions(
	ctx context.Context, start, end int64,
) ([]domain.Transaction, error) {
	args := m.Called(ctx, start, end)

	var res []domain.Transaction
	if a := args.Get(0); a != nil {
		res = a.([]domain.Transaction)
	}
	return res, args.Error(1)
}

func (m *mockedDaemon) GetAddresses(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)

	var res []string
	if a := args.Get(0); a != nil {
		res = a.([]string)
	}
	return res, args.Error(1)
}

func (m *mockedDaemon) GenerateNewAddress(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockedDaemon) GetCachedUnspent(
	ctx context.Context, maxAge time.Duration,
) ([]domain.Utxo, error) {
	args := m.Called(ctx, maxAge)

	var res []domain.Utxo
	if a := args.Get(0); a != nil {
		res = a.([]domain.Utxo)
	}
	return res, args.Error(1)
}

func (m *mockedDaemon) Send(ctx context.Context, recipients []domain.Recipient) (string, error) {
	args := m.Called(ctx, recipients)
	return args.String(0), args.Error(1)
}

type mockedHost struct {
	mock.Mock
}

func (m *mockedHost) IsWalletCreated(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockedHost) IsWalletRPCRunning(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockedHost) StartWallet(ctx context.Context, password string) (bool, error) {
	args := m.Called(ctx, password)
	return args.Bool(0), args.Error(1)
}

func (m *mockedHost) CreateWallet(ctx context.Context, password string) (string, error) {
	args := m.Called(ctx, password)
	return args.String(0), args.Error(1)
}

func (m *mockedHost) GetStoredPasswordHash(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockedHost) GetStoredSalt(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockedHost) SaveCredential(ctx context.Context, credential domain.Credential) error {
	args := m.Called(ctx, credential)
	return args.Error(0)
}

func (m *mockedHost) LoadConfigurations(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockedUnlocker struct {
	mock.Mock
}

func (m *mockedUnlocker) GetPassword(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type mockedScheduler struct {
	mock.Mock
}

func (m *mockedScheduler) Start() {
	m.Called()
}

func (m *mockedScheduler) Stop() {
	m.Called()
}

func (m *mockedScheduler) ScheduleTask(interval int64, immediate bool, task func()) error {
	args := m.Called(interval, immediate, task)
	return args.Error(0)
}
