package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/blocknetdx/xlited/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type LifecycleState int

const (
	StateLoading LifecycleState = iota
	StateUnlock
	StateRegister
	StateProcessing
	StateMnemonicConfirm
	StateReady
)

func (s LifecycleState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnlock:
		return "unlock"
	case StateRegister:
		return "register"
	case StateProcessing:
		return "processing"
	case StateMnemonicConfirm:
		return "mnemonic_confirm"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

type LifecycleOption func(*LifecycleController)

// WithUnlocker sets the source of the externally provided password. A
// known external password lets Load select the unlock flow when the rpc is
// running.
func WithUnlocker(unlocker ports.Unlocker) LifecycleOption {
	return func(c *LifecycleController) {
		c.unlocker = unlocker
	}
}

// WithAutoUnlock is like WithUnlocker, and also makes Load submit the
// external password once the unlock flow is selected.
func WithAutoUnlock(unlocker ports.Unlocker) LifecycleOption {
	return func(c *LifecycleController) {
		c.unlocker = unlocker
		c.autoUnlock = true
	}
}

// WithSyncer starts the given syncer when the wallet becomes ready.
func WithSyncer(syncer *Syncer) LifecycleOption {
	return func(c *LifecycleController) {
		c.syncer = syncer
	}
}

func WithPasswordPolicy(policy PasswordPolicy) LifecycleOption {
	return func(c *LifecycleController) {
		c.policy = policy
	}
}

// LifecycleController drives the wallet through the unlock or register flow
// until it's ready to be used.
type LifecycleController struct {
	host  ports.WalletHost
	vault ports.Vault

	unlocker   ports.Unlocker
	autoUnlock bool
	syncer     *Syncer
	policy     PasswordPolicy

	lock        *sync.RWMutex
	state       LifecycleState
	mnemonic    string
	lastFailure *Failure
}

func NewLifecycleController(
	host ports.WalletHost, vault ports.Vault, opts ...LifecycleOption,
) (*LifecycleController, error) {
	if host == nil {
		return nil, fmt.Errorf("missing wallet host")
	}
	if vault == nil {
		return nil, fmt.Errorf("missing vault")
	}

	c := &LifecycleController{
		host:   host,
		vault:  vault,
		policy: DefaultPasswordPolicy,
		lock:   &sync.RWMutex{},
		state:  StateLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *LifecycleController) State() LifecycleState {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state
}

// LastFailure returns the failure of the latest unlock or register attempt,
// if it failed.
func (c *LifecycleController) LastFailure() *Failure {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.lastFailure
}

// Load selects the unlock or register flow from the state of the host.
// The unlock flow is chosen if the wallet is already created, or if the rpc
// is running and a password is either stored or provided externally.
func (c *LifecycleController) Load(ctx context.Context) (LifecycleState, error) {
	if state := c.State(); state != StateLoading {
		return state, ErrInvalidState
	}

	created, err := c.host.IsWalletCreated(ctx)
	if err != nil {
		return StateLoading, fmt.Errorf("failed to check if wallet is created: %w", err)
	}
	running, err := c.host.IsWalletRPCRunning(ctx)
	if err != nil {
		return StateLoading, fmt.Errorf("failed to check if wallet rpc is running: %w", err)
	}
	storedHash, err := c.host.GetStoredPasswordHash(ctx)
	if err != nil {
		return StateLoading, fmt.Errorf("failed to get stored password: %w", err)
	}
	externalPassword := c.externalPassword(ctx)

	next := StateRegister
	if created || (running && (len(storedHash) > 0 || len(externalPassword) > 0)) {
		next = StateUnlock
	}

	c.lock.Lock()
	c.state = next
	c.lock.Unlock()

	log.Infof("wallet lifecycle loaded, entering %s flow", next)

	if c.autoUnlock && next == StateUnlock && len(externalPassword) > 0 {
		log.Info("auto unlocking wallet")
		if err := c.SubmitUnlock(ctx, externalPassword); err != nil {
			log.WithError(err).Warn("auto unlock failed")
		}
	}
	return c.State(), nil
}

// SubmitUnlock unlocks the existing wallet with password. If the rpc isn't
// running the wallet is started with the password, otherwise the password
// is verified against the stored hash. A returned *Failure tells which step
// failed.
func (c *LifecycleController) SubmitUnlock(ctx context.Context, password string) error {
	if err := c.beginProcessing(StateUnlock); err != nil {
		return err
	}

	if failure := c.unlock(ctx, password); failure != nil {
		c.fail(StateUnlock, failure)
		return failure
	}

	c.succeed(StateReady)
	c.startSyncer()
	return nil
}

// SubmitRegister creates a new wallet protected by password. On success the
// mnemonic is available once through Mnemonic until ConfirmMnemonic.
func (c *LifecycleController) SubmitRegister(ctx context.Context, password, repeat string) error {
	if state := c.State(); state != StateRegister {
		if state == StateProcessing {
			return ErrBusy
		}
		return ErrInvalidState
	}
	if err := c.policy.Validate(password, repeat); err != nil {
		failure := newFailure(FailurePasswordPolicy, err)
		c.lock.Lock()
		c.lastFailure = failure
		c.lock.Unlock()
		return failure
	}

	if err := c.beginProcessing(StateRegister); err != nil {
		return err
	}

	mnemonic, saved, failure := c.register(ctx, password)
	if failure != nil {
		// Once the credential is stored the wallet exists and can only be
		// unlocked.
		fallback := StateRegister
		if saved {
			fallback = StateUnlock
		}
		c.fail(fallback, failure)
		return failure
	}

	c.lock.Lock()
	c.mnemonic = mnemonic
	c.lock.Unlock()
	c.succeed(StateMnemonicConfirm)
	return nil
}

// Mnemonic returns the mnemonic of the newly created wallet. It can be read
// only once.
func (c *LifecycleController) Mnemonic() (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.state != StateMnemonicConfirm {
		return "", ErrInvalidState
	}
	if len(c.mnemonic) <= 0 {
		return "", fmt.Errorf("mnemonic already shown")
	}
	mnemonic := c.mnemonic
	c.mnemonic = ""
	return mnemonic, nil
}

func (c *LifecycleController) ConfirmMnemonic() error {
	c.lock.Lock()
	if c.state != StateMnemonicConfirm {
		c.lock.Unlock()
		return ErrInvalidState
	}
	c.mnemonic = ""
	c.state = StateReady
	c.lock.Unlock()

	c.startSyncer()
	return nil
}

func (c *LifecycleController) unlock(ctx context.Context, password string) *Failure {
	running, err := c.host.IsWalletRPCRunning(ctx)
	if err != nil {
		return newFailure(FailureUnlock, err)
	}

	if !running {
		started, err := c.host.StartWallet(ctx, password)
		if err != nil {
			return newFailure(FailureInvalidPassword, err)
		}
		if !started {
			return newFailure(FailureInvalidPassword, nil)
		}
		return nil
	}

	storedHash, err := c.host.GetStoredPasswordHash(ctx)
	if err != nil {
		return newFailure(FailureUnlock, err)
	}
	if len(storedHash) <= 0 {
		return newFailure(FailureInvalidPassword, fmt.Errorf("missing stored password"))
	}
	salt, err := c.host.GetStoredSalt(ctx)
	if err != nil {
		return newFailure(FailureUnlock, err)
	}

	ok, err := c.vault.VerifyPassword(password, salt, storedHash)
	if err != nil {
		return newFailure(FailureUnlock, err)
	}
	if !ok {
		return newFailure(FailureInvalidPassword, nil)
	}
	return nil
}

// register runs the registration steps in order. saved reports whether the
// credential was already persisted when a later step failed.
func (c *LifecycleController) register(
	ctx context.Context, password string,
) (mnemonic string, saved bool, failure *Failure) {
	mnemonic, err := c.host.CreateWallet(ctx, password)
	if err != nil {
		return "", false, newFailure(FailureCreateWallet, err)
	}
	if len(mnemonic) <= 0 {
		return "", false, newFailure(FailureCreateWallet, fmt.Errorf("empty mnemonic"))
	}

	credential, err := c.newCredential(mnemonic, password)
	if err != nil {
		return "", false, newFailure(FailureEncryptMnemonic, err)
	}

	if err := c.host.SaveCredential(ctx, *credential); err != nil {
		return "", false, newFailure(FailureSaveCredential, err)
	}

	if err := c.host.LoadConfigurations(ctx); err != nil {
		return "", true, newFailure(FailureLoadConfigurations, err)
	}

	started, err := c.host.StartWallet(ctx, password)
	if err != nil {
		return "", true, newFailure(FailureStartWallet, err)
	}
	if !started {
		return "", true, newFailure(FailureStartWallet, nil)
	}
	return mnemonic, true, nil
}

func (c *LifecycleController) newCredential(mnemonic, password string) (*domain.Credential, error) {
	salt, err := c.vault.GenerateSalt(domain.SaltLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := c.vault.HashPassword(password, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	encryptedMnemonic, err := c.vault.Encrypt([]byte(mnemonic), password, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt mnemonic: %w", err)
	}

	credential := &domain.Credential{
		PasswordHash:      hash,
		Salt:              salt,
		EncryptedMnemonic: encryptedMnemonic,
	}
	if err := credential.Validate(); err != nil {
		return nil, err
	}
	return credential, nil
}

func (c *LifecycleController) externalPassword(ctx context.Context) string {
	if c.unlocker == nil {
		return ""
	}
	password, err := c.unlocker.GetPassword(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to get password from unlocker")
		return ""
	}
	return password
}

func (c *LifecycleController) beginProcessing(from LifecycleState) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.state == StateProcessing {
		return ErrBusy
	}
	if c.state != from {
		return ErrInvalidState
	}
	c.state = StateProcessing
	c.lastFailure = nil
	return nil
}

func (c *LifecycleController) fail(fallback LifecycleState, failure *Failure) {
	c.lock.Lock()
	c.state = fallback
	c.lastFailure = failure
	c.lock.Unlock()

	entry := log.WithField("step", failure.Kind.String())
	if failure.Err != nil {
		entry = entry.WithError(failure.Err)
	}
	entry.Warn(failure.Message)
}

func (c *LifecycleController) succeed(next LifecycleState) {
	c.lock.Lock()
	c.state = next
	c.lastFailure = nil
	c.lock.Unlock()

	log.Infof("wallet lifecycle entering %s state", next)
}

func (c *LifecycleController) startSyncer() {
	if c.syncer == nil {
		return
	}
	if err := c.syncer.Start(); err != nil {
		log.WithError(err).Warn("failed to start tx sync")
	}
}
