package hostdaemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/blocknetdx/xlited/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/go-bip39"
)

const (
	defaultStartTimeout = 30 * time.Second
	defaultPollInterval = time.Second
)

var (
	ErrWalletAlreadyCreated = errors.New("wallet already created")
	ErrDaemonExited         = errors.New("wallet daemon exited")
)

// RPCChecker reports whether the master rpc of the wallet daemon is up.
type RPCChecker interface {
	RPCEnabled(ctx context.Context) (bool, error)
}

type Config struct {
	Datadir       string
	Assets        []domain.Asset
	RPCUser       string
	RPCPass       string
	MasterRPCPort int
	// DaemonCommand launches the wallet daemon, which reads the mnemonic
	// from stdin. If empty the daemon is expected to be started externally.
	DaemonCommand string
	StartTimeout  time.Duration
	PollInterval  time.Duration
}

// Service manages the wallet daemon process, its configuration files and the
// stored credential.
type Service struct {
	cfg    Config
	vault  ports.Vault
	master RPCChecker

	credentialPath string
	settingsPath   string

	lock   *sync.Mutex
	cmd    *exec.Cmd
	exitCh chan error
}

func NewService(cfg Config, vault ports.Vault, master RPCChecker) (*Service, error) {
	if len(cfg.Datadir) <= 0 {
		return nil, fmt.Errorf("missing datadir")
	}
	if vault == nil {
		return nil, fmt.Errorf("missing vault")
	}
	if master == nil {
		return nil, fmt.Errorf("missing master rpc client")
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	settingsPath := filepath.Join(cfg.Datadir, settingsDir)
	if err := os.MkdirAll(settingsPath, 0700); err != nil {
		return nil, fmt.Errorf("failed to initialize datadir: %s", err)
	}

	return &Service{
		cfg:            cfg,
		vault:          vault,
		master:         master,
		credentialPath: filepath.Join(cfg.Datadir, credentialFilename),
		settingsPath:   settingsPath,
		lock:           &sync.Mutex{},
	}, nil
}

func (s *Service) IsWalletCreated(_ context.Context) (bool, error) {
	credential, err := readCredential(s.credentialPath)
	if err != nil {
		return false, err
	}
	return len(credential.EncryptedMnemonic) > 0, nil
}

func (s *Service) IsWalletRPCRunning(ctx context.Context) (bool, error) {
	return s.master.RPCEnabled(ctx)
}

// CreateWallet generates a new mnemonic. Nothing is persisted until the
// credential protecting it is saved.
func (s *Service) CreateWallet(ctx context.Context, _ string) (string, error) {
	created, err := s.IsWalletCreated(ctx)
	if err != nil {
		return "", err
	}
	if created {
		return "", ErrWalletAlreadyCreated
	}

	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

func (s *Service) GetStoredPasswordHash(_ context.Context) (string, error) {
	credential, err := readCredential(s.credentialPath)
	if err != nil {
		return "", err
	}
	return credential.PasswordHash, nil
}

func (s *Service) GetStoredSalt(_ context.Context) ([]byte, error) {
	credential, err := readCredential(s.credentialPath)
	if err != nil {
		return nil, err
	}
	return credential.Salt, nil
}

func (s *Service) SaveCredential(_ context.Context, credential domain.Credential) error {
	if err := credential.Validate(); err != nil {
		return fmt.Errorf("invalid credential: %w", err)
	}
	if err := writeCredential(s.credentialPath, credential); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// LoadConfigurations writes the master config and the config of every
// enabled asset, filling in missing values of existing files.
func (s *Service) LoadConfigurations(_ context.Context) error {
	if err := writeSettings(
		filepath.Join(s.settingsPath, masterConfigFile), s.masterSettings(),
	); err != nil {
		return err
	}
	for _, asset := range s.cfg.Assets {
		if err := writeSettings(
			filepath.Join(s.settingsPath, assetConfigFilename(asset.Ticker)),
			assetSettings(asset),
		); err != nil {
			return err
		}
	}
	log.Debugf("loaded configurations of %d assets", len(s.cfg.Assets))
	return nil
}

// StartWallet decrypts the stored mnemonic with password and launches the
// wallet daemon with it. It returns false if the password is wrong.
func (s *Service) StartWallet(ctx context.Context, password string) (bool, error) {
	credential, err := readCredential(s.credentialPath)
	if err != nil {
		return false, err
	}
	if credential.IsEmpty() {
		return false, fmt.Errorf("wallet not created")
	}

	ok, err := s.vault.VerifyPassword(password, credential.Salt, credential.PasswordHash)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	mnemonic, err := s.vault.Decrypt(credential.EncryptedMnemonic, password, credential.Salt)
	if err != nil {
		log.WithError(err).Debug("failed to decrypt mnemonic")
		return false, nil
	}

	running, err := s.master.RPCEnabled(ctx)
	if err != nil {
		return false, err
	}
	if running {
		return true, nil
	}

	if err := s.launch(string(mnemonic)); err != nil {
		return false, err
	}
	if err := s.waitForRPC(ctx); err != nil {
		return false, err
	}

	log.Info("wallet daemon started")
	return true, nil
}

// Stop terminates the wallet daemon if it was launched by this service.
func (s *Service) Stop() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		return s.cmd.Process.Kill()
	}

	select {
	case <-s.exitCh:
	case <-time.After(s.cfg.StartTimeout):
		return s.cmd.Process.Kill()
	}
	return nil
}

func (s *Service) launch(mnemonic string) error {
	args := strings.Fields(s.cfg.DaemonCommand)
	if len(args) <= 0 {
		log.Debug("no daemon command configured, waiting for external daemon")
		return nil
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.cmd != nil {
		return nil
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = s.cfg.Datadir
	cmd.Stdin = strings.NewReader(mnemonic + "\n")
	cmd.Stdout = log.StandardLogger().WriterLevel(log.DebugLevel)
	cmd.Stderr = log.StandardLogger().WriterLevel(log.WarnLevel)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch wallet daemon: %w", err)
	}

	exitCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		if err != nil {
			log.WithError(err).Warn("wallet daemon exited")
		} else {
			log.Info("wallet daemon exited")
		}
		exitCh <- err
		close(exitCh)

		s.lock.Lock()
		s.cmd = nil
		s.lock.Unlock()
	}()

	s.cmd = cmd
	s.exitCh = exitCh
	return nil
}

func (s *Service) waitForRPC(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StartTimeout)
	defer cancel()

	s.lock.Lock()
	exitCh := s.exitCh
	s.lock.Unlock()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("wallet rpc not reachable after %s", s.cfg.StartTimeout)
		case err := <-exitCh:
			if err == nil {
				return ErrDaemonExited
			}
			return fmt.Errorf("%w: %s", ErrDaemonExited, err)
		case <-ticker.C:
			running, err := s.master.RPCEnabled(ctx)
			if err != nil {
				log.WithError(err).Debug("failed to reach wallet rpc")
				continue
			}
			if running {
				return nil
			}
		}
	}
}
