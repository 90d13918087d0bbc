package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blocknetdx/xlited/internal/core/application"
	"github.com/blocknetdx/xlited/internal/core/ports"
	hostdaemon "github.com/blocknetdx/xlited/internal/infrastructure/daemon/host"
	rpcdaemon "github.com/blocknetdx/xlited/internal/infrastructure/daemon/rpc"
	"github.com/blocknetdx/xlited/internal/infrastructure/kvstore"
	"github.com/blocknetdx/xlited/internal/infrastructure/manifest"
	scheduler "github.com/blocknetdx/xlited/internal/infrastructure/scheduler/gocron"
	envunlocker "github.com/blocknetdx/xlited/internal/infrastructure/unlocker/env"
	fileunlocker "github.com/blocknetdx/xlited/internal/infrastructure/unlocker/file"
	"github.com/blocknetdx/xlited/internal/infrastructure/vault"
	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	supportedStores = supportedType{
		kvstore.InMemoryStore: {},
		kvstore.FileStore:     {},
		kvstore.BadgerStore:   {},
		kvstore.SqliteStore:   {},
	}
	supportedUnlockers = supportedType{
		"env":  {},
		"file": {},
	}
)

type Config struct {
	Datadir         string
	LogLevel        int
	StoreType       string
	ManifestPath    string
	XBridgeInfoPath string
	Tickers         []string

	RPCHost            string
	RPCUser            string
	RPCPass            string `json:"-"`
	MasterRPCPort      int
	DaemonCommand      string
	DaemonStartTimeout time.Duration

	SyncInterval       int64
	MinRefetchInterval time.Duration
	FetchOverlap       int64
	UnspentMaxAge      time.Duration

	ScryptN          int
	PBKDF2Iterations int

	UnlockerType     string
	UnlockerFilePath string // file unlocker
	WalletPassword   string `json:"-"` // env unlocker
	AutoLogin        bool
	Dev              bool

	manifest  *manifest.Manifest
	store     ports.KVStore
	vault     ports.Vault
	host      *hostdaemon.Service
	wallets   []*application.Wallet
	scheduler ports.SchedulerService
	syncer    *application.Syncer
	unlocker  ports.Unlocker
	lifecycle *application.LifecycleController
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir            = "DATADIR"
	LogLevel           = "LOG_LEVEL"
	StoreType          = "STORE_TYPE"
	ManifestPath       = "MANIFEST_PATH"
	XBridgeInfoPath    = "XBRIDGE_INFO_PATH"
	Tickers            = "TICKERS"
	RPCHost            = "RPC_HOST"
	RPCUser            = "RPC_USER"
	RPCPass            = "RPC_PASS"
	MasterRPCPort      = "MASTER_RPC_PORT"
	DaemonCommand      = "DAEMON_COMMAND"
	DaemonStartTimeout = "DAEMON_START_TIMEOUT"
	SyncInterval       = "SYNC_INTERVAL"
	MinRefetchInterval = "MIN_REFETCH_INTERVAL"
	FetchOverlap       = "FETCH_OVERLAP"
	UnspentMaxAge      = "UNSPENT_MAX_AGE"
	ScryptN            = "SCRYPT_N"
	PBKDF2Iterations   = "PBKDF2_ITERATIONS"
	UnlockerType       = "UNLOCKER_TYPE"
	UnlockerFilePath   = "UNLOCKER_FILE_PATH"
	WalletPassword     = "WALLET_PASS"
	AutoLogin          = "AUTOLOGIN"
	Dev                = "DEV"

	defaultDatadir            = btcutil.AppDataDir("xlited", false)
	defaultLogLevel           = 4
	defaultStoreType          = kvstore.SqliteStore
	defaultManifestFile       = "manifest-latest.json"
	defaultTickers            = "BLOCK"
	defaultRPCHost            = "127.0.0.1"
	defaultMasterRPCPort      = 9000
	defaultDaemonStartTimeout = 30 // seconds
	defaultSyncInterval       = application.DefaultSyncInterval
	defaultMinRefetchInterval = 30 // seconds
	defaultFetchOverlap       = application.DefaultFetchOverlap
	defaultUnspentMaxAge      = 60 // seconds
	defaultScryptN            = vault.DefaultScryptN
	defaultPBKDF2Iterations   = vault.DefaultPBKDF2Iterations
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("XLITE")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(StoreType, defaultStoreType)
	viper.SetDefault(Tickers, defaultTickers)
	viper.SetDefault(RPCHost, defaultRPCHost)
	viper.SetDefault(MasterRPCPort, defaultMasterRPCPort)
	viper.SetDefault(DaemonStartTimeout, defaultDaemonStartTimeout)
	viper.SetDefault(SyncInterval, defaultSyncInterval)
	viper.SetDefault(MinRefetchInterval, defaultMinRefetchInterval)
	viper.SetDefault(FetchOverlap, defaultFetchOverlap)
	viper.SetDefault(UnspentMaxAge, defaultUnspentMaxAge)
	viper.SetDefault(ScryptN, defaultScryptN)
	viper.SetDefault(PBKDF2Iterations, defaultPBKDF2Iterations)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	datadir := viper.GetString(Datadir)
	manifestPath := viper.GetString(ManifestPath)
	if len(manifestPath) <= 0 {
		manifestPath = filepath.Join(datadir, defaultManifestFile)
	}

	return &Config{
		Datadir:            datadir,
		LogLevel:           viper.GetInt(LogLevel),
		StoreType:          viper.GetString(StoreType),
		ManifestPath:       manifestPath,
		XBridgeInfoPath:    viper.GetString(XBridgeInfoPath),
		Tickers:            parseList(viper.GetString(Tickers)),
		RPCHost:            viper.GetString(RPCHost),
		RPCUser:            viper.GetString(RPCUser),
		RPCPass:            viper.GetString(RPCPass),
		MasterRPCPort:      viper.GetInt(MasterRPCPort),
		DaemonCommand:      viper.GetString(DaemonCommand),
		DaemonStartTimeout: time.Duration(viper.GetInt64(DaemonStartTimeout)) * time.Second,
		SyncInterval:       viper.GetInt64(SyncInterval),
		MinRefetchInterval: time.Duration(viper.GetInt64(MinRefetchInterval)) * time.Second,
		FetchOverlap:       viper.GetInt64(FetchOverlap),
		UnspentMaxAge:      time.Duration(viper.GetInt64(UnspentMaxAge)) * time.Second,
		ScryptN:            viper.GetInt(ScryptN),
		PBKDF2Iterations:   viper.GetInt(PBKDF2Iterations),
		UnlockerType:       viper.GetString(UnlockerType),
		UnlockerFilePath:   viper.GetString(UnlockerFilePath),
		WalletPassword:     viper.GetString(WalletPassword),
		AutoLogin:          viper.GetBool(AutoLogin),
		Dev:                viper.GetBool(Dev),
	}, nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func parseList(value string) []string {
	list := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); len(item) > 0 {
			list = append(list, item)
		}
	}
	return list
}

// Validate checks the config and builds all the services it describes.
func (c *Config) Validate() error {
	if !supportedStores.supports(c.StoreType) {
		return fmt.Errorf("store type not supported, please select one of: %s", supportedStores)
	}
	if len(c.UnlockerType) > 0 && !supportedUnlockers.supports(c.UnlockerType) {
		return fmt.Errorf("unlocker type not supported, please select one of: %s", supportedUnlockers)
	}
	if len(c.Tickers) <= 0 {
		return fmt.Errorf("missing tickers, at least one asset must be enabled")
	}
	if c.MasterRPCPort <= 0 || c.MasterRPCPort > 65535 {
		return fmt.Errorf("invalid master rpc port %d", c.MasterRPCPort)
	}
	if c.SyncInterval < 1 {
		return fmt.Errorf("invalid sync interval, must be at least 1 second")
	}
	if c.MinRefetchInterval < 0 {
		return fmt.Errorf("invalid min refetch interval, must not be negative")
	}
	if c.FetchOverlap < 0 {
		return fmt.Errorf("invalid fetch overlap, must not be negative")
	}

	if err := c.manifestService(); err != nil {
		return err
	}
	if err := c.storeService(); err != nil {
		return err
	}
	if err := c.vaultService(); err != nil {
		return err
	}
	if err := c.hostService(); err != nil {
		return err
	}
	if err := c.walletServices(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.syncerService(); err != nil {
		return err
	}
	if err := c.unlockerService(); err != nil {
		return err
	}
	return c.lifecycleService()
}

func (c *Config) Manifest() *manifest.Manifest {
	return c.manifest
}

func (c *Config) Store() ports.KVStore {
	return c.store
}

func (c *Config) Host() *hostdaemon.Service {
	return c.host
}

func (c *Config) Wallets() []*application.Wallet {
	return c.wallets
}

// Wallet returns the wallet of the given enabled ticker.
func (c *Config) Wallet(ticker string) (*application.Wallet, error) {
	for _, w := range c.wallets {
		if strings.EqualFold(w.Ticker(), ticker) {
			return w, nil
		}
	}
	return nil, fmt.Errorf("asset %s not enabled, select one of: %s", ticker, strings.Join(c.Tickers, ", "))
}

func (c *Config) Syncer() *application.Syncer {
	return c.syncer
}

func (c *Config) LifecycleController() *application.LifecycleController {
	return c.lifecycle
}

// Close stops the services built by Validate.
func (c *Config) Close() {
	if c.syncer != nil {
		c.syncer.Stop()
	}
	if c.host != nil {
		if err := c.host.Stop(); err != nil {
			log.WithError(err).Warn("failed to stop wallet daemon")
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			log.WithError(err).Warn("failed to close store")
		}
	}
}

func (c *Config) manifestService() error {
	m, err := manifest.Load(c.ManifestPath, c.XBridgeInfoPath)
	if err != nil {
		return err
	}
	for _, ticker := range c.Tickers {
		if _, ok := m.GetAsset(ticker); !ok {
			return fmt.Errorf("asset %s not found in manifest", ticker)
		}
	}
	c.manifest = m
	return nil
}

func (c *Config) storeService() error {
	dir := filepath.Join(c.Datadir, "db")
	svc, err := kvstore.NewStore(c.StoreType, dir, log.New())
	if err != nil {
		return err
	}
	c.store = svc
	return nil
}

func (c *Config) vaultService() error {
	svc, err := vault.NewService(vault.Config{
		ScryptN:          c.ScryptN,
		PBKDF2Iterations: c.PBKDF2Iterations,
	})
	if err != nil {
		return err
	}
	c.vault = svc
	return nil
}

func (c *Config) hostService() error {
	master, err := rpcdaemon.NewClient(rpcdaemon.Config{
		Ticker: "master",
		Host:   net.JoinHostPort(c.RPCHost, strconv.Itoa(c.MasterRPCPort)),
		User:   c.RPCUser,
		Pass:   c.RPCPass,
	})
	if err != nil {
		return err
	}

	svc, err := hostdaemon.NewService(hostdaemon.Config{
		Datadir:       c.Datadir,
		Assets:        c.manifest.Assets(),
		RPCUser:       c.RPCUser,
		RPCPass:       c.RPCPass,
		MasterRPCPort: c.MasterRPCPort,
		DaemonCommand: c.DaemonCommand,
		StartTimeout:  c.DaemonStartTimeout,
	}, c.vault, master)
	if err != nil {
		return err
	}
	c.host = svc
	return nil
}

func (c *Config) walletServices() error {
	wallets := make([]*application.Wallet, 0, len(c.Tickers))
	for _, ticker := range c.Tickers {
		asset, _ := c.manifest.GetAsset(ticker)
		if asset.Fee == nil || asset.Fee.RPCPort <= 0 {
			return fmt.Errorf("missing rpc port for asset %s, check xbridge info", ticker)
		}

		daemon, err := rpcdaemon.NewClient(rpcdaemon.Config{
			Ticker: asset.Ticker,
			Host:   net.JoinHostPort(c.RPCHost, strconv.Itoa(asset.Fee.RPCPort)),
			User:   c.RPCUser,
			Pass:   c.RPCPass,
			Coin:   asset.SmallestUnit(),
		})
		if err != nil {
			return err
		}

		wallet, err := application.NewWallet(
			asset, c.store, daemon,
			application.WithMinRefetchInterval(c.MinRefetchInterval),
			application.WithFetchOverlap(c.FetchOverlap),
		)
		if err != nil {
			return err
		}
		wallets = append(wallets, wallet)
	}
	c.wallets = wallets
	return nil
}

func (c *Config) schedulerService() error {
	c.scheduler = scheduler.NewScheduler()
	return nil
}

func (c *Config) syncerService() error {
	svc, err := application.NewSyncer(c.scheduler, c.SyncInterval, c.wallets...)
	if err != nil {
		return err
	}
	c.syncer = svc
	return nil
}

func (c *Config) unlockerService() error {
	unlockerType := c.UnlockerType
	if len(unlockerType) <= 0 {
		if len(c.WalletPassword) <= 0 {
			return nil
		}
		unlockerType = "env"
	}

	var svc ports.Unlocker
	var err error
	switch unlockerType {
	case "file":
		svc, err = fileunlocker.NewService(c.UnlockerFilePath)
	case "env":
		svc, err = envunlocker.NewService(c.WalletPassword)
	default:
		err = fmt.Errorf("unknown unlocker type")
	}
	if err != nil {
		return err
	}
	c.unlocker = svc
	return nil
}

func (c *Config) lifecycleService() error {
	opts := []application.LifecycleOption{application.WithSyncer(c.syncer)}
	if c.unlocker != nil {
		// Unattended unlock is only available in dev mode.
		if c.AutoLogin && c.Dev {
			opts = append(opts, application.WithAutoUnlock(c.unlocker))
		} else {
			opts = append(opts, application.WithUnlocker(c.unlocker))
		}
	}

	svc, err := application.NewLifecycleController(c.host, c.vault, opts...)
	if err != nil {
		return err
	}
	c.lifecycle = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
