package hostdaemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/spf13/viper"
)

const (
	settingsDir        = "settings"
	masterConfigFile   = "config-master.json"
	assetConfigPattern = "config-%s.json"
	masterTicker       = "master"
)

// writeSettings merges defaults into the config file at path. Values already
// present in the file are kept.
func writeSettings(path string, defaults map[string]interface{}) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
	}

	changed := false
	for key, value := range defaults {
		if !v.IsSet(key) {
			v.Set(key, value)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Service) masterSettings() map[string]interface{} {
	return map[string]interface{}{
		"ticker":       masterTicker,
		"rpc_enabled":  true,
		"rpc_port":     s.cfg.MasterRPCPort,
		"rpc_username": s.cfg.RPCUser,
		"rpc_password": s.cfg.RPCPass,
	}
}

func assetSettings(asset domain.Asset) map[string]interface{} {
	settings := map[string]interface{}{
		"ticker":      asset.Ticker,
		"rpc_enabled": true,
		"conf_name":   asset.ConfName,
		"coin":        asset.SmallestUnit(),
	}
	if asset.Fee != nil {
		settings["rpc_port"] = asset.Fee.RPCPort
		settings["fee_per_byte"] = asset.Fee.FeePerByte
		settings["min_tx_fee"] = asset.Fee.MinTxFee
	}
	return settings
}

func assetConfigFilename(ticker string) string {
	return fmt.Sprintf(assetConfigPattern, strings.ToUpper(ticker))
}
