package manifest

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/xeipuuv/gojsonschema"
	"sigs.k8s.io/yaml"
)

//go:embed schema/*.json
var schemas embed.FS

type token struct {
	Blockchain   string   `json:"blockchain"`
	Ticker       string   `json:"ticker"`
	VerID        string   `json:"ver_id"`
	VerName      string   `json:"ver_name"`
	ConfName     string   `json:"conf_name"`
	DirNameLinux string   `json:"dir_name_linux"`
	DirNameMac   string   `json:"dir_name_mac"`
	DirNameWin   string   `json:"dir_name_win"`
	RepoURL      string   `json:"repo_url"`
	Versions     []string `json:"versions"`
	XBridgeConf  string   `json:"xbridge_conf"`
	WalletConf   string   `json:"wallet_conf"`
}

func (t token) toAsset(fee *domain.FeeInfo) domain.Asset {
	return domain.Asset{
		Blockchain:   t.Blockchain,
		Ticker:       t.Ticker,
		VersionID:    t.VerID,
		VersionName:  t.VerName,
		ConfName:     t.ConfName,
		DirNameLinux: t.DirNameLinux,
		DirNameMac:   t.DirNameMac,
		DirNameWin:   t.DirNameWin,
		RepoURL:      t.RepoURL,
		Versions:     t.Versions,
		XBridgeConf:  t.XBridgeConf,
		WalletConf:   t.WalletConf,
	}.WithFee(fee)
}

type xbridgeInfo struct {
	Ticker     string `json:"ticker"`
	FeePerByte int64  `json:"feeperbyte"`
	MinTxFee   int64  `json:"mintxfee"`
	Coin       int64  `json:"coin"`
	RPCPort    int    `json:"rpcport"`
}

// Manifest indexes the supported assets by ticker.
type Manifest struct {
	assets map[string]domain.Asset
	order  []string
}

// New parses the token manifest and the optional xbridge fee info, both
// given as json arrays.
func New(manifestJSON, xbridgeInfoJSON []byte) (*Manifest, error) {
	if err := validate("schema/manifest.json", manifestJSON); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	tokens := make([]token, 0)
	if err := json.Unmarshal(manifestJSON, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	fees := make(map[string]*domain.FeeInfo)
	if len(xbridgeInfoJSON) > 0 {
		if err := validate("schema/xbridge_info.json", xbridgeInfoJSON); err != nil {
			return nil, fmt.Errorf("invalid xbridge info: %w", err)
		}
		infos := make([]xbridgeInfo, 0)
		if err := json.Unmarshal(xbridgeInfoJSON, &infos); err != nil {
			return nil, fmt.Errorf("failed to parse xbridge info: %w", err)
		}
		for _, info := range infos {
			fees[info.Ticker] = &domain.FeeInfo{
				Ticker:     info.Ticker,
				FeePerByte: info.FeePerByte,
				MinTxFee:   info.MinTxFee,
				Coin:       info.Coin,
				RPCPort:    info.RPCPort,
			}
		}
	}

	m := &Manifest{
		assets: make(map[string]domain.Asset, len(tokens)),
		order:  make([]string, 0, len(tokens)),
	}
	for _, t := range tokens {
		if _, ok := m.assets[t.Ticker]; ok {
			return nil, fmt.Errorf("duplicated ticker %s in manifest", t.Ticker)
		}
		m.assets[t.Ticker] = t.toAsset(fees[t.Ticker])
		m.order = append(m.order, t.Ticker)
	}
	return m, nil
}

// Load reads the manifest and xbridge info files. Files with a .yaml or .yml
// extension are converted to json first. An empty xbridgeInfoPath is
// allowed.
func Load(manifestPath, xbridgeInfoPath string) (*Manifest, error) {
	manifestJSON, err := readFile(manifestPath)
	if err != nil {
		return nil, err
	}

	var xbridgeInfoJSON []byte
	if len(xbridgeInfoPath) > 0 {
		if xbridgeInfoJSON, err = readFile(xbridgeInfoPath); err != nil {
			return nil, err
		}
	}
	return New(manifestJSON, xbridgeInfoJSON)
}

// GetAsset returns the asset with the given ticker.
func (m *Manifest) GetAsset(ticker string) (domain.Asset, bool) {
	asset, ok := m.assets[ticker]
	if !ok {
		return domain.Asset{}, false
	}
	return asset.WithFee(asset.Fee), true
}

// Assets returns all assets in manifest order.
func (m *Manifest) Assets() []domain.Asset {
	assets := make([]domain.Asset, 0, len(m.order))
	for _, ticker := range m.order {
		asset, _ := m.GetAsset(ticker)
		assets = append(assets, asset)
	}
	return assets
}

func readFile(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		buf, err = yaml.YAMLToJSON(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s to json: %w", path, err)
		}
	}
	return buf, nil
}

func validate(schemaPath string, document []byte) error {
	schema, err := schemas.ReadFile(schemaPath)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
