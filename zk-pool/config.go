package zk_pool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/holiman/uint256"
	"github.com/kysee/zkpool/zk-pool/merkle"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/kysee/zkpool/zk-pool/zk"
)

// Config holds the settings of one pool instance.
type Config struct {
	// Storage; an empty DataDir keeps the pool in memory
	DataDir string `json:"data_dir"`

	// Membership tree
	TreeDepth   int `json:"tree_depth"`
	RootHistory int `json:"root_history"`

	// Proving
	ProvingScheme       string `json:"proving_scheme"`
	ProvingKeyPath      string `json:"proving_key_path"`
	VerificationKeyPath string `json:"verification_key_path"`

	// Fixed deposit amount in wei
	Denomination string `json:"denomination"`

	LogLevel string `json:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:             "data",
		TreeDepth:           20,
		RootHistory:         merkle.DefaultRootHistory,
		ProvingScheme:       zk.ProtocolGroth16,
		ProvingKeyPath:      "keys/withdraw.pk",
		VerificationKeyPath: "keys/withdraw.vk.json",
		Denomination:        "100000000000000000",
		LogLevel:            "info",
	}
}

// LoadConfig reads the config at path. A missing file is replaced by the
// default config, which is written back.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open config file: %v", types.ErrConfig, err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("%w: failed to decode config file: %v", types.ErrConfig, err)
		}
		return &config, nil
	}

	config := DefaultConfig()
	if err := SaveConfig(config, path); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

func SaveConfig(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.TreeDepth <= 0 || c.TreeDepth > merkle.MaxDepth {
		return fmt.Errorf("%w: tree_depth must be in 1..%d", types.ErrConfig, merkle.MaxDepth)
	}
	if c.RootHistory <= 0 {
		return fmt.Errorf("%w: root_history must be positive", types.ErrConfig)
	}
	if c.ProvingScheme != zk.ProtocolGroth16 && c.ProvingScheme != zk.ProtocolPlonk {
		return fmt.Errorf("%w: unknown proving_scheme %q", types.ErrConfig, c.ProvingScheme)
	}
	if c.VerificationKeyPath == "" {
		return fmt.Errorf("%w: verification_key_path is required", types.ErrConfig)
	}
	if _, err := c.DenominationValue(); err != nil {
		return err
	}
	return nil
}

// DenominationValue parses Denomination as a positive uint256.
func (c *Config) DenominationValue() (*uint256.Int, error) {
	d, err := uint256.FromDecimal(c.Denomination)
	if err != nil {
		return nil, fmt.Errorf("%w: denomination %q: %v", types.ErrConfig, c.Denomination, err)
	}
	if d.IsZero() {
		return nil, fmt.Errorf("%w: denomination must be positive", types.ErrConfig)
	}
	return d, nil
}
