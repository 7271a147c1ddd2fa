// Package config loads the immutable parameters the staking engine is
// constructed with. Everything that can change after construction
// (reward schedule entries, enablement, start timestamp) lives in engine
// state instead, not here.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config holds the engine's construction-time parameters.
type Config struct {
	// DataDir is where the durable LevelDB store lives. Defaulted and
	// persisted back to disk if the config file omits it, mirroring the
	// teacher's lazy-default-then-persist behavior for generated fields.
	DataDir string `toml:"DataDir"`

	// CycleSeconds is the wall-clock width of one cycle. Must be >= 60.
	CycleSeconds uint32 `toml:"CycleSeconds"`
	// PeriodCycles is the number of cycles per reward period. Must be >= 2.
	PeriodCycles uint16 `toml:"PeriodCycles"`

	// NFTTransport is the whitelisted address allowed to call the stake
	// path and the engine's receiver hooks.
	NFTTransport string `toml:"NFTTransport"`
	// RewardToken is the address of the reward-token transport used for
	// funding and paying out claims.
	RewardToken string `toml:"RewardToken"`

	// Owner is the address authorized to call administrative operations.
	Owner string `toml:"Owner"`

	// Vault is this engine's own identity in the reward-token transport's
	// ledger: the recipient add_rewards() funds transfer_from into, and
	// the sender claim() pays out of.
	Vault string `toml:"Vault"`

	// Environment is a free-form deployment label included on every log line.
	Environment string `toml:"Environment"`
}

// Load reads cfg from path, writing out a default file first if one does
// not already exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "./nftstaking-data"
		if err := save(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:      "./nftstaking-data",
		CycleSeconds: 86400,
		PeriodCycles: 7,
		Environment:  "dev",
	}
	if err := save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func save(path string, cfg *Config) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}

// Validate enforces the invariants spec.md places on the immutable
// scalars (§3): period_cycles >= 2, cycle_seconds >= 60.
func (c *Config) Validate() error {
	if c.CycleSeconds < 60 {
		return fmt.Errorf("config: CycleSeconds must be >= 60, got %d", c.CycleSeconds)
	}
	if c.PeriodCycles < 2 {
		return fmt.Errorf("config: PeriodCycles must be >= 2, got %d", c.PeriodCycles)
	}
	return nil
}

// NFTTransportAddress parses the configured NFT transport address.
func (c *Config) NFTTransportAddress() (common.Address, error) {
	return parseAddress(c.NFTTransport)
}

// RewardTokenAddress parses the configured reward-token transport address.
func (c *Config) RewardTokenAddress() (common.Address, error) {
	return parseAddress(c.RewardToken)
}

// OwnerAddress parses the configured administrative owner address.
func (c *Config) OwnerAddress() (common.Address, error) {
	return parseAddress(c.Owner)
}

// VaultAddress parses the engine's own reward-token ledger identity.
func (c *Config) VaultAddress() (common.Address, error) {
	return parseAddress(c.Vault)
}

func parseAddress(raw string) (common.Address, error) {
	if raw == "" || !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("config: invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}
