package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ember-net/ember-chain/pkg/params"
	"github.com/ember-net/ember-chain/pkg/types"
)

// Currency is the on-disk definition of one currency's ledger rules. These
// must match across every node of the currency or validation diverges.
// Changing a schedule after launch is a hard fork.
type Currency struct {
	Name string `json:"name"`

	// GenesisDigest is the uppercase hex digest of the genesis block.
	// Empty only while a brand new currency's genesis is being mined.
	GenesisDigest string `json:"genesis_digest,omitempty"`

	MinimumFee int64 `json:"minimum_fee"`

	// Schedules are step functions over block height. The step at height 0
	// is mandatory; later steps install regime changes.
	Rewards      []RewardStep     `json:"rewards"`
	Difficulties []DifficultyStep `json:"difficulties"`
}

// RewardStep sets the mining reward at and after Height.
type RewardStep struct {
	Height int32 `json:"height"`
	Amount int64 `json:"amount"`
}

// DifficultyStep sets the difficulty threshold at and after Height. The
// threshold is an uppercase hex string a block header digest must compare
// at or below.
type DifficultyStep struct {
	Height    int32  `json:"height"`
	Threshold string `json:"threshold"`
}

// LoadCurrency reads and validates a currency definition file.
func LoadCurrency(path string) (*Currency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read currency file: %w", err)
	}
	var c Currency
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse currency file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("currency file %s: %w", path, err)
	}
	return &c, nil
}

// Save writes the currency definition as indented JSON.
func (c *Currency) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode currency: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write currency file: %w", err)
	}
	return nil
}

// Validate checks the definition for operator mistakes.
func (c *Currency) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.GenesisDigest != "" {
		if _, err := types.DigestFromHex(c.GenesisDigest); err != nil {
			return fmt.Errorf("genesis_digest: %w", err)
		}
	}
	if c.MinimumFee < 0 {
		return fmt.Errorf("minimum_fee must not be negative")
	}
	if err := c.checkSchedules(); err != nil {
		return err
	}
	return nil
}

func (c *Currency) checkSchedules() error {
	if len(c.Rewards) == 0 {
		return fmt.Errorf("rewards must have a step at height 0")
	}
	if len(c.Difficulties) == 0 {
		return fmt.Errorf("difficulties must have a step at height 0")
	}
	var hasRewardZero, hasDifficultyZero bool
	for _, s := range c.Rewards {
		if s.Height < 0 {
			return fmt.Errorf("rewards: negative height %d", s.Height)
		}
		if s.Height == 0 {
			hasRewardZero = true
		}
		if s.Amount < 0 {
			return fmt.Errorf("rewards: negative amount at height %d", s.Height)
		}
	}
	for _, s := range c.Difficulties {
		if s.Height < 0 {
			return fmt.Errorf("difficulties: negative height %d", s.Height)
		}
		if s.Height == 0 {
			hasDifficultyZero = true
		}
		if s.Threshold == "" {
			return fmt.Errorf("difficulties: empty threshold at height %d", s.Height)
		}
	}
	if !hasRewardZero {
		return fmt.Errorf("rewards must have a step at height 0")
	}
	if !hasDifficultyZero {
		return fmt.Errorf("difficulties must have a step at height 0")
	}
	return nil
}

// ToParams builds the runtime ledger parameters from the definition.
func (c *Currency) ToParams() (*params.Params, error) {
	var reward0 int64
	var difficulty0 string
	for _, s := range c.Rewards {
		if s.Height == 0 {
			reward0 = s.Amount
		}
	}
	for _, s := range c.Difficulties {
		if s.Height == 0 {
			difficulty0 = s.Threshold
		}
	}

	p, err := params.New(c.Name, c.GenesisDigest, c.MinimumFee, reward0, difficulty0)
	if err != nil {
		return nil, err
	}
	for _, s := range c.Rewards {
		if s.Height != 0 {
			p.SetReward(s.Height, s.Amount)
		}
	}
	for _, s := range c.Difficulties {
		if s.Height != 0 {
			p.SetDifficulty(s.Height, s.Threshold)
		}
	}
	return p, nil
}

// FromParams captures runtime parameters back into a definition, used when
// creating a brand new currency whose genesis digest is only known after
// mining.
func FromParams(p *params.Params) *Currency {
	c := &Currency{
		Name:       p.Name(),
		MinimumFee: p.MinimumFee(),
		Rewards:    []RewardStep{{Height: 0, Amount: p.Reward(0)}},
		Difficulties: []DifficultyStep{
			{Height: 0, Threshold: p.Difficulty(0)},
		},
	}
	if !p.GenesisDigest().IsZero() {
		c.GenesisDigest = p.GenesisDigest().Hex()
	}
	return c
}
