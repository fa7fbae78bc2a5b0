// Package params holds the per-currency ledger parameters: genesis identity,
// the minimum transaction fee, and the height-indexed schedules for mining
// reward and proof-of-work difficulty.
package params

import (
	"sort"
	"strings"

	"github.com/ember-net/ember-chain/pkg/types"
)

// rewardStep is one regime of the mining reward schedule, effective at and
// after Height.
type rewardStep struct {
	Height int32
	Amount int64
}

// difficultyStep is one regime of the difficulty schedule, effective at and
// after Height. Threshold is an uppercase hex string that a block header
// digest must compare lexicographically less than or equal to.
type difficultyStep struct {
	Height    int32
	Threshold string
}

// Params is the configuration of one currency. The schedules are step
// functions with floor-lookup semantics: a query at height h picks the
// regime with the largest threshold height <= h. Installing a regime at a
// new height models a hard-fork style parameter change.
type Params struct {
	name          string
	genesisDigest types.Digest
	minimumFee    int64

	rewards      []rewardStep
	difficulties []difficultyStep
}

// New creates the parameters for a currency, seeding the reward and
// difficulty schedules at height 0. genesisHex may be empty while a brand
// new currency's genesis block is still being mined; use SetGenesisDigest
// once the digest is known.
func New(name, genesisHex string, minimumFee, initialReward int64, initialDifficulty string) (*Params, error) {
	p := &Params{
		name:       name,
		minimumFee: minimumFee,
	}
	if genesisHex != "" {
		d, err := types.DigestFromHex(genesisHex)
		if err != nil {
			return nil, err
		}
		p.genesisDigest = d
	}
	p.SetReward(0, initialReward)
	p.SetDifficulty(0, initialDifficulty)
	return p, nil
}

// Name returns the currency name.
func (p *Params) Name() string {
	return p.name
}

// GenesisDigest returns the digest of the currency's genesis block.
func (p *Params) GenesisDigest() types.Digest {
	return p.genesisDigest
}

// SetGenesisDigest records the genesis block digest. Only meaningful while
// creating a brand new currency, before any validation has run.
func (p *Params) SetGenesisDigest(d types.Digest) {
	p.genesisDigest = d
}

// MinimumFee returns the minimum fee for a non-coinbase transaction.
func (p *Params) MinimumFee() int64 {
	return p.minimumFee
}

// SetReward installs a mining reward effective for blocks at and after the
// given height. Setting an existing height overwrites that regime.
func (p *Params) SetReward(height int32, amount int64) {
	i := sort.Search(len(p.rewards), func(i int) bool { return p.rewards[i].Height >= height })
	if i < len(p.rewards) && p.rewards[i].Height == height {
		p.rewards[i].Amount = amount
		return
	}
	p.rewards = append(p.rewards, rewardStep{})
	copy(p.rewards[i+1:], p.rewards[i:])
	p.rewards[i] = rewardStep{Height: height, Amount: amount}
}

// Reward returns the mining reward in effect for a block at the given
// height (floor lookup).
func (p *Params) Reward(height int32) int64 {
	i := sort.Search(len(p.rewards), func(i int) bool { return p.rewards[i].Height > height })
	if i == 0 {
		return 0
	}
	return p.rewards[i-1].Amount
}

// SetDifficulty installs a difficulty threshold effective for blocks at and
// after the given height. The threshold is normalized to uppercase so it
// compares correctly against Digest.Hex output.
func (p *Params) SetDifficulty(height int32, threshold string) {
	threshold = strings.ToUpper(threshold)
	i := sort.Search(len(p.difficulties), func(i int) bool { return p.difficulties[i].Height >= height })
	if i < len(p.difficulties) && p.difficulties[i].Height == height {
		p.difficulties[i].Threshold = threshold
		return
	}
	p.difficulties = append(p.difficulties, difficultyStep{})
	copy(p.difficulties[i+1:], p.difficulties[i:])
	p.difficulties[i] = difficultyStep{Height: height, Threshold: threshold}
}

// Difficulty returns the difficulty threshold in effect for a block at the
// given height (floor lookup).
func (p *Params) Difficulty(height int32) string {
	i := sort.Search(len(p.difficulties), func(i int) bool { return p.difficulties[i].Height > height })
	if i == 0 {
		return ""
	}
	return p.difficulties[i-1].Threshold
}

// MeetsDifficulty reports whether a block header digest satisfies the
// difficulty target for the given height. The comparison is lexicographic
// over uppercase hex strings, not numeric: a target such as "0001" admits
// exactly the digests whose hex form sorts at or below it.
func (p *Params) MeetsDifficulty(height int32, d types.Digest) bool {
	return strings.Compare(d.Hex(), p.Difficulty(height)) <= 0
}
