package params

import (
	"strings"
	"testing"

	"github.com/ember-net/ember-chain/pkg/types"
)

func newTestParams(t *testing.T) *Params {
	t.Helper()
	p, err := New("testcoin", "", 2, 100, "0001")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNewRejectsBadGenesisHex(t *testing.T) {
	if _, err := New("testcoin", "not hex", 2, 100, "0001"); err == nil {
		t.Error("New accepted a malformed genesis digest")
	}
}

func TestRewardFloorLookup(t *testing.T) {
	p := newTestParams(t)
	p.SetReward(100, 50)
	p.SetReward(200, 25)

	cases := []struct {
		height int32
		want   int64
	}{
		{0, 100},
		{99, 100},
		{100, 50},
		{150, 50},
		{200, 25},
		{1 << 30, 25},
	}
	for _, c := range cases {
		if got := p.Reward(c.height); got != c.want {
			t.Errorf("Reward(%d) = %d, want %d", c.height, got, c.want)
		}
	}
}

func TestRewardOverwritesSameHeight(t *testing.T) {
	p := newTestParams(t)
	p.SetReward(100, 50)
	p.SetReward(100, 75)
	if got := p.Reward(100); got != 75 {
		t.Errorf("Reward(100) = %d, want 75", got)
	}
	if got := p.Reward(99); got != 100 {
		t.Errorf("Reward(99) = %d, want 100", got)
	}
}

func TestRewardOutOfOrderInstallation(t *testing.T) {
	p := newTestParams(t)
	p.SetReward(200, 25)
	p.SetReward(100, 50)
	if got := p.Reward(150); got != 50 {
		t.Errorf("Reward(150) = %d, want 50", got)
	}
	if got := p.Reward(250); got != 25 {
		t.Errorf("Reward(250) = %d, want 25", got)
	}
}

func TestDifficultyNormalizesCase(t *testing.T) {
	p := newTestParams(t)
	p.SetDifficulty(10, "00ab")
	if got := p.Difficulty(10); got != "00AB" {
		t.Errorf("Difficulty(10) = %q, want 00AB", got)
	}
	if got := p.Difficulty(9); got != "0001" {
		t.Errorf("Difficulty(9) = %q, want 0001", got)
	}
}

func TestMeetsDifficulty(t *testing.T) {
	p := newTestParams(t)

	meets, err := types.DigestFromHex("0000" + strings.Repeat("ff", 30))
	if err != nil {
		t.Fatalf("DigestFromHex: %v", err)
	}
	if !p.MeetsDifficulty(0, meets) {
		t.Errorf("digest %s should meet target 0001", meets)
	}

	// A digest starting with the target prefix sorts after the bare
	// target string and therefore misses it.
	misses, err := types.DigestFromHex("0001" + strings.Repeat("00", 30))
	if err != nil {
		t.Fatalf("DigestFromHex: %v", err)
	}
	if p.MeetsDifficulty(0, misses) {
		t.Errorf("digest %s should miss target 0001", misses)
	}

	p.SetDifficulty(50, strings.Repeat("F", 64))
	if !p.MeetsDifficulty(50, misses) {
		t.Error("digest should meet the relaxed target at height 50")
	}
	if p.MeetsDifficulty(49, misses) {
		t.Error("relaxed target must not apply below its height")
	}
}

func TestGenesisDigestLifecycle(t *testing.T) {
	p := newTestParams(t)
	if !p.GenesisDigest().IsZero() {
		t.Error("genesis digest should start zero")
	}
	d, err := types.DigestFromHex(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("DigestFromHex: %v", err)
	}
	p.SetGenesisDigest(d)
	if got := p.GenesisDigest(); got != d {
		t.Errorf("GenesisDigest = %s, want %s", got, d)
	}
}
