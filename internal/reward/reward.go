// Package reward computes the terminal split of a settled game's pool.
// Pure integer arithmetic, no I/O, no ledger access: the ledger and the
// bridge both call into it so the economics they report always agree.
package reward

import (
	"fmt"

	"cosmossdk.io/math"
)

const (
	// MaxHouseCutBps caps the configurable house cut at 10%.
	MaxHouseCutBps = 1000

	bpsDenominator = 10_000
)

// Split is the exact outcome of a settlement.
//
// Conservation: HouseFee + RewardPerWinner*winnerCount + Remainder == pool.
// The remainder from integer division is retained by the ledger, never
// credited to anyone.
type Split struct {
	HouseFee        math.Int `json:"houseFee"`
	RewardPool      math.Int `json:"rewardPool"`
	RewardPerWinner math.Int `json:"rewardPerWinner"`
	Remainder       math.Int `json:"remainder"`
}

// Compute splits totalPool between winnerCount winners and the house.
//
// houseFee = floor(totalPool * houseCutBps / 10000)
// rewardPerWinner = floor((totalPool - houseFee) / winnerCount)
//
// A zero pool is a valid no-op settlement; an empty winner set is not
// (callers must reject it before the pool math is reachable).
func Compute(totalPool math.Int, winnerCount int, houseCutBps uint32) (Split, error) {
	if totalPool.IsNil() || totalPool.IsNegative() {
		return Split{}, fmt.Errorf("invalid total pool")
	}
	if winnerCount <= 0 {
		return Split{}, fmt.Errorf("winner count must be positive, got %d", winnerCount)
	}
	if houseCutBps > MaxHouseCutBps {
		return Split{}, fmt.Errorf("house cut %d bps exceeds maximum %d", houseCutBps, MaxHouseCutBps)
	}

	houseFee := totalPool.MulRaw(int64(houseCutBps)).QuoRaw(bpsDenominator)
	rewardPool := totalPool.Sub(houseFee)
	rewardPerWinner := rewardPool.QuoRaw(int64(winnerCount))
	remainder := rewardPool.Sub(rewardPerWinner.MulRaw(int64(winnerCount)))

	return Split{
		HouseFee:        houseFee,
		RewardPool:      rewardPool,
		RewardPerWinner: rewardPerWinner,
		Remainder:       remainder,
	}, nil
}
