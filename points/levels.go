package points

import "math"

var DefaultThresholds = []int64{0, 1000, 2500, 5000, 10000, 25000}

type LevelInfo struct {
	Level       int   `json:"level"`
	CurrentCap  int64 `json:"current"`
	NextCap     int64 `json:"next"`
	ProgressPct int   `json:"progressPct"`
}

// ComputeLevel projects a points balance onto ascending level thresholds.
// Balances below the first threshold stay at level 0 with 0% progress,
// balances past the last threshold stay at the top level with 100%.
func ComputeLevel(points int64, thresholds []int64) LevelInfo {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	last := len(thresholds) - 1
	level := 0
	for i := range thresholds {
		if points < thresholds[i] {
			break
		}
		if i == last || points < thresholds[i+1] {
			level = i
			break
		}
	}
	curCap := thresholds[level]
	nextCap := thresholds[minInt(level+1, last)]
	denom := nextCap - curCap
	if denom < 1 {
		denom = 1
	}
	pct := math.Round(float64(points-curCap) / float64(denom) * 100)
	return LevelInfo{
		Level:       level,
		CurrentCap:  curCap,
		NextCap:     nextCap,
		ProgressPct: int(math.Max(0, math.Min(100, pct))),
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
