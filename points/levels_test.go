package points_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gobridge/bridge-points/points"
)

func TestComputeLevel(t *testing.T) {
	t.Parallel()

	thresholds := []int64{0, 1000, 2500}
	for _, test := range []struct {
		Name       string
		Points     int64
		Thresholds []int64
		Expected   points.LevelInfo
	}{
		{"zero balance", 0, thresholds, points.LevelInfo{Level: 0, CurrentCap: 0, NextCap: 1000, ProgressPct: 0}},
		{"halfway to level 1", 500, thresholds, points.LevelInfo{Level: 0, CurrentCap: 0, NextCap: 1000, ProgressPct: 50}},
		{"exactly on threshold", 1000, thresholds, points.LevelInfo{Level: 1, CurrentCap: 1000, NextCap: 2500, ProgressPct: 0}},
		{"thirty transfers", 1050, thresholds, points.LevelInfo{Level: 1, CurrentCap: 1000, NextCap: 2500, ProgressPct: 3}},
		{"top level", 2500, thresholds, points.LevelInfo{Level: 2, CurrentCap: 2500, NextCap: 2500, ProgressPct: 0}},
		{"past top level", 9999, thresholds, points.LevelInfo{Level: 2, CurrentCap: 2500, NextCap: 2500, ProgressPct: 100}},
		{"below first threshold", 10, []int64{100, 200}, points.LevelInfo{Level: 0, CurrentCap: 100, NextCap: 200, ProgressPct: 0}},
		{"default thresholds", 7500, nil, points.LevelInfo{Level: 3, CurrentCap: 5000, NextCap: 10000, ProgressPct: 50}},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			t.Logf("Running sub-test %q", test.Name)
			require.Equal(t, test.Expected, points.ComputeLevel(test.Points, test.Thresholds))
		})
	}
}

func TestAwardRule_Award(t *testing.T) {
	t.Parallel()

	rule := points.AwardRule{
		BasePoints:    35,
		PerChainBonus: map[string]int64{"arbitrum": 5},
	}
	require.Equal(t, int64(40), rule.Award("arbitrum"))
	require.Equal(t, int64(35), rule.Award("base"))
	require.Equal(t, rule.Award("base"), rule.Award("base"))
}
