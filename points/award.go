package points

import "github.com/gobridge/bridge-points/config"

// AwardRule computes the points granted for one transfer initiated on a chain.
type AwardRule struct {
	BasePoints    int64
	PerChainBonus map[string]int64
}

func NewAwardRule(cfg *config.AwardConfig) AwardRule {
	return AwardRule{
		BasePoints:    cfg.BasePoints,
		PerChainBonus: cfg.PerChainBonus,
	}
}

func (r AwardRule) Award(chainKey string) int64 {
	return r.BasePoints + r.PerChainBonus[chainKey]
}
