package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

const (
	defaultBlockConfirmations = 2
	defaultMaxBlockRangeSize  = 15000
	defaultMinBlockRangeSize  = 1000
	defaultTailInterval       = 5 * time.Second
	defaultCatchupInterval    = 30 * time.Second
	defaultRPCTimeout         = 30 * time.Second
	defaultRangeBackoff       = 400 * time.Millisecond
	defaultRetryBackoff       = 800 * time.Millisecond
	defaultTimestampTimeout   = 30 * time.Second
	defaultPendingTTL         = 72 * time.Hour
	defaultStalePendingAfter  = time.Hour
	defaultAlertInterval      = time.Minute
	defaultBasePoints         = 35
)

const (
	PendingBackendMemory = "memory"
	PendingBackendRedis  = "redis"
)

var (
	ErrInvalidConfig = errors.New("invalid config")

	defaultLevelThresholds = []int64{0, 1000, 2500, 5000, 10000, 25000}
)

type RPCConfig struct {
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
	RPS     float64       `yaml:"rps"`
}

type ChainConfig struct {
	Key                        string         `yaml:"-"`
	RPC                        *RPCConfig     `yaml:"rpc"`
	ChainID                    uint64         `yaml:"chain_id"`
	BridgeAddress              common.Address `yaml:"bridge_address"`
	DeploymentBlock            uint64         `yaml:"deployment_block"`
	RequiredBlockConfirmations *uint64        `yaml:"required_block_confirmations"`
	MaxBlockRangeSize          uint64         `yaml:"max_block_range_size"`
	MinBlockRangeSize          uint64         `yaml:"min_block_range_size"`
	TailInterval               time.Duration  `yaml:"tail_interval"`
	CatchupInterval            time.Duration  `yaml:"catchup_interval"`
	SafeLogsRequest            bool           `yaml:"safe_logs_request"`
}

func (cfg *ChainConfig) BlockConfirmations() uint64 {
	if cfg.RequiredBlockConfirmations == nil {
		return defaultBlockConfirmations
	}
	return *cfg.RequiredBlockConfirmations
}

type BackfillConfig struct {
	RangeBackoff          time.Duration `yaml:"range_backoff"`
	RateLimitBackoff      time.Duration `yaml:"rate_limit_backoff"`
	RetryBackoff          time.Duration `yaml:"retry_backoff"`
	TimestampRetryTimeout time.Duration `yaml:"timestamp_retry_timeout"`
}

type AwardConfig struct {
	BasePoints    int64            `yaml:"base_points"`
	PerChainBonus map[string]int64 `yaml:"per_chain_bonus"`
}

type LevelsConfig struct {
	Thresholds []int64 `yaml:"thresholds"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

type PendingConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   *RedisConfig  `yaml:"redis"`
}

type DBConfig struct {
	Driver   string `yaml:"driver"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"database"`
	Path     string `yaml:"path"`
}

type PresenterConfig struct {
	Host string `yaml:"host"`
}

type MetricsConfig struct {
	Host string `yaml:"host"`
}

type AlertsConfig struct {
	Interval          time.Duration `yaml:"interval"`
	StalePendingAfter time.Duration `yaml:"stale_pending_after"`
}

type Config struct {
	Chains         map[string]*ChainConfig `yaml:"chains"`
	Backfill       *BackfillConfig         `yaml:"backfill"`
	Award          *AwardConfig            `yaml:"award"`
	Levels         *LevelsConfig           `yaml:"levels"`
	Pending        *PendingConfig          `yaml:"pending"`
	DBConfig       *DBConfig               `yaml:"postgres"`
	LogLevel       logrus.Level            `yaml:"log_level"`
	DisabledChains []string                `yaml:"disabled_chains"`
	EnabledChains  []string                `yaml:"enabled_chains"`
	Presenter      *PresenterConfig        `yaml:"presenter"`
	Metrics        *MetricsConfig          `yaml:"metrics"`
	Alerts         *AlertsConfig           `yaml:"alerts"`
}

// ChainKeys returns configured chain keys in a stable order.
func (cfg *Config) ChainKeys() []string {
	keys := make([]string, 0, len(cfg.Chains))
	for key := range cfg.Chains {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (cfg *Config) GetChainConfig(chainID uint64) *ChainConfig {
	for _, chain := range cfg.Chains {
		if chain.ChainID == chainID {
			return chain
		}
	}
	return nil
}

func readYamlConfig(blob []byte) (*Config, error) {
	cfg := new(Config)
	if err := parseYaml(cfg, blob); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) init() {
	if cfg.Backfill == nil {
		cfg.Backfill = new(BackfillConfig)
	}
	if cfg.Backfill.RangeBackoff == 0 {
		cfg.Backfill.RangeBackoff = defaultRangeBackoff
	}
	if cfg.Backfill.RateLimitBackoff == 0 {
		cfg.Backfill.RateLimitBackoff = defaultRetryBackoff
	}
	if cfg.Backfill.RetryBackoff == 0 {
		cfg.Backfill.RetryBackoff = defaultRetryBackoff
	}
	if cfg.Backfill.TimestampRetryTimeout == 0 {
		cfg.Backfill.TimestampRetryTimeout = defaultTimestampTimeout
	}
	for key, chain := range cfg.Chains {
		if chain == nil {
			continue
		}
		chain.Key = key
		if chain.RPC != nil && chain.RPC.Timeout == 0 {
			chain.RPC.Timeout = defaultRPCTimeout
		}
		if chain.MaxBlockRangeSize == 0 {
			chain.MaxBlockRangeSize = defaultMaxBlockRangeSize
		}
		if chain.MinBlockRangeSize == 0 {
			chain.MinBlockRangeSize = defaultMinBlockRangeSize
		}
		if chain.MinBlockRangeSize > chain.MaxBlockRangeSize {
			chain.MinBlockRangeSize = chain.MaxBlockRangeSize
		}
		if chain.TailInterval == 0 {
			chain.TailInterval = defaultTailInterval
		}
		if chain.CatchupInterval == 0 {
			chain.CatchupInterval = defaultCatchupInterval
		}
	}
	if cfg.Award == nil {
		cfg.Award = &AwardConfig{BasePoints: defaultBasePoints}
	}
	if cfg.Levels == nil || len(cfg.Levels.Thresholds) == 0 {
		cfg.Levels = &LevelsConfig{Thresholds: defaultLevelThresholds}
	}
	if cfg.Pending == nil {
		cfg.Pending = new(PendingConfig)
	}
	if cfg.Pending.Backend == "" {
		cfg.Pending.Backend = PendingBackendMemory
	}
	if cfg.Pending.TTL == 0 {
		cfg.Pending.TTL = defaultPendingTTL
	}
	if cfg.Alerts == nil {
		cfg.Alerts = new(AlertsConfig)
	}
	if cfg.Alerts.Interval == 0 {
		cfg.Alerts.Interval = defaultAlertInterval
	}
	if cfg.Alerts.StalePendingAfter == 0 {
		cfg.Alerts.StalePendingAfter = defaultStalePendingAfter
	}
}

func (cfg *Config) Validate() error {
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("no chains configured: %w", ErrInvalidConfig)
	}
	for key, chain := range cfg.Chains {
		if chain == nil {
			return fmt.Errorf("chain %s has empty config: %w", key, ErrInvalidConfig)
		}
		if chain.RPC == nil || chain.RPC.Host == "" {
			return fmt.Errorf("chain %s has no rpc host: %w", key, ErrInvalidConfig)
		}
		if chain.ChainID == 0 {
			return fmt.Errorf("chain %s has no chain_id: %w", key, ErrInvalidConfig)
		}
		if chain.BridgeAddress == (common.Address{}) {
			return fmt.Errorf("chain %s has no bridge_address: %w", key, ErrInvalidConfig)
		}
	}
	if cfg.Award.BasePoints < 0 {
		return fmt.Errorf("negative award base_points: %w", ErrInvalidConfig)
	}
	for key, bonus := range cfg.Award.PerChainBonus {
		if bonus < 0 {
			return fmt.Errorf("negative per_chain_bonus for %s: %w", key, ErrInvalidConfig)
		}
	}
	thresholds := cfg.Levels.Thresholds
	if len(thresholds) < 2 {
		return fmt.Errorf("levels must include at least 2 thresholds: %w", ErrInvalidConfig)
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return fmt.Errorf("level thresholds must be strictly ascending: %w", ErrInvalidConfig)
		}
	}
	switch cfg.Pending.Backend {
	case PendingBackendMemory:
	case PendingBackendRedis:
		if cfg.Pending.Redis == nil || cfg.Pending.Redis.URL == "" {
			return fmt.Errorf("redis pending backend requires redis.url: %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("unknown pending backend %q: %w", cfg.Pending.Backend, ErrInvalidConfig)
	}
	return nil
}

func ReadConfigWithEnv(blob []byte) (*Config, error) {
	return ReadConfig([]byte(os.ExpandEnv(string(blob))))
}

func ReadConfig(blob []byte) (*Config, error) {
	cfg, err := readYamlConfig(blob)
	if err != nil {
		return nil, err
	}
	cfg.init()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ReadConfigFromFile(path string) (*Config, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}
	return ReadConfigWithEnv(blob)
}
