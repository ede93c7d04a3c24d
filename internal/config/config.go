package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// PricingStrategy names for the pricing engine. Validated as a closed set.
const (
	StrategyMidPoint       = "midpoint"
	StrategyVolumeWeighted = "volume_weighted"
	StrategyMarketPrice    = "market_price"
	StrategyMaxSurplus     = "max_surplus"
)

// Config is the flat, immutable solver configuration. It is constructed once at
// engine creation and never mutated afterwards.
type Config struct {
	// MaxGasPrice is the gas price ceiling in gwei used to value route gas.
	MaxGasPrice uint64 `mapstructure:"max_gas_price" validate:"gt=0"`

	// MinProfitThreshold is the minimum net surplus (after fees and gas) a
	// solution must produce to be accepted.
	MinProfitThreshold float64 `mapstructure:"min_profit_threshold" validate:"gte=0"`

	// MaxSlippage is the per-route slippage tolerance as a fraction.
	MaxSlippage float64 `mapstructure:"max_slippage" validate:"gte=0,lt=1"`

	EnableCoWMatching bool `mapstructure:"enable_cow_matching"`
	EnableAMMRouting  bool `mapstructure:"enable_amm_routing"`

	// EnableCrossChain is reserved; cross-chain orders are rejected while false.
	EnableCrossChain bool `mapstructure:"enable_cross_chain"`

	// Timeout is the global time budget of one solve call.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// MaxHops bounds the length of routed swap paths.
	MaxHops int `mapstructure:"max_hops" validate:"gte=1,lte=6"`

	// MaxPriceImpact is the accumulated price impact ceiling per route.
	MaxPriceImpact float64 `mapstructure:"max_price_impact" validate:"gt=0,lt=1"`

	// MaxRingSize bounds cycle length during ring match detection.
	MaxRingSize int `mapstructure:"max_ring_size" validate:"gte=2,lte=6"`

	// MinQualityScore filters match candidates before selection.
	MinQualityScore float64 `mapstructure:"min_quality_score" validate:"gte=0,lte=1"`

	// MinConfidence is the minimum confidence a clearing price must carry.
	MinConfidence float64 `mapstructure:"min_confidence" validate:"gte=0,lte=1"`

	// FeeFraction is the protocol fee as a fraction of each order's surplus.
	FeeFraction float64 `mapstructure:"fee_fraction" validate:"gte=0,lt=1"`

	// PricingStrategy selects the clearing price derivation.
	PricingStrategy string `mapstructure:"pricing_strategy" validate:"oneof=midpoint volume_weighted market_price max_surplus"`

	// GasPerHop is the fixed gas constant charged per route hop.
	GasPerHop uint64 `mapstructure:"gas_per_hop" validate:"gt=0"`

	// InfeasiblePenalty reduces the solution score per pricing-failed pair.
	InfeasiblePenalty float64 `mapstructure:"infeasible_penalty" validate:"gte=0"`

	// OracleTimeout bounds individual oracle lookups, independent of Timeout.
	OracleTimeout time.Duration `mapstructure:"oracle_timeout" validate:"gt=0"`
}

// ConfigError reports invalid configuration detected at engine construction.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// Default returns the solver defaults.
func Default() Config {
	return Config{
		MaxGasPrice:        100,
		MinProfitThreshold: 0.01,
		MaxSlippage:        0.005,
		EnableCoWMatching:  true,
		EnableAMMRouting:   true,
		EnableCrossChain:   false,
		Timeout:            5 * time.Second,
		MaxHops:            3,
		MaxPriceImpact:     0.05,
		MaxRingSize:        4,
		MinQualityScore:    0.1,
		MinConfidence:      0.5,
		FeeFraction:        0.1,
		PricingStrategy:    StrategyMidPoint,
		GasPerHop:          100000,
		InfeasiblePenalty:  0.01,
		OracleTimeout:      500 * time.Millisecond,
	}
}

// Load reads configuration from the given file (optional) and SOLVER_* env
// variables, layered over defaults, and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SOLVER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks all configured values; it returns a ConfigError naming the
// first offending field.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return &ConfigError{Field: verrs[0].Field(), Reason: fmt.Sprintf("failed %q constraint", verrs[0].Tag())}
	}
	return &ConfigError{Field: "config", Reason: err.Error()}
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("max_gas_price", def.MaxGasPrice)
	v.SetDefault("min_profit_threshold", def.MinProfitThreshold)
	v.SetDefault("max_slippage", def.MaxSlippage)
	v.SetDefault("enable_cow_matching", def.EnableCoWMatching)
	v.SetDefault("enable_amm_routing", def.EnableAMMRouting)
	v.SetDefault("enable_cross_chain", def.EnableCrossChain)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("max_hops", def.MaxHops)
	v.SetDefault("max_price_impact", def.MaxPriceImpact)
	v.SetDefault("max_ring_size", def.MaxRingSize)
	v.SetDefault("min_quality_score", def.MinQualityScore)
	v.SetDefault("min_confidence", def.MinConfidence)
	v.SetDefault("fee_fraction", def.FeeFraction)
	v.SetDefault("pricing_strategy", def.PricingStrategy)
	v.SetDefault("gas_per_hop", def.GasPerHop)
	v.SetDefault("infeasible_penalty", def.InfeasiblePenalty)
	v.SetDefault("oracle_timeout", def.OracleTimeout)
}
