package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RecurringAmountFull carries the full definition amount on every occurrence;
// RecurringAmountSplit divides it evenly across occurrences, remainder first.
const (
	RecurringAmountFull  = "full"
	RecurringAmountSplit = "split"
)

// PolicyConfig holds the expansion and caching knobs that operators tune per
// deployment without a rebuild.
type PolicyConfig struct {
	// RecurrenceHorizonMonths bounds the expansion of a recurring definition
	// with no end date.
	RecurrenceHorizonMonths int `mapstructure:"recurrenceHorizonMonths"`
	// RecurringAmountPolicy is "full" or "split".
	RecurringAmountPolicy string `mapstructure:"recurringAmountPolicy"`
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		RecurrenceHorizonMonths: 12,
		RecurringAmountPolicy:   RecurringAmountFull,
	}
}

// PolicyConfigHolder hands out the current policy and hot-reloads it when the
// config file changes.
type PolicyConfigHolder struct {
	current atomic.Value // holds PolicyConfig
}

func NewPolicyConfigHolder() (*PolicyConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/propfolio/config")
	v.AddConfigPath("/etc/propfolio")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PROPFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPolicyConfig()
		v.SetDefault("policy.recurrenceHorizonMonths", defaults.RecurrenceHorizonMonths)
		v.SetDefault("policy.recurringAmountPolicy", defaults.RecurringAmountPolicy)
	}

	var cfg PolicyConfig
	if err := v.UnmarshalKey("policy", &cfg); err != nil {
		return nil, err
	}
	if err := validatePolicyConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PolicyConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PolicyConfig
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[policy-config] reload failed: %v", err)
			return
		}
		if err := validatePolicyConfig(updated); err != nil {
			log.Printf("[policy-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyConfigHolder wraps a fixed policy, for tests.
func NewStaticPolicyConfigHolder(cfg PolicyConfig) *PolicyConfigHolder {
	holder := &PolicyConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PolicyConfigHolder) Get() PolicyConfig {
	return h.current.Load().(PolicyConfig)
}

func validatePolicyConfig(cfg PolicyConfig) error {
	if cfg.RecurrenceHorizonMonths < 1 {
		return errors.New("policy.recurrenceHorizonMonths must be at least 1")
	}
	switch cfg.RecurringAmountPolicy {
	case RecurringAmountFull, RecurringAmountSplit:
	default:
		return errors.New("policy.recurringAmountPolicy must be full or split")
	}
	return nil
}
