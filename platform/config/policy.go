package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RoutingPolicy holds the tunables of the routing pipeline. Defaults live in
// DefaultRoutingPolicy; a YAML file may override them and individual env vars
// override the file.
type RoutingPolicy struct {
	ExclusiveProviders      int           `yaml:"exclusive_providers"`
	SharedProviders         int           `yaml:"shared_providers"`
	ExclusiveWindow         time.Duration `yaml:"exclusive_window"`
	SharedWindow            time.Duration `yaml:"shared_window"`
	LockTTL                 time.Duration `yaml:"lock_ttl"`
	AcceptedHold            time.Duration `yaml:"accepted_hold"`
	SharedPriceTolerancePct float64       `yaml:"shared_price_tolerance_pct"`
	MinReliability          float64       `yaml:"min_reliability"`
	CooldownDuration        time.Duration `yaml:"cooldown"`
	ClaimTTL                time.Duration `yaml:"claim_ttl"`
	RescoreInterval         time.Duration `yaml:"rescore_interval"`
	RescoreConcurrency      int           `yaml:"rescore_concurrency"`
}

// DefaultRoutingPolicy returns the production defaults.
func DefaultRoutingPolicy() RoutingPolicy {
	return RoutingPolicy{
		ExclusiveProviders:      1,
		SharedProviders:         10,
		ExclusiveWindow:         15 * time.Minute,
		SharedWindow:            30 * time.Minute,
		LockTTL:                 15 * time.Minute,
		AcceptedHold:            72 * time.Hour,
		SharedPriceTolerancePct: 15,
		MinReliability:          50,
		CooldownDuration:        24 * time.Hour,
		ClaimTTL:                2 * time.Minute,
		RescoreInterval:         24 * time.Hour,
		RescoreConcurrency:      8,
	}
}

// LoadRoutingPolicy returns the defaults overlaid with the YAML file at path.
// An empty path yields the defaults.
func LoadRoutingPolicy(path string) (RoutingPolicy, error) {
	policy := DefaultRoutingPolicy()
	if strings.TrimSpace(path) == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read routing policy: %w", err)
	}
	return ParseRoutingPolicy(raw)
}

// ParseRoutingPolicy overlays the YAML document onto the defaults. Keys that
// are absent keep their default value.
func ParseRoutingPolicy(raw []byte) (RoutingPolicy, error) {
	policy := DefaultRoutingPolicy()
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return policy, fmt.Errorf("parse routing policy: %w", err)
	}
	return policy, policy.Validate()
}

func (p RoutingPolicy) applyEnv() RoutingPolicy {
	if v := mustInt(getEnv("ROUTING_EXCLUSIVE_PROVIDERS", "")); v > 0 {
		p.ExclusiveProviders = v
	}
	if v := mustInt(getEnv("ROUTING_SHARED_PROVIDERS", "")); v > 0 {
		p.SharedProviders = v
	}
	if v := mustDuration(getEnv("ROUTING_EXCLUSIVE_WINDOW", "")); v > 0 {
		p.ExclusiveWindow = v
	}
	if v := mustDuration(getEnv("ROUTING_SHARED_WINDOW", "")); v > 0 {
		p.SharedWindow = v
	}
	if v := mustDuration(getEnv("ROUTING_LOCK_TTL", "")); v > 0 {
		p.LockTTL = v
	}
	if v := mustDuration(getEnv("ROUTING_ACCEPTED_HOLD", "")); v > 0 {
		p.AcceptedHold = v
	}
	if v := mustFloat(getEnv("ROUTING_SHARED_PRICE_TOLERANCE_PCT", "")); v > 0 {
		p.SharedPriceTolerancePct = v
	}
	if v := mustFloat(getEnv("ROUTING_MIN_RELIABILITY", "")); v > 0 {
		p.MinReliability = v
	}
	if v := mustDuration(getEnv("ROUTING_COOLDOWN", "")); v > 0 {
		p.CooldownDuration = v
	}
	if v := mustDuration(getEnv("ROUTING_CLAIM_TTL", "")); v > 0 {
		p.ClaimTTL = v
	}
	if v := mustDuration(getEnv("PROVIDER_RESCORE_INTERVAL", "")); v > 0 {
		p.RescoreInterval = v
	}
	if v := mustInt(getEnv("PROVIDER_RESCORE_CONCURRENCY", "")); v > 0 {
		p.RescoreConcurrency = v
	}
	return p
}

// Validate rejects policies the routing pipeline cannot run with.
func (p RoutingPolicy) Validate() error {
	var errs []error
	if p.ExclusiveProviders < 1 {
		errs = append(errs, errors.New("exclusive_providers must be at least 1"))
	}
	if p.SharedProviders < p.ExclusiveProviders {
		errs = append(errs, errors.New("shared_providers must be >= exclusive_providers"))
	}
	if p.ExclusiveWindow <= 0 || p.SharedWindow <= 0 {
		errs = append(errs, errors.New("phase windows must be positive"))
	}
	if p.LockTTL <= 0 {
		errs = append(errs, errors.New("lock_ttl must be positive"))
	}
	if p.AcceptedHold < p.LockTTL {
		errs = append(errs, errors.New("accepted_hold must be at least lock_ttl"))
	}
	if p.MinReliability < 0 || p.MinReliability > 100 {
		errs = append(errs, errors.New("min_reliability must be within 0..100"))
	}
	if p.SharedPriceTolerancePct < 0 {
		errs = append(errs, errors.New("shared_price_tolerance_pct must not be negative"))
	}
	return errors.Join(errs...)
}
