// Package config holds the recognized configuration surface, parsed with
// spf13/pflag (grounded on the pack's erigon flag stack) in place of
// jessevdk/go-flags, which isn't available in this module's dependency
// pool.
package config

import (
	"time"

	"github.com/spf13/pflag"
)

// PerigeeConfig is the perigee.* option group.
type PerigeeConfig struct {
	RoundFrequency       int
	PerigeeOutboundTarget int
	LeverageTarget       int
	Persistence          bool
}

// Config is the process-wide, explicitly-threaded configuration value.
// There is no global singleton; constructors take *Config explicitly.
type Config struct {
	OutboundTarget      int
	InboundLimit        int
	Perigee             PerigeeConfig
	DNSSeeders          []string
	DefaultPort         uint16
	SkipProofOfWork     bool
	EnableSanityChecks  bool
	MaxBlockLevel       int
	RAMScale            float64

	ConnectionsLoopInterval time.Duration
	IBDBatchSize            int
	InboundRouteCapacity    int
	OutboundRouteCapacity   int
	PruningProofTimeout     time.Duration
	DefaultMessageTimeout   time.Duration
}

// Defaults returns the production default configuration.
func Defaults() *Config {
	return &Config{
		OutboundTarget: 8,
		InboundLimit:   117,
		Perigee: PerigeeConfig{
			RoundFrequency:        10,
			PerigeeOutboundTarget: 4,
			LeverageTarget:        8,
			Persistence:           true,
		},
		DefaultPort:             16111,
		MaxBlockLevel:           225,
		RAMScale:                1.0,
		ConnectionsLoopInterval: 30 * time.Second,
		IBDBatchSize:            99,
		InboundRouteCapacity:    128,
		OutboundRouteCapacity:   128,
		PruningProofTimeout:     10 * time.Minute,
		DefaultMessageTimeout:   10 * time.Second,
	}
}

// RegisterFlags binds the config's fields onto a pflag.FlagSet so a cmd/
// entry point can parse them from argv, matching erigon's cobra/pflag
// wiring idiom.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.IntVar(&c.OutboundTarget, "outbound-target", c.OutboundTarget, "total outbound peers wanted")
	flags.IntVar(&c.InboundLimit, "inbound-limit", c.InboundLimit, "maximum simultaneous inbound peers")
	flags.IntVar(&c.Perigee.RoundFrequency, "perigee-round-frequency", c.Perigee.RoundFrequency, "ticks per perigee evaluation round")
	flags.IntVar(&c.Perigee.PerigeeOutboundTarget, "perigee-outbound-target", c.Perigee.PerigeeOutboundTarget, "desired perigee-type outbound count")
	flags.IntVar(&c.Perigee.LeverageTarget, "perigee-leverage-target", c.Perigee.LeverageTarget, "how many top perigee peers to persist")
	flags.BoolVar(&c.Perigee.Persistence, "perigee-persistence", c.Perigee.Persistence, "whether leveraged peers are written to the address manager")
	flags.StringArrayVar(&c.DNSSeeders, "dns-seeder", c.DNSSeeders, "static dns seeder hostname (repeatable)")
	flags.Uint16Var(&c.DefaultPort, "default-port", c.DefaultPort, "assumed port for seeded addresses")
	flags.BoolVar(&c.SkipProofOfWork, "skip-proof-of-work", c.SkipProofOfWork, "test-only: disable PoW verification")
	flags.BoolVar(&c.EnableSanityChecks, "enable-sanity-checks", c.EnableSanityChecks, "run redundant verifications")
	flags.IntVar(&c.MaxBlockLevel, "max-block-level", c.MaxBlockLevel, "number of block levels for GHOSTDAG and reachability")
	flags.Float64Var(&c.RAMScale, "ram-scale", c.RAMScale, "multiplier on cache sizes")
}
