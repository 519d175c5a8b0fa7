// Package bootcfg decodes the optional YAML boot-configuration blob the
// (out-of-scope) bootloader shim hands the kernel alongside the firmware
// memory map, and supplies the hard-coded defaults used when none is
// present.
//
// Grounded on the teacher's use of gopkg.in/yaml.v3 for its own
// configuration loading; adapted here to the kernel's "never panic on a
// bad config blob" policy (spec.md §7): a parse error yields the defaults
// plus a wrapped error, never a zero-value struct.
package bootcfg

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// BootConfig is every tunable the runtime loop reads at boot.
type BootConfig struct {
	TimerHz       uint32 `yaml:"timer_hz"`
	PollingOnly   bool   `yaml:"polling_only"`
	NICRingSize   int    `yaml:"nic_ring_size"`
	StallTicks    uint64 `yaml:"stall_ticks"`
	SpinEvent     int    `yaml:"spin_event"`
	SpinActive    int    `yaml:"spin_active"`
	SpinIdle      int    `yaml:"spin_idle"`
	Theme         string `yaml:"theme"`
}

// DefaultBootConfig is used whenever no blob is supplied, or the supplied
// blob fails to parse.
func DefaultBootConfig() BootConfig {
	return BootConfig{
		TimerHz:     100,
		PollingOnly: false,
		NICRingSize: 64,
		StallTicks:  50,
		SpinEvent:   16,
		SpinActive:  256,
		SpinIdle:    4096,
		Theme:       "default",
	}
}

// Load unmarshals blob as YAML into a BootConfig, starting from the
// defaults so a partial document only overrides the fields it mentions.
// An empty blob returns the defaults with a nil error; a malformed blob
// returns the defaults plus a wrapped parse error — callers log and
// continue rather than treat this as fatal.
func Load(blob []byte) (BootConfig, error) {
	cfg := DefaultBootConfig()
	if len(blob) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(blob, &cfg); err != nil {
		return DefaultBootConfig(), fmt.Errorf("bootcfg: parse boot config: %w", err)
	}
	return cfg, nil
}
