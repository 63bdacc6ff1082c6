package config

import (
	"github.com/mitchellh/mapstructure"
)

// CoalescedConfig is an accumulator of configuration maps to coalesce,
// ordered from lowest to highest precedence.
type CoalescedConfig []ConfigMap

// Append adds a new config map to the accumulator. Nil maps are kept;
// they are skipped when coalescing.
func (c CoalescedConfig) Append(m ConfigMap) CoalescedConfig {
	return append(c, m)
}

// CoalesceInto merges all accumulated maps, in order, and decodes the
// result into the supplied typed value, which must be a pointer to a
// struct carrying mapstructure tags.
func (c CoalescedConfig) CoalesceInto(out interface{}) error {
	coalesced := make(map[string]interface{})
	for _, cfg := range c {
		if cfg == nil {
			continue
		}
		for k, v := range cfg {
			coalesced[k] = v
		}
	}
	return mapstructure.Decode(coalesced, out)
}
