package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesceInto(t *testing.T) {
	type opts struct {
		Blackbox  bool     `mapstructure:"blackbox"`
		ExtraArgs []string `mapstructure:"extra_args"`
	}

	var (
		defaults  = ConfigMap{"blackbox": false, "extra_args": []string{"-d"}}
		overrides = ConfigMap{"blackbox": true}
	)

	var out opts
	err := CoalescedConfig{}.
		Append(defaults).
		Append(nil). // nil layers are skipped
		Append(overrides).
		CoalesceInto(&out)
	require.NoError(t, err)

	assert.True(t, out.Blackbox)
	assert.Equal(t, []string{"-d"}, out.ExtraArgs)
}
