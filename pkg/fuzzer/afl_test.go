package fuzzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuzzpool/fuzzpool/pkg/config"
)

func TestAFLCommand(t *testing.T) {
	tests := []struct {
		name string
		opts config.ConfigMap
		inv  Invocation
		want []string
	}{
		{
			name: "secondary resume",
			inv: Invocation{
				OutputRoot: "/out",
				WorkerName: "fuzzer_0_1",
				InputSeeds: "-",
				MemLimitMB: 50,
			},
			want: []string{"afl-fuzz", "-o", "/out", "-S", "fuzzer_0_1", "-m", "50", "-i", "-", "--", "/bin/target"},
		},
		{
			name: "master with zero mem limit treated as unlimited",
			inv: Invocation{
				OutputRoot: "/out",
				WorkerName: "fuzzer_0_0",
				Master:     true,
				InputSeeds: "-",
			},
			want: []string{"afl-fuzz", "-o", "/out", "-M", "fuzzer_0_0", "-m", "1099511627776", "-i", "-", "--", "/bin/target"},
		},
		{
			name: "blackbox with timeout and dictionary",
			opts: config.ConfigMap{"blackbox": true},
			inv: Invocation{
				OutputRoot:    "/out",
				WorkerName:    "fuzzer_2_0",
				InputSeeds:    "/seeds",
				MemLimitMB:    100,
				ExecTimeoutMS: 500,
				Dictionary:    "/dict",
			},
			want: []string{"afl-fuzz", "-o", "/out", "-S", "fuzzer_2_0", "-m", "100", "-Q", "-i", "/seeds", "-t", "500", "-x", "/dict", "--", "/bin/target"},
		},
		{
			name: "extra args precede the target",
			opts: config.ConfigMap{"extra_args": []string{"-d"}},
			inv: Invocation{
				OutputRoot: "/out",
				WorkerName: "fuzzer_0_1",
				InputSeeds: "-",
				MemLimitMB: 50,
			},
			want: []string{"afl-fuzz", "-o", "/out", "-S", "fuzzer_0_1", "-m", "50", "-d", "-i", "-", "--", "/bin/target"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := NewAFL(tt.opts)
			require.NoError(t, err)

			tt.inv.Target = "/bin/target"
			cmd, err := backend.Command(tt.inv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd.Args)
		})
	}
}

func TestAFLCommandRequiresTarget(t *testing.T) {
	backend, err := NewAFL(nil)
	require.NoError(t, err)

	_, err = backend.Command(Invocation{OutputRoot: "/out", WorkerName: "fuzzer_0_0"})
	assert.Error(t, err)
}

func TestAFLExecutables(t *testing.T) {
	plain, err := NewAFL(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"afl-fuzz"}, plain.Executables())

	qemu, err := NewAFL(config.ConfigMap{"blackbox": true})
	require.NoError(t, err)
	assert.Contains(t, qemu.Executables(), "afl-qemu-trace")
}

func TestRegistry(t *testing.T) {
	b, err := New("afl", nil)
	require.NoError(t, err)
	assert.Equal(t, "afl", b.Name())
	assert.Equal(t, "fuzzer_stats", b.StatsFileName())

	_, err = New("libfuzzer", nil)
	assert.Error(t, err)
}
