package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolveDependencies(t *testing.T) {
	ids := []uint64{101, 102, 103, 104}

	tests := []struct {
		name string
		refs [][]any
		want [][]uint64
	}{
		{
			name: "chain",
			refs: [][]any{{}, {float64(0)}, {float64(1)}, {float64(0), float64(2)}},
			want: [][]uint64{{}, {101}, {102}, {101, 103}},
		},
		{
			name: "out of range and negative",
			refs: [][]any{{float64(4)}, {float64(-1)}, {float64(99), float64(0)}, {}},
			want: [][]uint64{{}, {}, {101}, {}},
		},
		{
			name: "self reference",
			refs: [][]any{{}, {float64(1), float64(0)}, {}, {}},
			want: [][]uint64{{}, {101}, {}, {}},
		},
		{
			name: "strings and fractions",
			refs: [][]any{{}, {"0"}, {1.5}, {"task 1", float64(2)}},
			want: [][]uint64{{}, {}, {}, {103}},
		},
		{
			name: "duplicates",
			refs: [][]any{{}, {float64(0), float64(0), 0}, {}, {}},
			want: [][]uint64{{}, {101}, {}, {}},
		},
		{
			name: "cycle closing edge dropped",
			refs: [][]any{{float64(2)}, {float64(0)}, {float64(1)}, {}},
			want: [][]uint64{{103}, {101}, {}, {}},
		},
		{
			name: "missing refs",
			refs: [][]any{{}},
			want: [][]uint64{{}, {}, {}, {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDependencies(ids, tt.refs, nil))
		})
	}
}

func TestResolveDependencies_LogsDrops(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	ResolveDependencies([]uint64{1, 2}, [][]any{{float64(5)}, {float64(1)}}, logger)

	assert.Equal(t, 1, logs.FilterMessage("dropping dependency outside task set").Len())
	assert.Equal(t, 1, logs.FilterMessage("dropping self dependency").Len())
}
