package portal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	ids := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("id-%03d", i)
		}
		return out
	}

	tests := []struct {
		name      string
		count     int
		size      int
		wantSizes []int
	}{
		{"empty", 0, 100, nil},
		{"single partial batch", 3, 100, []int{3}},
		{"exact multiple", 200, 100, []int{100, 100}},
		{"remainder batch", 250, 100, []int{100, 100, 50}},
		{"size one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Partition(ids(tt.count), tt.size)

			var sizes []int
			var flat []string
			for _, b := range batches {
				sizes = append(sizes, len(b))
				flat = append(flat, b...)
			}
			assert.Equal(t, tt.wantSizes, sizes)
			if tt.count > 0 {
				// order is preserved across batches
				assert.Equal(t, ids(tt.count), flat)
			}
		})
	}
}

func TestPartitionInvalidSize(t *testing.T) {
	assert.Nil(t, Partition([]string{"a"}, 0))
}
