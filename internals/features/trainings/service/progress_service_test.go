package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	cases := []struct {
		done, total int64
		want        float64
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
		{5, 8, 62.5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Percent(tc.done, tc.total), "%d/%d", tc.done, tc.total)
	}
}
