package colorutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHSVFromSlice(t *testing.T) {
	c, err := HSVFromSlice([]int{35, 40, 50})
	require.NoError(t, err)
	assert.Equal(t, HSV{H: 35, S: 40, V: 50}, c)

	_, err = HSVFromSlice([]int{35, 40})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 channels")

	_, err = HSVFromSlice([]int{35, 40, 300})
	require.Error(t, err)
}

func TestLessOrEqual(t *testing.T) {
	lo := HSV{H: 30, S: 40, V: 40}
	hi := HSV{H: 90, S: 255, V: 255}
	assert.True(t, lo.LessOrEqual(hi))
	assert.True(t, lo.LessOrEqual(lo))
	assert.False(t, hi.LessOrEqual(lo))
	assert.False(t, HSV{H: 91, S: 0, V: 0}.LessOrEqual(hi))
}

func TestClamp8(t *testing.T) {
	assert.Equal(t, uint8(0), Clamp8(-4))
	assert.Equal(t, uint8(255), Clamp8(300))
	assert.Equal(t, uint8(13), Clamp8(12.6))
}
