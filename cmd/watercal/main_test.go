package main

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plant-rover/internal/species"
	"plant-rover/pkg/colorutil"
)

func TestReadSamples(t *testing.T) {
	in := `hue,saturation,water
# greenhouse batch 2
40, 100, 28
55,180,22.5
`
	samples, err := readSamples(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []species.Sample{
		{Hue: 40, Saturation: 100, WaterContent: 28},
		{Hue: 55, Saturation: 180, WaterContent: 22.5},
	}, samples)
}

func TestReadSamplesErrors(t *testing.T) {
	_, err := readSamples(strings.NewReader("40,100,28\n55,oops,22\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = readSamples(strings.NewReader("40,100\n"))
	require.Error(t, err)
}

func TestParseRect(t *testing.T) {
	r, err := parseRect("10, 20, 30, 40")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(10, 20, 40, 60), r)

	for _, bad := range []string{"", "1,2,3", "1,2,0,4", "a,b,c,d"} {
		_, err := parseRect(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseHSV(t *testing.T) {
	hsv, err := parseHSV("10,60,60")
	require.NoError(t, err)
	assert.Equal(t, colorutil.HSV{H: 10, S: 60, V: 60}, hsv)

	_, err = parseHSV("10,60,300")
	require.Error(t, err)
}

func TestUpsertProfileKeepsPosition(t *testing.T) {
	profiles := []species.ColorProfile{{Species: "mint"}, {Species: "basil"}}
	updated := species.ColorProfile{Species: "mint", Upper: colorutil.HSV{H: 80}}

	got := upsertProfile(profiles, updated)
	require.Len(t, got, 2)
	assert.Equal(t, updated, got[0])

	got = upsertProfile(got, species.ColorProfile{Species: "aloe"})
	assert.Equal(t, "aloe", got[2].Species)
}
