package thumbnail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFit(t *testing.T) {
	cases := []struct {
		w, h, box    int
		wantW, wantH int
	}{
		{4000, 3000, 400, 400, 300},
		{3000, 4000, 1600, 1200, 1600},
		{300, 200, 400, 300, 200},
		{1600, 1600, 1600, 1600, 1600},
		{10000, 10, 400, 400, 1},
	}
	for _, tc := range cases {
		w, h := Fit(tc.w, tc.h, tc.box)
		assert.Equal(t, tc.wantW, w, "%dx%d in %d", tc.w, tc.h, tc.box)
		assert.Equal(t, tc.wantH, h, "%dx%d in %d", tc.w, tc.h, tc.box)
	}
}

func TestCapPixels(t *testing.T) {
	w, h := capPixels(10000, 10000, MaxPixels)
	assert.LessOrEqual(t, w*h, MaxPixels)
	assert.Equal(t, w, h)

	w, h = capPixels(4000, 3000, MaxPixels)
	assert.Equal(t, 4000, w)
	assert.Equal(t, 3000, h)
}
