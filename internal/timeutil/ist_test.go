package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCropYearUsesIST(t *testing.T) {
	// 31 Dec 20:00 UTC is already 1 Jan in India.
	ts := time.Date(2023, 12, 31, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 2024, CropYear(ts))
}

func TestValidCropYear(t *testing.T) {
	next := CropYear(time.Now()) + 1
	assert.True(t, ValidCropYear(2020))
	assert.True(t, ValidCropYear(next))
	assert.False(t, ValidCropYear(next+1))
	assert.False(t, ValidCropYear(1800))
}
