package endpoints

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5.0 MB",
		3 << 40:         "3.0 TB",
	}
	for in, want := range cases {
		assert.Equal(t, want, humanBytes(in), "humanBytes(%d)", in)
	}
}

func TestComputeStats(t *testing.T) {
	assert.Equal(t, model.SystemStats{StorageUsed: "0 B"}, computeStats(nil, 0))

	units := []model.SignageUnit{
		{Status: model.StatusOnline},
		{Status: model.StatusOffline},
		{Status: model.StatusMaintenance},
	}
	stats := computeStats(units, 2048)
	assert.Equal(t, 3, stats.TotalUnits)
	assert.Equal(t, 1, stats.OnlineUnits)
	assert.Equal(t, 33.3, stats.UptimePercentage)
	assert.Equal(t, "2.0 KB", stats.StorageUsed)
}

func TestEtagMatches(t *testing.T) {
	assert.False(t, etagMatches("", "abc"))
	assert.True(t, etagMatches(`"abc"`, "abc"))
	assert.True(t, etagMatches("abc", "abc"))
	assert.True(t, etagMatches(`W/"abc"`, "abc"))
	assert.True(t, etagMatches(`"x", "abc"`, "abc"))
	assert.True(t, etagMatches("*", "abc"))
	assert.False(t, etagMatches(`"abd"`, "abc"))
}
