package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wensia/callscribe/internal/models"
)

func TestParseWindowTime(t *testing.T) {
	t.Run("minute precision", func(t *testing.T) {
		got, err := parseWindowTime("2026-08-15 09:30", false)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 15, 9, 30, 0, 0, time.Local), got)
	})

	t.Run("date-only start normalizes to midnight", func(t *testing.T) {
		got, err := parseWindowTime("2026-08-15", false)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.Local), got)
	})

	t.Run("date-only end normalizes to 23:59", func(t *testing.T) {
		got, err := parseWindowTime("2026-08-15", true)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 15, 23, 59, 0, 0, time.Local), got)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := parseWindowTime("15/08/2026", false)
		assert.Error(t, err)
	})

	t.Run("empty value", func(t *testing.T) {
		_, err := parseWindowTime("  ", false)
		assert.Error(t, err)
	})
}

func TestWindowRejectsInvertedRange(t *testing.T) {
	params := Params{StartTime: "2026-08-20", EndTime: "2026-08-10"}
	_, _, err := params.Window()
	assert.Error(t, err)
}

func TestWindowDateOnlyRange(t *testing.T) {
	params := Params{StartTime: "2026-08-10", EndTime: "2026-08-10"}
	start, end, err := params.Window()
	require.NoError(t, err)
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
}

func TestConcurrencyFor(t *testing.T) {
	interval := 4 * time.Second

	t.Run("fixed default for other vendors", func(t *testing.T) {
		assert.Equal(t, DefaultConcurrency, concurrencyFor(models.ProviderTencent, 100, interval))
		assert.Equal(t, DefaultConcurrency, concurrencyFor(models.ProviderAlibaba, 100, interval))
	})

	t.Run("volcengine derives from rate budget", func(t *testing.T) {
		// 20 qps * 4s * 0.4 = 32
		assert.Equal(t, 32, concurrencyFor(models.ProviderVolcengine, 20, interval))
	})

	t.Run("volcengine lower bound", func(t *testing.T) {
		assert.Equal(t, minAutoConcurrency, concurrencyFor(models.ProviderVolcengine, 1, interval))
	})

	t.Run("volcengine upper bound", func(t *testing.T) {
		assert.Equal(t, maxAutoConcurrency, concurrencyFor(models.ProviderVolcengine, 200, interval))
	})
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	params := Params{}
	params.normalize()

	assert.Equal(t, DefaultBatchSize, params.BatchSize)
	assert.Equal(t, DefaultPageSize, params.PageSize)
	assert.Equal(t, DefaultQPS, params.QPS)
	assert.Equal(t, 2, params.ChannelNum)
}
