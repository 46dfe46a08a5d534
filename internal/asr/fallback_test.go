package asr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wensia/callscribe/internal/models"
)

func TestFallbackDecoderTimedLines(t *testing.T) {
	input := "[0:0.700,0:1.650,0]  喂，你好。\n[1:7.740,1:9.110,1] 你好"

	segments := FallbackDecoder{}.Decode(input, nil)
	require.Len(t, segments, 2)

	assert.InDelta(t, 0.7, segments[0].StartTime, 1e-9)
	assert.InDelta(t, 1.65, segments[0].EndTime, 1e-9)
	assert.Equal(t, models.SpeakerStaff, segments[0].Speaker)
	assert.Equal(t, "喂，你好。", segments[0].Text)

	assert.InDelta(t, 67.74, segments[1].StartTime, 1e-9)
	assert.InDelta(t, 69.11, segments[1].EndTime, 1e-9)
	assert.Equal(t, models.SpeakerCustomer, segments[1].Speaker)
	assert.Equal(t, "你好", segments[1].Text)
}

func TestFallbackDecoderTimedLineWithoutChannel(t *testing.T) {
	segments := FallbackDecoder{}.Decode("[0:2.000,0:3.500] 好的", nil)
	require.Len(t, segments, 1)
	assert.Equal(t, models.SpeakerStaff, segments[0].Speaker)
	assert.InDelta(t, 2.0, segments[0].StartTime, 1e-9)
	assert.InDelta(t, 3.5, segments[0].EndTime, 1e-9)
}

func TestFallbackDecoderBareChannelSyntheticTimestamps(t *testing.T) {
	// 10 runes at ~5 chars/second gives a 2s line; the second line keeps a
	// running offset; the third is short and gets the 1s floor
	input := "[0]:一二三四五六七八九十\n[1]:一二三四五六七八九十\n[0]:短"

	segments := FallbackDecoder{}.Decode(input, nil)
	require.Len(t, segments, 3)

	assert.InDelta(t, 0.0, segments[0].StartTime, 1e-9)
	assert.InDelta(t, 2.0, segments[0].EndTime, 1e-9)
	assert.Equal(t, models.SpeakerStaff, segments[0].Speaker)

	assert.InDelta(t, 2.0, segments[1].StartTime, 1e-9)
	assert.InDelta(t, 4.0, segments[1].EndTime, 1e-9)
	assert.Equal(t, models.SpeakerCustomer, segments[1].Speaker)

	assert.InDelta(t, 4.0, segments[2].StartTime, 1e-9)
	assert.InDelta(t, 5.0, segments[2].EndTime, 1e-9)
}

func TestFallbackDecoderSortsByStartTime(t *testing.T) {
	// Vendor-native order is not chronological
	input := "[1:0.000,1:2.000,1] 后面\n[0:1.000,0:3.000,0] 前面"

	segments := FallbackDecoder{}.Decode(input, nil)
	require.Len(t, segments, 2)
	assert.Equal(t, "前面", segments[0].Text)
	assert.Equal(t, "后面", segments[1].Text)
}

func TestFallbackDecoderSpeakerOverrides(t *testing.T) {
	overrides := SpeakerOverrides{
		"0": models.SpeakerCustomer,
		"1": models.SpeakerStaff,
	}

	segments := FallbackDecoder{}.Decode("[0:0.100,0:1.000,0] 你好", overrides)
	require.Len(t, segments, 1)
	assert.Equal(t, models.SpeakerCustomer, segments[0].Speaker)
}

func TestFallbackDecoderUnparseableInput(t *testing.T) {
	segments := FallbackDecoder{}.Decode("no brackets here\n\njust text", nil)
	assert.Empty(t, segments)
}

func TestFallbackDecoderSkipsEmptySentences(t *testing.T) {
	segments := FallbackDecoder{}.Decode("[0:0.100,0:1.000,0]\n[1]:", nil)
	assert.Empty(t, segments)
}
