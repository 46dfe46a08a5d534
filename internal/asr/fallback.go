package asr

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wensia/callscribe/internal/models"
)

// FallbackDecoder extracts transcript segments from flat vendor result text
// when no structured per-sentence detail is available. It handles two legacy
// line shapes:
//
//	[0:0.700,0:1.650,0]  text   (inline channel + minute:second timestamps)
//	[0]:text                    (bare channel prefix, no timestamps)
//
// The second shape gets synthetic timestamps derived from text length
// (about 5 characters per second, 1s floor) with a running offset across
// lines. It is deliberately a separate component from the structured JSON
// decoders despite sharing their output type.
type FallbackDecoder struct{}

var (
	timedLineRe = regexp.MustCompile(`^\[(\d+):(\d+(?:\.\d+)?),(\d+):(\d+(?:\.\d+)?)(?:,(\d+))?\]\s*(.*)$`)
	bareLineRe  = regexp.MustCompile(`^\[(\d+)\][:：]?\s*(.*)$`)
)

const (
	syntheticCharsPerSecond = 5.0
	syntheticMinDuration    = 1.0
)

// Decode parses flat result text into ordered segments. Lines matching
// neither shape are skipped; a fully unparseable input yields zero segments,
// which the caller records as an empty result rather than a failure.
func (d FallbackDecoder) Decode(text string, overrides SpeakerOverrides) models.TranscriptSegments {
	var segments models.TranscriptSegments
	var offset float64 // running clock for lines without timestamps

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := timedLineRe.FindStringSubmatch(line); m != nil {
			startMin, _ := strconv.ParseFloat(m[1], 64)
			startSec, _ := strconv.ParseFloat(m[2], 64)
			endMin, _ := strconv.ParseFloat(m[3], 64)
			endSec, _ := strconv.ParseFloat(m[4], 64)

			channel := m[5]
			if channel == "" {
				channel = "0"
			}

			sentence := strings.TrimSpace(m[6])
			if sentence == "" {
				continue
			}

			start := startMin*60 + startSec
			end := endMin*60 + endSec
			if end < start {
				end = start
			}

			segments = append(segments, models.TranscriptSegment{
				StartTime: start,
				EndTime:   end,
				Speaker:   defaultSpeakerForChannel(channel, overrides),
				Text:      sentence,
			})
			if end > offset {
				offset = end
			}
			continue
		}

		if m := bareLineRe.FindStringSubmatch(line); m != nil {
			sentence := strings.TrimSpace(m[2])
			if sentence == "" {
				continue
			}

			duration := float64(utf8.RuneCountInString(sentence)) / syntheticCharsPerSecond
			if duration < syntheticMinDuration {
				duration = syntheticMinDuration
			}

			segments = append(segments, models.TranscriptSegment{
				StartTime: offset,
				EndTime:   offset + duration,
				Speaker:   defaultSpeakerForChannel(m[1], overrides),
				Text:      sentence,
			})
			offset += duration
		}
	}

	segments.SortByStartTime()
	return segments
}
